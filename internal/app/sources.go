package service

import (
	"fmt"
	"math"

	"github.com/okian/endurank/internal/config"
	"github.com/okian/endurank/internal/racesync"
)

// Sources builds the race calendars named in configuration. HTTP feeds are
// rate limited to ratePerSec requests each; zero or less leaves them unlimited.
func Sources(cfgs []config.SyncSource, ratePerSec float64) ([]racesync.Source, error) {
	sources := make([]racesync.Source, 0, len(cfgs))
	for _, src := range cfgs {
		switch src.Kind {
		case config.SourceFile:
			sources = append(sources, racesync.NewFileSource(src.Name, src.Location))
		case config.SourceHTTP:
			burst := max(int(math.Ceil(ratePerSec)), 1)
			sources = append(sources, racesync.NewHTTPSource(src.Name, src.Location,
				racesync.WithRateLimit(ratePerSec, burst)))
		default:
			return nil, fmt.Errorf("%w: %q (source %s)", ErrSourceKind, src.Kind, src.Name)
		}
	}
	return sources, nil
}

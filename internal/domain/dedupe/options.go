package dedupe

import (
	"github.com/okian/endurank/pkg/logger"
)

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithThreshold sets the similarity percentage at or above which a stored
// item is reported as similar. Values outside 1..100 are ignored.
func WithThreshold(threshold int) Option {
	return func(v *Validator) {
		if threshold > 0 && threshold <= 100 {
			v.threshold = threshold
		}
	}
}

// WithLogger sets the logger used to report fail-open lookups.
func WithLogger(l logger.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.log = l
		}
	}
}

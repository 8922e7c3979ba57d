package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/endurank/internal/domain/scoring"
	"github.com/okian/endurank/internal/domain/types"
)

// SearchDependencies defines the interface for race search.
type SearchDependencies interface {
	Search(ctx context.Context, text string, tier scoring.Sensitivity) (types.SearchResult, error)
}

// SearchHandler handles search requests.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// HandleSearch handles GET /search?q=...&tier=... requests.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"
	tier, err := parseTier(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Search(r.Context(), r.URL.Query().Get("q"), tier)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseTier reads the optional tier query parameter. Empty means mid-range.
func parseTier(r *http.Request) (scoring.Sensitivity, error) {
	raw := r.URL.Query().Get("tier")
	tier, ok := scoring.ParseSensitivity(raw)
	if !ok {
		return "", fmt.Errorf("unknown tier %q", raw)
	}
	return tier, nil
}

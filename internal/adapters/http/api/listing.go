package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/scoring"
	"github.com/okian/endurank/internal/domain/types"
)

const defaultListingLimit = 20

// ListingDependencies defines the interface for ranked listings.
type ListingDependencies interface {
	Listing(ctx context.Context, kind model.Kind, tier scoring.Sensitivity, limit int) (types.Listing, error)
	Rank(ctx context.Context, kind model.Kind, id string, tier scoring.Sensitivity) (types.ScoredItem, error)
}

// ListingHandler handles listing requests.
type ListingHandler struct {
	deps     ListingDependencies
	maxLimit int
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(deps ListingDependencies, maxLimit int) *ListingHandler {
	return &ListingHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetListing handles GET /listings/{kind}?tier=...&limit=N requests.
func (h *ListingHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_listing"
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	tier, err := parseTier(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	n := defaultListingLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrLimitExceeded))
		return
	}

	listing, err := h.deps.Listing(r.Context(), kind, tier, n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// HandleGetRank handles GET /listings/{kind}/{id}?tier=... requests.
func (h *ListingHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	tier, err := parseTier(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ranked, err := h.deps.Rank(r.Context(), kind, r.PathValue("id"), tier)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

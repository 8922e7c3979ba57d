// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/endurank/internal/adapters/repository"
	service "github.com/okian/endurank/internal/app"
	"github.com/okian/endurank/internal/domain/dedupe"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/validation"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SearchDependencies
	ScoreDependencies
	SubmitDependencies
	ModerateDependencies
	ListingDependencies
	SyncDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	searchHandler   *SearchHandler
	scoreHandler    *ScoreHandler
	submitHandler   *SubmitHandler
	moderateHandler *ModerateHandler
	listingHandler  *ListingHandler
	syncHandler     *SyncHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxListingLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		searchHandler:   NewSearchHandler(deps),
		scoreHandler:    NewScoreHandler(deps),
		submitHandler:   NewSubmitHandler(deps),
		moderateHandler: NewModerateHandler(deps),
		listingHandler:  NewListingHandler(deps, maxListingLimit),
		syncHandler:     NewSyncHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /search", MetricsMiddleware(s.searchHandler.HandleSearch, "search"))
	mux.HandleFunc("POST /score", MetricsMiddleware(s.scoreHandler.HandleScore, "score"))

	mux.HandleFunc("POST /gear", MetricsMiddleware(s.submitHandler.HandleSubmitGear, "gear"))
	mux.HandleFunc("POST /races", MetricsMiddleware(s.submitHandler.HandleSubmitRace, "races"))
	mux.HandleFunc("POST /gear/validate", MetricsMiddleware(s.submitHandler.HandleValidateGear, "gear_validate"))
	mux.HandleFunc("POST /races/validate", MetricsMiddleware(s.submitHandler.HandleValidateRace, "races_validate"))
	mux.HandleFunc("POST /items/{kind}/{id}/moderate", MetricsMiddleware(s.moderateHandler.HandleModerate, "moderate"))

	mux.HandleFunc("GET /listings/{kind}", MetricsMiddleware(s.listingHandler.HandleGetListing, "listings"))
	mux.HandleFunc("GET /listings/{kind}/{id}", MetricsMiddleware(s.listingHandler.HandleGetRank, "listing_rank"))

	mux.HandleFunc("POST /sync", MetricsMiddleware(s.syncHandler.HandleTriggerSync, "sync"))
	mux.HandleFunc("GET /sync/{runId}", MetricsMiddleware(s.syncHandler.HandleGetRun, "sync_run"))
}

type errorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads one JSON document from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

// writeServiceError translates service and domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_failed",
			Message: Wrap(op, err).Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", Wrap(op, err))
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", Wrap(op, err))
	case errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, repository.ErrNoListing),
		errors.Is(err, service.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, dedupe.ErrUnableToValidate):
		writeError(w, http.StatusServiceUnavailable, "validation_unavailable", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

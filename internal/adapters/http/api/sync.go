package api

import (
	"context"
	"net/http"

	"github.com/okian/endurank/internal/domain/types"
)

// SyncDependencies defines the interface for race sync runs.
type SyncDependencies interface {
	TriggerSync(ctx context.Context) (types.SyncSummary, error)
	SyncRun(runID string) (types.SyncSummary, error)
}

// SyncHandler handles sync requests.
type SyncHandler struct {
	deps SyncDependencies
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps SyncDependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandleTriggerSync handles POST /sync requests. Records are applied
// asynchronously; poll GET /sync/{runId} for the tally.
func (h *SyncHandler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.trigger_sync"
	summary, err := h.deps.TriggerSync(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, summary)
}

// HandleGetRun handles GET /sync/{runId} requests.
func (h *SyncHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_sync_run"
	summary, err := h.deps.SyncRun(r.PathValue("runId"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/endurank/internal/domain/model"
)

// ModerateDependencies defines the interface for moderation.
type ModerateDependencies interface {
	Moderate(ctx context.Context, kind model.Kind, id string, status model.Status) (model.Item, error)
}

type moderateRequest struct {
	Status model.Status `json:"status"`
}

// ModerateHandler handles moderation requests.
type ModerateHandler struct {
	deps ModerateDependencies
}

// NewModerateHandler creates a new moderate handler.
func NewModerateHandler(deps ModerateDependencies) *ModerateHandler {
	return &ModerateHandler{deps: deps}
}

// HandleModerate handles POST /items/{kind}/{id}/moderate requests.
func (h *ModerateHandler) HandleModerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.moderate"
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var req moderateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	item, err := h.deps.Moderate(r.Context(), kind, r.PathValue("id"), req.Status)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// pathKind reads the {kind} path segment, accepting singular or plural.
func pathKind(r *http.Request) (model.Kind, error) {
	raw := r.PathValue("kind")
	kind, ok := model.ParseKind(raw)
	if !ok {
		return "", fmt.Errorf("unknown kind %q", raw)
	}
	return kind, nil
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/endurank/internal/domain/dedupe"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/types"
)

const defaultCreatedBy = "admin"

// SubmitDependencies defines the interface for catalog submissions.
type SubmitDependencies interface {
	Submit(ctx context.Context, d model.Draft, confirmed bool, createdBy string) (types.SubmitResult, error)
	Validate(ctx context.Context, d model.Draft) (dedupe.Result, error)
}

type gearSubmission struct {
	model.GearDraft
	Confirmed bool   `json:"confirmed"`
	CreatedBy string `json:"createdBy"`
}

type raceSubmission struct {
	model.RaceDraft
	Confirmed bool   `json:"confirmed"`
	CreatedBy string `json:"createdBy"`
}

// SubmitHandler handles gear and race submissions.
type SubmitHandler struct {
	deps SubmitDependencies
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies) *SubmitHandler {
	return &SubmitHandler{deps: deps}
}

// HandleSubmitGear handles POST /gear requests.
func (h *SubmitHandler) HandleSubmitGear(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_gear"
	var req gearSubmission
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.submit(w, r, op, req.GearDraft, req.Confirmed, req.CreatedBy)
}

// HandleSubmitRace handles POST /races requests.
func (h *SubmitHandler) HandleSubmitRace(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_race"
	var req raceSubmission
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.submit(w, r, op, req.RaceDraft, req.Confirmed, req.CreatedBy)
}

// HandleValidateGear handles POST /gear/validate requests.
func (h *SubmitHandler) HandleValidateGear(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_gear"
	var req model.GearDraft
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.validate(w, r, op, req)
}

// HandleValidateRace handles POST /races/validate requests.
func (h *SubmitHandler) HandleValidateRace(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_race"
	var req model.RaceDraft
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.validate(w, r, op, req)
}

func (h *SubmitHandler) submit(w http.ResponseWriter, r *http.Request, op string, d model.Draft, confirmed bool, createdBy string) {
	if strings.TrimSpace(createdBy) == "" {
		createdBy = defaultCreatedBy
	}
	res, err := h.deps.Submit(r.Context(), d, confirmed, createdBy)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	switch res.Outcome {
	case types.SubmissionCreated:
		writeJSON(w, http.StatusCreated, res)
	case types.SubmissionBlocked:
		writeJSON(w, http.StatusConflict, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *SubmitHandler) validate(w http.ResponseWriter, r *http.Request, op string, d model.Draft) {
	res, err := h.deps.Validate(r.Context(), d)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

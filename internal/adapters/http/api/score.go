package api

import (
	"errors"
	"net/http"

	"github.com/okian/endurank/internal/domain/scoring"
	"github.com/okian/endurank/internal/domain/types"
	"github.com/okian/endurank/internal/validation"
)

// ScoreDependencies defines the interface for ad-hoc scoring.
type ScoreDependencies interface {
	Score(in scoring.Input) types.ScoreResult
	ScoreFor(rating float64, tier scoring.Sensitivity, price, categoryMax float64) types.ScoreResult
}

// scoreRequest carries either the three raw terms or a rating with a user
// tier and prices.
type scoreRequest struct {
	AverageRating   *float64 `json:"averageRating" validate:"omitempty,gte=0,lte=5"`
	CostSensitivity *float64 `json:"costSensitivity" validate:"omitempty,gte=0,lte=1"`
	NormalizedPrice *float64 `json:"normalizedPrice" validate:"omitempty,gte=0,lte=1"`

	Rating      *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Tier        string   `json:"tier" validate:"sensitivity"`
	Price       float64  `json:"price" validate:"gte=0"`
	CategoryMax float64  `json:"categoryMax" validate:"gte=0"`
}

func (s scoreRequest) raw() bool {
	return s.AverageRating != nil || s.CostSensitivity != nil || s.NormalizedPrice != nil
}

func (s scoreRequest) validate() error {
	if err := validation.Struct(s); err != nil {
		return err
	}
	switch {
	case s.raw() && s.Rating != nil:
		return errors.New("send either averageRating terms or rating, not both")
	case s.raw() && (s.AverageRating == nil || s.CostSensitivity == nil || s.NormalizedPrice == nil):
		return errors.New("averageRating, costSensitivity and normalizedPrice go together")
	case !s.raw() && s.Rating == nil:
		return errors.New("missing rating")
	}
	return nil
}

// ScoreHandler handles score requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleScore handles POST /score requests.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeServiceError(w, op, err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if req.raw() {
		writeJSON(w, http.StatusOK, h.deps.Score(scoring.Input{
			AverageRating:   *req.AverageRating,
			CostSensitivity: *req.CostSensitivity,
			NormalizedPrice: *req.NormalizedPrice,
		}))
		return
	}
	tier, _ := scoring.ParseSensitivity(req.Tier)
	writeJSON(w, http.StatusOK, h.deps.ScoreFor(*req.Rating, tier, req.Price, req.CategoryMax))
}

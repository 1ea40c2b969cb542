package handlers

import (
	"log/slog"
	"net/http"

	"github.com/athleon/academy-engine/services"
)

type MatchHandler struct {
	progression services.ProgressionService
	mapper      errorMapper
}

func NewMatchHandler(progression services.ProgressionService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		progression: progression,
		mapper:      errorMapper{logger: logger},
	}
}

// SubmitResult records a match result. Score2 is ignored for individual
// ranking sessions.
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	var input struct {
		Score1 *float64 `json:"score1"`
		Score2 *float64 `json:"score2"`
	}
	if err := readJSON(w, r, &input); err != nil {
		h.mapper.badRequest(w, err)
		return
	}
	if input.Score1 == nil {
		h.mapper.serviceError(w, r, services.ErrResultScoresRequired)
		return
	}
	score2 := 0.0
	if input.Score2 != nil {
		score2 = *input.Score2
	}

	match, err := h.progression.SubmitResult(r.Context(), id, *input.Score1, score2)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

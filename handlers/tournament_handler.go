package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
	"github.com/athleon/academy-engine/services"
)

type TournamentHandler struct {
	tournaments services.TournamentService
	bracket     services.BracketService
	lifecycle   services.LifecycleService
	finalizer   services.FinalizerService
	mapper      errorMapper
}

func NewTournamentHandler(
	tournaments services.TournamentService,
	bracket services.BracketService,
	lifecycle services.LifecycleService,
	finalizer services.FinalizerService,
	logger *slog.Logger,
) *TournamentHandler {
	return &TournamentHandler{
		tournaments: tournaments,
		bracket:     bracket,
		lifecycle:   lifecycle,
		finalizer:   finalizer,
		mapper:      errorMapper{logger: logger},
	}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	tournament, err := h.tournaments.Create(r.Context(), input)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	tournament, err := h.tournaments.Get(r.Context(), id)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	phase := models.TournamentPhase(r.URL.Query().Get("phase"))
	if phase == "" {
		phase = models.PhaseInProgress
	}

	tournaments, err := h.tournaments.ListByPhase(r.Context(), phase)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

// Transition moves the tournament into the requested phase, subject to the
// lifecycle rules. Most transitions happen automatically; this endpoint
// exists for operator-driven moves.
func (h *TournamentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	var input struct {
		Phase models.TournamentPhase `json:"phase"`
	}
	if err := readJSON(w, r, &input); err != nil {
		h.mapper.badRequest(w, err)
		return
	}
	if !input.Phase.Valid() {
		h.mapper.badRequest(w, fmt.Errorf("unknown phase %q", input.Phase))
		return
	}

	tournament, err := h.lifecycle.Transition(r.Context(), id, input.Phase)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

// Start freezes the submitted enrollment and generates the bracket.
func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	var input struct {
		ParticipantIDs []int `json:"participant_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	tournament, err := h.bracket.StartTournament(r.Context(), id, input.ParticipantIDs)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *TournamentHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	var filter repositories.MatchFilter
	if raw := r.URL.Query().Get("phase"); raw != "" {
		phase := models.MatchPhase(raw)
		filter.Phase = &phase
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.MatchStatus(raw)
		filter.Status = &status
	}

	matches, err := h.tournaments.ListMatches(r.Context(), id, filter)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *TournamentHandler) Standings(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	standings, err := h.tournaments.Standings(r.Context(), id)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *TournamentHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	snapshot, err := h.tournaments.Snapshot(r.Context(), id)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"snapshot": snapshot}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

// Finalize closes the group stage and seeds the knockout bracket. Replays
// return the stored snapshot.
func (h *TournamentHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	snapshot, err := h.finalizer.FinalizeGroupStage(r.Context(), id)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"snapshot": snapshot}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

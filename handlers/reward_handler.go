package handlers

import (
	"log/slog"
	"net/http"

	"github.com/athleon/academy-engine/repositories"
	"github.com/athleon/academy-engine/services"
)

type RewardHandler struct {
	rewards        services.RewardService
	badges         services.BadgeService
	participations repositories.ParticipationRepository
	skills         repositories.SkillProfileRepository
	mapper         errorMapper
}

func NewRewardHandler(
	rewards services.RewardService,
	badges services.BadgeService,
	participations repositories.ParticipationRepository,
	skills repositories.SkillProfileRepository,
	logger *slog.Logger,
) *RewardHandler {
	return &RewardHandler{
		rewards:        rewards,
		badges:         badges,
		participations: participations,
		skills:         skills,
		mapper:         errorMapper{logger: logger},
	}
}

// Distribute runs reward distribution for a completed tournament. Partial
// failure returns 207 with the per-user report so the caller can retry.
func (h *RewardHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	report, err := h.rewards.DistributeTournament(r.Context(), id)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(report.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	if err := writeJSON(w, status, jsonResponse{"report": report}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *RewardHandler) ListParticipations(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	records, err := h.participations.ListByTournament(r.Context(), nil, id)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participations": records}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *RewardHandler) UserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	badges, err := h.badges.ListForUser(r.Context(), userID)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"badges": badges}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *RewardHandler) UserSkills(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	profiles, err := h.skills.ListByUser(r.Context(), nil, userID)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"skills": profiles}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

func (h *RewardHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		h.mapper.badRequest(w, err)
		return
	}

	records, err := h.participations.ListByUser(r.Context(), nil, userID)
	if err != nil {
		h.mapper.serviceError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participations": records}, nil); err != nil {
		h.mapper.serverError(w, r, err)
	}
}

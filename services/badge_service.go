package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

const (
	milestoneFirst    = 1
	milestoneSeasoned = 5
	milestoneVeteran  = 10
	hatTrickStreak    = 3
)

// BadgeService awards placement, participation, milestone and achievement
// badges for one user's finished tournament. Awarding is idempotent per
// (user, tournament, type); a rerun finds its badges already present and
// moves on.
type BadgeService interface {
	AwardForTournament(ctx context.Context, exec repositories.SQLExecutor, award BadgeAward) ([]*models.Badge, error)
	ListForUser(ctx context.Context, userID int) ([]*models.Badge, error)
}

// BadgeAward is one user's context at distribution time. CompletedCount and
// RecentPlacements include the tournament being distributed.
type BadgeAward struct {
	UserID           int
	TournamentID     int
	Placement        int
	CompletedCount   int
	RecentPlacements []int
}

type badgeService struct {
	badgeRepo repositories.BadgeRepository
	logger    *slog.Logger
}

func NewBadgeService(badgeRepo repositories.BadgeRepository, logger *slog.Logger) BadgeService {
	return &badgeService{badgeRepo: badgeRepo, logger: logger}
}

type badgeSpec struct {
	badgeType models.BadgeType
	category  models.BadgeCategory
	rarity    models.BadgeRarity
	label     string
}

func placementBadge(placement int) badgeSpec {
	switch placement {
	case 1:
		return badgeSpec{models.BadgeChampion, models.BadgeCategoryPlacement, models.RarityEpic, "Champion"}
	case 2:
		return badgeSpec{models.BadgeRunnerUp, models.BadgeCategoryPlacement, models.RarityRare, "Runner-up"}
	case 3:
		return badgeSpec{models.BadgeThirdPlace, models.BadgeCategoryPlacement, models.RarityRare, "Third Place"}
	default:
		return badgeSpec{models.BadgeContender, models.BadgeCategoryPlacement, models.RarityCommon, "Contender"}
	}
}

func (s *badgeService) AwardForTournament(ctx context.Context, exec repositories.SQLExecutor, award BadgeAward) ([]*models.Badge, error) {
	specs := []badgeSpec{
		placementBadge(award.Placement),
		{models.BadgeParticipation, models.BadgeCategoryParticipation, models.RarityCommon, "Participant"},
	}

	switch award.CompletedCount {
	case milestoneFirst:
		specs = append(specs, badgeSpec{models.BadgeFirstSteps, models.BadgeCategoryMilestone, models.RarityCommon, "First Steps"})
	case milestoneSeasoned:
		specs = append(specs, badgeSpec{models.BadgeSeasoned, models.BadgeCategoryMilestone, models.RarityRare, "Seasoned Competitor"})
	case milestoneVeteran:
		specs = append(specs, badgeSpec{models.BadgeVeteran, models.BadgeCategoryMilestone, models.RarityEpic, "Veteran"})
	}

	if streakOfWins(award.RecentPlacements) {
		specs = append(specs, badgeSpec{models.BadgeHatTrick, models.BadgeCategoryAchievement, models.RarityLegendary, "Hat-Trick"})
	}

	awarded := make([]*models.Badge, 0, len(specs))
	for _, spec := range specs {
		badge, err := s.awardOne(ctx, exec, award.UserID, award.TournamentID, spec)
		if err != nil {
			return nil, err
		}
		if badge != nil {
			awarded = append(awarded, badge)
		}
	}
	return awarded, nil
}

func (s *badgeService) awardOne(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int, spec badgeSpec) (*models.Badge, error) {
	exists, err := s.badgeRepo.Exists(ctx, exec, userID, tournamentID, spec.badgeType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	badge := &models.Badge{
		UID:          uuid.NewString(),
		UserID:       userID,
		TournamentID: tournamentID,
		Type:         spec.badgeType,
		Category:     spec.category,
		Rarity:       spec.rarity,
		Label:        spec.label,
	}
	if err := s.badgeRepo.Create(ctx, exec, badge); err != nil {
		// A concurrent distribution for the same user can win the race
		// between Exists and Create. The badge is there either way.
		if errors.Is(err, repositories.ErrBadgeConflict) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to award %s badge: %w", spec.badgeType, err)
	}

	s.logger.InfoContext(ctx, "badge awarded",
		slog.Int("user_id", userID),
		slog.Int("tournament_id", tournamentID),
		slog.String("type", string(spec.badgeType)),
		slog.String("rarity", string(spec.rarity)),
	)
	return badge, nil
}

func (s *badgeService) ListForUser(ctx context.Context, userID int) ([]*models.Badge, error) {
	return s.badgeRepo.ListByUser(ctx, nil, userID)
}

// streakOfWins reports whether the newest placements form a full winning
// streak of hatTrickStreak tournaments.
func streakOfWins(recent []int) bool {
	if len(recent) < hatTrickStreak {
		return false
	}
	for _, placement := range recent[:hatTrickStreak] {
		if placement != 1 {
			return false
		}
	}
	return true
}

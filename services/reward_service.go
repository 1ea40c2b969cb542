package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/athleon/academy-engine/db"
	"github.com/athleon/academy-engine/live"
	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
	"github.com/athleon/academy-engine/skillrating"
)

// distributionConcurrency bounds parallel per-user transactions during one
// distribution run.
const distributionConcurrency = 4

// DistributionReport summarizes one distribution run. Failed users keep
// their error text; a rerun retries exactly those users.
type DistributionReport struct {
	TournamentID int            `json:"tournament_id"`
	Succeeded    []int          `json:"succeeded"`
	Failed       map[int]string `json:"failed,omitempty"`
	Completed    bool           `json:"completed"`
}

// advisoryLocker guards the per-user check-then-create against concurrent
// distribution runs.
type advisoryLocker interface {
	TryLock(ctx context.Context, exec repositories.SQLExecutor, key1, key2 int) (bool, error)
}

// RewardService turns a completed tournament into participation records,
// skill rating updates and badges. The whole operation is idempotent: each
// user's outcome is committed independently, and reruns skip users who
// already hold their participation record.
type RewardService interface {
	DistributeTournament(ctx context.Context, tournamentID int) (*DistributionReport, error)
}

type rewardService struct {
	txRunner          db.TxRunner
	tournamentRepo    repositories.TournamentRepository
	matchRepo         repositories.MatchRepository
	snapshotRepo      repositories.SnapshotRepository
	participationRepo repositories.ParticipationRepository
	locker            advisoryLocker
	skills            SkillWriter
	badges            BadgeService
	lifecycle         LifecycleService
	hub               live.Broadcaster
	logger            *slog.Logger
}

func NewRewardService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	snapshotRepo repositories.SnapshotRepository,
	participationRepo repositories.ParticipationRepository,
	skills SkillWriter,
	badges BadgeService,
	lifecycle LifecycleService,
	hub live.Broadcaster,
	logger *slog.Logger,
) RewardService {
	return &rewardService{
		txRunner:          txRunner,
		tournamentRepo:    tournamentRepo,
		matchRepo:         matchRepo,
		snapshotRepo:      snapshotRepo,
		participationRepo: participationRepo,
		locker:            repositories.AdvisoryLocker{},
		skills:            skills,
		badges:            badges,
		lifecycle:         lifecycle,
		hub:               hub,
		logger:            logger,
	}
}

func (s *rewardService) DistributeTournament(ctx context.Context, tournamentID int) (*DistributionReport, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	// REWARDS_DISTRIBUTED is accepted so a partially failed run can be
	// retried; per-user idempotency makes the rerun safe.
	if tournament.Phase != models.PhaseCompleted && tournament.Phase != models.PhaseRewardsDistributed {
		return nil, fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotCompleted, tournamentID, tournament.Phase)
	}
	if err := loadConfig(tournament); err != nil {
		return nil, err
	}

	placements, err := s.resolvePlacements(ctx, tournament)
	if err != nil {
		return nil, err
	}

	report := &DistributionReport{
		TournamentID: tournamentID,
		Failed:       make(map[int]string),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(distributionConcurrency)
	for _, userID := range tournament.EnrollmentSnapshot {
		g.Go(func() error {
			err := s.distributeOne(gctx, tournament, userID, placements)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// One user's failure never cancels the others.
				report.Failed[userID] = err.Error()
				s.logger.ErrorContext(gctx, "reward distribution failed for user",
					slog.Int("tournament_id", tournamentID),
					slog.Int("user_id", userID),
					slog.Any("error", err),
				)
				return nil
			}
			report.Succeeded = append(report.Succeeded, userID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Ints(report.Succeeded)

	if len(report.Failed) == 0 {
		if tournament.Phase == models.PhaseCompleted {
			if _, err := s.lifecycle.Transition(ctx, tournamentID, models.PhaseRewardsDistributed); err != nil {
				// A concurrent run may have claimed the transition between
				// our phase read and now. Per-user idempotency already made
				// this run a no-op, so losing that race is not a failure.
				current, lookupErr := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
				if lookupErr != nil || current.Phase != models.PhaseRewardsDistributed {
					return report, err
				}
			} else {
				s.hub.Publish(live.Event{
					Type:         live.EventRewardsDistributed,
					TournamentID: tournamentID,
					Payload:      map[string]any{"users": len(report.Succeeded)},
				})
			}
		}
		report.Completed = true
	}

	s.logger.InfoContext(ctx, "reward distribution finished",
		slog.Int("tournament_id", tournamentID),
		slog.Int("succeeded", len(report.Succeeded)),
		slog.Int("failed", len(report.Failed)),
		slog.Bool("completed", report.Completed),
	)
	return report, nil
}

func (s *rewardService) resolvePlacements(ctx context.Context, t *models.Tournament) (map[int]int, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, nil, t.ID, repositories.MatchFilter{})
	if err != nil {
		return nil, err
	}

	var snapshot *models.FinalizationSnapshot
	if t.Format == models.FormatGroupAndKnockout {
		snapshot, err = s.snapshotRepo.GetByTournament(ctx, nil, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load finalization snapshot for tournament %d: %w", t.ID, err)
		}
	}

	placements, err := ComputePlacements(t, matches, snapshot)
	if err != nil {
		return nil, err
	}
	for _, userID := range t.EnrollmentSnapshot {
		if _, ok := placements[userID]; !ok {
			return nil, fmt.Errorf("%w: user %d has no placement", ErrParticipantNotInSnapshot, userID)
		}
	}
	return placements, nil
}

// distributeOne runs one user's full reward pipeline in its own transaction.
// The advisory lock on (user, tournament) makes the check-then-create on the
// participation record safe against a concurrent run of the same
// distribution.
func (s *rewardService) distributeOne(ctx context.Context, t *models.Tournament, userID int, placements map[int]int) error {
	return s.txRunner.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		locked, err := s.locker.TryLock(ctx, tx, userID, t.ID)
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("%w: user %d tournament %d", ErrDistributionContended, userID, t.ID)
		}

		placement := placements[userID]

		record, err := s.participationRepo.GetByUserAndTournament(ctx, tx, userID, t.ID)
		switch {
		case err == nil:
			// Numeric rewards already landed. Fall through to badges, which
			// carry their own idempotency.
		case errors.Is(err, repositories.ErrParticipationNotFound):
			record, err = s.applyNumericRewards(ctx, tx, t, userID, placement)
			if err != nil {
				return err
			}
		default:
			return err
		}

		completedCount, err := s.participationRepo.CountByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		recent, err := s.participationRepo.RecentPlacements(ctx, tx, userID, hatTrickStreak)
		if err != nil {
			return err
		}

		_, err = s.badges.AwardForTournament(ctx, tx, BadgeAward{
			UserID:           userID,
			TournamentID:     t.ID,
			Placement:        record.Placement,
			CompletedCount:   completedCount,
			RecentPlacements: recent,
		})
		return err
	})
}

// applyNumericRewards computes and persists the skill points, experience,
// credits and rating updates for one user, then writes the participation
// record that marks them done.
func (s *rewardService) applyNumericRewards(ctx context.Context, tx repositories.SQLExecutor, t *models.Tournament, userID, placement int) (*models.ParticipationRecord, error) {
	policy := t.Config.Rewards
	points := splitPointBudget(policy.BudgetFor(placement), t.SkillWeights)

	experience := 0.0
	for skill, pts := range points {
		experience += pts * policy.XPRateFor(t.Config.SkillCategories[skill])
	}

	total := len(t.EnrollmentSnapshot)
	for skill, weight := range t.SkillWeights {
		current, err := s.skills.Current(ctx, tx, userID, skill)
		if err != nil {
			return nil, err
		}
		updated, err := skillrating.Update(skillrating.UpdateParams{
			PreviousValue:     current,
			Placement:         placement,
			TotalParticipants: total,
			SkillWeight:       weight,
			LearningRate:      policy.LearningRate,
			SafetyCap:         policy.SafetyCap,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update %s rating for user %d: %w", skill, userID, err)
		}
		if err := s.skills.Write(ctx, tx, userID, skill, updated); err != nil {
			return nil, err
		}
	}

	record := &models.ParticipationRecord{
		UserID:       userID,
		TournamentID: t.ID,
		Placement:    placement,
		SkillPoints:  points,
		Experience:   int(math.Round(experience)),
		Credits:      policy.CreditsFor(placement),
	}
	if err := s.participationRepo.Create(ctx, tx, record); err != nil {
		if errors.Is(err, repositories.ErrParticipationConflict) {
			return s.participationRepo.GetByUserAndTournament(ctx, tx, userID, t.ID)
		}
		return nil, err
	}
	return record, nil
}

// splitPointBudget divides a placement's point budget across skills in
// proportion to their weights.
func splitPointBudget(budget float64, weights map[string]float64) map[string]float64 {
	points := make(map[string]float64, len(weights))
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return points
	}
	for skill, w := range weights {
		points[skill] = budget * w / sum
	}
	return points
}

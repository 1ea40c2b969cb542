package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

// RewardSweeper periodically retries reward distribution for tournaments
// that finished but never reached REWARDS_DISTRIBUTED, picking up runs that
// failed partway. Idempotent distribution makes blind retries safe. It also
// flags drafts whose start date has passed without anyone calling start.
type RewardSweeper struct {
	tournamentRepo repositories.TournamentRepository
	rewards        RewardService
	scheduler      gocron.Scheduler
	logger         *slog.Logger
}

func NewRewardSweeper(
	tournamentRepo repositories.TournamentRepository,
	rewards RewardService,
	logger *slog.Logger,
) (*RewardSweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &RewardSweeper{
		tournamentRepo: tournamentRepo,
		rewards:        rewards,
		scheduler:      scheduler,
		logger:         logger,
	}, nil
}

func (s *RewardSweeper) Start(interval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.sweep),
	)
	if err != nil {
		return err
	}
	s.scheduler.Start()
	s.logger.Info("reward sweeper started", slog.Duration("interval", interval))
	return nil
}

func (s *RewardSweeper) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *RewardSweeper) sweep() {
	ctx := context.Background()

	s.flagOverdueDrafts(ctx)

	pending, err := s.tournamentRepo.ListByPhase(ctx, nil, models.PhaseCompleted)
	if err != nil {
		s.logger.Error("reward sweep: failed to list completed tournaments", slog.Any("error", err))
		return
	}

	for _, tournament := range pending {
		report, err := s.rewards.DistributeTournament(ctx, tournament.ID)
		if err != nil {
			s.logger.Error("reward sweep: distribution failed",
				slog.Int("tournament_id", tournament.ID),
				slog.Any("error", err),
			)
			continue
		}
		if !report.Completed {
			s.logger.Warn("reward sweep: distribution still incomplete",
				slog.Int("tournament_id", tournament.ID),
				slog.Int("failed_users", len(report.Failed)),
			)
		}
	}
}

// flagOverdueDrafts logs drafts whose start date has passed. Starting a
// tournament needs the participant list, so the sweeper cannot start them
// itself; the log line is the operator's cue.
func (s *RewardSweeper) flagOverdueDrafts(ctx context.Context) {
	drafts, err := s.tournamentRepo.ListByPhase(ctx, nil, models.PhaseDraft)
	if err != nil {
		s.logger.Error("reward sweep: failed to list draft tournaments", slog.Any("error", err))
		return
	}
	now := time.Now()
	for _, tournament := range drafts {
		if tournament.StartDate.Before(now) {
			s.logger.Warn("tournament past its start date but still in draft",
				slog.Int("tournament_id", tournament.ID),
				slog.Time("start_date", tournament.StartDate),
			)
		}
	}
}

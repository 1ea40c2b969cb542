package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/athleon/academy-engine/brackets"
	"github.com/athleon/academy-engine/db"
	"github.com/athleon/academy-engine/live"
	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
	"github.com/athleon/academy-engine/storage"
)

// FinalizerService closes a finished group stage: it freezes the standings
// into an immutable snapshot, seeds the qualifiers and creates the knockout
// rounds. Calling it again after success returns the stored snapshot without
// side effects.
type FinalizerService interface {
	FinalizeGroupStage(ctx context.Context, tournamentID int) (*models.FinalizationSnapshot, error)
}

type finalizerService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	snapshotRepo   repositories.SnapshotRepository
	archiver       storage.SnapshotArchiver
	hub            live.Broadcaster
	logger         *slog.Logger
}

func NewFinalizerService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	snapshotRepo repositories.SnapshotRepository,
	archiver storage.SnapshotArchiver,
	hub live.Broadcaster,
	logger *slog.Logger,
) FinalizerService {
	return &finalizerService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		snapshotRepo:   snapshotRepo,
		archiver:       archiver,
		hub:            hub,
		logger:         logger,
	}
}

func (s *finalizerService) FinalizeGroupStage(ctx context.Context, tournamentID int) (*models.FinalizationSnapshot, error) {
	var (
		snapshot *models.FinalizationSnapshot
		replayed bool
	)

	err := s.txRunner.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Format != models.FormatGroupAndKnockout {
			return fmt.Errorf("%w: tournament %d is %s", ErrNotGroupFormat, tournamentID, tournament.Format)
		}
		if err := loadConfig(tournament); err != nil {
			return err
		}

		// Replay detection first: a stored snapshot means a previous call
		// already finalized this stage.
		existing, err := s.snapshotRepo.GetByTournament(ctx, tx, tournamentID)
		if err == nil {
			snapshot = existing
			replayed = true
			return nil
		}
		if !errors.Is(err, repositories.ErrSnapshotNotFound) {
			return err
		}

		if tournament.Phase != models.PhaseInProgress {
			return fmt.Errorf("%w: tournament %d is %s", ErrInvalidPhaseTransition, tournamentID, tournament.Phase)
		}

		groupPhase := models.MatchPhaseGroup
		groupMatches, err := s.matchRepo.ListByTournament(ctx, tx, tournamentID, repositories.MatchFilter{Phase: &groupPhase})
		if err != nil {
			return err
		}
		if len(groupMatches) == 0 {
			return fmt.Errorf("%w: tournament %d has no group matches", ErrGroupStageIncomplete, tournamentID)
		}
		maxGroupRound := 0
		for _, m := range groupMatches {
			if !m.Completed() {
				return fmt.Errorf("%w: match %d is still %s", ErrGroupStageIncomplete, m.ID, m.Status)
			}
			if m.Round > maxGroupRound {
				maxGroupRound = m.Round
			}
		}

		standings := ComputeGroupStandings(groupMatches, tournament.Config.Scoring)
		qualifiers := SelectQualifiers(standings, tournament.Config.Group.QualifiersPerGroup)

		snapshot = &models.FinalizationSnapshot{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			Standings:    FlattenStandings(standings),
			Qualifiers:   qualifiers,
		}
		if err := s.snapshotRepo.Create(ctx, tx, snapshot); err != nil {
			if errors.Is(err, repositories.ErrSnapshotConflict) {
				snapshot, err = s.snapshotRepo.GetByTournament(ctx, tx, tournamentID)
				replayed = true
				return err
			}
			return err
		}

		qualifierIDs := make([]int, len(qualifiers))
		for i, q := range qualifiers {
			qualifierIDs[i] = q.ParticipantID
		}
		knockout, err := brackets.GenerateQualifierBracket(qualifierIDs, maxGroupRound+1)
		if err != nil {
			return fmt.Errorf("failed to generate knockout bracket: %w", err)
		}
		if err := persistBracket(ctx, tx, s.matchRepo, tournamentID, knockout); err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "group stage finalized",
			slog.Int("tournament_id", tournamentID),
			slog.String("snapshot_id", snapshot.ID),
			slog.Int("qualifiers", len(qualifiers)),
			slog.Int("knockout_matches", len(knockout)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		if archiveErr := s.archiver.Archive(ctx, snapshot); archiveErr != nil {
			// Archival is best effort; the snapshot of record lives in
			// Postgres.
			s.logger.WarnContext(ctx, "snapshot archival failed",
				slog.Int("tournament_id", tournamentID),
				slog.Any("error", archiveErr),
			)
		}
		s.hub.Publish(live.Event{
			Type:         live.EventGroupFinalized,
			TournamentID: tournamentID,
			Payload:      map[string]any{"snapshot_id": snapshot.ID, "qualifiers": len(snapshot.Qualifiers)},
		})
	}
	return snapshot, nil
}

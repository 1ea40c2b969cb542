package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/athleon/academy-engine/brackets"
	"github.com/athleon/academy-engine/db"
	"github.com/athleon/academy-engine/live"
	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

// BracketService freezes enrollment, generates the format's bracket and moves
// the tournament to IN_PROGRESS in one transaction.
type BracketService interface {
	StartTournament(ctx context.Context, tournamentID int, enrolled []int) (*models.Tournament, error)
}

type bracketService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	lifecycle      LifecycleService
	hub            live.Broadcaster
	logger         *slog.Logger
}

func NewBracketService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	lifecycle LifecycleService,
	hub live.Broadcaster,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		lifecycle:      lifecycle,
		hub:            hub,
		logger:         logger,
	}
}

func (s *bracketService) StartTournament(ctx context.Context, tournamentID int, enrolled []int) (*models.Tournament, error) {
	if err := validateEnrollment(enrolled); err != nil {
		return nil, err
	}

	var tournament *models.Tournament
	err := s.txRunner.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Phase != models.PhaseDraft {
			return fmt.Errorf("%w: tournament %d is %s", ErrTournamentNotDraft, tournamentID, t.Phase)
		}

		if err := s.tournamentRepo.SetEnrollmentSnapshot(ctx, tx, tournamentID, enrolled); err != nil {
			return err
		}
		t.EnrollmentSnapshot = enrolled

		generator, ok := brackets.ForFormat(t.Format)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, t.Format)
		}
		generated, err := generator.Generate(ctx, brackets.GenerateParams{Tournament: t, Enrolled: enrolled})
		if err != nil {
			return fmt.Errorf("failed to generate %s bracket: %w", generator.Name(), err)
		}

		if err := persistBracket(ctx, tx, s.matchRepo, tournamentID, generated); err != nil {
			return err
		}

		tournament, err = s.lifecycle.TransitionInTx(ctx, tx, tournamentID, models.PhaseInProgress)
		if err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "tournament started",
			slog.Int("tournament_id", tournamentID),
			slog.String("format", string(t.Format)),
			slog.Int("participants", len(enrolled)),
			slog.Int("matches", len(generated)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(live.Event{
		Type:         live.EventPhaseChanged,
		TournamentID: tournamentID,
		Payload:      map[string]any{"phase": models.PhaseInProgress},
	})
	return tournament, nil
}

func validateEnrollment(enrolled []int) error {
	if len(enrolled) == 0 {
		return ErrEnrollmentEmpty
	}
	seen := make(map[int]struct{}, len(enrolled))
	for _, id := range enrolled {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: participant %d", ErrEnrollmentDuplicate, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// persistBracket saves generated matches in two passes: first create every
// row and record its database id by bracket UID, then walk the source links
// and point each feeder match at the row its winner advances into.
func persistBracket(
	ctx context.Context,
	exec repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	tournamentID int,
	generated []*brackets.BracketMatch,
) error {
	idByUID := make(map[string]int, len(generated))

	for _, bm := range generated {
		uid := bm.UID
		match := &models.Match{
			TournamentID: tournamentID,
			Phase:        bm.Phase,
			Round:        bm.Round,
			OrderInRound: bm.OrderInRound,
			GroupKey:     bm.GroupKey,
			BracketUID:   &uid,
			Slot1ID:      bm.Slot1ID,
			Slot2ID:      bm.Slot2ID,
			Status:       models.MatchStatusScheduled,
		}
		if err := matchRepo.Create(ctx, exec, match); err != nil {
			return fmt.Errorf("failed to create match %s: %w", uid, err)
		}
		idByUID[uid] = match.ID
	}

	for _, bm := range generated {
		targetID := idByUID[bm.UID]
		for slot, sourceUID := range map[int]*string{1: bm.SourceMatch1UID, 2: bm.SourceMatch2UID} {
			if sourceUID == nil {
				continue
			}
			sourceID, ok := idByUID[*sourceUID]
			if !ok {
				return fmt.Errorf("bracket match %s references unknown source %s", bm.UID, *sourceUID)
			}
			slotCopy := slot
			targetCopy := targetID
			if err := matchRepo.UpdateNextMatchInfo(ctx, exec, sourceID, &targetCopy, &slotCopy); err != nil {
				return fmt.Errorf("failed to link match %s to %s: %w", *sourceUID, bm.UID, err)
			}
		}
	}
	return nil
}

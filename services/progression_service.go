package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/athleon/academy-engine/db"
	"github.com/athleon/academy-engine/live"
	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

// ProgressionService records match results and advances knockout brackets.
// All writes happen under the tournament row lock so concurrent submissions
// for the same tournament serialize.
type ProgressionService interface {
	SubmitResult(ctx context.Context, matchID int, score1, score2 float64) (*models.Match, error)
}

type progressionService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	lifecycle      LifecycleService
	hub            live.Broadcaster
	logger         *slog.Logger
}

func NewProgressionService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	lifecycle LifecycleService,
	hub live.Broadcaster,
	logger *slog.Logger,
) ProgressionService {
	return &progressionService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		lifecycle:      lifecycle,
		hub:            hub,
		logger:         logger,
	}
}

func loadConfig(t *models.Tournament) error {
	if t.Config != nil {
		return nil
	}
	raw := ""
	if t.ConfigJSON != nil {
		raw = *t.ConfigJSON
	}
	cfg, err := models.ParseTournamentConfig(raw, t.Format, t.SkillWeights)
	if err != nil {
		return fmt.Errorf("failed to load config for tournament %d: %w", t.ID, err)
	}
	t.Config = cfg
	return nil
}

func (s *progressionService) SubmitResult(ctx context.Context, matchID int, score1, score2 float64) (*models.Match, error) {
	var (
		updated *models.Match
		events  []live.Event
	)

	err := s.txRunner.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, tx, matchID)
		if err != nil {
			return err
		}

		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, match.TournamentID)
		if err != nil {
			return err
		}
		if tournament.Phase != models.PhaseInProgress {
			return fmt.Errorf("%w: tournament %d is %s, results accepted only in %s",
				ErrInvalidPhaseTransition, tournament.ID, tournament.Phase, models.PhaseInProgress)
		}
		if err := loadConfig(tournament); err != nil {
			return err
		}

		// Reread under the lock: another submission may have completed
		// this match while we waited.
		match, err = s.matchRepo.GetByID(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if match.Completed() {
			return fmt.Errorf("%w: match %d", ErrMatchAlreadyCompleted, matchID)
		}

		winnerID, err := resolveResult(tournament, match, score1, score2)
		if err != nil {
			return err
		}

		if err := s.matchRepo.UpdateResult(ctx, tx, matchID, &score1, scoreForSlot2(tournament, score2), winnerID); err != nil {
			return err
		}
		match.Score1 = &score1
		match.Score2 = scoreForSlot2(tournament, score2)
		match.WinnerID = winnerID
		match.Status = models.MatchStatusCompleted

		events = append(events, live.Event{
			Type:         live.EventMatchCompleted,
			TournamentID: tournament.ID,
			Payload:      map[string]any{"match_id": matchID, "round": match.Round},
		})

		followUps, err := s.advance(ctx, tx, tournament, match)
		if err != nil {
			return err
		}
		events = append(events, followUps...)

		updated = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		s.hub.Publish(e)
	}
	return updated, nil
}

func scoreForSlot2(t *models.Tournament, score2 float64) *float64 {
	if t.Format == models.FormatIndividualRanking {
		return nil
	}
	return &score2
}

// resolveResult validates scores against the match shape and picks the
// winner. Individual sessions have no opponent and no winner; knockout
// matches must not end level.
func resolveResult(t *models.Tournament, match *models.Match, score1, score2 float64) (*int, error) {
	if match.Slot1ID == nil {
		return nil, fmt.Errorf("%w: match %d", ErrMatchSlotsUnfilled, match.ID)
	}
	if t.Format == models.FormatIndividualRanking {
		return nil, nil
	}
	if match.Slot2ID == nil {
		return nil, fmt.Errorf("%w: match %d", ErrMatchSlotsUnfilled, match.ID)
	}

	cmp := compareScores(score1, score2, t.Config.Scoring)
	if cmp == 0 {
		if match.Phase == models.MatchPhaseKnockout {
			return nil, fmt.Errorf("%w: match %d", ErrKnockoutDrawNotAllowed, match.ID)
		}
		return nil, nil
	}
	if cmp > 0 {
		return match.Slot1ID, nil
	}
	return match.Slot2ID, nil
}

// advance handles what follows a completed match: winner propagation for
// knockout rounds and the automatic COMPLETED transition for formats that
// finish when their last match does.
func (s *progressionService) advance(ctx context.Context, tx repositories.SQLExecutor, t *models.Tournament, match *models.Match) ([]live.Event, error) {
	var events []live.Event

	if match.Phase == models.MatchPhaseKnockout {
		if match.NextMatchID != nil {
			// Winners are seated only once every match of the round is
			// decided; until then the next round's slots stay empty.
			roundMatches, done, err := s.roundComplete(ctx, tx, t.ID, match.Round)
			if err != nil {
				return nil, err
			}
			if !done {
				return events, nil
			}
			for _, m := range roundMatches {
				if m.NextMatchID == nil {
					continue
				}
				if err := s.propagateWinner(ctx, tx, m); err != nil {
					return nil, err
				}
			}
			events = append(events, live.Event{
				Type:         live.EventRoundAdvanced,
				TournamentID: t.ID,
				Payload:      map[string]any{"completed_round": match.Round},
			})
			return events, nil
		}

		// Final: no onward match means the bracket is decided.
		if _, err := s.lifecycle.TransitionInTx(ctx, tx, t.ID, models.PhaseCompleted); err != nil {
			return nil, err
		}
		events = append(events, live.Event{
			Type:         live.EventPhaseChanged,
			TournamentID: t.ID,
			Payload:      map[string]any{"phase": models.PhaseCompleted},
		})
		return events, nil
	}

	// Group-phase match. Pure league and individual tournaments complete as
	// soon as every match is resolved; a group stage feeding a knockout
	// waits for explicit finalization instead.
	if t.Format == models.FormatGroupAndKnockout {
		return events, nil
	}

	matches, err := s.matchRepo.ListByTournament(ctx, tx, t.ID, repositories.MatchFilter{})
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if !m.Completed() {
			return events, nil
		}
	}

	if _, err := s.lifecycle.TransitionInTx(ctx, tx, t.ID, models.PhaseCompleted); err != nil {
		return nil, err
	}
	events = append(events, live.Event{
		Type:         live.EventPhaseChanged,
		TournamentID: t.ID,
		Payload:      map[string]any{"phase": models.PhaseCompleted},
	})
	return events, nil
}

func (s *progressionService) propagateWinner(ctx context.Context, tx repositories.SQLExecutor, match *models.Match) error {
	if match.WinnerID == nil || match.NextMatchID == nil || match.WinnerToSlot == nil {
		return fmt.Errorf("%w: match %d has incomplete advancement links", ErrNoNextRound, match.ID)
	}

	next, err := s.matchRepo.GetByID(ctx, tx, *match.NextMatchID)
	if err != nil {
		return fmt.Errorf("failed to load next match %d: %w", *match.NextMatchID, err)
	}

	slot1, slot2 := next.Slot1ID, next.Slot2ID
	switch *match.WinnerToSlot {
	case 1:
		slot1 = match.WinnerID
	case 2:
		slot2 = match.WinnerID
	default:
		return fmt.Errorf("match %d has invalid winner slot %d", match.ID, *match.WinnerToSlot)
	}

	if err := s.matchRepo.UpdateSlots(ctx, tx, next.ID, slot1, slot2); err != nil {
		return fmt.Errorf("failed to seat winner of match %d: %w", match.ID, err)
	}

	s.logger.DebugContext(ctx, "winner advanced",
		slog.Int("match_id", match.ID),
		slog.Int("next_match_id", next.ID),
		slog.Int("slot", *match.WinnerToSlot),
	)
	return nil
}

func (s *progressionService) roundComplete(ctx context.Context, tx repositories.SQLExecutor, tournamentID, round int) ([]*models.Match, bool, error) {
	phase := models.MatchPhaseKnockout
	matches, err := s.matchRepo.ListByTournament(ctx, tx, tournamentID, repositories.MatchFilter{Phase: &phase, Round: &round})
	if err != nil {
		return nil, false, err
	}
	for _, m := range matches {
		if !m.Completed() {
			return matches, false, nil
		}
	}
	return matches, true, nil
}

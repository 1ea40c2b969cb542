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

// allowedPhaseTransitions is the whole state machine: a linear lifecycle with
// no way back. REWARDS_DISTRIBUTED is terminal.
var allowedPhaseTransitions = map[models.TournamentPhase][]models.TournamentPhase{
	models.PhaseDraft:              {models.PhaseInProgress},
	models.PhaseInProgress:         {models.PhaseCompleted},
	models.PhaseCompleted:          {models.PhaseRewardsDistributed},
	models.PhaseRewardsDistributed: {},
}

func isValidPhaseTransition(current, next models.TournamentPhase) bool {
	for _, allowed := range allowedPhaseTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// LifecycleService owns the tournament phase attribute. Every phase write in
// the codebase goes through TransitionInTx, which validates the move under
// the tournament row lock.
type LifecycleService interface {
	// Transition runs a validated phase change in its own transaction and
	// broadcasts the result.
	Transition(ctx context.Context, tournamentID int, next models.TournamentPhase) (*models.Tournament, error)
	// TransitionInTx performs the same validated change inside the caller's
	// transaction. The caller must already hold, or be taking, the
	// tournament row lock through this call.
	TransitionInTx(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, next models.TournamentPhase) (*models.Tournament, error)
}

type lifecycleService struct {
	txRunner       db.TxRunner
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	hub            live.Broadcaster
	logger         *slog.Logger
}

func NewLifecycleService(
	txRunner db.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	hub live.Broadcaster,
	logger *slog.Logger,
) LifecycleService {
	return &lifecycleService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		hub:            hub,
		logger:         logger,
	}
}

func (s *lifecycleService) Transition(ctx context.Context, tournamentID int, next models.TournamentPhase) (*models.Tournament, error) {
	var tournament *models.Tournament
	err := s.txRunner.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var txErr error
		tournament, txErr = s.TransitionInTx(ctx, tx, tournamentID, next)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(live.Event{
		Type:         live.EventPhaseChanged,
		TournamentID: tournamentID,
		Payload:      map[string]any{"phase": next},
	})
	return tournament, nil
}

func (s *lifecycleService) TransitionInTx(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, next models.TournamentPhase) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}

	if tournament.Phase.Terminal() {
		return nil, fmt.Errorf("%w: tournament %d is %s", ErrTournamentTerminal, tournamentID, tournament.Phase)
	}
	if !isValidPhaseTransition(tournament.Phase, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidPhaseTransition, tournament.Phase, next)
	}

	if next == models.PhaseCompleted {
		if err := s.ensureAllMatchesResolved(ctx, exec, tournamentID); err != nil {
			return nil, err
		}
	}

	if err := s.tournamentRepo.UpdatePhase(ctx, exec, tournamentID, tournament.Phase, next); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament phase transition",
		slog.Int("tournament_id", tournamentID),
		slog.String("from", string(tournament.Phase)),
		slog.String("to", string(next)),
	)
	tournament.Phase = next
	return tournament, nil
}

// ensureAllMatchesResolved guards the COMPLETED transition: a tournament with
// any scheduled match, or with no matches at all, cannot complete.
func (s *lifecycleService) ensureAllMatchesResolved(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	matches, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, repositories.MatchFilter{})
	if err != nil {
		return fmt.Errorf("failed to list matches for completion check: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: tournament %d has no matches", ErrMatchesIncomplete, tournamentID)
	}
	for _, m := range matches {
		if !m.Completed() {
			return fmt.Errorf("%w: match %d (round %d) is still %s", ErrMatchesIncomplete, m.ID, m.Round, m.Status)
		}
	}
	return nil
}

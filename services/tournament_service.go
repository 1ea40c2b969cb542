package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

// CreateTournamentInput is everything needed to register a DRAFT tournament.
// Config may be nil; the format's defaults apply.
type CreateTournamentInput struct {
	Name         string                   `json:"name"`
	Format       models.TournamentFormat  `json:"format"`
	StartDate    time.Time                `json:"start_date"`
	SkillWeights map[string]float64       `json:"skill_weights"`
	Config       *models.TournamentConfig `json:"config,omitempty"`
}

// TournamentService covers tournament registration and read access.
type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	ListByPhase(ctx context.Context, phase models.TournamentPhase) ([]*models.Tournament, error)
	ListMatches(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error)
	// Standings computes the current group tables from completed matches.
	// Before finalization this is a live view; it never reads the snapshot.
	Standings(ctx context.Context, tournamentID int) (map[string][]models.GroupStanding, error)
	Snapshot(ctx context.Context, tournamentID int) (*models.FinalizationSnapshot, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	snapshotRepo   repositories.SnapshotRepository
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	snapshotRepo repositories.SnapshotRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		snapshotRepo:   snapshotRepo,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, input.Format)
	}

	var configJSON *string
	if input.Config != nil {
		raw, err := json.Marshal(input.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tournament config: %w", err)
		}
		encoded := string(raw)
		configJSON = &encoded
	}

	tournament := &models.Tournament{
		Name:         name,
		Format:       input.Format,
		Phase:        models.PhaseDraft,
		StartDate:    input.StartDate,
		SkillWeights: input.SkillWeights,
		ConfigJSON:   configJSON,
	}

	// Parse up front so an invalid config is rejected at creation, not at
	// bracket generation.
	if err := loadConfig(tournament); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name),
		slog.String("format", string(tournament.Format)),
	)
	return tournament, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := loadConfig(tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListByPhase(ctx context.Context, phase models.TournamentPhase) ([]*models.Tournament, error) {
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrValidation, phase)
	}
	return s.tournamentRepo.ListByPhase(ctx, nil, phase)
}

func (s *tournamentService) ListMatches(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID, filter)
}

func (s *tournamentService) Standings(ctx context.Context, tournamentID int) (map[string][]models.GroupStanding, error) {
	tournament, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	groupPhase := models.MatchPhaseGroup
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, repositories.MatchFilter{Phase: &groupPhase})
	if err != nil {
		return nil, err
	}
	return ComputeGroupStandings(matches, tournament.Config.Scoring), nil
}

func (s *tournamentService) Snapshot(ctx context.Context, tournamentID int) (*models.FinalizationSnapshot, error) {
	return s.snapshotRepo.GetByTournament(ctx, nil, tournamentID)
}

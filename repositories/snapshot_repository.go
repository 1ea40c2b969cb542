package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/athleon/academy-engine/models"
	"github.com/lib/pq"
)

var (
	ErrSnapshotNotFound = errors.New("finalization snapshot not found")
	ErrSnapshotConflict = errors.New("finalization snapshot already exists for this tournament")
)

type SnapshotRepository interface {
	// Create inserts the snapshot; a second insert for the same tournament
	// fails with ErrSnapshotConflict (unique constraint on tournament_id).
	Create(ctx context.Context, exec SQLExecutor, snapshot *models.FinalizationSnapshot) error
	GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.FinalizationSnapshot, error)
}

type postgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &postgresSnapshotRepository{db: db}
}

func (r *postgresSnapshotRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSnapshotRepository) Create(ctx context.Context, exec SQLExecutor, snapshot *models.FinalizationSnapshot) error {
	standings, err := json.Marshal(snapshot.Standings)
	if err != nil {
		return fmt.Errorf("failed to encode standings: %w", err)
	}
	qualifiers, err := json.Marshal(snapshot.Qualifiers)
	if err != nil {
		return fmt.Errorf("failed to encode qualifiers: %w", err)
	}

	query := `
		INSERT INTO finalization_snapshots (id, tournament_id, standings, qualifiers)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	err = r.executor(exec).QueryRowContext(ctx, query,
		snapshot.ID, snapshot.TournamentID, standings, qualifiers,
	).Scan(&snapshot.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "finalization_snapshots_tournament_id_key" {
			return ErrSnapshotConflict
		}
		return fmt.Errorf("failed to insert finalization snapshot for tournament %d: %w", snapshot.TournamentID, err)
	}
	return nil
}

func (r *postgresSnapshotRepository) GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.FinalizationSnapshot, error) {
	query := `
		SELECT id, tournament_id, standings, qualifiers, created_at
		FROM finalization_snapshots
		WHERE tournament_id = $1`

	var (
		s              models.FinalizationSnapshot
		standingsJSON  []byte
		qualifiersJSON []byte
	)
	err := r.executor(exec).QueryRowContext(ctx, query, tournamentID).Scan(
		&s.ID, &s.TournamentID, &standingsJSON, &qualifiersJSON, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to scan snapshot for tournament %d: %w", tournamentID, err)
	}
	if err := json.Unmarshal(standingsJSON, &s.Standings); err != nil {
		return nil, fmt.Errorf("failed to decode standings for tournament %d: %w", tournamentID, err)
	}
	if err := json.Unmarshal(qualifiersJSON, &s.Qualifiers); err != nil {
		return nil, fmt.Errorf("failed to decode qualifiers for tournament %d: %w", tournamentID, err)
	}
	return &s, nil
}

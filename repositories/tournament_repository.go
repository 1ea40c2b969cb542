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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrSnapshotAlreadyWritten = errors.New("enrollment snapshot already written")
	ErrPhaseConflict          = errors.New("tournament phase changed concurrently")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row for the duration of the
	// caller's transaction. Round advancement and phase transitions
	// serialize on this lock; exec must be a transaction executor.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// UpdatePhase moves the phase only if the stored phase still equals
	// expected, so two concurrent transitions cannot both win.
	UpdatePhase(ctx context.Context, exec SQLExecutor, id int, expected, next models.TournamentPhase) error
	// SetEnrollmentSnapshot writes the snapshot once; a second write fails.
	SetEnrollmentSnapshot(ctx context.Context, exec SQLExecutor, id int, participantIDs []int) error
	ListByPhase(ctx context.Context, exec SQLExecutor, phase models.TournamentPhase) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, format, phase, start_date, enrollment_snapshot, skill_weights, config_json, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	weights, err := json.Marshal(t.SkillWeights)
	if err != nil {
		return fmt.Errorf("failed to encode skill weights: %w", err)
	}

	query := `
		INSERT INTO tournaments (name, format, phase, start_date, skill_weights, config_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err = r.executor(exec).QueryRowContext(ctx, query,
		t.Name, t.Format, t.Phase, t.StartDate, weights, t.ConfigJSON,
	).Scan(&t.ID, &t.CreatedAt)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	var (
		t            models.Tournament
		snapshotJSON []byte
		weightsJSON  []byte
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Format, &t.Phase, &t.StartDate,
		&snapshotJSON, &weightsJSON, &t.ConfigJSON, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	if snapshotJSON != nil {
		if err := json.Unmarshal(snapshotJSON, &t.EnrollmentSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode enrollment snapshot for tournament %d: %w", t.ID, err)
		}
	}
	if weightsJSON != nil {
		if err := json.Unmarshal(weightsJSON, &t.SkillWeights); err != nil {
			return nil, fmt.Errorf("failed to decode skill weights for tournament %d: %w", t.ID, err)
		}
	}
	return &t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(r.executor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanTournament(r.executor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) UpdatePhase(ctx context.Context, exec SQLExecutor, id int, expected, next models.TournamentPhase) error {
	query := `UPDATE tournaments SET phase = $1 WHERE id = $2 AND phase = $3`
	result, err := r.executor(exec).ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return fmt.Errorf("failed to update phase for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPhaseConflict)
}

func (r *postgresTournamentRepository) SetEnrollmentSnapshot(ctx context.Context, exec SQLExecutor, id int, participantIDs []int) error {
	snapshot, err := json.Marshal(participantIDs)
	if err != nil {
		return fmt.Errorf("failed to encode enrollment snapshot: %w", err)
	}
	// Append-only: a snapshot is written once and never overwritten.
	query := `UPDATE tournaments SET enrollment_snapshot = $1 WHERE id = $2 AND enrollment_snapshot IS NULL`
	result, err := r.executor(exec).ExecContext(ctx, query, snapshot, id)
	if err != nil {
		return fmt.Errorf("failed to write enrollment snapshot for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrSnapshotAlreadyWritten)
}

func (r *postgresTournamentRepository) ListByPhase(ctx context.Context, exec SQLExecutor, phase models.TournamentPhase) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE phase = $1 ORDER BY start_date ASC, id ASC`
	rows, err := r.executor(exec).QueryContext(ctx, query, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments in phase %s: %w", phase, err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
	}
	return err
}

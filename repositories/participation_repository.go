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
	ErrParticipationNotFound = errors.New("participation record not found")
	ErrParticipationConflict = errors.New("participation record already exists for this user and tournament")
)

type ParticipationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, record *models.ParticipationRecord) error
	GetByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.ParticipationRecord, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.ParticipationRecord, error)
	ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.ParticipationRecord, error)
	// CountByUser returns the user's completed-tournament count, used by
	// milestone badge rules.
	CountByUser(ctx context.Context, exec SQLExecutor, userID int) (int, error)
	// RecentPlacements returns the user's latest placements, newest first,
	// used by the consecutive-wins rule.
	RecentPlacements(ctx context.Context, exec SQLExecutor, userID, limit int) ([]int, error)
}

type postgresParticipationRepository struct {
	db *sql.DB
}

func NewPostgresParticipationRepository(db *sql.DB) ParticipationRepository {
	return &postgresParticipationRepository{db: db}
}

func (r *postgresParticipationRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participationColumns = `id, user_id, tournament_id, placement, skill_points, experience, credits, created_at`

func (r *postgresParticipationRepository) Create(ctx context.Context, exec SQLExecutor, record *models.ParticipationRecord) error {
	points, err := json.Marshal(record.SkillPoints)
	if err != nil {
		return fmt.Errorf("failed to encode skill points: %w", err)
	}

	query := `
		INSERT INTO participation_records (user_id, tournament_id, placement, skill_points, experience, credits)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err = r.executor(exec).QueryRowContext(ctx, query,
		record.UserID, record.TournamentID, record.Placement, points, record.Experience, record.Credits,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "participation_records_user_id_tournament_id_key" {
			return ErrParticipationConflict
		}
		return fmt.Errorf("failed to insert participation record u:%d t:%d: %w", record.UserID, record.TournamentID, err)
	}
	return nil
}

func (r *postgresParticipationRepository) scanRecord(row interface{ Scan(...interface{}) error }) (*models.ParticipationRecord, error) {
	var (
		rec        models.ParticipationRecord
		pointsJSON []byte
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.TournamentID, &rec.Placement,
		&pointsJSON, &rec.Experience, &rec.Credits, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipationNotFound
		}
		return nil, fmt.Errorf("failed to scan participation record: %w", err)
	}
	if pointsJSON != nil {
		if err := json.Unmarshal(pointsJSON, &rec.SkillPoints); err != nil {
			return nil, fmt.Errorf("failed to decode skill points for record %d: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func (r *postgresParticipationRepository) GetByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.ParticipationRecord, error) {
	query := `SELECT ` + participationColumns + ` FROM participation_records WHERE user_id = $1 AND tournament_id = $2`
	return r.scanRecord(r.executor(exec).QueryRowContext(ctx, query, userID, tournamentID))
}

func (r *postgresParticipationRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.ParticipationRecord, error) {
	rows, err := r.executor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participation records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ParticipationRecord, 0)
	for rows.Next() {
		rec, scanErr := r.scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participation rows iteration: %w", err)
	}
	return records, nil
}

func (r *postgresParticipationRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.ParticipationRecord, error) {
	query := `SELECT ` + participationColumns + ` FROM participation_records WHERE tournament_id = $1 ORDER BY placement ASC, user_id ASC`
	return r.list(ctx, exec, query, tournamentID)
}

func (r *postgresParticipationRepository) ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.ParticipationRecord, error) {
	query := `SELECT ` + participationColumns + ` FROM participation_records WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, exec, query, userID)
}

func (r *postgresParticipationRepository) CountByUser(ctx context.Context, exec SQLExecutor, userID int) (int, error) {
	var count int
	err := r.executor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participation_records WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participation records for user %d: %w", userID, err)
	}
	return count, nil
}

func (r *postgresParticipationRepository) RecentPlacements(ctx context.Context, exec SQLExecutor, userID, limit int) ([]int, error) {
	rows, err := r.executor(exec).QueryContext(ctx,
		`SELECT placement FROM participation_records WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent placements for user %d: %w", userID, err)
	}
	defer rows.Close()

	placements := make([]int, 0, limit)
	for rows.Next() {
		var p int
		if scanErr := rows.Scan(&p); scanErr != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", scanErr)
		}
		placements = append(placements, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during placement rows iteration: %w", err)
	}
	return placements, nil
}

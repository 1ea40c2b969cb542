package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/athleon/academy-engine/models"
	"github.com/lib/pq"
)

var (
	ErrBadgeNotFound = errors.New("badge not found")
	ErrBadgeConflict = errors.New("badge already awarded for this user, tournament and type")
)

type BadgeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, badge *models.Badge) error
	Exists(ctx context.Context, exec SQLExecutor, userID, tournamentID int, badgeType models.BadgeType) (bool, error)
	ListByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) ([]*models.Badge, error)
	ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Badge, error)
}

type postgresBadgeRepository struct {
	db *sql.DB
}

func NewPostgresBadgeRepository(db *sql.DB) BadgeRepository {
	return &postgresBadgeRepository{db: db}
}

func (r *postgresBadgeRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const badgeColumns = `id, uid, user_id, tournament_id, type, category, rarity, label, awarded_at`

func (r *postgresBadgeRepository) Create(ctx context.Context, exec SQLExecutor, badge *models.Badge) error {
	query := `
		INSERT INTO badges (uid, user_id, tournament_id, type, category, rarity, label)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, awarded_at`
	err := r.executor(exec).QueryRowContext(ctx, query,
		badge.UID, badge.UserID, badge.TournamentID, badge.Type, badge.Category, badge.Rarity, badge.Label,
	).Scan(&badge.ID, &badge.AwardedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "badges_user_id_tournament_id_type_key" {
			return ErrBadgeConflict
		}
		return fmt.Errorf("failed to insert badge %s for user %d: %w", badge.Type, badge.UserID, err)
	}
	return nil
}

func (r *postgresBadgeRepository) Exists(ctx context.Context, exec SQLExecutor, userID, tournamentID int, badgeType models.BadgeType) (bool, error) {
	var exists bool
	err := r.executor(exec).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM badges WHERE user_id = $1 AND tournament_id = $2 AND type = $3)`,
		userID, tournamentID, badgeType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check badge %s for user %d: %w", badgeType, userID, err)
	}
	return exists, nil
}

func (r *postgresBadgeRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Badge, error) {
	rows, err := r.executor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	badges := make([]*models.Badge, 0)
	for rows.Next() {
		var b models.Badge
		if scanErr := rows.Scan(
			&b.ID, &b.UID, &b.UserID, &b.TournamentID,
			&b.Type, &b.Category, &b.Rarity, &b.Label, &b.AwardedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan badge row: %w", scanErr)
		}
		badges = append(badges, &b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during badge rows iteration: %w", err)
	}
	return badges, nil
}

func (r *postgresBadgeRepository) ListByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE user_id = $1 AND tournament_id = $2 ORDER BY awarded_at ASC, id ASC`
	return r.list(ctx, exec, query, userID, tournamentID)
}

func (r *postgresBadgeRepository) ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE user_id = $1 ORDER BY awarded_at DESC, id DESC`
	return r.list(ctx, exec, query, userID)
}

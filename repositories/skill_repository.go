package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/athleon/academy-engine/models"
)

var ErrSkillProfileNotFound = errors.New("skill profile not found")

type SkillProfileRepository interface {
	Get(ctx context.Context, exec SQLExecutor, userID int, skill string) (*models.SkillProfile, error)
	ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.SkillProfile, error)
	// Upsert writes the new rating, creating the profile row on first award.
	Upsert(ctx context.Context, exec SQLExecutor, profile *models.SkillProfile) error
}

type postgresSkillProfileRepository struct {
	db *sql.DB
}

func NewPostgresSkillProfileRepository(db *sql.DB) SkillProfileRepository {
	return &postgresSkillProfileRepository{db: db}
}

func (r *postgresSkillProfileRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSkillProfileRepository) Get(ctx context.Context, exec SQLExecutor, userID int, skill string) (*models.SkillProfile, error) {
	var p models.SkillProfile
	err := r.executor(exec).QueryRowContext(ctx,
		`SELECT user_id, skill, value, updated_at FROM skill_profiles WHERE user_id = $1 AND skill = $2`,
		userID, skill,
	).Scan(&p.UserID, &p.Skill, &p.Value, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkillProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan skill profile u:%d %q: %w", userID, skill, err)
	}
	return &p, nil
}

func (r *postgresSkillProfileRepository) ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.SkillProfile, error) {
	rows, err := r.executor(exec).QueryContext(ctx,
		`SELECT user_id, skill, value, updated_at FROM skill_profiles WHERE user_id = $1 ORDER BY skill ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query skill profiles for user %d: %w", userID, err)
	}
	defer rows.Close()

	profiles := make([]*models.SkillProfile, 0)
	for rows.Next() {
		var p models.SkillProfile
		if scanErr := rows.Scan(&p.UserID, &p.Skill, &p.Value, &p.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan skill profile row: %w", scanErr)
		}
		profiles = append(profiles, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during skill profile rows iteration: %w", err)
	}
	return profiles, nil
}

func (r *postgresSkillProfileRepository) Upsert(ctx context.Context, exec SQLExecutor, profile *models.SkillProfile) error {
	query := `
		INSERT INTO skill_profiles (user_id, skill, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, skill)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	_, err := r.executor(exec).ExecContext(ctx, query, profile.UserID, profile.Skill, profile.Value)
	if err != nil {
		return fmt.Errorf("failed to upsert skill profile u:%d %q: %w", profile.UserID, profile.Skill, err)
	}
	return nil
}

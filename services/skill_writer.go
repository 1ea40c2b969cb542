package services

import (
	"context"
	"errors"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

// SkillStartingValue seeds a skill profile the first time a user earns
// points in that category.
const SkillStartingValue = 55.0

// SkillWriter is the reward orchestrator's view of skill profiles. The
// persisting implementation reads and writes Postgres; the noop one lets a
// distribution run without touching ratings (dry runs, shadow environments).
type SkillWriter interface {
	Current(ctx context.Context, exec repositories.SQLExecutor, userID int, skill string) (float64, error)
	Write(ctx context.Context, exec repositories.SQLExecutor, userID int, skill string, value float64) error
}

type persistingSkillWriter struct {
	repo repositories.SkillProfileRepository
}

func NewPersistingSkillWriter(repo repositories.SkillProfileRepository) SkillWriter {
	return &persistingSkillWriter{repo: repo}
}

func (w *persistingSkillWriter) Current(ctx context.Context, exec repositories.SQLExecutor, userID int, skill string) (float64, error) {
	profile, err := w.repo.Get(ctx, exec, userID, skill)
	if errors.Is(err, repositories.ErrSkillProfileNotFound) {
		return SkillStartingValue, nil
	}
	if err != nil {
		return 0, err
	}
	return profile.Value, nil
}

func (w *persistingSkillWriter) Write(ctx context.Context, exec repositories.SQLExecutor, userID int, skill string, value float64) error {
	return w.repo.Upsert(ctx, exec, &models.SkillProfile{UserID: userID, Skill: skill, Value: value})
}

// NoopSkillWriter reports the starting value for every skill and discards
// writes.
type NoopSkillWriter struct{}

func (NoopSkillWriter) Current(context.Context, repositories.SQLExecutor, int, string) (float64, error) {
	return SkillStartingValue, nil
}

func (NoopSkillWriter) Write(context.Context, repositories.SQLExecutor, int, string, float64) error {
	return nil
}

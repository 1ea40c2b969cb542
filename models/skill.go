package models

import "time"

// SkillProfile is a user's current rating for one skill, bounded to
// [skillrating.Floor, skillrating.Ceiling]. Only the reward orchestrator
// writes it, through the skill-write port; query paths are read-only.
type SkillProfile struct {
	UserID    int       `json:"user_id" db:"user_id"`
	Skill     string    `json:"skill" db:"skill"`
	Value     float64   `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

package models

import "time"

// ParticipationRecord is the numeric half of a user's tournament reward:
// exactly one exists per (user, tournament) pair. An existing row means the
// numeric distribution for that user already ran.
type ParticipationRecord struct {
	ID           int                `json:"id" db:"id"`
	UserID       int                `json:"user_id" db:"user_id"`
	TournamentID int                `json:"tournament_id" db:"tournament_id"`
	Placement    int                `json:"placement" db:"placement"`
	SkillPoints  map[string]float64 `json:"skill_points" db:"skill_points"`
	Experience   int                `json:"experience" db:"experience"`
	Credits      int                `json:"credits" db:"credits"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
}

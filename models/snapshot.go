package models

import "time"

// FinalizationSnapshot is the immutable record written when a group stage is
// finalized. At most one exists per tournament; re-finalizing returns the
// stored snapshot instead of recomputing. It doubles as the audit trail and
// the seed source for the knockout bracket.
type FinalizationSnapshot struct {
	ID           string          `json:"id" db:"id"`
	TournamentID int             `json:"tournament_id" db:"tournament_id"`
	Standings    []GroupStanding `json:"standings" db:"standings"`
	Qualifiers   []Qualifier     `json:"qualifiers" db:"qualifiers"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

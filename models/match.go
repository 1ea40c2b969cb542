package models

import "time"

// MatchPhase tags a match as belonging to the group stage or the knockout
// bracket. It is a closed enumeration on purpose: phase comparisons happen in
// the progression and finalization paths, and a free-text tag there means a
// typo silently drops matches from the completeness check.
type MatchPhase string

const (
	MatchPhaseGroup    MatchPhase = "group"
	MatchPhaseKnockout MatchPhase = "knockout"
)

func (p MatchPhase) Valid() bool {
	return p == MatchPhaseGroup || p == MatchPhaseKnockout
}

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
)

// Match is one playable session. Knockout matches carry NextMatchID and
// WinnerToSlot links set at generation time; progression only fills
// participant slots, it never rewrites results.
//
// Individual-ranking sessions use Slot1/Score1 only (one participant per
// session, one session per round).
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Phase        MatchPhase  `json:"phase" db:"phase"`
	Round        int         `json:"round" db:"round"`
	OrderInRound int         `json:"order_in_round" db:"order_in_round"`
	GroupKey     *string     `json:"group_key,omitempty" db:"group_key"`
	BracketUID   *string     `json:"bracket_uid,omitempty" db:"bracket_uid"`
	Slot1ID      *int        `json:"slot1_id,omitempty" db:"slot1_id"`
	Slot2ID      *int        `json:"slot2_id,omitempty" db:"slot2_id"`
	Score1       *float64    `json:"score1,omitempty" db:"score1"`
	Score2       *float64    `json:"score2,omitempty" db:"score2"`
	Status       MatchStatus `json:"status" db:"status"`
	WinnerID     *int        `json:"winner_id,omitempty" db:"winner_id"`
	NextMatchID  *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot *int        `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// Completed reports whether a result has been recorded for the match.
func (m *Match) Completed() bool {
	return m.Status == MatchStatusCompleted
}

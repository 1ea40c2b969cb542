package models

import "time"

// TournamentFormat enumerates the bracket formats the engine can run,
// matching the ENUM in the DB.
type TournamentFormat string

const (
	FormatLeague            TournamentFormat = "league"
	FormatKnockout          TournamentFormat = "knockout"
	FormatGroupAndKnockout  TournamentFormat = "group_and_knockout"
	FormatIndividualRanking TournamentFormat = "individual_ranking"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatLeague, FormatKnockout, FormatGroupAndKnockout, FormatIndividualRanking:
		return true
	}
	return false
}

// TournamentPhase is the lifecycle phase of a tournament. The phase column is
// only ever written through the lifecycle service; everything else treats it
// as read-only.
type TournamentPhase string

const (
	PhaseDraft              TournamentPhase = "draft"
	PhaseInProgress         TournamentPhase = "in_progress"
	PhaseCompleted          TournamentPhase = "completed"
	PhaseRewardsDistributed TournamentPhase = "rewards_distributed"
)

func (p TournamentPhase) Valid() bool {
	switch p {
	case PhaseDraft, PhaseInProgress, PhaseCompleted, PhaseRewardsDistributed:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave this phase.
func (p TournamentPhase) Terminal() bool {
	return p == PhaseRewardsDistributed
}

// Tournament is the aggregate root for one tournament run.
//
// EnrollmentSnapshot is written exactly once when the bracket is generated and
// never mutated afterwards; it is the audit record of who was enrolled when the
// tournament started, in seed order.
type Tournament struct {
	ID                 int                `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	Format             TournamentFormat   `json:"format" db:"format"`
	Phase              TournamentPhase    `json:"phase" db:"phase"`
	StartDate          time.Time          `json:"start_date" db:"start_date"`
	EnrollmentSnapshot []int              `json:"enrollment_snapshot,omitempty" db:"enrollment_snapshot"`
	SkillWeights       map[string]float64 `json:"skill_weights,omitempty" db:"skill_weights"`
	ConfigJSON         *string            `json:"-" db:"config_json"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`

	// Parsed config, populated by the service layer, not mapped directly.
	Config *TournamentConfig `json:"config,omitempty" db:"-"`
}

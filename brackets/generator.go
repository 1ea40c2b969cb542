package brackets

import (
	"context"

	"github.com/athleon/academy-engine/models"
)

// GenerateParams carries everything a generator needs. Enrolled is the
// enrollment snapshot in seed order; generators never reorder it.
type GenerateParams struct {
	Tournament *models.Tournament
	Enrolled   []int
}

// BracketMatch is the generator's intermediate representation of one match
// before persistence. Slots may be nil when the participant is decided by a
// source match; the service layer resolves SourceMatch*UID links into
// next-match references when saving.
type BracketMatch struct {
	UID          string
	Phase        models.MatchPhase
	Round        int
	OrderInRound int
	GroupKey     *string

	Slot1ID *int
	Slot2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string
}

type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error)

	Name() string
}

// ForFormat returns the generator for a tournament format.
func ForFormat(format models.TournamentFormat) (Generator, bool) {
	switch format {
	case models.FormatLeague:
		return NewRoundRobinGenerator(), true
	case models.FormatKnockout:
		return NewSingleEliminationGenerator(), true
	case models.FormatGroupAndKnockout:
		return NewGroupStageGenerator(), true
	case models.FormatIndividualRanking:
		return NewIndividualGenerator(), true
	}
	return nil, false
}

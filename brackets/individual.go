package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/athleon/academy-engine/models"
)

var ErrIndividualConfigMissing = errors.New("individual ranking settings missing")

// IndividualGenerator schedules individual-ranking sessions: no pairings,
// one session per participant per configured round. Results are single-slot
// scores ranked by the tournament's metric order.
type IndividualGenerator struct{}

func NewIndividualGenerator() Generator {
	return &IndividualGenerator{}
}

func (g *IndividualGenerator) Name() string {
	return "IndividualRanking"
}

func (g *IndividualGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	t := params.Tournament
	if t == nil || t.Config == nil || t.Config.Individual == nil {
		return nil, ErrIndividualConfigMissing
	}
	if len(params.Enrolled) < 1 {
		return nil, fmt.Errorf("%w: found 0", ErrNotEnoughParticipants)
	}

	rounds := t.Config.Individual.Rounds
	matches := make([]*BracketMatch, 0, rounds*len(params.Enrolled))
	for r := 1; r <= rounds; r++ {
		for i, pid := range params.Enrolled {
			p := pid
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("RD%dP%d", r, pid),
				Phase:        models.MatchPhaseGroup,
				Round:        r,
				OrderInRound: i + 1,
				Slot1ID:      &p,
			})
		}
	}
	return matches, nil
}

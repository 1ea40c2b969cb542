package brackets

import (
	"context"
	"fmt"

	"github.com/athleon/academy-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Generate creates every unique pairing once. League play has no elimination,
// so all matches share one conceptual round and final placements come from
// standings over the full schedule.
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	if len(params.Enrolled) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughParticipants, len(params.Enrolled))
	}
	groupKey := LeagueGroupKey
	return roundRobinMatches(params.Enrolled, &groupKey, "L"), nil
}

// LeagueGroupKey is the group tag league matches carry so standings
// computation treats the whole league as one table.
const LeagueGroupKey = "A"

// roundRobinMatches pairs every participant against every other once.
// uidPrefix keeps UIDs unique across groups within one tournament.
func roundRobinMatches(participants []int, groupKey *string, uidPrefix string) []*BracketMatch {
	matches := make([]*BracketMatch, 0, len(participants)*(len(participants)-1)/2)
	order := 0
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			order++
			p1, p2 := participants[i], participants[j]
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("%sM%d", uidPrefix, order),
				Phase:        models.MatchPhaseGroup,
				Round:        1,
				OrderInRound: order,
				GroupKey:     groupKey,
				Slot1ID:      &p1,
				Slot2ID:      &p2,
			})
		}
	}
	return matches
}

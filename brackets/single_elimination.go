package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/athleon/academy-engine/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
)

// node is one slot in the round currently being paired: either a known
// participant (seeded directly or advanced through a bye) or the winner of an
// earlier match.
type node struct {
	participantID  *int
	sourceMatchUID *string
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// bracketPositions returns the seed laid into each first-round slot of a full
// bracket, in standard placement order: [1 2] -> [1 4 2 3] -> [1 8 4 5 2 7 3 6].
// Adjacent pairs form first-round matches, so seed 1 meets the lowest seed
// and, when the field is short, the highest seeds receive the byes.
func bracketPositions(size int) []int {
	positions := []int{1}
	for len(positions) < size {
		next := make([]int, 0, len(positions)*2)
		mirror := len(positions)*2 + 1
		for _, p := range positions {
			next = append(next, p, mirror-p)
		}
		positions = next
	}
	return positions
}

func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	return generateElimination(params.Enrolled, 1)
}

// GenerateQualifierBracket builds the knockout bracket seeded from group
// stage qualifiers. Pairing follows the standard placement order, so the top
// qualifier seed meets the bottom one. firstRound continues the tournament's
// round numbering after the group rounds.
func GenerateQualifierBracket(qualifiers []int, firstRound int) ([]*BracketMatch, error) {
	return generateElimination(qualifiers, firstRound)
}

// generateElimination builds a single-elimination bracket over the given
// participants in seed order, with rounds starting at firstRound. It is
// shared between the knockout format and the post-group-stage bracket, which
// continues round numbering after the group rounds.
func generateElimination(seeded []int, firstRound int) ([]*BracketMatch, error) {
	n := len(seeded)
	if n < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughParticipants, n)
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(numRounds)

	// Lay seeds into slots; absent seeds (beyond n) are byes. The placement
	// order guarantees a bye never meets another bye in round one.
	positions := bracketPositions(bracketSize)
	current := make([]*node, bracketSize)
	for i, seed := range positions {
		if seed <= n {
			pid := seeded[seed-1]
			current[i] = &node{participantID: &pid}
		} else {
			current[i] = &node{}
		}
	}

	matches := make([]*BracketMatch, 0, bracketSize-1)

	for r := 0; r < numRounds; r++ {
		round := firstRound + r
		next := make([]*node, 0, len(current)/2)
		order := 0

		for i := 0; i < len(current); i += 2 {
			n1, n2 := current[i], current[i+1]

			// A bye slot advances its opponent without a match.
			if n1.participantID != nil && n2.participantID == nil && n2.sourceMatchUID == nil {
				next = append(next, &node{participantID: n1.participantID})
				continue
			}
			if n2.participantID != nil && n1.participantID == nil && n1.sourceMatchUID == nil {
				next = append(next, &node{participantID: n2.participantID})
				continue
			}
			if n1.participantID == nil && n1.sourceMatchUID == nil {
				return nil, fmt.Errorf("internal: empty slot pair in round %d", round)
			}

			order++
			uid := fmt.Sprintf("R%dM%d", round, order)
			bm := &BracketMatch{
				UID:          uid,
				Phase:        models.MatchPhaseKnockout,
				Round:        round,
				OrderInRound: order,
				Slot1ID:      n1.participantID,
				Slot2ID:      n2.participantID,
			}
			if n1.sourceMatchUID != nil {
				bm.SourceMatch1UID = n1.sourceMatchUID
			}
			if n2.sourceMatchUID != nil {
				bm.SourceMatch2UID = n2.sourceMatchUID
			}
			matches = append(matches, bm)
			next = append(next, &node{sourceMatchUID: &bm.UID})
		}
		current = next
	}

	if len(current) != 1 {
		return nil, fmt.Errorf("internal: expected a single bracket root, got %d", len(current))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})
	return matches, nil
}

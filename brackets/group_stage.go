package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/athleon/academy-engine/models"
)

var (
	ErrGroupConfigMissing   = errors.New("group settings missing for group stage generation")
	ErrGroupFieldTooSmall   = errors.New("not enough participants for the configured group count")
	ErrTooManyQualifiers    = errors.New("qualifiers per group exceed the smallest group size")
	ErrGroupDistributionBug = errors.New("group distribution produced an invalid partition")
)

type GroupStageGenerator struct{}

func NewGroupStageGenerator() Generator {
	return &GroupStageGenerator{}
}

func (g *GroupStageGenerator) Name() string {
	return "GroupStage"
}

// DistributeGroups partitions n participants into numGroups balanced groups.
// Sizes always sum to n, differ by at most one, and no group is empty:
// the first n%numGroups groups take one extra member.
func DistributeGroups(n, numGroups int) ([]int, error) {
	if numGroups < 2 {
		return nil, fmt.Errorf("%w: num_groups %d", ErrGroupConfigMissing, numGroups)
	}
	if n < numGroups*2 || n < models.MinGroupParticipants {
		return nil, fmt.Errorf("%w: %d participants for %d groups", ErrGroupFieldTooSmall, n, numGroups)
	}
	base := n / numGroups
	extra := n % numGroups
	sizes := make([]int, numGroups)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes, nil
}

// GroupKeyFor names groups "A", "B", ... in order.
func GroupKeyFor(index int) string {
	return string(rune('A' + index))
}

// Generate splits the seeded field into balanced groups and schedules a
// round-robin inside each. Seeds are dealt to groups snake-style so adjacent
// seeds do not pile into the same group.
func (g *GroupStageGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	t := params.Tournament
	if t == nil || t.Config == nil || t.Config.Group == nil {
		return nil, ErrGroupConfigMissing
	}
	cfg := t.Config.Group

	sizes, err := DistributeGroups(len(params.Enrolled), cfg.NumGroups)
	if err != nil {
		return nil, err
	}
	if cfg.QualifiersPerGroup > sizes[len(sizes)-1] {
		return nil, fmt.Errorf("%w: %d qualifiers, smallest group %d",
			ErrTooManyQualifiers, cfg.QualifiersPerGroup, sizes[len(sizes)-1])
	}

	groups := dealSnake(params.Enrolled, sizes)

	total := 0
	matches := make([]*BracketMatch, 0)
	for gi, members := range groups {
		total += len(members)
		key := GroupKeyFor(gi)
		prefix := fmt.Sprintf("G%s", key)
		matches = append(matches, roundRobinMatches(members, &key, prefix)...)
	}
	if total != len(params.Enrolled) {
		return nil, ErrGroupDistributionBug
	}
	return matches, nil
}

// dealSnake deals seeds across groups in serpentine order (A B C C B A ...)
// until every group reaches its target size.
func dealSnake(seeded []int, sizes []int) [][]int {
	groups := make([][]int, len(sizes))
	for i, size := range sizes {
		groups[i] = make([]int, 0, size)
	}

	gi, dir := 0, 1
	for _, pid := range seeded {
		// Skip groups already at capacity, reversing at the edges.
		for len(groups[gi]) >= sizes[gi] {
			gi, dir = stepSnake(gi, dir, len(sizes))
		}
		groups[gi] = append(groups[gi], pid)
		gi, dir = stepSnake(gi, dir, len(sizes))
	}
	return groups
}

func stepSnake(gi, dir, numGroups int) (int, int) {
	next := gi + dir
	if next < 0 || next >= numGroups {
		return gi, -dir
	}
	return next, dir
}

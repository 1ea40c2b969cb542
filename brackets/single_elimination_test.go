package brackets

import (
	"context"
	"testing"

	"github.com/athleon/academy-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketPositions(t *testing.T) {
	assert.Equal(t, []int{1, 2}, bracketPositions(2))
	assert.Equal(t, []int{1, 4, 2, 3}, bracketPositions(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, bracketPositions(8))
}

func TestSingleEliminationFullField(t *testing.T) {
	g := NewSingleEliminationGenerator()
	matches, err := g.Generate(context.Background(), GenerateParams{
		Enrolled: []int{10, 20, 30, 40, 50, 60, 70, 80},
	})
	require.NoError(t, err)

	// 8 participants: 4 + 2 + 1 matches across 3 rounds.
	require.Len(t, matches, 7)

	rounds := map[int]int{}
	for _, m := range matches {
		assert.Equal(t, models.MatchPhaseKnockout, m.Phase)
		rounds[m.Round]++
	}
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, rounds)

	// Seed 1 meets seed 8 in the opening match.
	first := matches[0]
	require.NotNil(t, first.Slot1ID)
	require.NotNil(t, first.Slot2ID)
	assert.Equal(t, 10, *first.Slot1ID)
	assert.Equal(t, 80, *first.Slot2ID)
}

func TestSingleEliminationByesGoToTopSeeds(t *testing.T) {
	g := NewSingleEliminationGenerator()
	matches, err := g.Generate(context.Background(), GenerateParams{
		Enrolled: []int{1, 2, 3, 4, 5, 6},
	})
	require.NoError(t, err)

	// 6 participants in an 8-slot bracket: seeds 1 and 2 sit out round one.
	require.Len(t, matches, 5)

	var round2Seeds []int
	for _, m := range matches {
		if m.Round == 1 {
			require.NotNil(t, m.Slot1ID)
			require.NotNil(t, m.Slot2ID)
			assert.NotContains(t, []int{1, 2}, *m.Slot1ID)
			assert.NotContains(t, []int{1, 2}, *m.Slot2ID)
		}
		if m.Round == 2 {
			if m.Slot1ID != nil {
				round2Seeds = append(round2Seeds, *m.Slot1ID)
			}
			if m.Slot2ID != nil {
				round2Seeds = append(round2Seeds, *m.Slot2ID)
			}
		}
	}
	assert.ElementsMatch(t, []int{1, 2}, round2Seeds)
}

func TestSingleEliminationSourceLinksResolve(t *testing.T) {
	matches, err := GenerateQualifierBracket([]int{11, 22, 33, 44}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	byUID := map[string]*BracketMatch{}
	for _, m := range matches {
		byUID[m.UID] = m
	}

	final := matches[2]
	assert.Equal(t, 3, final.Round)
	require.NotNil(t, final.SourceMatch1UID)
	require.NotNil(t, final.SourceMatch2UID)
	assert.Contains(t, byUID, *final.SourceMatch1UID)
	assert.Contains(t, byUID, *final.SourceMatch2UID)

	// Qualifier seeding: best meets worst.
	semi1 := byUID[*final.SourceMatch1UID]
	require.NotNil(t, semi1.Slot1ID)
	require.NotNil(t, semi1.Slot2ID)
	assert.Equal(t, 11, *semi1.Slot1ID)
	assert.Equal(t, 44, *semi1.Slot2ID)
}

func TestSingleEliminationRejectsTinyField(t *testing.T) {
	g := NewSingleEliminationGenerator()
	_, err := g.Generate(context.Background(), GenerateParams{Enrolled: []int{1}})
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestIndividualGenerate(t *testing.T) {
	g := NewIndividualGenerator()
	tournament := &models.Tournament{
		Format: models.FormatIndividualRanking,
		Config: &models.TournamentConfig{
			Version:    models.ConfigVersion,
			Scoring:    models.ScoreAscending,
			Individual: &models.IndividualConfig{Rounds: 3, Metric: models.MetricTime, Order: models.ScoreAscending},
		},
	}
	matches, err := g.Generate(context.Background(), GenerateParams{
		Tournament: tournament,
		Enrolled:   []int{7, 8, 9},
	})
	require.NoError(t, err)
	require.Len(t, matches, 9)

	for _, m := range matches {
		assert.Nil(t, m.Slot2ID)
		require.NotNil(t, m.Slot1ID)
		assert.GreaterOrEqual(t, m.Round, 1)
		assert.LessOrEqual(t, m.Round, 3)
	}
}

func TestRoundRobinLeague(t *testing.T) {
	g := NewRoundRobinGenerator()
	matches, err := g.Generate(context.Background(), GenerateParams{
		Enrolled: []int{1, 2, 3, 4, 5},
	})
	require.NoError(t, err)
	// C(5,2) unique pairings.
	assert.Len(t, matches, 10)

	pairs := map[[2]int]bool{}
	for _, m := range matches {
		key := [2]int{*m.Slot1ID, *m.Slot2ID}
		assert.False(t, pairs[key], "duplicate pairing %v", key)
		pairs[key] = true
	}
}

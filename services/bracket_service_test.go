package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athleon/academy-engine/models"
)

func TestStartTournament_LeagueGeneratesFullRoundRobin(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.createTournament(t, models.FormatLeague, nil)

	env.start(t, tournament.ID, []int{1, 2, 3, 4})

	stored, err := env.service.Get(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseInProgress, stored.Phase)
	assert.Equal(t, []int{1, 2, 3, 4}, stored.EnrollmentSnapshot)

	matches := env.listMatches(t, tournament.ID, matchFilterAll())
	assert.Len(t, matches, 6) // C(4,2)
	for _, m := range matches {
		assert.Equal(t, models.MatchPhaseGroup, m.Phase)
		require.NotNil(t, m.GroupKey)
		assert.NotNil(t, m.Slot1ID)
		assert.NotNil(t, m.Slot2ID)
	}
}

func TestStartTournament_KnockoutByesGoToTopSeeds(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.createTournament(t, models.FormatKnockout, nil)

	// Five entrants in an eight-slot bracket: three byes.
	env.start(t, tournament.ID, []int{1, 2, 3, 4, 5})

	matches := env.listMatches(t, tournament.ID, matchFilterAll())
	require.Len(t, matches, 4)

	byRound := make(map[int][]*models.Match)
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	require.Len(t, byRound[1], 1)
	require.Len(t, byRound[2], 2)
	require.Len(t, byRound[3], 1)

	// The only real first-round match is 4 v 5; seeds 1-3 sit out.
	opener := byRound[1][0]
	assert.Equal(t, 4, *opener.Slot1ID)
	assert.Equal(t, 5, *opener.Slot2ID)
	require.NotNil(t, opener.NextMatchID)

	seeded := make(map[int]bool)
	for _, m := range byRound[2] {
		for _, slot := range []*int{m.Slot1ID, m.Slot2ID} {
			if slot != nil {
				seeded[*slot] = true
			}
		}
	}
	assert.True(t, seeded[1] && seeded[2] && seeded[3])

	// The final waits on both semifinals.
	final := byRound[3][0]
	assert.Nil(t, final.Slot1ID)
	assert.Nil(t, final.Slot2ID)
	assert.Nil(t, final.NextMatchID)
}

func TestStartTournament_EnrollmentValidation(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.createTournament(t, models.FormatLeague, nil)

	_, err := env.bracket.StartTournament(context.Background(), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrEnrollmentEmpty)

	_, err = env.bracket.StartTournament(context.Background(), tournament.ID, []int{1, 2, 1})
	assert.ErrorIs(t, err, ErrEnrollmentDuplicate)
}

func TestStartTournament_SecondStartIsRejected(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.createTournament(t, models.FormatLeague, nil)
	env.start(t, tournament.ID, []int{1, 2})

	_, err := env.bracket.StartTournament(context.Background(), tournament.ID, []int{3, 4})
	assert.ErrorIs(t, err, ErrTournamentNotDraft)

	// The frozen snapshot survives the attempt.
	stored, err := env.service.Get(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, stored.EnrollmentSnapshot)
}

func TestStartTournament_IndividualCreatesSoloSessions(t *testing.T) {
	env := newTestEnv(t)
	cfg := &models.TournamentConfig{
		Version:    models.ConfigVersion,
		Scoring:    models.ScoreAscending,
		Individual: &models.IndividualConfig{Rounds: 2, Metric: models.MetricTime, Order: models.ScoreAscending},
		Rewards:    models.DefaultRewardPolicy(),
	}
	tournament := env.createTournament(t, models.FormatIndividualRanking, cfg)

	env.start(t, tournament.ID, []int{7, 8, 9})

	matches := env.listMatches(t, tournament.ID, matchFilterAll())
	require.Len(t, matches, 6) // 3 participants x 2 rounds
	for _, m := range matches {
		assert.NotNil(t, m.Slot1ID)
		assert.Nil(t, m.Slot2ID)
	}
}

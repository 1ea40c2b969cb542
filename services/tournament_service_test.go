package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
)

func TestCreateTournament_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Create(context.Background(), CreateTournamentInput{
		Name: "  ", Format: models.FormatLeague, SkillWeights: defaultWeights(),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.service.Create(context.Background(), CreateTournamentInput{
		Name: "Autumn Cup", Format: "double_elimination", SkillWeights: defaultWeights(),
	})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	// Group format without group settings fails at creation, not at start.
	_, err = env.service.Create(context.Background(), CreateTournamentInput{
		Name: "Autumn Cup", Format: models.FormatGroupAndKnockout, SkillWeights: defaultWeights(),
	})
	assert.ErrorIs(t, err, models.ErrConfigGroupRequired)

	_, err = env.service.Create(context.Background(), CreateTournamentInput{
		Name:         "Autumn Cup",
		Format:       models.FormatLeague,
		SkillWeights: map[string]float64{"technique": -1},
	})
	assert.ErrorIs(t, err, models.ErrConfigWeightsInvalid)
}

func TestCreateTournament_NameConflict(t *testing.T) {
	env := newTestEnv(t)
	input := CreateTournamentInput{
		Name:         "Winter Open",
		Format:       models.FormatLeague,
		StartDate:    time.Now(),
		SkillWeights: defaultWeights(),
	}

	_, err := env.service.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = env.service.Create(context.Background(), input)
	assert.ErrorIs(t, err, repositories.ErrTournamentNameConflict)
}

func TestGetTournament_LoadsConfig(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTournament(t, models.FormatGroupAndKnockout, groupConfig(2, 2))

	stored, err := env.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Config)
	assert.Equal(t, 2, stored.Config.Group.NumGroups)
	assert.Equal(t, models.PhaseDraft, stored.Phase)
}

func TestStandings_LiveViewBeforeFinalization(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.createTournament(t, models.FormatGroupAndKnockout, groupConfig(2, 1))
	env.start(t, tournament.ID, []int{1, 2, 3, 4})

	// One result in: the live table already reflects it.
	groupPhase := models.MatchPhaseGroup
	matches := env.listMatches(t, tournament.ID, repositories.MatchFilter{Phase: &groupPhase})
	env.submit(t, matches[0].ID, 2, 0)

	standings, err := env.service.Standings(context.Background(), tournament.ID)
	require.NoError(t, err)

	winner := *matches[0].Slot1ID
	found := false
	for _, table := range standings {
		for _, s := range table {
			if s.ParticipantID == winner {
				found = true
				assert.Equal(t, pointsPerWin, s.Points)
				assert.Equal(t, 1, s.Rank)
			}
		}
	}
	assert.True(t, found)
}

func TestListByPhase_RejectsUnknownPhase(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.ListByPhase(context.Background(), "archived")
	assert.ErrorIs(t, err, ErrValidation)
}

package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
	"github.com/athleon/academy-engine/storage"
)

type testEnv struct {
	tournaments    *memTournamentRepo
	matches        *memMatchRepo
	snapshots      *memSnapshotRepo
	participations *memParticipationRepo
	badgeRows      *memBadgeRepo
	skillRows      *memSkillRepo
	hub            *recordingBroadcaster

	lifecycle   LifecycleService
	bracket     BracketService
	progression ProgressionService
	finalizer   FinalizerService
	rewards     RewardService
	badges      BadgeService
	service     TournamentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		tournaments:    newMemTournamentRepo(),
		matches:        newMemMatchRepo(),
		snapshots:      newMemSnapshotRepo(),
		participations: newMemParticipationRepo(),
		badgeRows:      newMemBadgeRepo(),
		skillRows:      newMemSkillRepo(),
		hub:            &recordingBroadcaster{},
	}

	tx := fakeTxRunner{}
	env.lifecycle = NewLifecycleService(tx, env.tournaments, env.matches, env.hub, logger)
	env.bracket = NewBracketService(tx, env.tournaments, env.matches, env.lifecycle, env.hub, logger)
	env.progression = NewProgressionService(tx, env.tournaments, env.matches, env.lifecycle, env.hub, logger)
	env.finalizer = NewFinalizerService(tx, env.tournaments, env.matches, env.snapshots, storage.NoopArchiver{}, env.hub, logger)
	env.badges = NewBadgeService(env.badgeRows, logger)

	rewards := NewRewardService(
		tx, env.tournaments, env.matches, env.snapshots, env.participations,
		NewPersistingSkillWriter(env.skillRows), env.badges, env.lifecycle, env.hub, logger,
	).(*rewardService)
	rewards.locker = &fakeLocker{}
	env.rewards = rewards

	env.service = NewTournamentService(env.tournaments, env.matches, env.snapshots, logger)
	return env
}

func defaultWeights() map[string]float64 {
	return map[string]float64{"technique": 1.5, "stamina": 0.5}
}

func (env *testEnv) createTournament(t *testing.T, format models.TournamentFormat, cfg *models.TournamentConfig) *models.Tournament {
	t.Helper()
	tournament, err := env.service.Create(context.Background(), CreateTournamentInput{
		Name:         "Spring Invitational " + string(format),
		Format:       format,
		StartDate:    time.Now().Add(24 * time.Hour),
		SkillWeights: defaultWeights(),
		Config:       cfg,
	})
	require.NoError(t, err)
	return tournament
}

func (env *testEnv) start(t *testing.T, tournamentID int, enrolled []int) {
	t.Helper()
	_, err := env.bracket.StartTournament(context.Background(), tournamentID, enrolled)
	require.NoError(t, err)
}

func (env *testEnv) listMatches(t *testing.T, tournamentID int, filter repositories.MatchFilter) []*models.Match {
	t.Helper()
	matches, err := env.matches.ListByTournament(context.Background(), nil, tournamentID, filter)
	require.NoError(t, err)
	return matches
}

// submit records a result for the match, failing the test on error.
func (env *testEnv) submit(t *testing.T, matchID int, score1, score2 float64) *models.Match {
	t.Helper()
	match, err := env.progression.SubmitResult(context.Background(), matchID, score1, score2)
	require.NoError(t, err)
	return match
}

// playGroupStage completes every scheduled group match. The participant with
// the lower id always wins by the given margin, which yields deterministic
// standings.
func (env *testEnv) playGroupStage(t *testing.T, tournamentID int) {
	t.Helper()
	scheduled := models.MatchStatusScheduled
	groupPhase := models.MatchPhaseGroup
	for _, m := range env.listMatches(t, tournamentID, repositories.MatchFilter{Phase: &groupPhase, Status: &scheduled}) {
		if *m.Slot1ID < *m.Slot2ID {
			env.submit(t, m.ID, 3, 1)
		} else {
			env.submit(t, m.ID, 1, 3)
		}
	}
}

func matchFilterAll() repositories.MatchFilter { return repositories.MatchFilter{} }

func groupConfig(numGroups, qualifiers int) *models.TournamentConfig {
	return &models.TournamentConfig{
		Version: models.ConfigVersion,
		Scoring: models.ScoreDescending,
		Group:   &models.GroupConfig{NumGroups: numGroups, QualifiersPerGroup: qualifiers},
		Rewards: models.DefaultRewardPolicy(),
	}
}

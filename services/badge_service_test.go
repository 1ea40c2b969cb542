package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athleon/academy-engine/models"
)

func newBadgeFixture() (*memBadgeRepo, BadgeService) {
	repo := newMemBadgeRepo()
	return repo, NewBadgeService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func badgeTypes(badges []*models.Badge) []models.BadgeType {
	types := make([]models.BadgeType, len(badges))
	for i, b := range badges {
		types[i] = b.Type
	}
	return types
}

func TestAwardForTournament_PlacementTiers(t *testing.T) {
	cases := []struct {
		placement int
		expect    models.BadgeType
		rarity    models.BadgeRarity
	}{
		{1, models.BadgeChampion, models.RarityEpic},
		{2, models.BadgeRunnerUp, models.RarityRare},
		{3, models.BadgeThirdPlace, models.RarityRare},
		{4, models.BadgeContender, models.RarityCommon},
		{11, models.BadgeContender, models.RarityCommon},
	}

	for _, tc := range cases {
		_, svc := newBadgeFixture()
		awarded, err := svc.AwardForTournament(context.Background(), nil, BadgeAward{
			UserID: 1, TournamentID: 10, Placement: tc.placement, CompletedCount: 2,
		})
		require.NoError(t, err)
		assert.Contains(t, badgeTypes(awarded), tc.expect, "placement %d", tc.placement)
		for _, b := range awarded {
			if b.Type == tc.expect {
				assert.Equal(t, tc.rarity, b.Rarity)
			}
		}
	}
}

func TestAwardForTournament_Milestones(t *testing.T) {
	_, svc := newBadgeFixture()

	awarded, err := svc.AwardForTournament(context.Background(), nil, BadgeAward{
		UserID: 1, TournamentID: 10, Placement: 5, CompletedCount: 1,
	})
	require.NoError(t, err)
	assert.Contains(t, badgeTypes(awarded), models.BadgeFirstSteps)

	awarded, err = svc.AwardForTournament(context.Background(), nil, BadgeAward{
		UserID: 1, TournamentID: 11, Placement: 5, CompletedCount: 5,
	})
	require.NoError(t, err)
	assert.Contains(t, badgeTypes(awarded), models.BadgeSeasoned)

	awarded, err = svc.AwardForTournament(context.Background(), nil, BadgeAward{
		UserID: 1, TournamentID: 12, Placement: 5, CompletedCount: 10,
	})
	require.NoError(t, err)
	assert.Contains(t, badgeTypes(awarded), models.BadgeVeteran)

	// In between milestones nothing extra lands.
	awarded, err = svc.AwardForTournament(context.Background(), nil, BadgeAward{
		UserID: 1, TournamentID: 13, Placement: 5, CompletedCount: 7,
	})
	require.NoError(t, err)
	for _, badgeType := range badgeTypes(awarded) {
		assert.NotContains(t, []models.BadgeType{
			models.BadgeFirstSteps, models.BadgeSeasoned, models.BadgeVeteran,
		}, badgeType)
	}
}

func TestAwardForTournament_HatTrickNeedsThreeStraightWins(t *testing.T) {
	_, svc := newBadgeFixture()

	awarded, err := svc.AwardForTournament(context.Background(), nil, BadgeAward{
		UserID: 1, TournamentID: 10, Placement: 1, CompletedCount: 3,
		RecentPlacements: []int{1, 1, 1},
	})
	require.NoError(t, err)
	assert.Contains(t, badgeTypes(awarded), models.BadgeHatTrick)

	_, svc = newBadgeFixture()
	awarded, err = svc.AwardForTournament(context.Background(), nil, BadgeAward{
		UserID: 1, TournamentID: 10, Placement: 1, CompletedCount: 3,
		RecentPlacements: []int{1, 2, 1},
	})
	require.NoError(t, err)
	assert.NotContains(t, badgeTypes(awarded), models.BadgeHatTrick)

	// Two wins are not enough, even if they are the whole history.
	_, svc = newBadgeFixture()
	awarded, err = svc.AwardForTournament(context.Background(), nil, BadgeAward{
		UserID: 1, TournamentID: 10, Placement: 1, CompletedCount: 2,
		RecentPlacements: []int{1, 1},
	})
	require.NoError(t, err)
	assert.NotContains(t, badgeTypes(awarded), models.BadgeHatTrick)
}

func TestAwardForTournament_SecondCallAwardsNothingNew(t *testing.T) {
	repo, svc := newBadgeFixture()

	award := BadgeAward{UserID: 1, TournamentID: 10, Placement: 1, CompletedCount: 1}
	first, err := svc.AwardForTournament(context.Background(), nil, award)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.AwardForTournament(context.Background(), nil, award)
	require.NoError(t, err)
	assert.Empty(t, second)

	all, err := repo.ListByUserAndTournament(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, len(first))
}

func TestAwardForTournament_SameTypeAcrossTournaments(t *testing.T) {
	repo, svc := newBadgeFixture()

	for tid := 10; tid <= 11; tid++ {
		_, err := svc.AwardForTournament(context.Background(), nil, BadgeAward{
			UserID: 1, TournamentID: tid, Placement: 1, CompletedCount: tid - 9,
		})
		require.NoError(t, err)
	}

	all, err := repo.ListByUser(context.Background(), nil, 1)
	require.NoError(t, err)
	champions := 0
	for _, b := range all {
		if b.Type == models.BadgeChampion {
			champions++
		}
	}
	assert.Equal(t, 2, champions)
}

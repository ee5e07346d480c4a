package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/repositories"
	"github.com/Dosada05/forecast-league/seasons"
	"github.com/Dosada05/forecast-league/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsEnv struct {
	service     services.StatsService
	stats       *fakeStatsRepo
	forecasts   *fakeForecastRepo
	tournaments *fakeTournamentRepo
	seasons     *fakeSeasonRepo
	users       *fakeUserRepo
}

func newStatsEnv() *statsEnv {
	env := &statsEnv{
		stats:       newFakeStatsRepo(),
		forecasts:   newFakeForecastRepo(),
		tournaments: newFakeTournamentRepo(),
		seasons:     newFakeSeasonRepo(),
		users:       newFakeUserRepo(),
	}
	env.service = services.NewStatsService(
		env.stats,
		env.forecasts,
		env.tournaments,
		env.seasons,
		env.users,
		discardLogger(),
	)
	return env
}

func TestGetUserStatsUnknownUser(t *testing.T) {
	env := newStatsEnv()

	_, err := env.service.GetUserStats(context.Background(), 404)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestGetUserStatsAggregates(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()
	env.users.seed(models.User{ID: 7, Nickname: "alice"})

	require.NoError(t, env.stats.Apply(ctx, nil, 7, repositories.StatsDelta{
		Points: 300, Slots: 3, ExactHits: 3, ErrorSum: 0, Perfect: true,
	}))
	require.NoError(t, env.stats.Apply(ctx, nil, 7, repositories.StatsDelta{
		Points: 170, Slots: 3, ExactHits: 1, ErrorSum: 4,
	}))

	stats, err := env.service.GetUserStats(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 470, stats.TotalPoints)
	assert.Equal(t, 2, stats.TournamentsPlayed)
	assert.Equal(t, 1, stats.PerfectTournaments)
	assert.InDelta(t, 4.0/6.0*100, stats.Accuracy(), 1e-9)
	assert.InDelta(t, 4.0/6.0, stats.MeanError(), 1e-9)
}

func TestGetUserStatsStreaks(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()
	env.users.seed(models.User{ID: 7, Nickname: "alice"})

	base := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	ids := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		tournament := env.tournaments.add(models.Tournament{
			Name:   "T",
			Date:   base.AddDate(0, 0, i),
			Status: models.StatusFinished,
		})
		ids = append(ids, tournament.ID)
	}
	// Черновики не учитываются в сериях, даже самые свежие.
	env.tournaments.add(models.Tournament{
		Name: "Upcoming", Date: base.AddDate(0, 0, 10), Status: models.StatusDraft,
	})

	// Участие в турнирах 1, 2, 3 и 5: пропуск четвёртого обрывает серию.
	for _, i := range []int{0, 1, 2, 4} {
		require.NoError(t, env.forecasts.Upsert(ctx, nil, &models.Forecast{
			UserID: 7, TournamentID: ids[i], Picks: []int{1, 2, 3},
		}))
	}

	stats, err := env.service.GetUserStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 3, stats.MaxStreak)
}

func TestLeaderboard(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()

	require.NoError(t, env.stats.Apply(ctx, nil, 1, repositories.StatsDelta{Points: 100, Slots: 3}))
	require.NoError(t, env.stats.Apply(ctx, nil, 2, repositories.StatsDelta{Points: 300, Slots: 3}))
	require.NoError(t, env.stats.Apply(ctx, nil, 3, repositories.StatsDelta{Points: 200, Slots: 3}))

	top, err := env.service.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 2, top[0].UserID)
	assert.Equal(t, 3, top[1].UserID)
}

func TestSeasonReturnsSnapshotWhenFixed(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()

	fixed := []models.SeasonResult{
		{SeasonNumber: 3, UserID: 1, Points: 500, Rank: 1},
		{SeasonNumber: 3, UserID: 2, Points: 400, Rank: 2},
	}
	require.NoError(t, env.seasons.SaveSnapshot(ctx, 3, fixed))
	// Живой пересчёт дал бы другие цифры — снимок имеет приоритет.
	env.forecasts.seasonResults = []models.SeasonResult{{UserID: 9, Points: 1}}

	standings, err := env.service.Season(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, standings.SeasonNumber)
	assert.Equal(t, fixed, standings.Results)

	start, end := seasons.Dates(3)
	assert.Equal(t, start, standings.StartDate)
	assert.Equal(t, end, standings.EndDate)
}

func TestSeasonLiveRecalculation(t *testing.T) {
	env := newStatsEnv()
	env.forecasts.seasonResults = []models.SeasonResult{
		{UserID: 1, Points: 250, Rank: 1},
		{UserID: 2, Points: 100, Rank: 2},
	}

	standings, err := env.service.Season(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, standings.Results, 2)
	for _, r := range standings.Results {
		assert.Equal(t, 5, r.SeasonNumber)
	}
}

func TestSeasonRejectsInvalidNumber(t *testing.T) {
	env := newStatsEnv()

	_, err := env.service.Season(context.Background(), 0)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRotateSeasonsSnapshotsPreviousWeek(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()
	env.forecasts.seasonResults = []models.SeasonResult{{UserID: 1, Points: 250, Rank: 1}}

	require.NoError(t, env.service.RotateSeasons(ctx))

	previous := seasons.PreviousNumber(time.Now())
	saved, err := env.seasons.ListBySeason(ctx, previous)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 250, saved[0].Points)

	// Повторный вызов не перезаписывает уже зафиксированный сезон.
	env.forecasts.seasonResults = []models.SeasonResult{{UserID: 2, Points: 999, Rank: 1}}
	require.NoError(t, env.service.RotateSeasons(ctx))

	saved, err = env.seasons.ListBySeason(ctx, previous)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 1, saved[0].UserID)
}

func TestRotateSeasonsSkipsEmptyWeek(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()

	require.NoError(t, env.service.RotateSeasons(ctx))

	previous := seasons.PreviousNumber(time.Now())
	exists, err := env.seasons.SnapshotExists(ctx, previous)
	require.NoError(t, err)
	assert.False(t, exists, "a week without finished tournaments leaves no snapshot")
}

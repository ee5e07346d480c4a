package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyticsEnv struct {
	service      services.AnalyticsService
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	forecasts    *fakeForecastRepo
	users        *fakeUserRepo
}

func newAnalyticsEnv() *analyticsEnv {
	env := &analyticsEnv{
		tournaments:  newFakeTournamentRepo(),
		participants: newFakeParticipantRepo(),
		forecasts:    newFakeForecastRepo(),
		users:        newFakeUserRepo(),
	}
	env.service = services.NewAnalyticsService(env.tournaments, env.participants, env.forecasts, env.users)
	return env
}

func (env *analyticsEnv) seedTournament(status models.TournamentStatus) *models.Tournament {
	t := env.tournaments.add(models.Tournament{
		Name:      "Analytics Cup",
		Date:      time.Now(),
		Status:    status,
		PickCount: 3,
	})
	env.participants.seed(t.ID,
		models.Player{ID: 1, FullName: "First", Active: true},
		models.Player{ID: 2, FullName: "Second", Active: true},
		models.Player{ID: 3, FullName: "Third", Active: true},
		models.Player{ID: 4, FullName: "Fourth", Active: true},
	)
	return t
}

func (env *analyticsEnv) submit(t *testing.T, userID, tournamentID int, picks []int) *models.Forecast {
	t.Helper()
	f := &models.Forecast{UserID: userID, TournamentID: tournamentID, Picks: picks}
	require.NoError(t, env.forecasts.Upsert(context.Background(), nil, f))
	return f
}

func TestPickPopularityFractions(t *testing.T) {
	env := newAnalyticsEnv()
	open := env.seedTournament(models.StatusOpen)

	// Игрок 1 назван в двух прогнозах из трёх, игрок 4 — ни в одном.
	env.submit(t, 10, open.ID, []int{1, 2, 3})
	env.submit(t, 11, open.ID, []int{2, 1, 3})
	env.submit(t, 12, open.ID, []int{2, 3, 99})

	stats, err := env.service.PickPopularity(context.Background(), open.ID)
	require.NoError(t, err)

	byPlayer := make(map[int]models.PlayerPickStats, len(stats))
	for _, s := range stats {
		byPlayer[s.PlayerID] = s
	}

	first := byPlayer[1]
	assert.Equal(t, 2, first.Count)
	assert.InDelta(t, 2.0/3.0, first.Fraction, 1e-9)
	assert.Equal(t, "First", first.FullName)
	// Первый слот весит 3, второй — 2.
	assert.Equal(t, 5, first.Hype)
	assert.Equal(t, []int{1, 1, 0}, first.PositionCount)

	second := byPlayer[2]
	assert.Equal(t, 3, second.Count)
	assert.InDelta(t, 1.0, second.Fraction, 1e-9)
	assert.Equal(t, 8, second.Hype)

	_, mentioned := byPlayer[4]
	assert.False(t, mentioned, "players outside every forecast are omitted")
}

func TestPickPopularityOrderedByHype(t *testing.T) {
	env := newAnalyticsEnv()
	open := env.seedTournament(models.StatusOpen)

	env.submit(t, 10, open.ID, []int{1, 2, 3})
	env.submit(t, 11, open.ID, []int{2, 1, 3})

	stats, err := env.service.PickPopularity(context.Background(), open.ID)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	for i := 1; i < len(stats); i++ {
		assert.GreaterOrEqual(t, stats[i-1].Hype, stats[i].Hype)
	}
}

func TestPickPopularityNoForecasts(t *testing.T) {
	env := newAnalyticsEnv()
	open := env.seedTournament(models.StatusOpen)

	stats, err := env.service.PickPopularity(context.Background(), open.ID)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestPickPopularityUnknownTournament(t *testing.T) {
	env := newAnalyticsEnv()

	_, err := env.service.PickPopularity(context.Background(), 404)
	assert.ErrorIs(t, err, services.ErrTournamentNotFound)
}

func TestOverviewOpenTournament(t *testing.T) {
	env := newAnalyticsEnv()
	open := env.seedTournament(models.StatusOpen)
	env.submit(t, 10, open.ID, []int{1, 2, 3})

	overview, err := env.service.Overview(context.Background(), open.ID)
	require.NoError(t, err)

	assert.Equal(t, open.ID, overview.Tournament.ID)
	assert.Len(t, overview.Tournament.Participants, 4)
	assert.Equal(t, 1, overview.Forecasts)
	assert.NotEmpty(t, overview.Popularity)
	assert.Empty(t, overview.Standings, "standings appear only for finished tournaments")
}

func TestOverviewFinishedIncludesStandings(t *testing.T) {
	env := newAnalyticsEnv()
	ctx := context.Background()
	finished := env.seedTournament(models.StatusFinished)
	env.users.seed(
		models.User{ID: 10, Nickname: "alice"},
		models.User{ID: 11, Nickname: "bob"},
		models.User{ID: 12, Nickname: "carol"},
	)

	// У alice и carol одинаковые очки: выше alice, отправившая прогноз раньше.
	alice := env.submit(t, 10, finished.ID, []int{1, 2, 3})
	bob := env.submit(t, 11, finished.ID, []int{3, 2, 1})
	carol := env.submit(t, 12, finished.ID, []int{1, 2, 4})
	require.NoError(t, env.forecasts.UpdateScore(ctx, nil, alice.ID, 200, nil))
	require.NoError(t, env.forecasts.UpdateScore(ctx, nil, bob.ID, 300, nil))
	require.NoError(t, env.forecasts.UpdateScore(ctx, nil, carol.ID, 200, nil))

	overview, err := env.service.Overview(ctx, finished.ID)
	require.NoError(t, err)
	require.Len(t, overview.Standings, 3)

	assert.Equal(t, "bob", overview.Standings[0].Nickname)
	assert.Equal(t, 300, overview.Standings[0].Points)
	assert.Equal(t, "alice", overview.Standings[1].Nickname)
	assert.Equal(t, "carol", overview.Standings[2].Nickname)
}

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

type forecastEnv struct {
	service      services.ForecastService
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	forecasts    *fakeForecastRepo
	users        *fakeUserRepo
}

func newForecastEnv() *forecastEnv {
	env := &forecastEnv{
		tournaments:  newFakeTournamentRepo(),
		participants: newFakeParticipantRepo(),
		forecasts:    newFakeForecastRepo(),
		users:        newFakeUserRepo(),
	}
	env.service = services.NewForecastService(
		fakeTxManager{},
		env.forecasts,
		env.tournaments,
		env.participants,
		env.users,
		discardLogger(),
	)
	return env
}

// seedOpenTournament создаёт открытый турнир с участниками 1, 2 и 3.
func (env *forecastEnv) seedOpenTournament() *models.Tournament {
	t := env.tournaments.add(models.Tournament{
		Name:      "Friday Night",
		Date:      time.Now().Add(24 * time.Hour),
		Status:    models.StatusOpen,
		PickCount: 3,
	})
	env.participants.seed(t.ID,
		models.Player{ID: 1, FullName: "First", Active: true},
		models.Player{ID: 2, FullName: "Second", Active: true},
		models.Player{ID: 3, FullName: "Third", Active: true},
	)
	return t
}

func TestForecastSubmit(t *testing.T) {
	env := newForecastEnv()
	open := env.seedOpenTournament()

	f, err := env.service.Submit(context.Background(), 7, open.ID, []int{2, 1, 3})
	require.NoError(t, err)
	assert.NotZero(t, f.ID)
	assert.Equal(t, []int{2, 1, 3}, f.Picks)
	assert.Nil(t, f.Points, "score appears only after the tournament finishes")
}

func TestForecastSubmitReplacesPrevious(t *testing.T) {
	env := newForecastEnv()
	ctx := context.Background()
	open := env.seedOpenTournament()

	first, err := env.service.Submit(ctx, 7, open.ID, []int{1, 2, 3})
	require.NoError(t, err)

	second, err := env.service.Submit(ctx, 7, open.ID, []int{3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "resubmission must replace, not duplicate")

	all, err := env.forecasts.ListByTournament(ctx, nil, open.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []int{3, 2, 1}, all[0].Picks)
}

func TestForecastSubmitValidation(t *testing.T) {
	env := newForecastEnv()
	open := env.seedOpenTournament()

	tests := []struct {
		name    string
		picks   []int
		wantErr error
	}{
		{"too few picks", []int{1, 2}, services.ErrForecastPickCount},
		{"too many picks", []int{1, 2, 3, 1}, services.ErrForecastPickCount},
		{"duplicate pick", []int{1, 1, 2}, services.ErrForecastDuplicatePick},
		{"non-participant pick", []int{1, 2, 99}, services.ErrForecastPickNotParticipant},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.Submit(context.Background(), 7, open.ID, tc.picks)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestForecastSubmitOnlyWhileOpen(t *testing.T) {
	env := newForecastEnv()
	ctx := context.Background()

	for _, status := range []models.TournamentStatus{models.StatusDraft, models.StatusLive, models.StatusFinished} {
		tournament := env.tournaments.add(models.Tournament{
			Name: "Closed " + string(status), Status: status, PickCount: 3,
		})
		env.participants.seed(tournament.ID,
			models.Player{ID: 1, Active: true},
			models.Player{ID: 2, Active: true},
			models.Player{ID: 3, Active: true},
		)

		_, err := env.service.Submit(ctx, 7, tournament.ID, []int{1, 2, 3})
		assert.ErrorIs(t, err, services.ErrForecastsClosed, "status %s", status)
	}
}

func TestForecastSubmitUnknownTournament(t *testing.T) {
	env := newForecastEnv()

	_, err := env.service.Submit(context.Background(), 7, 404, []int{1, 2, 3})
	assert.ErrorIs(t, err, services.ErrTournamentNotFound)
}

func TestForecastGetOwn(t *testing.T) {
	env := newForecastEnv()
	ctx := context.Background()
	open := env.seedOpenTournament()

	_, err := env.service.GetOwn(ctx, 7, open.ID)
	assert.ErrorIs(t, err, services.ErrForecastNotFound)

	_, err = env.service.Submit(ctx, 7, open.ID, []int{1, 2, 3})
	require.NoError(t, err)

	f, err := env.service.GetOwn(ctx, 7, open.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, f.Picks)
}

func TestForecastWithdraw(t *testing.T) {
	env := newForecastEnv()
	ctx := context.Background()
	open := env.seedOpenTournament()

	err := env.service.Withdraw(ctx, 7, open.ID)
	assert.ErrorIs(t, err, services.ErrForecastNotFound)

	_, err = env.service.Submit(ctx, 7, open.ID, []int{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, env.service.Withdraw(ctx, 7, open.ID))

	_, err = env.service.GetOwn(ctx, 7, open.ID)
	assert.ErrorIs(t, err, services.ErrForecastNotFound)
}

func TestForecastWithdrawOnlyWhileOpen(t *testing.T) {
	env := newForecastEnv()
	ctx := context.Background()
	open := env.seedOpenTournament()

	_, err := env.service.Submit(ctx, 7, open.ID, []int{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, env.tournaments.UpdateStatus(ctx, nil, open.ID, models.StatusLive))

	err = env.service.Withdraw(ctx, 7, open.ID)
	assert.ErrorIs(t, err, services.ErrForecastsClosed)
}

func TestForecastListByTournamentResolvesAuthors(t *testing.T) {
	env := newForecastEnv()
	ctx := context.Background()
	open := env.seedOpenTournament()
	env.users.seed(
		models.User{ID: 7, Nickname: "alice"},
		models.User{ID: 8, Nickname: "bob"},
	)

	_, err := env.service.Submit(ctx, 7, open.ID, []int{1, 2, 3})
	require.NoError(t, err)
	_, err = env.service.Submit(ctx, 8, open.ID, []int{3, 2, 1})
	require.NoError(t, err)

	forecasts, err := env.service.ListByTournament(ctx, open.ID)
	require.NoError(t, err)
	require.Len(t, forecasts, 2)

	require.NotNil(t, forecasts[0].User)
	assert.Equal(t, "alice", forecasts[0].User.Nickname)
	require.NotNil(t, forecasts[1].User)
	assert.Equal(t, "bob", forecasts[1].User.Nickname)
}

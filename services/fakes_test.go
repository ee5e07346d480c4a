package services_test

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/repositories"
)

// Фейковые репозитории хранят всё в памяти и имитируют семантику
// Postgres-реализаций ровно настолько, насколько это нужно сервисам.

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	nextID int
	byID   map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{byID: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) add(t models.Tournament) *models.Tournament {
	if t.ID == 0 {
		r.nextID++
		t.ID = r.nextID
	} else if t.ID > r.nextID {
		r.nextID = t.ID
	}
	stored := t
	r.byID[t.ID] = &stored
	return &stored
}

func (r *fakeTournamentRepo) Create(_ context.Context, tournament *models.Tournament) error {
	for _, existing := range r.byID {
		if existing.Name == tournament.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.nextID++
	tournament.ID = r.nextID
	tournament.CreatedAt = time.Now()
	stored := *tournament
	r.byID[tournament.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) get(id int) (*models.Tournament, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(id)
}

func (r *fakeTournamentRepo) GetByIDForUpdate(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(id)
}

func (r *fakeTournamentRepo) GetByIDForShare(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(id)
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(r.byID))
	for _, t := range r.byID {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, tournament *models.Tournament) error {
	stored, ok := r.byID[tournament.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.Name = tournament.Name
	stored.Date = tournament.Date
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, result models.Result) error {
	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	copied := make(models.Result, len(result))
	for playerID, rank := range result {
		copied[playerID] = rank
	}
	stored.Result = copied
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.byID[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeTournamentRepo) ListOpenPastDate(_ context.Context, currentTime time.Time) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0)
	for _, t := range r.byID {
		if t.Status == models.StatusOpen && !t.Date.After(currentTime) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeParticipantRepo struct {
	byTournament map[int][]models.Player
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{byTournament: make(map[int][]models.Player)}
}

func (r *fakeParticipantRepo) seed(tournamentID int, players ...models.Player) {
	r.byTournament[tournamentID] = append(r.byTournament[tournamentID], players...)
}

func (r *fakeParticipantRepo) Add(_ context.Context, tournamentID, playerID int) error {
	for _, p := range r.byTournament[tournamentID] {
		if p.ID == playerID {
			return repositories.ErrParticipantConflict
		}
	}
	r.byTournament[tournamentID] = append(r.byTournament[tournamentID], models.Player{ID: playerID, Active: true})
	return nil
}

func (r *fakeParticipantRepo) Remove(_ context.Context, tournamentID, playerID int) error {
	players := r.byTournament[tournamentID]
	for i, p := range players {
		if p.ID == playerID {
			r.byTournament[tournamentID] = append(players[:i], players[i+1:]...)
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Player, error) {
	return append([]models.Player(nil), r.byTournament[tournamentID]...), nil
}

func (r *fakeParticipantRepo) CountByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	return len(r.byTournament[tournamentID]), nil
}

type fakeForecastRepo struct {
	nextID        int
	forecasts     []*models.Forecast
	seasonResults []models.SeasonResult
}

func newFakeForecastRepo() *fakeForecastRepo {
	return &fakeForecastRepo{}
}

func (r *fakeForecastRepo) find(userID, tournamentID int) *models.Forecast {
	for _, f := range r.forecasts {
		if f.UserID == userID && f.TournamentID == tournamentID {
			return f
		}
	}
	return nil
}

func (r *fakeForecastRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, forecast *models.Forecast) error {
	if existing := r.find(forecast.UserID, forecast.TournamentID); existing != nil {
		existing.Picks = append([]int(nil), forecast.Picks...)
		existing.Points = nil
		existing.Breakdown = nil
		existing.UpdatedAt = time.Now()
		*forecast = *existing
		return nil
	}
	r.nextID++
	forecast.ID = r.nextID
	forecast.CreatedAt = time.Now()
	forecast.UpdatedAt = forecast.CreatedAt
	stored := *forecast
	stored.Picks = append([]int(nil), forecast.Picks...)
	r.forecasts = append(r.forecasts, &stored)
	return nil
}

func (r *fakeForecastRepo) GetByUserAndTournament(_ context.Context, userID, tournamentID int) (*models.Forecast, error) {
	if f := r.find(userID, tournamentID); f != nil {
		copied := *f
		return &copied, nil
	}
	return nil, repositories.ErrForecastNotFound
}

// ListByTournament сохраняет порядок отправки, как и реальный репозиторий
// (ORDER BY created_at ASC).
func (r *fakeForecastRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Forecast, error) {
	out := make([]models.Forecast, 0)
	for _, f := range r.forecasts {
		if f.TournamentID == tournamentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeForecastRepo) ListTournamentIDsByUser(_ context.Context, userID int) ([]int, error) {
	out := make([]int, 0)
	for _, f := range r.forecasts {
		if f.UserID == userID {
			out = append(out, f.TournamentID)
		}
	}
	return out, nil
}

func (r *fakeForecastRepo) UpdateScore(_ context.Context, _ repositories.SQLExecutor, id int, points int, breakdown []models.PickScore) error {
	for _, f := range r.forecasts {
		if f.ID == id {
			p := points
			f.Points = &p
			f.Breakdown = append([]models.PickScore(nil), breakdown...)
			return nil
		}
	}
	return repositories.ErrForecastNotFound
}

func (r *fakeForecastRepo) Delete(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int) error {
	for i, f := range r.forecasts {
		if f.UserID == userID && f.TournamentID == tournamentID {
			r.forecasts = append(r.forecasts[:i], r.forecasts[i+1:]...)
			return nil
		}
	}
	return repositories.ErrForecastNotFound
}

func (r *fakeForecastRepo) SumPointsByUserBetween(_ context.Context, _, _ time.Time) ([]models.SeasonResult, error) {
	return append([]models.SeasonResult(nil), r.seasonResults...), nil
}

type fakePlayerRepo struct {
	nextID int
	byID   map[int]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{byID: make(map[int]*models.Player)}
}

func (r *fakePlayerRepo) seed(players ...models.Player) {
	for _, p := range players {
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
		stored := p
		r.byID[p.ID] = &stored
	}
}

func (r *fakePlayerRepo) Create(_ context.Context, player *models.Player) error {
	r.nextID++
	player.ID = r.nextID
	stored := *player
	r.byID[player.ID] = &stored
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, id int) (*models.Player, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePlayerRepo) GetByIDs(_ context.Context, ids []int) (map[int]*models.Player, error) {
	out := make(map[int]*models.Player, len(ids))
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			copied := *p
			out[id] = &copied
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) List(_ context.Context, filter repositories.ListPlayersFilter) ([]models.Player, error) {
	out := make([]models.Player, 0, len(r.byID))
	for _, p := range r.byID {
		if filter.Active != nil && p.Active != *filter.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) Update(_ context.Context, player *models.Player) error {
	stored, ok := r.byID[player.ID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	*stored = *player
	return nil
}

func (r *fakePlayerRepo) SetActive(_ context.Context, id int, active bool) error {
	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	stored.Active = active
	return nil
}

func (r *fakePlayerRepo) UpdatePhotoKey(_ context.Context, id int, photoKey *string) error {
	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	stored.PhotoKey = photoKey
	return nil
}

type fakeStatsRepo struct {
	byUser map[int]*models.UserStats
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{byUser: make(map[int]*models.UserStats)}
}

func (r *fakeStatsRepo) Apply(_ context.Context, _ repositories.SQLExecutor, userID int, delta repositories.StatsDelta) error {
	stats, ok := r.byUser[userID]
	if !ok {
		stats = &models.UserStats{UserID: userID}
		r.byUser[userID] = stats
	}
	stats.TotalPoints += delta.Points
	stats.TournamentsPlayed++
	stats.SlotsTotal += delta.Slots
	stats.SlotsExact += delta.ExactHits
	stats.ErrorSum += delta.ErrorSum
	if delta.Perfect {
		stats.PerfectTournaments++
	}
	return nil
}

func (r *fakeStatsRepo) GetByUserID(_ context.Context, userID int) (*models.UserStats, error) {
	if stats, ok := r.byUser[userID]; ok {
		copied := *stats
		return &copied, nil
	}
	return &models.UserStats{UserID: userID}, nil
}

func (r *fakeStatsRepo) ListTop(_ context.Context, limit int) ([]models.UserStats, error) {
	out := make([]models.UserStats, 0, len(r.byUser))
	for _, stats := range r.byUser {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeUserRepo struct {
	nextID int
	byID   map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[int]*models.User)}
}

func (r *fakeUserRepo) seed(users ...models.User) {
	for _, u := range users {
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
		stored := u
		r.byID[u.ID] = &stored
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Nickname == user.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []int) (map[int]*models.User, error) {
	out := make(map[int]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			copied := *u
			out[id] = &copied
		}
	}
	return out, nil
}

type fakeSeasonRepo struct {
	snapshots map[int][]models.SeasonResult
}

func newFakeSeasonRepo() *fakeSeasonRepo {
	return &fakeSeasonRepo{snapshots: make(map[int][]models.SeasonResult)}
}

func (r *fakeSeasonRepo) SnapshotExists(_ context.Context, seasonNumber int) (bool, error) {
	_, ok := r.snapshots[seasonNumber]
	return ok, nil
}

func (r *fakeSeasonRepo) SaveSnapshot(_ context.Context, seasonNumber int, results []models.SeasonResult) error {
	r.snapshots[seasonNumber] = append([]models.SeasonResult(nil), results...)
	return nil
}

func (r *fakeSeasonRepo) ListBySeason(_ context.Context, seasonNumber int) ([]models.SeasonResult, error) {
	return append([]models.SeasonResult(nil), r.snapshots[seasonNumber]...), nil
}

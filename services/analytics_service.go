package services

import (
	"context"
	"errors"
	"sort"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/repositories"
	"golang.org/x/sync/errgroup"
)

// TournamentOverview — сводка турнира для страницы деталей: состав,
// популярность пиков и, для завершённых, итоговая таблица.
type TournamentOverview struct {
	Tournament *models.Tournament       `json:"tournament"`
	Forecasts  int                      `json:"forecasts"`
	Popularity []models.PlayerPickStats `json:"popularity"`
	Standings  []StandingEntry          `json:"standings,omitempty"`
}

type AnalyticsService interface {
	// PickPopularity — для каждого игрока: в скольких прогнозах он назван
	// (в любой позиции), доля таких прогнозов и распределение позиций.
	PickPopularity(ctx context.Context, tournamentID int) ([]models.PlayerPickStats, error)
	Overview(ctx context.Context, tournamentID int) (*TournamentOverview, error)
}

type analyticsService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	forecastRepo    repositories.ForecastRepository
	userRepo        repositories.UserRepository
}

func NewAnalyticsService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	forecastRepo repositories.ForecastRepository,
	userRepo repositories.UserRepository,
) AnalyticsService {
	return &analyticsService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		forecastRepo:    forecastRepo,
		userRepo:        userRepo,
	}
}

func (s *analyticsService) PickPopularity(ctx context.Context, tournamentID int) ([]models.PlayerPickStats, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	forecasts, err := s.forecastRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	return aggregatePicks(forecasts, participants, t.PickCount), nil
}

// Overview загружает независимые срезы турнира параллельно.
func (s *analyticsService) Overview(ctx context.Context, tournamentID int) (*TournamentOverview, error) {
	var (
		tournament   *models.Tournament
		participants []models.Player
		forecasts    []models.Forecast
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gCtx, nil, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gCtx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		forecasts, err = s.forecastRepo.ListByTournament(gCtx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.Participants = participants
	overview := &TournamentOverview{
		Tournament: tournament,
		Forecasts:  len(forecasts),
		Popularity: aggregatePicks(forecasts, participants, tournament.PickCount),
	}

	if tournament.Status == models.StatusFinished {
		overview.Standings = s.standings(ctx, forecasts)
	}
	return overview, nil
}

func (s *analyticsService) standings(ctx context.Context, forecasts []models.Forecast) []StandingEntry {
	standings := make([]StandingEntry, 0, len(forecasts))
	ids := make([]int, 0, len(forecasts))
	for _, f := range forecasts {
		points := 0
		if f.Points != nil {
			points = *f.Points
		}
		standings = append(standings, StandingEntry{UserID: f.UserID, Points: points})
		ids = append(ids, f.UserID)
	}
	// Прогнозы отсортированы по времени отправки: при равных очках выше тот,
	// кто отправил прогноз раньше.
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})

	if users, err := s.userRepo.GetByIDs(ctx, ids); err == nil {
		for i := range standings {
			if u, ok := users[standings[i].UserID]; ok {
				standings[i].Nickname = u.Nickname
			}
		}
	}
	return standings
}

// aggregatePicks — чистая агрегация популярности. Ноль прогнозов — пустые
// агрегаты, не ошибка. «Хайп» — взвешенный интерес: первый слот прогноза
// весит pickCount, последний — единицу.
func aggregatePicks(forecasts []models.Forecast, participants []models.Player, pickCount int) []models.PlayerPickStats {
	names := make(map[int]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.FullName
	}

	byPlayer := make(map[int]*models.PlayerPickStats)
	for _, f := range forecasts {
		for position, playerID := range f.Picks {
			stats, ok := byPlayer[playerID]
			if !ok {
				stats = &models.PlayerPickStats{
					PlayerID:      playerID,
					FullName:      names[playerID],
					PositionCount: make([]int, pickCount),
				}
				byPlayer[playerID] = stats
			}
			stats.Count++
			stats.Hype += pickCount - position
			if position < len(stats.PositionCount) {
				stats.PositionCount[position]++
			}
		}
	}

	result := make([]models.PlayerPickStats, 0, len(byPlayer))
	total := len(forecasts)
	for _, stats := range byPlayer {
		if total > 0 {
			stats.Fraction = float64(stats.Count) / float64(total)
		}
		result = append(result, *stats)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Hype != result[j].Hype {
			return result[i].Hype > result[j].Hype
		}
		return result[i].PlayerID < result[j].PlayerID
	})
	return result
}

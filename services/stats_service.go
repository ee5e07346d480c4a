package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/repositories"
	"github.com/Dosada05/forecast-league/seasons"
)

// SeasonStandings — таблица одного недельного сезона.
type SeasonStandings struct {
	SeasonNumber int                   `json:"season_number"`
	StartDate    time.Time             `json:"start_date"`
	EndDate      time.Time             `json:"end_date"`
	Results      []models.SeasonResult `json:"results"`
}

type StatsService interface {
	GetUserStats(ctx context.Context, userID int) (*models.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.UserStats, error)
	CurrentSeason(ctx context.Context) (*SeasonStandings, error)
	Season(ctx context.Context, number int) (*SeasonStandings, error)
	// RotateSeasons фиксирует итоги завершившихся сезонов. Идемпотентна —
	// планировщик может звать её сколь угодно часто.
	RotateSeasons(ctx context.Context) error
}

type statsService struct {
	statsRepo      repositories.StatsRepository
	forecastRepo   repositories.ForecastRepository
	tournamentRepo repositories.TournamentRepository
	seasonRepo     repositories.SeasonRepository
	userRepo       repositories.UserRepository
	logger         *slog.Logger
	now            func() time.Time
}

func NewStatsService(
	statsRepo repositories.StatsRepository,
	forecastRepo repositories.ForecastRepository,
	tournamentRepo repositories.TournamentRepository,
	seasonRepo repositories.SeasonRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) StatsService {
	return &statsService{
		statsRepo:      statsRepo,
		forecastRepo:   forecastRepo,
		tournamentRepo: tournamentRepo,
		seasonRepo:     seasonRepo,
		userRepo:       userRepo,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *statsService) GetUserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	stats, err := s.statsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, max, err := s.streaks(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.CurrentStreak = current
	stats.MaxStreak = max
	return stats, nil
}

func (s *statsService) Leaderboard(ctx context.Context, limit int) ([]models.UserStats, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.statsRepo.ListTop(ctx, limit)
}

func (s *statsService) CurrentSeason(ctx context.Context) (*SeasonStandings, error) {
	return s.Season(ctx, seasons.CurrentNumber(s.now()))
}

// Season возвращает таблицу сезона: для прошедших — зафиксированный снимок,
// для текущего (или незафиксированного) — живой пересчёт по прогнозам.
func (s *statsService) Season(ctx context.Context, number int) (*SeasonStandings, error) {
	if number < 1 {
		return nil, fmt.Errorf("%w: season %d", ErrNotFound, number)
	}
	start, end := seasons.Dates(number)
	standings := &SeasonStandings{SeasonNumber: number, StartDate: start, EndDate: end}

	snapshotted, err := s.seasonRepo.SnapshotExists(ctx, number)
	if err != nil {
		return nil, err
	}
	if snapshotted {
		standings.Results, err = s.seasonRepo.ListBySeason(ctx, number)
		return standings, err
	}

	standings.Results, err = s.liveSeasonResults(ctx, number)
	return standings, err
}

func (s *statsService) RotateSeasons(ctx context.Context) error {
	previous := seasons.PreviousNumber(s.now())
	if previous < 1 {
		return nil
	}

	exists, err := s.seasonRepo.SnapshotExists(ctx, previous)
	if err != nil {
		return fmt.Errorf("failed to check season %d snapshot: %w", previous, err)
	}
	if exists {
		return nil
	}

	results, err := s.liveSeasonResults(ctx, previous)
	if err != nil {
		return fmt.Errorf("failed to compute season %d results: %w", previous, err)
	}
	if len(results) == 0 {
		// Неделя без завершённых турниров — фиксировать нечего.
		return nil
	}

	if err := s.seasonRepo.SaveSnapshot(ctx, previous, results); err != nil {
		return fmt.Errorf("failed to snapshot season %d: %w", previous, err)
	}
	s.logger.Info("season results snapshotted",
		slog.Int("season", previous), slog.Int("users", len(results)))
	return nil
}

func (s *statsService) liveSeasonResults(ctx context.Context, number int) ([]models.SeasonResult, error) {
	start, end := seasons.Dates(number)
	// Конец сезона — воскресенье включительно.
	results, err := s.forecastRepo.SumPointsByUserBetween(ctx, start, end.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].SeasonNumber = number
	}
	return results, nil
}

// streaks считает серии участия: подряд идущие (по дате) опубликованные
// турниры, в которых пользователь оставил прогноз. Текущая серия обрывается
// первым пропущенным турниром с конца.
func (s *statsService) streaks(ctx context.Context, userID int) (current, max int, err error) {
	tournamentIDs, err := s.forecastRepo.ListTournamentIDsByUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	forecasted := make(map[int]struct{}, len(tournamentIDs))
	for _, id := range tournamentIDs {
		forecasted[id] = struct{}{}
	}

	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{})
	if err != nil {
		return 0, 0, err
	}

	// Черновики не в счёт: они не видны для прогнозов.
	visible := tournaments[:0]
	for _, t := range tournaments {
		if t.Status != models.StatusDraft {
			visible = append(visible, t)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].Date.Before(visible[j].Date) })

	return participationStreaks(visible, forecasted), maxStreak(visible, forecasted), nil
}

func participationStreaks(tournaments []models.Tournament, forecasted map[int]struct{}) int {
	current := 0
	for i := len(tournaments) - 1; i >= 0; i-- {
		if _, ok := forecasted[tournaments[i].ID]; !ok {
			break
		}
		current++
	}
	return current
}

func maxStreak(tournaments []models.Tournament, forecasted map[int]struct{}) int {
	max, run := 0, 0
	for _, t := range tournaments {
		if _, ok := forecasted[t.ID]; ok {
			run++
			if run > max {
				max = run
			}
		} else {
			run = 0
		}
	}
	return max
}

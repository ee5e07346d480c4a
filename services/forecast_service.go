package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/repositories"
)

type ForecastService interface {
	// Submit создаёт прогноз пользователя или заменяет существующий —
	// не более одного прогноза на пару (user, tournament).
	Submit(ctx context.Context, userID, tournamentID int, picks []int) (*models.Forecast, error)
	GetOwn(ctx context.Context, userID, tournamentID int) (*models.Forecast, error)
	Withdraw(ctx context.Context, userID, tournamentID int) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Forecast, error)
}

type forecastService struct {
	txManager       repositories.TxManager
	forecastRepo    repositories.ForecastRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	logger          *slog.Logger
}

func NewForecastService(
	txManager repositories.TxManager,
	forecastRepo repositories.ForecastRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) ForecastService {
	return &forecastService{
		txManager:       txManager,
		forecastRepo:    forecastRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

func (s *forecastService) Submit(ctx context.Context, userID, tournamentID int, picks []int) (*models.Forecast, error) {
	forecast := &models.Forecast{
		UserID:       userID,
		TournamentID: tournamentID,
		Picks:        picks,
	}

	// Разделяемая блокировка строки турнира: отправки разных пользователей
	// идут параллельно, но не пересекаются с переходом open → live.
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForShare(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.Status != models.StatusOpen {
			return ErrForecastsClosed
		}

		if err := validatePicks(picks, t.PickCount); err != nil {
			return err
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		set := participantSet(participants)
		for _, playerID := range picks {
			if _, ok := set[playerID]; !ok {
				return fmt.Errorf("%w: player %d", ErrForecastPickNotParticipant, playerID)
			}
		}

		return s.forecastRepo.Upsert(ctx, exec, forecast)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("forecast submitted",
		slog.Int("user_id", userID),
		slog.Int("tournament_id", tournamentID),
	)
	return forecast, nil
}

func (s *forecastService) GetOwn(ctx context.Context, userID, tournamentID int) (*models.Forecast, error) {
	f, err := s.forecastRepo.GetByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrForecastNotFound) {
			return nil, ErrForecastNotFound
		}
		return nil, err
	}
	return f, nil
}

// Withdraw отзывает прогноз. Разрешено только пока турнир открыт.
func (s *forecastService) Withdraw(ctx context.Context, userID, tournamentID int) error {
	return s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForShare(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.Status != models.StatusOpen {
			return ErrForecastsClosed
		}

		if err := s.forecastRepo.Delete(ctx, exec, userID, tournamentID); err != nil {
			if errors.Is(err, repositories.ErrForecastNotFound) {
				return ErrForecastNotFound
			}
			return err
		}
		return nil
	})
}

// ListByTournament возвращает прогнозы турнира с подгруженными авторами.
func (s *forecastService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Forecast, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	forecasts, err := s.forecastRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(forecasts))
	for _, f := range forecasts {
		ids = append(ids, f.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forecast authors: %w", err)
	}
	for i := range forecasts {
		forecasts[i].User = users[forecasts[i].UserID]
	}
	return forecasts, nil
}

func validatePicks(picks []int, pickCount int) error {
	if len(picks) != pickCount {
		return fmt.Errorf("%w: got %d picks, want %d", ErrForecastPickCount, len(picks), pickCount)
	}
	seen := make(map[int]struct{}, len(picks))
	for _, playerID := range picks {
		if _, dup := seen[playerID]; dup {
			return fmt.Errorf("%w: player %d", ErrForecastDuplicatePick, playerID)
		}
		seen[playerID] = struct{}{}
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/forecast-league/live"
	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/repositories"
	"github.com/Dosada05/forecast-league/scoring"
)

// nextStatus кодирует единственный допустимый переход из каждого статуса.
// Машина строго однонаправленная: draft → open → live → finished.
var nextStatus = map[models.TournamentStatus]models.TournamentStatus{
	models.StatusDraft: models.StatusOpen,
	models.StatusOpen:  models.StatusLive,
	models.StatusLive:  models.StatusFinished,
}

type CreateTournamentInput struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	PickCount *int      `json:"pick_count,omitempty"`
}

type UpdateTournamentInput struct {
	Name *string    `json:"name,omitempty"`
	Date *time.Time `json:"date,omitempty"`
}

// StandingEntry — строка итоговой таблицы завершённого турнира.
type StandingEntry struct {
	UserID   int    `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Points   int    `json:"points"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, id int) error

	AddParticipant(ctx context.Context, tournamentID, playerID int) error
	RemoveParticipant(ctx context.Context, tournamentID, playerID int) error

	Publish(ctx context.Context, id int) (*models.Tournament, error)
	CloseBets(ctx context.Context, id int) (*models.Tournament, error)
	StageResult(ctx context.Context, id int, result models.Result) error
	Finish(ctx context.Context, id int, result models.Result) (*models.Tournament, error)

	AutoCloseBetsByDates(ctx context.Context) error
}

type tournamentService struct {
	txManager        repositories.TxManager
	tournamentRepo   repositories.TournamentRepository
	participantRepo  repositories.ParticipantRepository
	forecastRepo     repositories.ForecastRepository
	playerRepo       repositories.PlayerRepository
	statsRepo        repositories.StatsRepository
	userRepo         repositories.UserRepository
	hub              *live.Hub
	policy           scoring.Policy
	defaultPickCount int
	logger           *slog.Logger
}

func NewTournamentService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	forecastRepo repositories.ForecastRepository,
	playerRepo repositories.PlayerRepository,
	statsRepo repositories.StatsRepository,
	userRepo repositories.UserRepository,
	hub *live.Hub,
	policy scoring.Policy,
	defaultPickCount int,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		txManager:        txManager,
		tournamentRepo:   tournamentRepo,
		participantRepo:  participantRepo,
		forecastRepo:     forecastRepo,
		playerRepo:       playerRepo,
		statsRepo:        statsRepo,
		userRepo:         userRepo,
		hub:              hub,
		policy:           policy,
		defaultPickCount: defaultPickCount,
		logger:           logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}

	pickCount := s.defaultPickCount
	if input.PickCount != nil {
		pickCount = *input.PickCount
	}
	if pickCount < 1 {
		return nil, ErrInvalidPickCount
	}

	t := &models.Tournament{
		Name:      input.Name,
		Date:      input.Date,
		Status:    models.StatusDraft,
		PickCount: pickCount,
	}

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	participants, err := s.participantRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants for tournament %d: %w", id, err)
	}
	t.Participants = participants
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

func (s *tournamentService) Update(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if t.Status != models.StatusDraft {
		return nil, ErrTournamentNotDraft
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTournamentNameRequired
		}
		t.Name = *input.Name
	}
	if input.Date != nil {
		t.Date = *input.Date
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.Status != models.StatusDraft {
		return ErrTournamentNotDraft
	}
	return s.tournamentRepo.Delete(ctx, id)
}

// AddParticipant добавляет игрока в состав. Состав меняется только в черновике:
// после публикации он заморожен.
func (s *tournamentService) AddParticipant(ctx context.Context, tournamentID, playerID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.Status != models.StatusDraft {
		return ErrTournamentFrozen
	}

	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return err
	}
	// Архивные игроки не предлагаются для новых турниров.
	if !player.Active {
		return ErrPlayerNotFound
	}

	if err := s.participantRepo.Add(ctx, tournamentID, playerID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantConflict):
			return ErrParticipantConflict
		case errors.Is(err, repositories.ErrParticipantInvalid):
			return ErrPlayerNotFound
		}
		return err
	}
	return nil
}

func (s *tournamentService) RemoveParticipant(ctx context.Context, tournamentID, playerID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.Status != models.StatusDraft {
		return ErrTournamentFrozen
	}

	if err := s.participantRepo.Remove(ctx, tournamentID, playerID); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	return nil
}

// Publish переводит турнир draft → open. Требует минимум двух участников:
// прогнозы против поля из одного игрока вырождены.
func (s *tournamentService) Publish(ctx context.Context, id int) (*models.Tournament, error) {
	var published *models.Tournament

	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if err := checkTransition(t.Status, models.StatusOpen); err != nil {
			return err
		}

		count, err := s.participantRepo.CountByTournament(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if count < 2 {
			return fmt.Errorf("%w: %w", ErrTournamentInvalidStatusTransition, ErrTournamentNotEnoughParticipants)
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusOpen); err != nil {
			return err
		}
		t.Status = models.StatusOpen
		published = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(published.ID, live.EventTournamentPublished, published)
	return published, nil
}

// CloseBets переводит турнир open → live: приём прогнозов прекращается.
func (s *tournamentService) CloseBets(ctx context.Context, id int) (*models.Tournament, error) {
	var closed *models.Tournament

	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if err := checkTransition(t.Status, models.StatusLive); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusLive); err != nil {
			return err
		}
		t.Status = models.StatusLive
		closed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(closed.ID, live.EventBetsClosed, closed)
	return closed, nil
}

// StageResult сохраняет (возможно частичный) итог турнира в статусе live.
// Повторный вызов перезаписывает предыдущий черновик итога; фиксирует его
// только переход live → finished.
func (s *tournamentService) StageResult(ctx context.Context, id int, result models.Result) error {
	return s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if t.Status != models.StatusLive {
			return ErrTournamentNotLive
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		if err := validateResult(result, participantSet(participants)); err != nil {
			return err
		}

		return s.tournamentRepo.UpdateResult(ctx, exec, id, result)
	})
}

// Finish завершает турнир: live → finished. Итог (аргумент или ранее
// сохранённый) фиксируется, и очки всех прогнозов считаются и пишутся в той
// же транзакции, что и смена статуса — либо всё, либо ничего.
func (s *tournamentService) Finish(ctx context.Context, id int, result models.Result) (*models.Tournament, error) {
	var finished *models.Tournament
	var standings []StandingEntry

	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.lockTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		if err := checkTransition(t.Status, models.StatusFinished); err != nil {
			return err
		}

		if result == nil {
			result = t.Result
		}
		if result == nil {
			return ErrTournamentNoResult
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		set := participantSet(participants)
		if err := validateResult(result, set); err != nil {
			return err
		}

		forecasts, err := s.forecastRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to load forecasts: %w", err)
		}

		standings = make([]StandingEntry, 0, len(forecasts))
		for i := range forecasts {
			f := &forecasts[i]

			out, scoreErr := scoring.Score(f.Picks, set, result, s.policy)
			if scoreErr != nil {
				if errors.Is(scoreErr, scoring.ErrPickNotParticipant) {
					return fmt.Errorf("%w: forecast %d: %v", ErrForecastPickNotParticipant, f.ID, scoreErr)
				}
				return scoreErr
			}

			if err := s.forecastRepo.UpdateScore(ctx, exec, f.ID, out.Points, out.Picks); err != nil {
				return fmt.Errorf("failed to store score for forecast %d: %w", f.ID, err)
			}

			delta := repositories.StatsDelta{
				Points:    out.Points,
				Slots:     len(f.Picks),
				ExactHits: out.ExactHits,
				Perfect:   len(f.Picks) > 0 && out.ExactHits == len(f.Picks),
			}
			for _, pick := range out.Picks {
				delta.ErrorSum += pick.Diff
			}
			if err := s.statsRepo.Apply(ctx, exec, f.UserID, delta); err != nil {
				return fmt.Errorf("failed to apply stats for user %d: %w", f.UserID, err)
			}

			standings = append(standings, StandingEntry{UserID: f.UserID, Points: out.Points})
		}

		if err := s.tournamentRepo.UpdateResult(ctx, exec, id, result); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusFinished); err != nil {
			return err
		}

		t.Status = models.StatusFinished
		t.Result = result
		finished = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Таблица уже отсортирована по времени отправки прогнозов; стабильная
	// сортировка по очкам сохраняет правило «раньше отправил — выше».
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	s.fillNicknames(ctx, standings)

	s.logger.Info("tournament finished and scored",
		slog.Int("tournament_id", finished.ID),
		slog.Int("forecasts_scored", len(standings)),
	)
	s.broadcast(finished.ID, live.EventResultsConfirmed, map[string]interface{}{
		"tournament": finished,
		"standings":  standings,
	})
	return finished, nil
}

// AutoCloseBetsByDates закрывает ставки у открытых турниров, чья дата
// наступила. Вызывается планировщиком.
func (s *tournamentService) AutoCloseBetsByDates(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.ListOpenPastDate(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to list tournaments for auto close: %w", err)
	}

	for _, t := range tournaments {
		if _, err := s.CloseBets(ctx, t.ID); err != nil {
			// Гонка с ручным закрытием — не повод останавливать обход.
			if errors.Is(err, ErrTournamentInvalidStatusTransition) {
				continue
			}
			s.logger.Error("auto close bets failed",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		s.logger.Info("bets auto-closed", slog.Int("tournament_id", t.ID))
	}
	return nil
}

func (s *tournamentService) lockTournament(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(fmt.Sprintf("%d", tournamentID), eventType, payload)
}

func (s *tournamentService) fillNicknames(ctx context.Context, standings []StandingEntry) {
	if len(standings) == 0 {
		return
	}
	ids := make([]int, 0, len(standings))
	for _, entry := range standings {
		ids = append(ids, entry.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("failed to resolve nicknames for standings", slog.Any("error", err))
		return
	}
	for i := range standings {
		if u, ok := users[standings[i].UserID]; ok {
			standings[i].Nickname = u.Nickname
		}
	}
}

func checkTransition(current, target models.TournamentStatus) error {
	if nextStatus[current] != target {
		return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, current, target)
	}
	return nil
}

func participantSet(players []models.Player) map[int]struct{} {
	set := make(map[int]struct{}, len(players))
	for _, p := range players {
		set[p.ID] = struct{}{}
	}
	return set
}

// validateResult проверяет согласованность итога с составом турнира:
// все игроки — участники, ранги положительны и уникальны.
func validateResult(result models.Result, participants map[int]struct{}) error {
	seenRanks := make(map[int]int, len(result))
	for playerID, rank := range result {
		if rank < 1 {
			return fmt.Errorf("%w: player %d has rank %d", ErrResultInvalidRank, playerID, rank)
		}
		if _, ok := participants[playerID]; !ok {
			return fmt.Errorf("%w: player %d", ErrResultUnknownPlayer, playerID)
		}
		if other, dup := seenRanks[rank]; dup {
			return fmt.Errorf("%w: rank %d assigned to players %d and %d", ErrResultDuplicateRank, rank, other, playerID)
		}
		seenRanks[rank] = playerID
	}
	return nil
}

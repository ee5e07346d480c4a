package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/repositories"
	"github.com/Dosada05/forecast-league/storage"
)

type CreatePlayerInput struct {
	FullName string `json:"full_name"`
	Rating   int    `json:"rating"`
}

type UpdatePlayerInput struct {
	FullName *string `json:"full_name,omitempty"`
	Rating   *int    `json:"rating,omitempty"`
}

type PlayerService interface {
	Create(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	// GetByID разрешает игрока по идентификатору независимо от флага
	// архивации — исторические ссылки всегда разрешимы.
	GetByID(ctx context.Context, id int) (*models.Player, error)
	Update(ctx context.Context, id int, input UpdatePlayerInput) (*models.Player, error)
	Archive(ctx context.Context, id int) error
	Restore(ctx context.Context, id int) error
	ListActive(ctx context.Context) ([]models.Player, error)
	ListArchived(ctx context.Context) ([]models.Player, error)
	UploadPhoto(ctx context.Context, id int, contentType string, photo io.Reader) (*models.Player, error)
}

type playerService struct {
	repo     repositories.PlayerRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewPlayerService(repo repositories.PlayerRepository, uploader storage.FileUploader, logger *slog.Logger) PlayerService {
	return &playerService{repo: repo, uploader: uploader, logger: logger}
}

func (s *playerService) Create(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.FullName)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}

	player := &models.Player{FullName: name, Rating: input.Rating}
	if err := s.repo.Create(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, ErrPlayerNameConflict
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return s.withPhotoURL(player), nil
}

func (s *playerService) GetByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return s.withPhotoURL(player), nil
}

func (s *playerService) Update(ctx context.Context, id int, input UpdatePlayerInput) (*models.Player, error) {
	player, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, ErrPlayerNameRequired
		}
		player.FullName = name
	}
	if input.Rating != nil {
		player.Rating = *input.Rating
	}

	if err := s.repo.Update(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, ErrPlayerNameConflict
		}
		return nil, err
	}
	return s.withPhotoURL(player), nil
}

// Archive снимает игрока с выбора для новых турниров. Идемпотентна:
// повторная архивация — no-op, а не ошибка.
func (s *playerService) Archive(ctx context.Context, id int) error {
	return s.setActive(ctx, id, false)
}

func (s *playerService) Restore(ctx context.Context, id int) error {
	return s.setActive(ctx, id, true)
}

func (s *playerService) setActive(ctx context.Context, id int, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return err
	}
	return nil
}

func (s *playerService) ListActive(ctx context.Context) ([]models.Player, error) {
	return s.list(ctx, true)
}

func (s *playerService) ListArchived(ctx context.Context) ([]models.Player, error) {
	return s.list(ctx, false)
}

func (s *playerService) list(ctx context.Context, active bool) ([]models.Player, error) {
	players, err := s.repo.List(ctx, repositories.ListPlayersFilter{Active: &active})
	if err != nil {
		return nil, err
	}
	for i := range players {
		s.withPhotoURL(&players[i])
	}
	return players, nil
}

func (s *playerService) UploadPhoto(ctx context.Context, id int, contentType string, photo io.Reader) (*models.Player, error) {
	player, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("players/%d/photo", id)
	uploaded, err := s.uploader.Upload(ctx, key, contentType, photo)
	if err != nil {
		return nil, fmt.Errorf("failed to upload player photo: %w", err)
	}

	if err := s.repo.UpdatePhotoKey(ctx, id, &uploaded.Key); err != nil {
		// Фото уже в хранилище, но ссылка не записана — чистим за собой.
		if delErr := s.uploader.Delete(ctx, uploaded.Key); delErr != nil {
			s.logger.Error("failed to delete orphaned player photo",
				slog.String("key", uploaded.Key), slog.Any("error", delErr))
		}
		return nil, err
	}

	player.PhotoKey = &uploaded.Key
	return s.withPhotoURL(player), nil
}

func (s *playerService) withPhotoURL(player *models.Player) *models.Player {
	if player.PhotoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*player.PhotoKey)
		player.PhotoURL = &url
	}
	return player
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/forecast-league/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerNameConflict = errors.New("player with this name already exists")
)

type ListPlayersFilter struct {
	// Active фильтрует по флагу архивации; nil — все игроки.
	Active *bool
}

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]*models.Player, error)
	List(ctx context.Context, filter ListPlayersFilter) ([]models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	SetActive(ctx context.Context, id int, active bool) error
	UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, full_name, rating, active, photo_key, created_at`

func scanPlayer(row interface{ Scan(...interface{}) error }, p *models.Player) error {
	return row.Scan(&p.ID, &p.FullName, &p.Rating, &p.Active, &p.PhotoKey, &p.CreatedAt)
}

func (r *postgresPlayerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (full_name, rating, active)
		VALUES ($1, $2, TRUE)
		RETURNING id, active, created_at`

	err := r.db.QueryRowContext(ctx, query, p.FullName, p.Rating).
		Scan(&p.ID, &p.Active, &p.CreatedAt)

	return handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p := &models.Player{}
	if err := scanPlayer(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPlayerRepository) GetByIDs(ctx context.Context, ids []int) (map[int]*models.Player, error) {
	players := make(map[int]*models.Player, len(ids))
	if len(ids) == 0 {
		return players, nil
	}

	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p := &models.Player{}
		if scanErr := scanPlayer(rows, p); scanErr != nil {
			return nil, scanErr
		}
		players[p.ID] = p
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) List(ctx context.Context, filter ListPlayersFilter) ([]models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players`
	args := []interface{}{}

	if filter.Active != nil {
		query += ` WHERE active = $1`
		args = append(args, *filter.Active)
	}
	query += ` ORDER BY rating DESC, full_name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if scanErr := scanPlayer(rows, &p); scanErr != nil {
			return nil, scanErr
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) Update(ctx context.Context, p *models.Player) error {
	query := `UPDATE players SET full_name = $1, rating = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, p.FullName, p.Rating, p.ID)
	if err != nil {
		return handlePlayerError(err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) SetActive(ctx context.Context, id int, active bool) error {
	query := `UPDATE players SET active = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error {
	query := `UPDATE players SET photo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, photoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		if pqErr.Constraint == "players_full_name_key" {
			return ErrPlayerNameConflict
		}
	}
	return err
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Dosada05/forecast-league/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
)

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForUpdate блокирует строку турнира (SELECT ... FOR UPDATE),
	// сериализуя переходы статуса между собой и с приёмом прогнозов.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetByIDForShare берёт разделяемую блокировку: прогнозы разных
	// пользователей идут параллельно, но не пересекаются с переходом статуса.
	GetByIDForShare(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, result models.Result) error
	Delete(ctx context.Context, id int) error
	ListOpenPastDate(ctx context.Context, currentTime time.Time) ([]models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, date, status, pick_count, result, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	var rawResult []byte
	err := row.Scan(&t.ID, &t.Name, &t.Date, &t.Status, &t.PickCount, &rawResult, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(rawResult) > 0 {
		if err := unmarshalResult(rawResult, &t.Result); err != nil {
			return nil, fmt.Errorf("failed to decode tournament %d result: %w", t.ID, err)
		}
	}
	return t, nil
}

// В JSONB ключи — строки, в модели — int. Конвертируем на границе.
func unmarshalResult(raw []byte, result *models.Result) error {
	var byString map[string]int
	if err := json.Unmarshal(raw, &byString); err != nil {
		return err
	}
	if len(byString) == 0 {
		return nil
	}
	*result = make(models.Result, len(byString))
	for key, rank := range byString {
		playerID, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("non-integer player id %q in result", key)
		}
		(*result)[playerID] = rank
	}
	return nil
}

func marshalResult(result models.Result) ([]byte, error) {
	byString := make(map[string]int, len(result))
	for playerID, rank := range result {
		byString[strconv.Itoa(playerID)] = rank
	}
	return json.Marshal(byString)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, date, status, pick_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, t.Name, t.Date, t.Status, t.PickCount).
		Scan(&t.ID, &t.CreatedAt)

	return handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getByID(ctx, exec, id, "")
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getByID(ctx, exec, id, " FOR UPDATE")
}

func (r *postgresTournamentRepository) GetByIDForShare(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getByID(ctx, exec, id, " FOR SHARE")
}

func (r *postgresTournamentRepository) getByID(ctx context.Context, exec SQLExecutor, id int, lock string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1` + lock

	t, err := scanTournament(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `UPDATE tournaments SET name = $1, date = $2, pick_count = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, t.Name, t.Date, t.PickCount, t.ID)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, result models.Result) error {
	executor := r.getExecutor(exec)
	raw, err := marshalResult(result)
	if err != nil {
		return fmt.Errorf("failed to encode tournament result: %w", err)
	}
	query := `UPDATE tournaments SET result = $1 WHERE id = $2`
	res, err := executor.ExecContext(ctx, query, raw, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(res, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListOpenPastDate возвращает открытые турниры, чья дата уже наступила —
// кандидаты на автоматическое закрытие ставок планировщиком.
func (r *postgresTournamentRepository) ListOpenPastDate(ctx context.Context, currentTime time.Time) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1 AND date <= $2`
	rows, err := r.db.QueryContext(ctx, query, models.StatusOpen, currentTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto close: %w", err)
	}
	defer rows.Close()

	var tournaments []models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		if pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
	}
	return err
}

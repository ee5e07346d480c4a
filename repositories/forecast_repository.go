package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/forecast-league/models"
	"github.com/lib/pq"
)

var (
	ErrForecastNotFound = errors.New("forecast not found")
	ErrForecastInvalid  = errors.New("invalid user or tournament reference")
)

type ForecastRepository interface {
	// Upsert атомарно создаёт прогноз или заменяет существующий для пары
	// (user, tournament) — ON CONFLICT, без read-then-write.
	Upsert(ctx context.Context, exec SQLExecutor, forecast *models.Forecast) error
	GetByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Forecast, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Forecast, error)
	ListTournamentIDsByUser(ctx context.Context, userID int) ([]int, error)
	UpdateScore(ctx context.Context, exec SQLExecutor, id int, points int, breakdown []models.PickScore) error
	Delete(ctx context.Context, exec SQLExecutor, userID, tournamentID int) error
	// SumPointsByUserBetween агрегирует очки по завершённым турнирам в окне
	// дат — сезонная таблица. Порядок: очки по убыванию, при равенстве
	// раньше отправленный прогноз выше.
	SumPointsByUserBetween(ctx context.Context, from, to time.Time) ([]models.SeasonResult, error)
}

type postgresForecastRepository struct {
	db *sql.DB
}

func NewPostgresForecastRepository(db *sql.DB) ForecastRepository {
	return &postgresForecastRepository{db: db}
}

func (r *postgresForecastRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const forecastColumns = `id, user_id, tournament_id, picks, points, breakdown, created_at, updated_at`

func scanForecast(row interface{ Scan(...interface{}) error }) (*models.Forecast, error) {
	f := &models.Forecast{}
	var picks pq.Int64Array
	var rawBreakdown []byte
	err := row.Scan(&f.ID, &f.UserID, &f.TournamentID, &picks, &f.Points, &rawBreakdown, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Picks = make([]int, len(picks))
	for i, id := range picks {
		f.Picks[i] = int(id)
	}
	if len(rawBreakdown) > 0 {
		if err := json.Unmarshal(rawBreakdown, &f.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode forecast %d breakdown: %w", f.ID, err)
		}
	}
	return f, nil
}

func picksArray(picks []int) pq.Int64Array {
	arr := make(pq.Int64Array, len(picks))
	for i, id := range picks {
		arr[i] = int64(id)
	}
	return arr
}

func (r *postgresForecastRepository) Upsert(ctx context.Context, exec SQLExecutor, f *models.Forecast) error {
	executor := r.getExecutor(exec)
	// Замена прогноза обнуляет очки: они пишутся только движком подсчёта.
	query := `
		INSERT INTO forecasts (user_id, tournament_id, picks)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tournament_id) DO UPDATE
		SET picks = EXCLUDED.picks, points = NULL, breakdown = NULL, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query, f.UserID, f.TournamentID, picksArray(f.Picks)).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrForecastInvalid
		}
		return err
	}
	f.Points = nil
	f.Breakdown = nil
	return nil
}

func (r *postgresForecastRepository) GetByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Forecast, error) {
	query := `SELECT ` + forecastColumns + ` FROM forecasts WHERE user_id = $1 AND tournament_id = $2`

	f, err := scanForecast(r.db.QueryRowContext(ctx, query, userID, tournamentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrForecastNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *postgresForecastRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Forecast, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + forecastColumns + ` FROM forecasts WHERE tournament_id = $1 ORDER BY created_at ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forecasts := make([]models.Forecast, 0)
	for rows.Next() {
		f, scanErr := scanForecast(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		forecasts = append(forecasts, *f)
	}
	return forecasts, rows.Err()
}

func (r *postgresForecastRepository) ListTournamentIDsByUser(ctx context.Context, userID int) ([]int, error) {
	query := `SELECT tournament_id FROM forecasts WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresForecastRepository) UpdateScore(ctx context.Context, exec SQLExecutor, id int, points int, breakdown []models.PickScore) error {
	executor := r.getExecutor(exec)
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode forecast breakdown: %w", err)
	}
	query := `UPDATE forecasts SET points = $1, breakdown = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, points, raw, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrForecastNotFound)
}

func (r *postgresForecastRepository) Delete(ctx context.Context, exec SQLExecutor, userID, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM forecasts WHERE user_id = $1 AND tournament_id = $2`
	result, err := executor.ExecContext(ctx, query, userID, tournamentID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrForecastNotFound)
}

func (r *postgresForecastRepository) SumPointsByUserBetween(ctx context.Context, from, to time.Time) ([]models.SeasonResult, error) {
	query := `
		SELECT f.user_id, u.nickname, COALESCE(SUM(f.points), 0) AS season_points
		FROM forecasts f
		JOIN tournaments t ON t.id = f.tournament_id
		JOIN users u ON u.id = f.user_id
		WHERE t.status = $1 AND t.date >= $2 AND t.date <= $3 AND f.points IS NOT NULL
		GROUP BY f.user_id, u.nickname
		ORDER BY season_points DESC, MIN(f.created_at) ASC`

	rows, err := r.db.QueryContext(ctx, query, models.StatusFinished, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.SeasonResult, 0)
	rank := 0
	for rows.Next() {
		var sr models.SeasonResult
		if scanErr := rows.Scan(&sr.UserID, &sr.Nickname, &sr.Points); scanErr != nil {
			return nil, scanErr
		}
		rank++
		sr.Rank = rank
		results = append(results, sr)
	}
	return results, rows.Err()
}

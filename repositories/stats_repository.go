package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/forecast-league/models"
)

// StatsDelta — приращение карьерной статистики за один подсчитанный прогноз.
type StatsDelta struct {
	Points    int
	Slots     int
	ExactHits int
	ErrorSum  int
	Perfect   bool
}

type StatsRepository interface {
	// Apply накапливает дельту атомарным upsert — вызывается из транзакции
	// завершения турнира, по одному разу на прогноз.
	Apply(ctx context.Context, exec SQLExecutor, userID int, delta StatsDelta) error
	GetByUserID(ctx context.Context, userID int) (*models.UserStats, error)
	ListTop(ctx context.Context, limit int) ([]models.UserStats, error)
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

func (r *postgresStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStatsRepository) Apply(ctx context.Context, exec SQLExecutor, userID int, delta StatsDelta) error {
	executor := r.getExecutor(exec)
	perfect := 0
	if delta.Perfect {
		perfect = 1
	}
	query := `
		INSERT INTO user_stats (user_id, total_points, tournaments_played, slots_total, slots_exact, error_sum, perfect_tournaments)
		VALUES ($1, $2, 1, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			total_points = user_stats.total_points + EXCLUDED.total_points,
			tournaments_played = user_stats.tournaments_played + 1,
			slots_total = user_stats.slots_total + EXCLUDED.slots_total,
			slots_exact = user_stats.slots_exact + EXCLUDED.slots_exact,
			error_sum = user_stats.error_sum + EXCLUDED.error_sum,
			perfect_tournaments = user_stats.perfect_tournaments + EXCLUDED.perfect_tournaments`

	_, err := executor.ExecContext(ctx, query,
		userID, delta.Points, delta.Slots, delta.ExactHits, delta.ErrorSum, perfect)
	return err
}

func (r *postgresStatsRepository) GetByUserID(ctx context.Context, userID int) (*models.UserStats, error) {
	query := `
		SELECT user_id, total_points, tournaments_played, slots_total, slots_exact, error_sum, perfect_tournaments
		FROM user_stats WHERE user_id = $1`

	s := &models.UserStats{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.TotalPoints, &s.TournamentsPlayed,
		&s.SlotsTotal, &s.SlotsExact, &s.ErrorSum, &s.PerfectTournaments,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Пользователь ещё не сыграл ни одного турнира — нулевая статистика.
			return &models.UserStats{UserID: userID}, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresStatsRepository) ListTop(ctx context.Context, limit int) ([]models.UserStats, error) {
	query := `
		SELECT s.user_id, u.nickname, s.total_points, s.tournaments_played,
		       s.slots_total, s.slots_exact, s.error_sum, s.perfect_tournaments
		FROM user_stats s
		JOIN users u ON u.id = s.user_id
		ORDER BY s.total_points DESC, s.slots_exact DESC, u.nickname ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]models.UserStats, 0, limit)
	for rows.Next() {
		var s models.UserStats
		if scanErr := rows.Scan(
			&s.UserID, &s.Nickname, &s.TotalPoints, &s.TournamentsPlayed,
			&s.SlotsTotal, &s.SlotsExact, &s.ErrorSum, &s.PerfectTournaments,
		); scanErr != nil {
			return nil, scanErr
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

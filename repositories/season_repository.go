package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/forecast-league/models"
)

type SeasonRepository interface {
	// SnapshotExists сообщает, зафиксирован ли уже итог сезона — ротация
	// идемпотентна и не перезаписывает существующие снимки.
	SnapshotExists(ctx context.Context, seasonNumber int) (bool, error)
	SaveSnapshot(ctx context.Context, seasonNumber int, results []models.SeasonResult) error
	ListBySeason(ctx context.Context, seasonNumber int) ([]models.SeasonResult, error)
}

type postgresSeasonRepository struct {
	db *sql.DB
	tx TxManager
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db, tx: NewTxManager(db)}
}

func (r *postgresSeasonRepository) SnapshotExists(ctx context.Context, seasonNumber int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM season_results WHERE season_number = $1)`, seasonNumber,
	).Scan(&exists)
	return exists, err
}

func (r *postgresSeasonRepository) SaveSnapshot(ctx context.Context, seasonNumber int, results []models.SeasonResult) error {
	return r.tx.WithinTx(ctx, func(exec SQLExecutor) error {
		for _, sr := range results {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO season_results (season_number, user_id, points, rank)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (season_number, user_id) DO NOTHING`,
				seasonNumber, sr.UserID, sr.Points, sr.Rank,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresSeasonRepository) ListBySeason(ctx context.Context, seasonNumber int) ([]models.SeasonResult, error) {
	query := `
		SELECT sr.season_number, sr.user_id, u.nickname, sr.points, sr.rank
		FROM season_results sr
		JOIN users u ON u.id = sr.user_id
		WHERE sr.season_number = $1
		ORDER BY sr.rank ASC`

	rows, err := r.db.QueryContext(ctx, query, seasonNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.SeasonResult, 0)
	for rows.Next() {
		var sr models.SeasonResult
		if scanErr := rows.Scan(&sr.SeasonNumber, &sr.UserID, &sr.Nickname, &sr.Points, &sr.Rank); scanErr != nil {
			return nil, scanErr
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/forecast-league/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound = errors.New("participant not found in tournament")
	ErrParticipantConflict = errors.New("player is already a participant of this tournament")
	ErrParticipantInvalid  = errors.New("invalid player or tournament reference")
)

// ParticipantRepository управляет составом турнира (m2m tournaments↔players).
type ParticipantRepository interface {
	Add(ctx context.Context, tournamentID, playerID int) error
	Remove(ctx context.Context, tournamentID, playerID int) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Player, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Add(ctx context.Context, tournamentID, playerID int) error {
	query := `INSERT INTO tournament_participants (tournament_id, player_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrParticipantConflict
			case "23503":
				return ErrParticipantInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresParticipantRepository) Remove(ctx context.Context, tournamentID, playerID int) error {
	query := `DELETE FROM tournament_participants WHERE tournament_id = $1 AND player_id = $2`
	result, err := r.db.ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT p.id, p.full_name, p.rating, p.active, p.photo_key, p.created_at
		FROM tournament_participants tp
		JOIN players p ON p.id = tp.player_id
		WHERE tp.tournament_id = $1
		ORDER BY p.rating DESC, p.full_name ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
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

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

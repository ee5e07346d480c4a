package models

import "time"

// PickScore — разбор одного слота прогноза после подсчёта очков.
// ActualRank равен nil, если игрок не попал в официальный итог.
type PickScore struct {
	PlayerID      int  `json:"player_id"`
	PredictedRank int  `json:"predicted_rank"`
	ActualRank    *int `json:"actual_rank,omitempty"`
	Diff          int  `json:"diff"`
	Points        int  `json:"points"`
}

// Forecast — прогноз пользователя на турнир: упорядоченный список из
// PickCount различных игроков-участников. Не более одного прогноза на пару
// (user, tournament); повторная отправка заменяет предыдущий.
type Forecast struct {
	ID           int         `json:"id" db:"id"`
	UserID       int         `json:"user_id" db:"user_id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Picks        []int       `json:"picks" db:"picks"`
	Points       *int        `json:"points,omitempty" db:"points"`
	Breakdown    []PickScore `json:"breakdown,omitempty" db:"breakdown"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`

	// Опционально подгружается сервисом для списков по турниру
	User *User `json:"user,omitempty" db:"-"`
}

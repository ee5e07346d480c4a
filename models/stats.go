package models

// UserStats — накопительная карьерная статистика пользователя.
// Счётчики слотов хранятся сырыми, производные метрики считаются на чтении,
// чтобы инкрементальное применение результатов не накапливало ошибку округления.
type UserStats struct {
	UserID             int    `json:"user_id" db:"user_id"`
	Nickname           string `json:"nickname,omitempty" db:"-"`
	TotalPoints        int    `json:"total_points" db:"total_points"`
	TournamentsPlayed  int    `json:"tournaments_played" db:"tournaments_played"`
	SlotsTotal         int    `json:"slots_total" db:"slots_total"`
	SlotsExact         int    `json:"slots_exact" db:"slots_exact"`
	ErrorSum           int    `json:"-" db:"error_sum"`
	PerfectTournaments int    `json:"perfect_tournaments" db:"perfect_tournaments"`

	CurrentStreak int `json:"current_streak" db:"-"`
	MaxStreak     int `json:"max_streak" db:"-"`
}

// Accuracy возвращает долю точных попаданий в процентах.
func (s UserStats) Accuracy() float64 {
	if s.SlotsTotal == 0 {
		return 0
	}
	return float64(s.SlotsExact) / float64(s.SlotsTotal) * 100
}

// MeanError возвращает среднюю абсолютную ошибку по слотам (MAE).
func (s UserStats) MeanError() float64 {
	if s.SlotsTotal == 0 {
		return 0
	}
	return float64(s.ErrorSum) / float64(s.SlotsTotal)
}

// PlayerPickStats — популярность игрока среди прогнозов одного турнира.
type PlayerPickStats struct {
	PlayerID      int     `json:"player_id"`
	FullName      string  `json:"full_name,omitempty"`
	Count         int     `json:"count"`
	Fraction      float64 `json:"fraction"`
	Hype          int     `json:"hype"`
	PositionCount []int   `json:"position_count"`
}

// SeasonResult — зафиксированный итог пользователя за сезон.
type SeasonResult struct {
	SeasonNumber int    `json:"season_number" db:"season_number"`
	UserID       int    `json:"user_id" db:"user_id"`
	Nickname     string `json:"nickname,omitempty" db:"-"`
	Points       int    `json:"points" db:"points"`
	Rank         int    `json:"rank" db:"rank"`
}

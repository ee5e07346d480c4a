package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
// Жизненный цикл строго однонаправленный: draft → open → live → finished.
type TournamentStatus string

const (
	StatusDraft    TournamentStatus = "draft"
	StatusOpen     TournamentStatus = "open"
	StatusLive     TournamentStatus = "live"
	StatusFinished TournamentStatus = "finished"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusLive, StatusFinished:
		return true
	}
	return false
}

// Result — официальный итог турнира: player id → занятое место (1-based).
// Ранги уникальны, ничьи не поддерживаются.
type Result map[int]int

// Tournament представляет турнир прогнозов.
type Tournament struct {
	ID        int              `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	Date      time.Time        `json:"date" db:"date"`
	Status    TournamentStatus `json:"status" db:"status"`
	PickCount int              `json:"pick_count" db:"pick_count"`
	Result    Result           `json:"result,omitempty" db:"result"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []Player `json:"participants,omitempty" db:"-"`
}

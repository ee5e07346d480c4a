package models

import "time"

// Player — игрок реального турнира (не пользователь системы).
// Игроки никогда не удаляются физически: архивация снимает флаг Active,
// но идентичность остаётся разрешимой для исторических турниров и прогнозов.
type Player struct {
	ID        int       `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Rating    int       `json:"rating" db:"rating"`
	Active    bool      `json:"active" db:"active"`
	PhotoKey  *string   `json:"-" db:"photo_key"`
	PhotoURL  *string   `json:"photo_url,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

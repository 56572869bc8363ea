package models

import "time"

// Vote — один голос пользователя в раунде (unique (round_id, user_id)).
// Повторное голосование меняет nomination_id существующей строки.
type Vote struct {
	ID           int       `json:"id" db:"id"`
	RoundID      int       `json:"round_id" db:"round_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	NominationID int       `json:"nomination_id" db:"nomination_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

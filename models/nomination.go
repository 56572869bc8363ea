package models

import "time"

// Nomination — предложение игры в раунде. Игра может быть номинирована
// в раунде только один раз (unique (round_id, game_id)).
type Nomination struct {
	ID        int       `json:"id" db:"id"`
	RoundID   int       `json:"round_id" db:"round_id"`
	GameID    int       `json:"game_id" db:"game_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Game *Game `json:"game,omitempty" db:"-"`
	User *User `json:"user,omitempty" db:"-"`

	// VoteCount — живой подсчёт по строкам votes, не кэшируемый счётчик.
	VoteCount int `json:"vote_count" db:"-"`
}

package models

import "time"

// RoundStatus представляет фазы раунда, соответствующие ENUM в БД.
type RoundStatus string

const (
	RoundNominating RoundStatus = "nominating"
	RoundVoting     RoundStatus = "voting"
	RoundPlaying    RoundStatus = "playing"
	RoundReviewing  RoundStatus = "reviewing"
	RoundCompleted  RoundStatus = "completed"
)

// roundTransitions — линейная таблица переходов, без пропусков и возвратов.
var roundTransitions = map[RoundStatus]RoundStatus{
	RoundNominating: RoundVoting,
	RoundVoting:     RoundPlaying,
	RoundPlaying:    RoundReviewing,
	RoundReviewing:  RoundCompleted,
}

// Next returns the only status the round may advance to.
// ok is false for completed (terminal) and for unknown statuses.
func (s RoundStatus) Next() (RoundStatus, bool) {
	next, ok := roundTransitions[s]
	return next, ok
}

func (s RoundStatus) Terminal() bool {
	return s == RoundCompleted
}

// Round — один игровой цикл клуба: номинации, голосование, игра, отзывы.
type Round struct {
	ID     int         `json:"id" db:"id"`
	ClubID int         `json:"club_id" db:"club_id"`
	Number int         `json:"number" db:"number"`
	Status RoundStatus `json:"status" db:"status"`

	// GameID заполняется при переходе voting -> playing.
	GameID *int `json:"game_id,omitempty" db:"game_id"`

	// Дедлайны фаз носят справочный характер, движок по ним не переключает фазы.
	NominatingDeadline *time.Time `json:"nominating_deadline,omitempty" db:"nominating_deadline"`
	VotingDeadline     *time.Time `json:"voting_deadline,omitempty" db:"voting_deadline"`
	PlayingDeadline    *time.Time `json:"playing_deadline,omitempty" db:"playing_deadline"`
	ReviewingDeadline  *time.Time `json:"reviewing_deadline,omitempty" db:"reviewing_deadline"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	Game        *Game        `json:"game,omitempty" db:"-"`
	Nominations []Nomination `json:"nominations,omitempty" db:"-"`
	Reviews     []Review     `json:"reviews,omitempty" db:"-"`

	// AverageScore считается по отзывам завершённого раунда; nil, если отзывов нет.
	AverageScore *float64 `json:"average_score,omitempty" db:"-"`
}

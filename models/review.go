package models

import "time"

const (
	ReviewScoreMin = 0
	ReviewScoreMax = 100
)

// Review — оценка и комментарий пользователя по итогам раунда
// (unique (round_id, user_id)). Пока раунд в фазе reviewing, повторная
// отправка перезаписывает score/comment/submitted_at.
type Review struct {
	ID          int       `json:"id" db:"id"`
	RoundID     int       `json:"round_id" db:"round_id"`
	UserID      int       `json:"user_id" db:"user_id"`
	Score       int       `json:"score" db:"score"`
	Comment     *string   `json:"comment,omitempty" db:"comment"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`

	User *User `json:"user,omitempty" db:"-"`
}

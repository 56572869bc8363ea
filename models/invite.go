package models

import "time"

// InviteStatus соответствует ENUM в БД.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Invite — приглашение в приватный клуб. На пользователя может быть
// не больше одного pending-приглашения в клуб.
type Invite struct {
	ID        int          `json:"id" db:"id"`
	ClubID    int          `json:"club_id" db:"club_id"`
	InviterID int          `json:"inviter_id" db:"inviter_id"`
	InviteeID int          `json:"invitee_id" db:"invitee_id"`
	Status    InviteStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`

	Club *Club `json:"club,omitempty" db:"-"`
}

package models

import "time"

// NotificationType — типы уведомлений, рассылаемых движком раундов.
type NotificationType string

const (
	NotificationRoundStarted   NotificationType = "round_started"
	NotificationVotingOpened   NotificationType = "voting_opened"
	NotificationGameSelected   NotificationType = "game_selected"
	NotificationReviewingOpen  NotificationType = "reviewing_opened"
	NotificationRoundCompleted NotificationType = "round_completed"
	NotificationClubInvite     NotificationType = "club_invite"
	NotificationClubDeleted    NotificationType = "club_deleted"
	NotificationMemberRemoved  NotificationType = "member_removed"
)

type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Message   string           `json:"message" db:"message"`
	ClubID    *int             `json:"club_id,omitempty" db:"club_id"`
	RoundID   *int             `json:"round_id,omitempty" db:"round_id"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

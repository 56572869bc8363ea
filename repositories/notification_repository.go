package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rgalymov/gameclub-backend/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int) error
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, message, club_id, round_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		n.UserID, n.Type, n.Message, n.ClubID, n.RoundID,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID int, limit, offset int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, message, club_id, round_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if scanErr := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Message, &n.ClubID, &n.RoundID, &n.Read, &n.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	// user_id в WHERE — чужие уведомления пометить нельзя.
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}

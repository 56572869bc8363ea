package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
)

// Notifier — сторонний канал для движка раундов: доставка best-effort,
// ошибки не влияют на основную операцию.
type Notifier interface {
	Notify(ctx context.Context, userID int, ntype models.NotificationType, message string, clubID, roundID *int)
}

// RoomBroadcaster рассылает сообщение всем websocket-клиентам комнаты клуба.
type RoomBroadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type NotificationService interface {
	Notifier
	ListNotifications(ctx context.Context, userID, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	hub              RoomBroadcaster
	logger           *slog.Logger
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	hub RoomBroadcaster,
	logger *slog.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		hub:              hub,
		logger:           logger,
	}
}

// Notify сохраняет уведомление и дублирует его в комнату клуба.
// Никогда не возвращает ошибку вызывающему: переход раунда не должен
// откатываться из-за сбоя доставки.
func (s *notificationService) Notify(ctx context.Context, userID int, ntype models.NotificationType, message string, clubID, roundID *int) {
	n := &models.Notification{
		UserID:  userID,
		Type:    ntype,
		Message: message,
		ClubID:  clubID,
		RoundID: roundID,
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to persist notification",
				slog.Int("user_id", userID),
				slog.String("type", string(ntype)),
				slog.Any("error", err),
			)
		}
		// Продолжаем: websocket-рассылка не зависит от записи в БД.
	}

	if s.hub != nil && clubID != nil {
		s.hub.BroadcastToRoom(fmt.Sprintf("club:%d", *clubID), n)
	}
}

func (s *notificationService) ListNotifications(ctx context.Context, userID, limit, offset int) ([]models.Notification, error) {
	notifications, err := s.notificationRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %d: %w", userID, err)
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID int) error {
	err := s.notificationRepo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification %d read: %w", notificationID, err)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dkravchenko/servicehub-backend/internal/goroutine"
	"github.com/dkravchenko/servicehub-backend/internal/logger"
	"github.com/dkravchenko/servicehub-backend/internal/models"
)

// NotificationRepo описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepo interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// RealtimeSender доставляет уведомление в открытые websocket-соединения
// пользователя.
type RealtimeSender interface {
	SendToUser(userID uuid.UUID, payload []byte)
}

// NotificationService хранит уведомления и рассылает их в реальном времени.
// Реализует Notifier для доменных сервисов.
type NotificationService struct {
	repo   NotificationRepo
	sender RealtimeSender
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo NotificationRepo, sender RealtimeSender) *NotificationService {
	return &NotificationService{repo: repo, sender: sender}
}

// Notify сохраняет уведомление и отправляет его в websocket. Выполняется в
// отдельной горутине: доменная операция не ждёт доставки и не зависит от
// её исхода.
func (s *NotificationService) Notify(userID uuid.UUID, event string, data any) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		payload, err := json.Marshal(map[string]any{
			"event": event,
			"data":  data,
		})
		if err != nil {
			logger.Log.WithField("event", event).Warn("notification service: marshal payload")
			return
		}

		n := &models.Notification{
			UserID:  userID,
			Payload: payload,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			logger.Log.WithFields(map[string]interface{}{
				"user_id": userID,
				"event":   event,
				"error":   err.Error(),
			}).Warn("notification service: не удалось сохранить уведомление")
			return
		}

		if s.sender != nil {
			s.sender.SendToUser(userID, payload)
		}
	})
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkRead отмечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

var _ Notifier = (*NotificationService)(nil)

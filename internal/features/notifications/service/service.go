package service

import (
	"context"
	"fmt"

	"card-fulfillment/internal/core/metrics"
	"card-fulfillment/internal/features/notifications/domain"
	"card-fulfillment/internal/features/notifications/ports"
)

// NotificationService implements ports.Notifier.
type NotificationService struct {
	messenger ports.Messenger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(messenger ports.Messenger) *NotificationService {
	return &NotificationService{
		messenger: messenger,
	}
}

// Notify sends the status message to the order's phone.
func (s *NotificationService) Notify(ctx context.Context, status domain.OrderStatus) error {
	if status.Phone == "" {
		metrics.NotificationsTotal.WithLabelValues("no_phone").Inc()
		return domain.ErrNoPhone
	}

	if err := s.messenger.SendText(ctx, status.Phone, status.Message()); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("service: failed to send notification: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}

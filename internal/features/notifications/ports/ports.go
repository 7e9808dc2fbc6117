package ports

import (
	"context"

	"card-fulfillment/internal/features/notifications/domain"
)

// Messenger delivers a text message to a phone number. Secondary port (driven).
type Messenger interface {
	SendText(ctx context.Context, phone, body string) error
}

// Notifier relays order status changes to the customer. Primary port.
type Notifier interface {
	Notify(ctx context.Context, status domain.OrderStatus) error
}

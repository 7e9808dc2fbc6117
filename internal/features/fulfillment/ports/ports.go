package ports

import (
	"context"

	"card-fulfillment/internal/features/fulfillment/domain"
)

// Provisioner is the digital-goods provider. Secondary port (driven).
// Implementations never retry; the poller owns retry policy.
type Provisioner interface {
	// CreateOrder requests allocation of one unit under the request's reference id.
	// It returns *domain.TransportError on network failures and *domain.ProviderError on business failures.
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.ProvisioningResult, error)
	// FetchOrderDetails queries a previously created allocation.
	FetchOrderDetails(ctx context.Context, query domain.DetailsQuery) (*domain.ProvisioningResult, error)
}

// NoteUpdate is the single mutation applied to an order record.
type NoteUpdate struct {
	OrderID string
	Note    string
	// Codes is the customer-facing code list; stores may ignore it.
	Codes string
}

// OrderStore is the commerce store that owns the order record. Secondary port (driven).
type OrderStore interface {
	// UpdateNote applies the update as one remote mutation.
	// Validation failures are reported as domain.ErrStoreRejected.
	UpdateNote(ctx context.Context, update NoteUpdate) error
}

// OrderProcessor runs the fulfillment workflow for one order event. Primary port.
type OrderProcessor interface {
	Process(ctx context.Context, event domain.OrderEvent) (*domain.RunReport, error)
}

// EventDecoder maps a store webhook body to an order event.
type EventDecoder interface {
	DecodeOrderEvent(body []byte) (*domain.OrderEvent, error)
}

// DeliveryDeduper drops repeated webhook deliveries of the same order.
type DeliveryDeduper interface {
	// FirstDelivery records the key and reports whether it had not been seen before.
	FirstDelivery(ctx context.Context, key string) (bool, error)
	// Release forgets the key so a later redelivery is processed again.
	Release(ctx context.Context, key string) error
}

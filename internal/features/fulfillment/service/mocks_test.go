package service

import (
	"context"
	"sync"
	"time"

	"card-fulfillment/internal/features/fulfillment/domain"
	"card-fulfillment/internal/features/fulfillment/ports"

	"github.com/stretchr/testify/mock"
)

// MockProvisioner is a mock implementation of ports.Provisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.ProvisioningResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProvisioningResult), args.Error(1)
}

func (m *MockProvisioner) FetchOrderDetails(ctx context.Context, query domain.DetailsQuery) (*domain.ProvisioningResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProvisioningResult), args.Error(1)
}

// MockOrderStore is a mock implementation of ports.OrderStore
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) UpdateNote(ctx context.Context, update ports.NoteUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// fakeClock records requested sleeps and advances a virtual clock instead of waiting.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func pending(orderID string) *domain.ProvisioningResult {
	return &domain.ProvisioningResult{Success: true, ProviderOrderID: orderID}
}

func withSerial(code string) *domain.ProvisioningResult {
	return &domain.ProvisioningResult{Success: true, Serials: []domain.SerialEntry{{Code: code}}}
}

func forReference(ref string) any {
	return mock.MatchedBy(func(v any) bool {
		switch q := v.(type) {
		case domain.CreateOrderRequest:
			return q.ReferenceID == ref
		case domain.DetailsQuery:
			return q.ReferenceID == ref
		}
		return false
	})
}

func defaultPollerConfig() PollerConfig {
	return PollerConfig{Attempts: 6, Delay: 10 * time.Second}
}

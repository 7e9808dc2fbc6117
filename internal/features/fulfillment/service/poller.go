package service

import (
	"context"
	"errors"
	"time"

	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/core/logger"
	"card-fulfillment/internal/core/metrics"
	"card-fulfillment/internal/features/fulfillment/domain"
	"card-fulfillment/internal/features/fulfillment/ports"

	"go.uber.org/zap"
)

// Sleeper suspends the calling goroutine for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollerConfig bounds the polling of one line item.
type PollerConfig struct {
	// Attempts is the number of fast-phase details polls.
	Attempts int
	// Delay separates fast-phase polls.
	Delay time.Duration
	// SlowInterval separates slow-phase polls. Zero disables the slow phase.
	SlowInterval time.Duration
	// MaxWait caps the wall clock spent on one item, measured from the first poll.
	MaxWait time.Duration
}

// PollerConfigFrom converts the loaded polling settings.
func PollerConfigFrom(cfg config.PollingConfig) PollerConfig {
	return PollerConfig{
		Attempts:     cfg.Attempts,
		Delay:        time.Duration(cfg.DelaySeconds) * time.Second,
		SlowInterval: time.Duration(cfg.SlowIntervalSeconds) * time.Second,
		MaxWait:      time.Duration(cfg.MaxWaitSeconds) * time.Second,
	}
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithSleeper replaces the wait between polls.
func WithSleeper(s Sleeper) PollerOption {
	return func(p *Poller) { p.sleep = s }
}

// WithClock replaces the clock used for the slow phase deadline.
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// Poller drives one line item from create-order to a terminal state.
// It holds no per-item state, so one Poller serves concurrent items.
type Poller struct {
	provisioner ports.Provisioner
	cfg         PollerConfig
	sleep       Sleeper
	now         func() time.Time
}

// NewPoller creates a new Poller.
func NewPoller(provisioner ports.Provisioner, cfg PollerConfig, opts ...PollerOption) *Poller {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	p := &Poller{
		provisioner: provisioner,
		cfg:         cfg,
		sleep:       ContextSleep,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fulfill creates the allocation for item and polls until a code arrives or the budget is spent.
// Failures are returned on the outcome, never as an error.
func (p *Poller) Fulfill(ctx context.Context, event domain.OrderEvent, item domain.LineItem) domain.FulfillmentOutcome {
	outcome := domain.FulfillmentOutcome{
		Item:        item,
		ReferenceID: event.ReferenceFor(item),
		State:       domain.StateCreated,
	}
	log := logger.Get().With(
		zap.String("order_id", event.ID),
		zap.String("reference_id", outcome.ReferenceID),
		zap.String("sku", item.ProductID()),
	)

	if item.ProductID() == "" {
		return skippedOutcome(event, item)
	}

	created, err := p.provisioner.CreateOrder(ctx, domain.CreateOrderRequest{
		ProductID:     item.ProductID(),
		ReferenceID:   outcome.ReferenceID,
		Quantity:      1,
		CustomerEmail: event.CustomerEmail,
	})
	if err != nil {
		outcome.State = domain.StateRejected
		outcome.Err = err
		outcome.Reason = domain.ReasonCreationRejected
		var te *domain.TransportError
		if errors.As(err, &te) {
			outcome.Reason = domain.ReasonTransport
		}
		log.Warn("Create order failed", zap.String("reason", string(outcome.Reason)), zap.Error(err))
		return outcome
	}
	if !created.Success {
		outcome.State = domain.StateRejected
		outcome.Reason = domain.ReasonCreationRejected
		outcome.Err = &domain.ProviderError{Op: "create_order", ReferenceID: outcome.ReferenceID, Message: created.Message}
		log.Warn("Create order rejected", zap.String("message", created.Message))
		return outcome
	}

	if serial := created.FirstSerial(); serial != nil {
		log.Info("Code returned inline")
		return resolve(outcome, serial)
	}

	outcome.State = domain.StatePolling
	query := domain.DetailsQuery{
		ReferenceID:     outcome.ReferenceID,
		ProviderOrderID: created.ProviderOrderID,
		CustomerEmail:   event.CustomerEmail,
	}
	start := p.now()

	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.cfg.Delay); err != nil {
				return exhausted(outcome, err, log)
			}
		}
		if done := p.poll(ctx, &outcome, query, log); done {
			return outcome
		}
	}

	if p.cfg.SlowInterval > 0 && p.cfg.MaxWait > 0 {
		deadline := start.Add(p.cfg.MaxWait)
		log.Info("Fast polling exhausted, switching to slow polling",
			zap.Duration("interval", p.cfg.SlowInterval),
			zap.Time("deadline", deadline),
		)
		for !p.now().Add(p.cfg.SlowInterval).After(deadline) {
			if err := p.sleep(ctx, p.cfg.SlowInterval); err != nil {
				return exhausted(outcome, err, log)
			}
			if done := p.poll(ctx, &outcome, query, log); done {
				return outcome
			}
		}
	}

	return exhausted(outcome, nil, log)
}

// poll makes one details request and reports whether the outcome reached a terminal state.
func (p *Poller) poll(ctx context.Context, outcome *domain.FulfillmentOutcome, query domain.DetailsQuery, log *zap.Logger) bool {
	outcome.Attempts++
	metrics.PollAttemptsTotal.Inc()

	details, err := p.provisioner.FetchOrderDetails(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrNoSerial) {
			outcome.State = domain.StateExhausted
			outcome.Reason = domain.ReasonNoSerial
			outcome.Err = err
			log.Warn("Provider cannot return a code", zap.Int("attempt", outcome.Attempts), zap.Error(err))
			return true
		}
		outcome.Err = err
		log.Warn("Poll attempt failed", zap.Int("attempt", outcome.Attempts), zap.Error(err))
		return false
	}

	if serial := details.FirstSerial(); serial != nil {
		*outcome = resolve(*outcome, serial)
		log.Info("Code resolved", zap.Int("attempt", outcome.Attempts))
		return true
	}

	log.Debug("Code not ready", zap.Int("attempt", outcome.Attempts))
	return false
}

func resolve(outcome domain.FulfillmentOutcome, serial *domain.SerialEntry) domain.FulfillmentOutcome {
	outcome.State = domain.StateResolved
	outcome.Serial = serial
	outcome.Reason = domain.ReasonNone
	outcome.Err = nil
	return outcome
}

func exhausted(outcome domain.FulfillmentOutcome, cause error, log *zap.Logger) domain.FulfillmentOutcome {
	outcome.State = domain.StateExhausted
	outcome.Reason = domain.ReasonPollExhausted
	switch {
	case cause != nil:
		outcome.Err = errors.Join(domain.ErrPollExhausted, cause)
	case outcome.Err != nil:
		outcome.Err = errors.Join(domain.ErrPollExhausted, outcome.Err)
	default:
		outcome.Err = domain.ErrPollExhausted
	}
	log.Warn("Polling exhausted", zap.Int("attempts", outcome.Attempts), zap.Error(outcome.Err))
	return outcome
}

func skippedOutcome(event domain.OrderEvent, item domain.LineItem) domain.FulfillmentOutcome {
	return domain.FulfillmentOutcome{
		Item:        item,
		ReferenceID: event.ReferenceFor(item),
		State:       domain.StateSkipped,
		Reason:      domain.ReasonNoSKU,
		Err:         domain.ErrSkippedItem,
	}
}

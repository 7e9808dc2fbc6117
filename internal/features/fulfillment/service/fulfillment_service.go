package service

import (
	"context"
	"time"

	"card-fulfillment/internal/core/logger"
	"card-fulfillment/internal/core/metrics"
	"card-fulfillment/internal/features/fulfillment/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultCommitTimeout bounds the write-back, which runs even after the workflow deadline.
const defaultCommitTimeout = 15 * time.Second

// FulfillmentService implements ports.OrderProcessor.
type FulfillmentService struct {
	poller        *Poller
	writer        *NoteWriter
	concurrency   int
	commitTimeout time.Duration
}

// NewFulfillmentService creates a new FulfillmentService.
// concurrency bounds the line items polled at once; values below 1 mean sequential.
func NewFulfillmentService(poller *Poller, writer *NoteWriter, concurrency int) *FulfillmentService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &FulfillmentService{
		poller:        poller,
		writer:        writer,
		concurrency:   concurrency,
		commitTimeout: defaultCommitTimeout,
	}
}

// Process fulfills every line item of event and commits the aggregated note once.
// Only a failed commit is returned as an error; the report is returned in every case.
func (s *FulfillmentService) Process(ctx context.Context, event domain.OrderEvent) (*domain.RunReport, error) {
	start := time.Now()
	defer func() { metrics.WorkflowDuration.Observe(time.Since(start).Seconds()) }()

	log := logger.ForOrder(event.ID, uuid.NewString())
	log.Info("Processing order", zap.String("platform", string(event.Platform)), zap.Int("line_items", len(event.LineItems)))

	outcomes := make([]domain.FulfillmentOutcome, len(event.LineItems))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range event.LineItems {
		if item.ProductID() == "" {
			outcomes[i] = skippedOutcome(event, item)
			log.Warn("Skipping line item without SKU", zap.String("line_item_id", item.ID), zap.String("name", item.Name))
			continue
		}
		i, item := i, item
		g.Go(func() error {
			outcomes[i] = s.poller.Fulfill(ctx, event, item)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		metrics.ItemOutcomesTotal.WithLabelValues(string(o.State), string(o.Reason)).Inc()
	}

	report := &domain.RunReport{
		OrderID:  event.ID,
		Outcomes: outcomes,
		Note:     domain.BuildNote(event.Note, outcomes),
	}
	resolved, failed := report.Counts()

	// Results already provisioned are written back even if the workflow deadline has passed.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()

	committed, err := s.writer.Commit(commitCtx, event.ID, report.Note, event.Note, domain.CodesForDisplay(outcomes))
	if err != nil {
		log.Error("Failed to commit order note",
			zap.Int("resolved", resolved),
			zap.Int("failed", failed),
			zap.Any("outcomes", outcomes),
			zap.Error(err),
		)
		return report, err
	}
	report.Committed = committed

	log.Info("Order processed",
		zap.Int("resolved", resolved),
		zap.Int("failed", failed),
		zap.Bool("committed", committed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

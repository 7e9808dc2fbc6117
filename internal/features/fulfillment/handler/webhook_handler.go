package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"card-fulfillment/internal/core/logger"
	"card-fulfillment/internal/core/metrics"
	"card-fulfillment/internal/features/fulfillment/domain"
	"card-fulfillment/internal/features/fulfillment/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Dispatch runs one workflow outside the request goroutine.
type Dispatch func(fn func())

// Option customizes a WebhookHandler.
type Option func(*WebhookHandler)

// WithDeduper drops repeated deliveries of the same order.
func WithDeduper(d ports.DeliveryDeduper) Option {
	return func(h *WebhookHandler) { h.deduper = d }
}

// WithDispatch replaces the background dispatcher.
func WithDispatch(d Dispatch) Option {
	return func(h *WebhookHandler) { h.dispatch = d }
}

// WebhookHandler acknowledges order webhooks and runs fulfillment in the background.
type WebhookHandler struct {
	// source labels metrics and logs (shopify, woocommerce).
	source    string
	decoder   ports.EventDecoder
	processor ports.OrderProcessor
	deduper   ports.DeliveryDeduper
	dispatch  Dispatch
	// timeout bounds one background workflow run.
	timeout time.Duration
}

// NewWebhookHandler creates a new instance of WebhookHandler.
func NewWebhookHandler(source string, decoder ports.EventDecoder, processor ports.OrderProcessor, timeout time.Duration, opts ...Option) *WebhookHandler {
	h := &WebhookHandler{
		source:    source,
		decoder:   decoder,
		processor: processor,
		timeout:   timeout,
		dispatch:  func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleOrder acknowledges an order webhook and starts fulfillment.
// @Summary Receive order webhook
// @Description Accepts an order created/paid webhook from the configured store, replies immediately and provisions digital codes in the background.
// @Accept json
// @Produce plain
// @Param order body object true "Store order payload"
// @Success 200 {string} string "Webhook received."
// @Failure 400 {object} ErrorResponse
// @Router /webhooks/shopify [post]
// @Router /webhooks/woocommerce [post]
func (h *WebhookHandler) HandleOrder(c *fiber.Ctx) error {
	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		rayID = "unknown"
	}

	// Fiber reuses the request buffer once the handler returns.
	body := append([]byte(nil), c.Body()...)

	event, err := h.decoder.DecodeOrderEvent(body)
	if err != nil {
		logger.Get().Warn("Rejected order webhook",
			zap.String("source", h.source),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Invalid order payload",
			RayID:   rayID,
		})
	}
	metrics.WebhooksReceivedTotal.WithLabelValues(h.source).Inc()

	key := string(event.Platform) + ":" + event.ID
	if h.deduper != nil {
		first, err := h.deduper.FirstDelivery(c.UserContext(), key)
		if err != nil {
			logger.Get().Warn("Dedup unavailable, processing delivery", zap.String("order_id", event.ID), zap.Error(err))
		} else if !first {
			metrics.WebhooksDuplicateTotal.WithLabelValues(h.source).Inc()
			logger.Get().Info("Duplicate order webhook ignored",
				zap.String("order_id", event.ID),
				zap.String("ray_id", rayID),
			)
			return c.Status(http.StatusOK).SendString("Duplicate webhook ignored.")
		}
	}

	logger.Get().Info("Order webhook accepted",
		zap.String("source", h.source),
		zap.String("order_id", event.ID),
		zap.String("ray_id", rayID),
		zap.Int("line_items", len(event.LineItems)),
	)

	h.dispatch(func() { h.run(*event, key) })

	return c.Status(http.StatusOK).SendString("Webhook received.")
}

// run processes one event and forgets the delivery if its results were not persisted.
func (h *WebhookHandler) run(event domain.OrderEvent, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	_, err := h.processor.Process(ctx, event)
	if err == nil {
		return
	}

	logger.Get().Error("Order fulfillment failed", zap.String("order_id", event.ID), zap.Error(err))
	if h.deduper != nil && errors.Is(err, domain.ErrCommitFailed) {
		if err := h.deduper.Release(context.Background(), key); err != nil {
			logger.Get().Warn("Failed to release delivery", zap.String("order_id", event.ID), zap.Error(err))
		}
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

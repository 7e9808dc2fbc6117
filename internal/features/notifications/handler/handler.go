package handler

import (
	"errors"
	"net/http"
	"strings"

	"card-fulfillment/internal/core/logger"
	"card-fulfillment/internal/features/notifications/domain"
	"card-fulfillment/internal/features/notifications/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NotificationHandler handles order status webhooks for WhatsApp notifications.
type NotificationHandler struct {
	notifier ports.Notifier
}

// NewNotificationHandler creates a new instance of NotificationHandler.
func NewNotificationHandler(n ports.Notifier) *NotificationHandler {
	return &NotificationHandler{
		notifier: n,
	}
}

// HandleOrderStatus relays an order status update to the customer over WhatsApp.
// @Summary Send WhatsApp order status
// @Description Builds a status message from a Shopify order payload and sends it to the shipping or billing phone.
// @Accept json
// @Produce plain
// @Param order body OrderStatusRequest true "Shopify order payload"
// @Success 200 {string} string "OK"
// @Failure 400 {object} ErrorResponse
// @Router /webhooks/whatsapp [post]
func (h *NotificationHandler) HandleOrderStatus(c *fiber.Ctx) error {
	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		rayID = "unknown"
	}

	var req OrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Invalid request body",
			RayID:   rayID,
		})
	}

	status := req.toDomain()
	if err := h.notifier.Notify(c.UserContext(), status); err != nil {
		if errors.Is(err, domain.ErrNoPhone) {
			logger.Get().Info("No phone number on order", zap.String("order", status.Name), zap.String("ray_id", rayID))
			return c.Status(http.StatusOK).SendString("No phone number")
		}
		logger.Get().Error("Failed to send WhatsApp notification",
			zap.String("order", status.Name),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
	}

	return c.Status(http.StatusOK).SendString("OK")
}

// OrderStatusRequest is the subset of a Shopify order webhook used for notifications.
type OrderStatusRequest struct {
	Name              string       `json:"name"`
	FinancialStatus   string       `json:"financial_status"`
	FulfillmentStatus string       `json:"fulfillment_status"`
	TotalPrice        string       `json:"total_price"`
	Currency          string       `json:"currency"`
	Note              string       `json:"note"`
	ShippingAddress   *address     `json:"shipping_address"`
	BillingAddress    *address     `json:"billing_address"`
	LineItems         []statusItem `json:"line_items"`
}

type address struct {
	Phone string `json:"phone"`
}

type statusItem struct {
	Title       string `json:"title"`
	ProductType string `json:"product_type"`
}

func (r OrderStatusRequest) toDomain() domain.OrderStatus {
	status := domain.OrderStatus{
		Name:              r.Name,
		FinancialStatus:   r.FinancialStatus,
		FulfillmentStatus: r.FulfillmentStatus,
		TotalPrice:        r.TotalPrice,
		Currency:          r.Currency,
		Note:              r.Note,
	}

	if r.ShippingAddress != nil && r.ShippingAddress.Phone != "" {
		status.Phone = r.ShippingAddress.Phone
	} else if r.BillingAddress != nil {
		status.Phone = r.BillingAddress.Phone
	}

	for _, item := range r.LineItems {
		if item.ProductType == "Digital" || strings.Contains(item.Title, "LikeCard") {
			status.HasDigitalItems = true
			break
		}
	}

	return status
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/core/httpclient"
	"card-fulfillment/internal/core/logger"
	"card-fulfillment/internal/features/fulfillment/domain"
	"card-fulfillment/internal/features/fulfillment/ports"

	"go.uber.org/zap"
)

// WooCommerceAdapter implements ports.OrderStore and ports.EventDecoder using the WooCommerce REST API.
type WooCommerceAdapter struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the WooCommerce connection details.
	config config.WooCommerceConfig
}

// NewWooCommerceAdapter creates a new instance of WooCommerceAdapter.
func NewWooCommerceAdapter(cfg config.WooCommerceConfig) *WooCommerceAdapter {
	return &WooCommerceAdapter{
		client: httpclient.NewClient(10 * time.Second),
		config: cfg,
	}
}

// UpdateNote writes the aggregated note to the order's customer_note field.
// Codes are not written; WooCommerce shows the note to the customer directly.
func (a *WooCommerceAdapter) UpdateNote(ctx context.Context, update ports.NoteUpdate) error {
	url := fmt.Sprintf("%s/wp-json/wc/v3/orders/%s", strings.TrimRight(a.config.URL, "/"), update.OrderID)

	payload, err := json.Marshal(map[string]string{"customer_note": update.Note})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.StoreRejection(fmt.Sprintf("order not found: %s", update.OrderID))
	case resp.StatusCode == http.StatusBadRequest:
		var wcErr wcError
		if err := json.NewDecoder(resp.Body).Decode(&wcErr); err != nil || wcErr.Message == "" {
			return domain.StoreRejection("invalid order update")
		}
		return domain.StoreRejection(wcErr.Code + ": " + wcErr.Message)
	default:
		return fmt.Errorf("woocommerce API returned status: %d", resp.StatusCode)
	}
}

// HealthCheck verifies that the WooCommerce API is reachable and credentials are valid.
func (a *WooCommerceAdapter) HealthCheck(ctx context.Context) error {
	// Check orders endpoint with per_page=1 to verify auth and reachability
	url := fmt.Sprintf("%s/wp-json/wc/v3/orders?per_page=1", strings.TrimRight(a.config.URL, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health check failed to create request: %w", err)
	}
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// authorize sets Basic Auth from the consumer key and secret.
func (a *WooCommerceAdapter) authorize(req *http.Request) {
	authVal := make([]byte, 0, len(a.config.ConsumerKey)+len(a.config.ConsumerSecret)+1)
	authVal = fmt.Appendf(authVal, "%s:%s", a.config.ConsumerKey, a.config.ConsumerSecret)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString(authVal))
}

// DecodeOrderEvent maps an order.created or order.updated webhook body to an order event.
func (a *WooCommerceAdapter) DecodeOrderEvent(body []byte) (*domain.OrderEvent, error) {
	var wcOrder woocommerceOrder
	if err := json.Unmarshal(body, &wcOrder); err != nil {
		return nil, fmt.Errorf("failed to decode woocommerce order: %w", err)
	}
	if wcOrder.ID == 0 {
		return nil, fmt.Errorf("woocommerce order has no id")
	}

	return mapToDomain(wcOrder), nil
}

// mapToDomain converts a raw WooCommerce order into an order event.
func mapToDomain(wcOrder woocommerceOrder) *domain.OrderEvent {
	event := &domain.OrderEvent{
		ID:            strconv.Itoa(wcOrder.ID),
		Platform:      domain.PlatformWooCommerce,
		Note:          wcOrder.CustomerNote,
		CustomerEmail: wcOrder.Billing.Email,
		LineItems:     make([]domain.LineItem, 0, len(wcOrder.LineItems)),
	}

	for _, item := range wcOrder.LineItems {
		if item.ID == 0 {
			logger.Get().Warn("WooCommerce line item without id", zap.Int("order_id", wcOrder.ID), zap.String("name", item.Name))
		}
		event.LineItems = append(event.LineItems, domain.LineItem{
			ID:       strconv.Itoa(item.ID),
			SKU:      item.Sku,
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}

	return event
}

// internal structs for mapping

// woocommerceOrder represents the JSON structure of an order from WooCommerce webhooks.
type woocommerceOrder struct {
	// ID is the unique order ID.
	ID int `json:"id"`
	// Status is the order status (e.g., pending, processing, completed).
	Status string `json:"status"`
	// CustomerNote is the free-text note shown on the order.
	CustomerNote string `json:"customer_note"`
	// Billing holds the billing address details.
	Billing wcBilling `json:"billing"`
	// LineItems contains the products ordered.
	LineItems []wcLineItem `json:"line_items"`
}

// wcBilling holds billing address information.
type wcBilling struct {
	// Email is the customer's email address.
	Email string `json:"email"`
	// Phone is the customer's phone number.
	Phone string `json:"phone"`
}

// wcLineItem represents a product in the WooCommerce order.
type wcLineItem struct {
	// ID is the unique identifier for the line item.
	ID int `json:"id"`
	// Name is the product name.
	Name string `json:"name"`
	// Sku is the product SKU.
	Sku string `json:"sku"`
	// Quantity is the number of units ordered.
	Quantity int `json:"quantity"`
}

// wcError is the error body WooCommerce returns on validation failures.
type wcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

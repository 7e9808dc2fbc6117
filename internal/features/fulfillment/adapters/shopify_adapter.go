package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/core/httpclient"
	"card-fulfillment/internal/features/fulfillment/domain"
	"card-fulfillment/internal/features/fulfillment/ports"
)

const orderUpdateMutation = `mutation orderUpdate($input: OrderInput!) {
  orderUpdate(input: $input) {
    order { id }
    userErrors { field message }
  }
}`

const shopQuery = `{ shop { name } }`

// ShopifyAdapter implements ports.OrderStore and ports.EventDecoder for the Shopify Admin API.
type ShopifyAdapter struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the Shopify connection details.
	config config.ShopifyConfig
}

// NewShopifyAdapter creates a new instance of ShopifyAdapter.
func NewShopifyAdapter(cfg config.ShopifyConfig) *ShopifyAdapter {
	return &ShopifyAdapter{
		client: httpclient.NewClient(15 * time.Second),
		config: cfg,
	}
}

// UpdateNote sets the order note (and the codes metafield when enabled) in one orderUpdate mutation.
func (a *ShopifyAdapter) UpdateNote(ctx context.Context, update ports.NoteUpdate) error {
	input := map[string]any{
		"id":   "gid://shopify/Order/" + update.OrderID,
		"note": update.Note,
	}
	if a.config.CodesMetafield && update.Codes != "" {
		input["metafields"] = []map[string]string{{
			"namespace": "digital_product",
			"key":       "codes",
			"type":      "multi_line_text_field",
			"value":     update.Codes,
		}}
	}

	var data struct {
		OrderUpdate struct {
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"orderUpdate"`
	}
	if err := a.graphql(ctx, orderUpdateMutation, map[string]any{"input": input}, &data); err != nil {
		return fmt.Errorf("order update failed: %w", err)
	}

	if errs := data.OrderUpdate.UserErrors; len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			if len(e.Field) > 0 {
				messages = append(messages, strings.Join(e.Field, ".")+": "+e.Message)
			} else {
				messages = append(messages, e.Message)
			}
		}
		return domain.StoreRejection(messages...)
	}

	return nil
}

// HealthCheck verifies that the Admin API is reachable and the access token is valid.
func (a *ShopifyAdapter) HealthCheck(ctx context.Context) error {
	var data struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	if err := a.graphql(ctx, shopQuery, nil, &data); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// graphql posts one GraphQL document and decodes its data field into out.
func (a *ShopifyAdapter) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	endpoint := fmt.Sprintf("%s/admin/api/%s/graphql.json", strings.TrimRight(a.config.StoreURL, "/"), a.config.APIVersion)

	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shopify API returned status: %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("graphql response has no data")
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// DecodeOrderEvent maps an orders/create or orders/paid webhook body to an order event.
func (a *ShopifyAdapter) DecodeOrderEvent(body []byte) (*domain.OrderEvent, error) {
	var order shopifyOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode shopify order: %w", err)
	}
	if order.ID == 0 {
		return nil, fmt.Errorf("shopify order has no id")
	}

	email := order.Email
	if email == "" && order.Customer != nil {
		email = order.Customer.Email
	}

	event := &domain.OrderEvent{
		ID:            strconv.FormatInt(order.ID, 10),
		Platform:      domain.PlatformShopify,
		Note:          order.Note,
		CustomerEmail: email,
		LineItems:     make([]domain.LineItem, 0, len(order.LineItems)),
	}
	for _, item := range order.LineItems {
		name := item.Name
		if name == "" {
			name = item.Title
		}
		event.LineItems = append(event.LineItems, domain.LineItem{
			ID:       strconv.FormatInt(item.ID, 10),
			SKU:      item.SKU,
			Name:     name,
			Quantity: item.Quantity,
		})
	}
	return event, nil
}

// internal structs for mapping

// shopifyOrder is the subset of the order webhook payload the workflow reads.
type shopifyOrder struct {
	ID        int64             `json:"id"`
	Note      string            `json:"note"`
	Email     string            `json:"email"`
	Customer  *shopifyCustomer  `json:"customer"`
	LineItems []shopifyLineItem `json:"line_items"`
}

type shopifyCustomer struct {
	Email string `json:"email"`
}

type shopifyLineItem struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

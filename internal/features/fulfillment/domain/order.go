package domain

import (
	"fmt"
	"strings"
)

// Platform identifies the commerce store an order event came from.
// Its value prefixes every reference id sent to the provider.
type Platform string

const (
	// PlatformShopify marks events delivered by Shopify order webhooks.
	PlatformShopify Platform = "SHOPIFY"
	// PlatformWooCommerce marks events delivered by WooCommerce order webhooks.
	PlatformWooCommerce Platform = "WOO"
)

// OrderEvent is one order notification received from the commerce store.
type OrderEvent struct {
	// ID is the store's order identifier.
	ID string `json:"id"`
	// Platform is the store that delivered the event.
	Platform Platform `json:"platform"`
	// Note is the order's current free-text note.
	Note string `json:"note"`
	// CustomerEmail is the buyer's email, used only when the provider is configured for customer identity.
	CustomerEmail string `json:"customer_email,omitempty"`
	// LineItems are the purchased units, in store order.
	LineItems []LineItem `json:"line_items"`
}

// LineItem is one purchasable unit within an order.
type LineItem struct {
	// ID is the store's line item identifier.
	ID string `json:"id"`
	// SKU carries the provider product id.
	SKU string `json:"sku"`
	// Name is the display name used in the order note.
	Name string `json:"name"`
	// Quantity is informational; provisioning always requests one unit.
	Quantity int `json:"quantity"`
}

// ProductID returns the provider product id, or "" if the item has none.
func (li LineItem) ProductID() string {
	return strings.TrimSpace(li.SKU)
}

// ReferenceFor derives the idempotency key sent to the provider for one line item.
// It is stable across redeliveries of the same event.
func (e OrderEvent) ReferenceFor(item LineItem) string {
	platform := e.Platform
	if platform == "" {
		platform = PlatformShopify
	}
	return fmt.Sprintf("%s_%s_%s", platform, e.ID, item.ID)
}

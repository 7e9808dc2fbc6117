package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPhone marks an order without a phone number to notify.
var ErrNoPhone = errors.New("order has no phone number")

const pendingCodesText = "Your codes will be sent to you shortly."

// OrderStatus is the part of an order update relayed to the customer.
type OrderStatus struct {
	// Name is the customer-facing order number (e.g. #1001).
	Name string `json:"name"`
	// Phone is taken from the shipping address, then the billing address.
	Phone             string `json:"phone"`
	FinancialStatus   string `json:"financial_status"`
	FulfillmentStatus string `json:"fulfillment_status"`
	TotalPrice        string `json:"total_price"`
	Currency          string `json:"currency"`
	// Note is the order note, which carries the provisioned codes.
	Note string `json:"note"`
	// HasDigitalItems is set when any line item is a digital product.
	HasDigitalItems bool `json:"has_digital_items"`
}

// Message renders the WhatsApp text for the status.
func (s OrderStatus) Message() string {
	financial := s.FinancialStatus
	if financial == "" {
		financial = "pending"
	}
	fulfillment := s.FulfillmentStatus
	if fulfillment == "" {
		fulfillment = "unfulfilled"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Update on your order %s\n", s.Name)

	switch financial {
	case "pending":
		fmt.Fprintf(&b, "Your order was created successfully.\nTotal: %s %s", s.TotalPrice, s.Currency)
	case "paid":
		fmt.Fprintf(&b, "Payment received.\nAmount: %s %s", s.TotalPrice, s.Currency)
	}

	switch fulfillment {
	case "shipped":
		b.WriteString("\nYour order has shipped.")
	case "fulfilled":
		b.WriteString("\nYour order is complete.")
	}

	if s.HasDigitalItems {
		note := s.Note
		if note == "" {
			note = pendingCodesText
		}
		b.WriteString("\n" + note)
	}

	return b.String()
}

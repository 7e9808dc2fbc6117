package domain

import (
	"fmt"
	"strings"
)

// ItemState is a line item's position in the provisioning state machine.
type ItemState string

const (
	StateCreated   ItemState = "CREATED"
	StatePolling   ItemState = "POLLING"
	StateResolved  ItemState = "RESOLVED"
	StateExhausted ItemState = "EXHAUSTED"
	StateRejected  ItemState = "REJECTED"
	// StateSkipped is terminal for items that never reached the provider.
	StateSkipped ItemState = "SKIPPED"
)

// FailureReason explains why an item did not resolve.
type FailureReason string

const (
	ReasonNone             FailureReason = ""
	ReasonNoSKU            FailureReason = "no_sku"
	ReasonCreationRejected FailureReason = "creation_rejected"
	ReasonTransport        FailureReason = "transport_error"
	ReasonPollExhausted    FailureReason = "poll_exhausted"
	ReasonNoSerial         FailureReason = "no_serial"
)

var reasonText = map[FailureReason]string{
	ReasonNoSKU:            "no product id",
	ReasonCreationRejected: "provider rejected the order",
	ReasonTransport:        "provider unreachable",
	ReasonPollExhausted:    "code not ready in time",
	ReasonNoSerial:         "no code returned",
}

// FulfillmentOutcome is the terminal result of one line item in one processing pass.
type FulfillmentOutcome struct {
	Item        LineItem      `json:"item"`
	ReferenceID string        `json:"reference_id"`
	State       ItemState     `json:"state"`
	Serial      *SerialEntry  `json:"serial,omitempty"`
	Reason      FailureReason `json:"reason,omitempty"`
	// Attempts counts details polls made for the item.
	Attempts int `json:"attempts"`
	// Err is the last error observed for the item, if any.
	Err error `json:"-"`
}

// Resolved reports whether the item ended with a code.
func (o FulfillmentOutcome) Resolved() bool {
	return o.State == StateResolved && o.Serial != nil
}

// Fragment renders the note fragment for this outcome.
func (o FulfillmentOutcome) Fragment() string {
	if o.Resolved() {
		return fmt.Sprintf("\n--------------------------------\nProduct: %s\nCode: %s\n--------------------------------\n", o.Item.Name, o.Serial.Code)
	}
	reason, ok := reasonText[o.Reason]
	if !ok {
		reason = string(o.Reason)
	}
	return fmt.Sprintf("\n!! Failed to obtain code for product: %s (%s) !!", o.Item.Name, reason)
}

// BuildNote appends one fragment per outcome, in line item order, to the current note.
func BuildNote(current string, outcomes []FulfillmentOutcome) string {
	var b strings.Builder
	b.WriteString(current)
	for _, o := range outcomes {
		b.WriteString(o.Fragment())
	}
	return b.String()
}

// CodesForDisplay renders the customer-facing list of resolved codes.
// It is empty when no item resolved.
func CodesForDisplay(outcomes []FulfillmentOutcome) string {
	var b strings.Builder
	for _, o := range outcomes {
		if o.Resolved() {
			fmt.Fprintf(&b, "Product: %s\nCode: %s\n\n", o.Item.Name, o.Serial.Code)
		}
	}
	return b.String()
}

// RunReport summarizes one processing pass of an order event.
type RunReport struct {
	OrderID  string               `json:"order_id"`
	Outcomes []FulfillmentOutcome `json:"outcomes"`
	Note     string               `json:"note"`
	// Committed is false when the note was unchanged or the commit failed.
	Committed bool `json:"committed"`
}

// Counts returns the number of resolved and failed items.
func (r *RunReport) Counts() (resolved, failed int) {
	for _, o := range r.Outcomes {
		if o.Resolved() {
			resolved++
		} else {
			failed++
		}
	}
	return resolved, failed
}

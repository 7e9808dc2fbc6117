package domain

// SerialEntry is one provisioned code returned by the provider.
type SerialEntry struct {
	Code         string `json:"code"`
	SerialNumber string `json:"serial_number,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
}

// CreateOrderRequest asks the provider to allocate one unit of a product.
type CreateOrderRequest struct {
	ProductID   string
	ReferenceID string
	// Quantity defaults to 1 when zero.
	Quantity int
	// CustomerEmail is sent as the identity when the provider runs in customer-identity mode.
	CustomerEmail string
}

// DetailsQuery identifies a previously created allocation.
type DetailsQuery struct {
	ReferenceID string
	// ProviderOrderID is the provider's own order id, returned by create-order.
	ProviderOrderID string
	CustomerEmail   string
}

// ProvisioningResult is a well-formed provider response.
type ProvisioningResult struct {
	Success bool
	// ProviderOrderID is the provider's own id for the allocation, when returned.
	ProviderOrderID string
	Serials         []SerialEntry
	Message         string
}

// FirstSerial returns the first serial with a non-empty code, or nil.
// Only the first is authoritative for a single-quantity request.
func (r *ProvisioningResult) FirstSerial() *SerialEntry {
	if r == nil {
		return nil
	}
	for i := range r.Serials {
		if r.Serials[i].Code != "" {
			s := r.Serials[i]
			return &s
		}
	}
	return nil
}

// Pending reports a successful response that carries no code yet.
func (r *ProvisioningResult) Pending() bool {
	return r != nil && r.Success && r.FirstSerial() == nil
}

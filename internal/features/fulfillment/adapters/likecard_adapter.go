package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/core/httpclient"
	"card-fulfillment/internal/core/proxy"
	"card-fulfillment/internal/features/fulfillment/domain"
)

const (
	opCreateOrder  = "create_order"
	opOrderDetails = "orders/details"
	opCheckBalance = "check_balance"

	// maxLikeCardResponseSize bounds how much of a response body is read.
	maxLikeCardResponseSize = 1 << 20
)

// LikeCardAdapter implements ports.Provisioner against the LikeCard online API.
type LikeCardAdapter struct {
	client *http.Client
	config config.LikeCardConfig
	signer *Signer
	now    func() time.Time
}

// NewLikeCardAdapter creates a new LikeCardAdapter. Provider calls go through the proxy when one is configured.
func NewLikeCardAdapter(cfg config.LikeCardConfig, proxySettings proxy.Settings) *LikeCardAdapter {
	return &LikeCardAdapter{
		client: httpclient.NewClient(cfg.Timeout(), httpclient.WithProxy(proxySettings)),
		config: cfg,
		signer: NewSigner(cfg.Email, cfg.Phone, cfg.HashKey),
		now:    time.Now,
	}
}

// CreateOrder requests one unit of the product under the reference id.
func (a *LikeCardAdapter) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.ProvisioningResult, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	form := a.baseForm(req.CustomerEmail)
	form.Set("productId", req.ProductID)
	form.Set("referenceId", req.ReferenceID)
	form.Set("quantity", strconv.Itoa(quantity))
	form.Set("optionalFields", "")

	resp, err := a.post(ctx, opCreateOrder, req.ReferenceID, form)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(opCreateOrder, req.ReferenceID)
}

// FetchOrderDetails queries the allocation by reference id or provider order id, per LIKECARD_LOOKUP_KEY.
func (a *LikeCardAdapter) FetchOrderDetails(ctx context.Context, query domain.DetailsQuery) (*domain.ProvisioningResult, error) {
	form := a.baseForm(query.CustomerEmail)

	if a.config.LookupKey == config.LookupByOrder {
		if query.ProviderOrderID == "" {
			return nil, fmt.Errorf("%w: no provider order id to look up %s", domain.ErrNoSerial, query.ReferenceID)
		}
		form.Set("orderId", query.ProviderOrderID)
	} else {
		form.Set("referenceId", query.ReferenceID)
	}

	resp, err := a.post(ctx, opOrderDetails, query.ReferenceID, form)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(opOrderDetails, query.ReferenceID)
}

// HealthCheck verifies that the LikeCard API is reachable and the merchant credentials are accepted.
func (a *LikeCardAdapter) HealthCheck(ctx context.Context) error {
	resp, err := a.post(ctx, opCheckBalance, "", a.baseForm(""))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !resp.succeeded() {
		return fmt.Errorf("health check rejected: %s", resp.Message)
	}
	return nil
}

// baseForm builds the signed identity fields shared by every call.
// The email is sent as configured; only the hash uses its lower-cased form.
// A fresh timestamp and hash are produced per request.
func (a *LikeCardAdapter) baseForm(customerEmail string) url.Values {
	email := a.config.Email
	if a.config.Identity == config.IdentityCustomer && customerEmail != "" {
		email = customerEmail
	}
	ts := a.now().Unix()

	form := url.Values{}
	form.Set("deviceId", a.config.DeviceID)
	form.Set("email", email)
	form.Set("phone", a.config.Phone)
	form.Set("securityCode", a.config.SecurityCode)
	form.Set("langId", a.config.LangID)
	form.Set("time", strconv.FormatInt(ts, 10))
	form.Set("hash", a.signer.SignFor(ts, email))
	return form
}

// post sends a form-encoded request and decodes the JSON envelope.
func (a *LikeCardAdapter) post(ctx context.Context, op, referenceID string, form url.Values) (*likecardResponse, error) {
	endpoint := strings.TrimRight(a.config.URL, "/") + "/" + op

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &domain.TransportError{Op: op, ReferenceID: referenceID, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, ReferenceID: referenceID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLikeCardResponseSize))
	if err != nil {
		return nil, &domain.TransportError{Op: op, ReferenceID: referenceID, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &domain.TransportError{Op: op, ReferenceID: referenceID, Err: fmt.Errorf("likecard API returned status: %d", resp.StatusCode)}
	}

	var decoded likecardResponse
	if err := json.Unmarshal(bytes.TrimSpace(body), &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &domain.ProviderError{Op: op, ReferenceID: referenceID, Message: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		return nil, &domain.TransportError{Op: op, ReferenceID: referenceID, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &decoded, nil
}

// internal structs for mapping

// likecardResponse is the envelope shared by create_order, orders/details and check_balance.
type likecardResponse struct {
	// Response is 1 on success in the documented API.
	Response likecardFlag `json:"response"`
	// Success is used by some API versions instead of Response.
	Success likecardFlag `json:"success"`
	// Message carries the failure reason.
	Message string `json:"message"`
	// OrderID is the provider order id.
	OrderID likecardString `json:"orderId"`
	// Serials holds the provisioned codes, possibly empty while pending.
	Serials []likecardSerial `json:"serials"`
}

// likecardSerial is one code in the serials array.
type likecardSerial struct {
	SerialID     likecardString `json:"serialId"`
	SerialCode   string         `json:"serialCode"`
	SerialNumber string         `json:"serialNumber"`
	ProductName  string         `json:"productName"`
	ValidTo      string         `json:"validTo"`
}

func (r *likecardResponse) succeeded() bool {
	return r.Response.value || r.Success.value
}

// toDomain maps a decoded envelope; an explicit failure becomes a ProviderError.
func (r *likecardResponse) toDomain(op, referenceID string) (*domain.ProvisioningResult, error) {
	if !r.succeeded() {
		msg := r.Message
		if msg == "" {
			msg = "unsuccessful response"
		}
		return nil, &domain.ProviderError{Op: op, ReferenceID: referenceID, Message: msg}
	}

	result := &domain.ProvisioningResult{
		Success:         true,
		ProviderOrderID: string(r.OrderID),
		Message:         r.Message,
		Serials:         make([]domain.SerialEntry, 0, len(r.Serials)),
	}
	for _, s := range r.Serials {
		result.Serials = append(result.Serials, domain.SerialEntry{
			Code:         s.SerialCode,
			SerialNumber: s.SerialNumber,
			ProductName:  s.ProductName,
		})
	}
	return result, nil
}

// likecardFlag accepts true/false, 1/0 and their quoted forms.
type likecardFlag struct {
	value bool
}

// UnmarshalJSON parses the loosely typed success flags LikeCard returns.
func (f *likecardFlag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), "\"")
	switch strings.ToLower(s) {
	case "1", "true":
		f.value = true
	default:
		f.value = false
	}
	return nil
}

// likecardString accepts both JSON strings and numbers.
type likecardString string

// UnmarshalJSON keeps numeric ids as their decimal text.
func (s *likecardString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(raw, "\"") {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = likecardString(v)
		return nil
	}
	*s = likecardString(raw)
	return nil
}

package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/core/proxy"
	"card-fulfillment/internal/features/fulfillment/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1700000000, 0)

func newLikeCardTestAdapter(t *testing.T, handler http.HandlerFunc, mutate ...func(*config.LikeCardConfig)) *LikeCardAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.LikeCardConfig{
		URL:            server.URL + "/online",
		DeviceID:       "device-1",
		Email:          "Merchant@Example.com",
		Phone:          "966500000000",
		SecurityCode:   "sec-code",
		HashKey:        "hash-key",
		LangID:         "1",
		TimeoutSeconds: 5,
		Identity:       config.IdentityMerchant,
		LookupKey:      config.LookupByReference,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	adapter := NewLikeCardAdapter(cfg, proxy.Settings{})
	adapter.now = func() time.Time { return fixedNow }
	return adapter
}

// TestLikeCardAdapter_CreateOrder_InlineSerial verifies synchronous fulfillment and the signed form.
func TestLikeCardAdapter_CreateOrder_InlineSerial(t *testing.T) {
	adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/online/create_order", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())

		assert.Equal(t, "device-1", r.PostForm.Get("deviceId"))
		assert.Equal(t, "Merchant@Example.com", r.PostForm.Get("email"))
		assert.Equal(t, "966500000000", r.PostForm.Get("phone"))
		assert.Equal(t, "sec-code", r.PostForm.Get("securityCode"))
		assert.Equal(t, "1", r.PostForm.Get("langId"))
		assert.Equal(t, "376", r.PostForm.Get("productId"))
		assert.Equal(t, "SHOPIFY_1001_7001", r.PostForm.Get("referenceId"))
		assert.Equal(t, "1", r.PostForm.Get("quantity"))
		assert.Equal(t, "1700000000", r.PostForm.Get("time"))
		assert.Equal(t, NewSigner("merchant@example.com", "966500000000", "hash-key").Sign(1700000000), r.PostForm.Get("hash"))

		w.Write([]byte(`{"success":true,"orderId":98765,"serials":[{"serialId":"1","serialCode":"ABC123","serialNumber":"SN-1"}]}`))
	})

	result, err := adapter.CreateOrder(context.Background(), domain.CreateOrderRequest{ProductID: "376", ReferenceID: "SHOPIFY_1001_7001"})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "98765", result.ProviderOrderID)
	serial := result.FirstSerial()
	require.NotNil(t, serial)
	assert.Equal(t, "ABC123", serial.Code)
	assert.Equal(t, "SN-1", serial.SerialNumber)
}

// TestLikeCardAdapter_CreateOrder_Pending verifies that success without serials is pending, not an error.
func TestLikeCardAdapter_CreateOrder_Pending(t *testing.T) {
	adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":1,"orderId":"555","serials":[]}`))
	})

	result, err := adapter.CreateOrder(context.Background(), domain.CreateOrderRequest{ProductID: "376", ReferenceID: "R1"})

	require.NoError(t, err)
	assert.True(t, result.Pending())
	assert.Equal(t, "555", result.ProviderOrderID)
}

// TestLikeCardAdapter_CreateOrder_ProviderError verifies business failures map to ProviderError.
func TestLikeCardAdapter_CreateOrder_ProviderError(t *testing.T) {
	adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":0,"message":"Product not available"}`))
	})

	result, err := adapter.CreateOrder(context.Background(), domain.CreateOrderRequest{ProductID: "999", ReferenceID: "R1"})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderRejected)
	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Product not available", pe.Message)
	assert.Equal(t, "R1", pe.ReferenceID)
}

// TestLikeCardAdapter_TransportErrors verifies network and server failures map to TransportError.
func TestLikeCardAdapter_TransportErrors(t *testing.T) {
	t.Run("ServerError", func(t *testing.T) {
		adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := adapter.CreateOrder(context.Background(), domain.CreateOrderRequest{ProductID: "376", ReferenceID: "R1"})

		var te *domain.TransportError
		require.True(t, errors.As(err, &te))
		assert.Contains(t, err.Error(), "status: 502")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>maintenance</html>`))
		})

		_, err := adapter.FetchOrderDetails(context.Background(), domain.DetailsQuery{ReferenceID: "R1"})

		var te *domain.TransportError
		require.True(t, errors.As(err, &te))
	})

	t.Run("Timeout", func(t *testing.T) {
		adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := adapter.FetchOrderDetails(ctx, domain.DetailsQuery{ReferenceID: "R1"})

		var te *domain.TransportError
		require.True(t, errors.As(err, &te))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

// TestLikeCardAdapter_FetchOrderDetails_ByReference verifies the default lookup key.
func TestLikeCardAdapter_FetchOrderDetails_ByReference(t *testing.T) {
	adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/online/orders/details", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "R1", r.PostForm.Get("referenceId"))
		assert.Empty(t, r.PostForm.Get("orderId"))
		w.Write([]byte(`{"response":"1","serials":[{"serialCode":"XYZ","productName":"PSN 10$"}]}`))
	})

	result, err := adapter.FetchOrderDetails(context.Background(), domain.DetailsQuery{ReferenceID: "R1", ProviderOrderID: "555"})

	require.NoError(t, err)
	serial := result.FirstSerial()
	require.NotNil(t, serial)
	assert.Equal(t, "XYZ", serial.Code)
	assert.Equal(t, "PSN 10$", serial.ProductName)
}

// TestLikeCardAdapter_FetchOrderDetails_ByOrder verifies the provider order id lookup mode.
func TestLikeCardAdapter_FetchOrderDetails_ByOrder(t *testing.T) {
	calls := 0
	adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "555", r.PostForm.Get("orderId"))
		assert.Empty(t, r.PostForm.Get("referenceId"))
		w.Write([]byte(`{"response":1,"serials":[]}`))
	}, func(c *config.LikeCardConfig) { c.LookupKey = config.LookupByOrder })

	result, err := adapter.FetchOrderDetails(context.Background(), domain.DetailsQuery{ReferenceID: "R1", ProviderOrderID: "555"})
	require.NoError(t, err)
	assert.True(t, result.Pending())

	_, err = adapter.FetchOrderDetails(context.Background(), domain.DetailsQuery{ReferenceID: "R1"})
	assert.ErrorIs(t, err, domain.ErrNoSerial)
	assert.Equal(t, 1, calls)
}

// TestLikeCardAdapter_CustomerIdentity verifies the customer email is sent and signed in customer mode.
func TestLikeCardAdapter_CustomerIdentity(t *testing.T) {
	adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "Buyer@Example.com", r.PostForm.Get("email"))
		assert.Equal(t, NewSigner("", "966500000000", "hash-key").SignFor(1700000000, "buyer@example.com"), r.PostForm.Get("hash"))
		w.Write([]byte(`{"response":1,"serials":[]}`))
	}, func(c *config.LikeCardConfig) { c.Identity = config.IdentityCustomer })

	_, err := adapter.CreateOrder(context.Background(), domain.CreateOrderRequest{ProductID: "376", ReferenceID: "R1", CustomerEmail: "Buyer@Example.com"})
	require.NoError(t, err)
}

// TestLikeCardAdapter_HealthCheck tests the HealthCheck logic.
func TestLikeCardAdapter_HealthCheck(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/online/check_balance", r.URL.Path)
			w.Write([]byte(`{"response":1,"balance":"120.50","currency":"SAR"}`))
		})
		assert.NoError(t, adapter.HealthCheck(context.Background()))
	})

	t.Run("Rejected", func(t *testing.T) {
		adapter := newLikeCardTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":0,"message":"Invalid security code"}`))
		})
		err := adapter.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid security code")
	})
}

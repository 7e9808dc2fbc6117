package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/features/fulfillment/domain"
	"card-fulfillment/internal/features/fulfillment/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables struct {
		Input map[string]any `json:"input"`
	} `json:"variables"`
}

func newShopifyTestAdapter(t *testing.T, handler http.HandlerFunc, codesMetafield bool) *ShopifyAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewShopifyAdapter(config.ShopifyConfig{
		StoreURL:       server.URL,
		AccessToken:    "shpat_test",
		APIVersion:     "2024-10",
		CodesMetafield: codesMetafield,
	})
}

// TestShopifyAdapter_UpdateNote_Success verifies the orderUpdate mutation payload.
func TestShopifyAdapter_UpdateNote_Success(t *testing.T) {
	adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		var body graphqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "orderUpdate")
		assert.Equal(t, "gid://shopify/Order/1001", body.Variables.Input["id"])
		assert.Equal(t, "new note", body.Variables.Input["note"])
		assert.NotContains(t, body.Variables.Input, "metafields")

		w.Write([]byte(`{"data":{"orderUpdate":{"order":{"id":"gid://shopify/Order/1001"},"userErrors":[]}}}`))
	}, false)

	err := adapter.UpdateNote(context.Background(), ports.NoteUpdate{OrderID: "1001", Note: "new note", Codes: "Product: A\nCode: X\n\n"})
	assert.NoError(t, err)
}

// TestShopifyAdapter_UpdateNote_Metafield verifies the codes metafield is sent when enabled.
func TestShopifyAdapter_UpdateNote_Metafield(t *testing.T) {
	adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var body graphqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		metafields, ok := body.Variables.Input["metafields"].([]any)
		if assert.True(t, ok) && assert.Len(t, metafields, 1) {
			mf := metafields[0].(map[string]any)
			assert.Equal(t, "digital_product", mf["namespace"])
			assert.Equal(t, "codes", mf["key"])
			assert.Equal(t, "multi_line_text_field", mf["type"])
			assert.Equal(t, "Product: A\nCode: X\n\n", mf["value"])
		}

		w.Write([]byte(`{"data":{"orderUpdate":{"order":{"id":"gid://shopify/Order/1001"},"userErrors":[]}}}`))
	}, true)

	err := adapter.UpdateNote(context.Background(), ports.NoteUpdate{OrderID: "1001", Note: "n", Codes: "Product: A\nCode: X\n\n"})
	assert.NoError(t, err)
}

// TestShopifyAdapter_UpdateNote_UserErrors verifies validation errors surface as store rejections.
func TestShopifyAdapter_UpdateNote_UserErrors(t *testing.T) {
	adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"orderUpdate":{"order":null,"userErrors":[{"field":["note"],"message":"is too long"}]}}}`))
	}, false)

	err := adapter.UpdateNote(context.Background(), ports.NoteUpdate{OrderID: "1001", Note: "n"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreRejected)
	assert.Contains(t, err.Error(), "note: is too long")
}

// TestShopifyAdapter_UpdateNote_Failures verifies transport and GraphQL-level failures.
func TestShopifyAdapter_UpdateNote_Failures(t *testing.T) {
	t.Run("Status401", func(t *testing.T) {
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, false)

		err := adapter.UpdateNote(context.Background(), ports.NoteUpdate{OrderID: "1001", Note: "n"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status: 401")
		assert.NotErrorIs(t, err, domain.ErrStoreRejected)
	})

	t.Run("GraphQLErrors", func(t *testing.T) {
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errors":[{"message":"Throttled"}]}`))
		}, false)

		err := adapter.UpdateNote(context.Background(), ports.NoteUpdate{OrderID: "1001", Note: "n"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Throttled")
	})
}

// TestShopifyAdapter_HealthCheck tests the HealthCheck logic.
func TestShopifyAdapter_HealthCheck(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"shop":{"name":"Cards Store"}}}`))
		}, false)
		assert.NoError(t, adapter.HealthCheck(context.Background()))
	})

	t.Run("Failure_500", func(t *testing.T) {
		adapter := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, false)
		err := adapter.HealthCheck(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status: 500")
	})
}

// TestShopifyAdapter_DecodeOrderEvent verifies webhook payload mapping.
func TestShopifyAdapter_DecodeOrderEvent(t *testing.T) {
	payload := `{
		"id": 5678901234567,
		"note": "Please deliver fast",
		"email": "",
		"customer": {"email": "buyer@example.com"},
		"line_items": [
			{"id": 13579, "sku": "376", "name": "PSN 10$", "quantity": 1},
			{"id": 24680, "sku": null, "title": "Gift Wrap", "quantity": 1}
		]
	}`

	adapter := NewShopifyAdapter(config.ShopifyConfig{})
	event, err := adapter.DecodeOrderEvent([]byte(payload))

	require.NoError(t, err)
	assert.Equal(t, "5678901234567", event.ID)
	assert.Equal(t, domain.PlatformShopify, event.Platform)
	assert.Equal(t, "Please deliver fast", event.Note)
	assert.Equal(t, "buyer@example.com", event.CustomerEmail)
	require.Len(t, event.LineItems, 2)
	assert.Equal(t, "13579", event.LineItems[0].ID)
	assert.Equal(t, "376", event.LineItems[0].SKU)
	assert.Equal(t, "PSN 10$", event.LineItems[0].Name)
	assert.Equal(t, "", event.LineItems[1].SKU)
	assert.Equal(t, "Gift Wrap", event.LineItems[1].Name)
	assert.Equal(t, "SHOPIFY_5678901234567_13579", event.ReferenceFor(event.LineItems[0]))
}

func TestShopifyAdapter_DecodeOrderEvent_Invalid(t *testing.T) {
	adapter := NewShopifyAdapter(config.ShopifyConfig{})

	_, err := adapter.DecodeOrderEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = adapter.DecodeOrderEvent([]byte(`{"line_items":[]}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}

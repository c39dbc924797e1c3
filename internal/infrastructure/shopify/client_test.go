package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/logging"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	config := DefaultConfig()
	config.APIKey = "test-key"
	config.APISecret = "test-secret"
	config.RedirectURI = "https://portal.example.com/oauth/callback"
	config.LocationID = "1001"
	config.Timeout = 2 * time.Second
	logger := logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "shopify-test",
		Output:      io.Discard,
	})
	return NewClient(config, logger)
}

func TestGuardBlocksDeprecatedEndpointsBeforeNetwork(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t)
	conn := &domain.StoreConnection{
		ClientID:    "CL-001",
		ShopDomain:  strings.TrimPrefix(server.URL, "http://"),
		AccessToken: "token",
	}

	blocked := []string{
		"/products.json",
		"/products/42.json",
		"/variants/42.json",
		"/product_listings.json",
	}

	for _, endpoint := range blocked {
		resp, err := client.doRESTRequest(context.Background(), conn, http.MethodGet, endpoint, nil)
		assert.ErrorIs(t, err, ErrDeprecatedEndpoint, "endpoint %s should be blocked", endpoint)
		assert.Nil(t, resp)
	}

	assert.Equal(t, int64(0), hits.Load(), "no blocked request may reach the server")
}

func TestGuardAllowsInventoryEndpoints(t *testing.T) {
	client := newTestClient(t)

	err := client.guardEndpoint(context.Background(), http.MethodPost, "/inventory_levels/set.json")
	assert.NoError(t, err)

	err = client.guardEndpoint(context.Background(), http.MethodGet, "/webhooks.json")
	assert.NoError(t, err)
}

func TestAuthorizeURL(t *testing.T) {
	client := newTestClient(t)

	url := client.AuthorizeURL("shop.myshopify.com", "state-123")

	assert.Contains(t, url, "https://shop.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, url, "client_id=test-key")
	assert.Contains(t, url, "state=state-123")
	assert.Contains(t, url, "redirect_uri=https://portal.example.com/oauth/callback")
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"id":12345,"status":"requested"}`)

	// Precomputed HMAC-SHA256 of body with secret "hush", base64 encoded
	valid := computeSignature("hush", body)

	assert.True(t, VerifyWebhookSignature("hush", body, valid))
	assert.False(t, VerifyWebhookSignature("hush", body, "bogus"))
	assert.False(t, VerifyWebhookSignature("wrong-secret", body, valid))
	assert.False(t, VerifyWebhookSignature("", body, valid))
	assert.False(t, VerifyWebhookSignature("hush", body, ""))
}

func TestVerifyWebhookSignatureDetectsTampering(t *testing.T) {
	body := []byte(`{"id":12345,"status":"requested"}`)
	sig := computeSignature("hush", body)

	tampered := []byte(`{"id":12345,"status":"received"}`)
	assert.False(t, VerifyWebhookSignature("hush", tampered, sig))
}

// computeSignature mirrors the platform-side computation so the test fails
// if the encoding ever drifts
func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestNormalizeReturnWebhookNumericIDs(t *testing.T) {
	body := []byte(`{
		"id": 9001,
		"order_id": 7001,
		"status": "requested",
		"return_line_items": [
			{
				"id": 11,
				"quantity": 2,
				"fulfillment_line_item": {
					"line_item": {"variant_id": 555001, "inventory_item_id": 777001, "sku": "TSHIRT-L"}
				}
			}
		]
	}`)

	cmd, err := NormalizeReturnWebhook("CL-001", body)
	require.NoError(t, err)

	assert.Equal(t, "CL-001", cmd.ClientID)
	assert.Equal(t, "9001", cmd.ShopifyReturnID)
	assert.Equal(t, "7001", cmd.ShopifyOrderID)
	assert.Equal(t, "requested", cmd.Status)
	require.Len(t, cmd.Lines, 1)
	assert.Equal(t, "11", cmd.Lines[0].ExternalLineID)
	assert.Equal(t, 2, cmd.Lines[0].ExpectedQty)
	assert.Equal(t, "555001", cmd.Lines[0].Identifiers.VariantID)
	assert.Equal(t, "777001", cmd.Lines[0].Identifiers.InventoryItemID)
	assert.Equal(t, "TSHIRT-L", cmd.Lines[0].Identifiers.SKU)
}

func TestNormalizeReturnWebhookGIDs(t *testing.T) {
	body := []byte(`{
		"id": "gid://shopify/Return/9001",
		"order_id": "gid://shopify/Order/7001",
		"status": "open",
		"return_line_items": [
			{
				"id": "gid://shopify/ReturnLineItem/11",
				"quantity": 1,
				"fulfillment_line_item": {
					"line_item": {"variant_id": "gid://shopify/ProductVariant/555001", "sku": ""}
				}
			}
		]
	}`)

	cmd, err := NormalizeReturnWebhook("CL-001", body)
	require.NoError(t, err)

	assert.Equal(t, "9001", cmd.ShopifyReturnID)
	assert.Equal(t, "7001", cmd.ShopifyOrderID)
	assert.Equal(t, string(domain.ReturnStatusApproved), cmd.Status)
	require.Len(t, cmd.Lines, 1)
	assert.Equal(t, "555001", cmd.Lines[0].Identifiers.VariantID)
}

func TestNormalizeReturnWebhookSameReturnBothForms(t *testing.T) {
	numeric := []byte(`{"id": 9001, "status": "requested"}`)
	gid := []byte(`{"id": "gid://shopify/Return/9001", "status": "requested"}`)

	a, err := NormalizeReturnWebhook("CL-001", numeric)
	require.NoError(t, err)
	b, err := NormalizeReturnWebhook("CL-001", gid)
	require.NoError(t, err)

	assert.Equal(t, a.ShopifyReturnID, b.ShopifyReturnID)
}

func TestNormalizeReturnWebhookRejectsUnknownStatus(t *testing.T) {
	body := []byte(`{"id": 9001, "status": "mystery"}`)

	_, err := NormalizeReturnWebhook("CL-001", body)
	assert.Error(t, err)
}

func TestNormalizeReturnWebhookRejectsMissingID(t *testing.T) {
	body := []byte(`{"status": "requested"}`)

	_, err := NormalizeReturnWebhook("CL-001", body)
	assert.Error(t, err)
}

func TestPayloadValidator(t *testing.T) {
	validator, err := NewPayloadValidator()
	require.NoError(t, err)

	valid := []byte(`{"id": 9001, "status": "requested", "return_line_items": [{"id": 1, "quantity": 2}]}`)
	assert.NoError(t, validator.Validate("returns/request", valid))

	missingStatus := []byte(`{"id": 9001}`)
	assert.Error(t, validator.Validate("returns/request", missingStatus))

	negativeQty := []byte(`{"id": 9001, "status": "requested", "return_line_items": [{"quantity": -1}]}`)
	assert.Error(t, validator.Validate("returns/request", negativeQty))

	// Topics without a schema pass through
	assert.NoError(t, validator.Validate("app/uninstalled", []byte(`{}`)))
}

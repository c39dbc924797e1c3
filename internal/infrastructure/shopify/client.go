package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/resilience"
)

var tracer = otel.Tracer("portal/infrastructure/shopify")

// APIVersion pins every REST and GraphQL call to one admin API version
const APIVersion = "2024-01"

// ErrDeprecatedEndpoint is returned before any network I/O when a call
// targets a REST product endpoint removed from newer API versions. Product
// and variant reads must go through GraphQL.
var ErrDeprecatedEndpoint = errors.New("deprecated shopify REST endpoint, use the GraphQL API")

// deprecatedPathFragments lists the REST paths that newer API versions have
// removed. Matching is on the path portion after the version segment.
var deprecatedPathFragments = []string{
	"/products.json",
	"/products/",
	"/variants/",
	"/product_listings",
}

// Config holds Shopify app credentials and push settings
type Config struct {
	APIKey      string
	APISecret   string
	Scopes      string
	RedirectURI string

	// LocationID is the Shopify location inventory pushes target
	LocationID string

	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scopes:  "read_products,read_returns,write_inventory",
		Timeout: 30 * time.Second,
	}
}

// Client is the outbound Shopify admin API client. Every REST call passes
// through the deny-list guard and the circuit breaker.
type Client struct {
	config     *Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewClient creates a new Shopify client
func NewClient(config *Config, logger *logging.Logger) *Client {
	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("shopify"),
		slog.Default(),
	)

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		breaker: breaker,
		logger:  logger,
	}
}

// AuthorizeURL builds the OAuth authorization URL for a shop
func (c *Client) AuthorizeURL(shopDomain, state string) string {
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shopDomain, c.config.APIKey, c.config.Scopes, c.config.RedirectURI, state,
	)
}

// ExchangeToken swaps an authorization code for an access token
func (c *Client) ExchangeToken(ctx context.Context, shopDomain, code string) (*application.TokenExchange, error) {
	ctx, span := tracer.Start(ctx, "shopify.ExchangeToken",
		trace.WithAttributes(attribute.String("shop.domain", shopDomain)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload := map[string]string{
		"client_id":     c.config.APIKey,
		"client_secret": c.config.APISecret,
		"code":          code,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("token exchange failed: status %d, body: %s", resp.StatusCode, string(respBody))
		span.RecordError(err)
		return nil, err
	}

	var result struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &application.TokenExchange{
		AccessToken: result.AccessToken,
		Scope:       result.Scope,
	}, nil
}

// SetInventoryLevel pushes the available quantity for one inventory item
func (c *Client) SetInventoryLevel(ctx context.Context, conn *domain.StoreConnection, inventoryItemID string, available int) error {
	ctx, span := tracer.Start(ctx, "shopify.SetInventoryLevel",
		trace.WithAttributes(
			attribute.String("shop.domain", conn.ShopDomain),
			attribute.String("inventory_item.id", inventoryItemID),
			attribute.Int("available", available),
		),
	)
	defer span.End()

	payload := map[string]interface{}{
		"location_id":       c.config.LocationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	}

	resp, err := c.doRESTRequest(ctx, conn, http.MethodPost, "/inventory_levels/set.json", payload)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("failed to set inventory level: status %d, body: %s", resp.StatusCode, string(respBody))
		span.RecordError(err)
		return err
	}

	return nil
}

// doRESTRequest issues one admin REST call. The deny-list guard runs before
// any connection is opened, so a deprecated call never reaches the network.
func (c *Client) doRESTRequest(ctx context.Context, conn *domain.StoreConnection, method, endpoint string, payload interface{}) (*http.Response, error) {
	if err := c.guardEndpoint(ctx, method, endpoint); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	url := fmt.Sprintf("https://%s/admin/api/%s%s", conn.ShopDomain, APIVersion, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Shopify-Access-Token", conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Audit(ctx, "shopify_rest_call", "shopify", conn.ShopDomain, "", map[string]any{
		"method":     method,
		"endpoint":   endpoint,
		"apiVersion": APIVersion,
	})

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}

	return result.(*http.Response), nil
}

// guardEndpoint rejects REST paths the pinned API version no longer serves
func (c *Client) guardEndpoint(ctx context.Context, method, endpoint string) error {
	for _, fragment := range deprecatedPathFragments {
		if strings.Contains(endpoint, fragment) {
			c.logger.WithContext(ctx).Warn("Blocked deprecated shopify endpoint",
				"method", method,
				"endpoint", endpoint,
			)
			return ErrDeprecatedEndpoint
		}
	}
	return nil
}

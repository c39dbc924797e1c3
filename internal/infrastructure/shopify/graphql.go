package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fulfillment-platform/portal/internal/domain"
)

// Variant is a product variant read through the GraphQL admin API
type Variant struct {
	VariantID       string
	InventoryItemID string
	SKU             string
	Title           string
}

const variantQuery = `query($id: ID!) {
  productVariant(id: $id) {
    id
    sku
    title
    inventoryItem { id }
  }
}`

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GetVariant fetches one variant by its numeric ID. Product data is only
// reachable through GraphQL; the REST product endpoints are denied.
func (c *Client) GetVariant(ctx context.Context, conn *domain.StoreConnection, variantID string) (*Variant, error) {
	ctx, span := tracer.Start(ctx, "shopify.GetVariant",
		trace.WithAttributes(
			attribute.String("shop.domain", conn.ShopDomain),
			attribute.String("variant.id", variantID),
		),
	)
	defer span.End()

	request := graphqlRequest{
		Query: variantQuery,
		Variables: map[string]interface{}{
			"id": "gid://shopify/ProductVariant/" + variantID,
		},
	}

	var response struct {
		Data struct {
			ProductVariant *struct {
				ID            string `json:"id"`
				SKU           string `json:"sku"`
				Title         string `json:"title"`
				InventoryItem struct {
					ID string `json:"id"`
				} `json:"inventoryItem"`
			} `json:"productVariant"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	if err := c.doGraphQL(ctx, conn, request, &response); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(response.Errors) > 0 {
		err := fmt.Errorf("graphql error: %s", response.Errors[0].Message)
		span.RecordError(err)
		return nil, err
	}
	if response.Data.ProductVariant == nil {
		return nil, fmt.Errorf("variant %s not found", variantID)
	}

	pv := response.Data.ProductVariant
	return &Variant{
		VariantID:       normalizeGID(pv.ID),
		InventoryItemID: normalizeGID(pv.InventoryItem.ID),
		SKU:             pv.SKU,
		Title:           pv.Title,
	}, nil
}

func (c *Client) doGraphQL(ctx context.Context, conn *domain.StoreConnection, request graphqlRequest, out interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", conn.ShopDomain, APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("X-Shopify-Access-Token", conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return err
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("graphql request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}

	return nil
}

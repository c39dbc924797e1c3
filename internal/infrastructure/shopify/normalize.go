package shopify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/domain"
)

// flexibleID accepts the three shapes Shopify uses for identifiers: JSON
// numbers, plain strings, and GraphQL GIDs like gid://shopify/Return/123.
// All of them normalize to the bare numeric string.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*f = ""
	case string:
		*f = flexibleID(normalizeGID(v))
	case float64:
		*f = flexibleID(strconv.FormatInt(int64(v), 10))
	default:
		return fmt.Errorf("unsupported id type %T", raw)
	}

	return nil
}

func (f flexibleID) String() string {
	return string(f)
}

// normalizeGID strips the gid://shopify/<Type>/ prefix when present
func normalizeGID(id string) string {
	if !strings.HasPrefix(id, "gid://") {
		return id
	}
	idx := strings.LastIndex(id, "/")
	if idx < 0 || idx == len(id)-1 {
		return id
	}
	return id[idx+1:]
}

// returnPayload is the wire shape of a return webhook
type returnPayload struct {
	ID              flexibleID       `json:"id"`
	OrderID         flexibleID       `json:"order_id"`
	Status          string           `json:"status"`
	CreatedAt       *time.Time       `json:"created_at"`
	ReturnLineItems []returnLineItem `json:"return_line_items"`
}

type returnLineItem struct {
	ID           flexibleID `json:"id"`
	Quantity     int        `json:"quantity"`
	FulfillmentLineItem struct {
		LineItem struct {
			VariantID       flexibleID `json:"variant_id"`
			InventoryItemID flexibleID `json:"inventory_item_id"`
			SKU             string     `json:"sku"`
		} `json:"line_item"`
	} `json:"fulfillment_line_item"`
}

// statusMap folds platform return states onto the portal lifecycle
var statusMap = map[string]string{
	"requested": string(domain.ReturnStatusRequested),
	"open":      string(domain.ReturnStatusApproved),
	"approved":  string(domain.ReturnStatusApproved),
	"declined":  string(domain.ReturnStatusDeclined),
	"closed":    string(domain.ReturnStatusReceived),
	"received":  string(domain.ReturnStatusReceived),
}

// NormalizeReturnWebhook parses a return webhook body into an ingest command.
// Identifiers are normalized before alias resolution so GID and numeric
// deliveries of the same return produce identical commands.
func NormalizeReturnWebhook(clientID string, body []byte) (*application.IngestReturnCommand, error) {
	var payload returnPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse return payload: %w", err)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("return payload has no id")
	}

	status, ok := statusMap[strings.ToLower(payload.Status)]
	if !ok {
		return nil, fmt.Errorf("unknown return status %q", payload.Status)
	}

	lines := make([]application.ReturnLineInput, 0, len(payload.ReturnLineItems))
	for _, item := range payload.ReturnLineItems {
		li := item.FulfillmentLineItem.LineItem
		lines = append(lines, application.ReturnLineInput{
			ExternalLineID: item.ID.String(),
			ExpectedQty:    item.Quantity,
			Identifiers: domain.ExternalIdentifiers{
				VariantID:       li.VariantID.String(),
				InventoryItemID: li.InventoryItemID.String(),
				SKU:             li.SKU,
			},
		})
	}

	return &application.IngestReturnCommand{
		ClientID:         clientID,
		ShopifyReturnID:  payload.ID.String(),
		ShopifyOrderID:   payload.OrderID.String(),
		Status:           status,
		Lines:            lines,
		CreatedAtShopify: payload.CreatedAt,
	}, nil
}

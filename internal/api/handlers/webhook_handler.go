package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/infrastructure/shopify"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/middleware"
)

// WebhookHandler receives platform webhook deliveries. Every delivery is
// signature-verified, schema-validated, attributed to a client by shop
// domain, and deduplicated before any domain effect runs.
type WebhookHandler struct {
	sync      *application.SyncService
	returns   *application.ReturnsService
	validator *shopify.PayloadValidator
	secret    string
	logger    *logging.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	sync *application.SyncService,
	returns *application.ReturnsService,
	validator *shopify.PayloadValidator,
	secret string,
	logger *logging.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		sync:      sync,
		returns:   returns,
		validator: validator,
		secret:    secret,
		logger:    logger,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/shopify", h.HandleShopify)
}

// HandleShopify processes one Shopify webhook delivery. Redelivery of an
// already-applied event returns 200 so the platform stops retrying.
func (h *WebhookHandler) HandleShopify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("failed to read webhook body"))
		return
	}

	signature := c.GetHeader(shopify.HeaderHMAC)
	if !shopify.VerifyWebhookSignature(h.secret, body, signature) {
		middleware.AbortWithAppError(c, errors.ErrUnauthorized("invalid webhook signature"))
		return
	}

	topic := c.GetHeader(shopify.HeaderTopic)
	shopDomain := c.GetHeader(shopify.HeaderShopDomain)
	eventID := c.GetHeader(shopify.HeaderEventID)
	if eventID == "" {
		eventID = c.GetHeader(shopify.HeaderWebhookID)
	}
	if topic == "" || shopDomain == "" || eventID == "" {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("missing webhook identification headers"))
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"webhook.topic":    topic,
		"webhook.shop":     shopDomain,
		"webhook.event_id": eventID,
	})

	if err := h.validator.Validate(topic, body); err != nil {
		middleware.AbortWithAppError(c, errors.ErrUnprocessable(err.Error()))
		return
	}

	ctx := c.Request.Context()

	conn, err := h.sync.ConnectionForShop(ctx, shopDomain)
	if err != nil {
		respondError(c, err)
		return
	}

	first, err := h.sync.RecordWebhook(ctx, conn.ClientID, eventID, "shopify", topic)
	if err != nil {
		respondError(c, err)
		return
	}
	if !first {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	if strings.HasPrefix(topic, "returns") {
		cmd, err := shopify.NormalizeReturnWebhook(conn.ClientID, body)
		if err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnprocessable(err.Error()))
			return
		}

		ret, err := h.returns.Ingest(ctx, *cmd)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":          "processed",
			"shopifyReturnId": ret.ShopifyReturnID,
		})
		return
	}

	// Topics without a domain effect are acknowledged so the platform does
	// not retry them
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/middleware"
)

// InventoryHandler exposes the ledger: derived quantities, entry history,
// manual adjustments, and cancelled-shipment restores.
type InventoryHandler struct {
	service *application.InventoryService
	logger  *logging.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(service *application.InventoryService, logger *logging.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	inventory := r.Group("/inventory")
	{
		inventory.GET("/:skuId/quantity", h.GetQuantity)
		inventory.GET("/:skuId/ledger", h.GetLedger)
		inventory.POST("/adjustments", h.Adjust)
		inventory.POST("/restore", h.Restore)
	}
}

// GetQuantity returns the current on-hand quantity for a SKU, optionally
// scoped to one location
func (h *InventoryHandler) GetQuantity(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	skuID := c.Param("skuId")
	locationID := c.Query("locationId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"client.id": clientID,
		"sku.id":    skuID,
	})

	quantity, err := h.service.CurrentQuantity(c.Request.Context(), clientID, skuID, locationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"skuId":      skuID,
		"locationId": locationID,
		"quantity":   quantity,
	})
}

// GetLedger returns ledger entries for a SKU, newest first
func (h *InventoryHandler) GetLedger(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	skuID := c.Param("skuId")
	pagination := parsePagination(c)

	entries, err := h.service.History(c.Request.Context(), clientID, skuID, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listEnvelope(entries, len(entries), pagination))
}

// Adjust appends a manual adjustment entry
func (h *InventoryHandler) Adjust(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.AppendEntryCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID

	entry, err := h.service.Append(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Restore credits back the lines of a cancelled outbound shipment
func (h *InventoryHandler) Restore(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.RestoreShipmentCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID

	entries, err := h.service.Restore(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"shipmentId": cmd.ShipmentID,
		"entries":    entries,
	})
}

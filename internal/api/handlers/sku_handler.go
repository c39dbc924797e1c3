package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/middleware"
)

// SKUHandler exposes SKU identity management and alias registration
type SKUHandler struct {
	service  *application.SKUService
	resolver *application.AliasResolver
	logger   *logging.Logger
}

// NewSKUHandler creates a new SKUHandler
func NewSKUHandler(service *application.SKUService, resolver *application.AliasResolver, logger *logging.Logger) *SKUHandler {
	return &SKUHandler{
		service:  service,
		resolver: resolver,
		logger:   logger,
	}
}

// RegisterRoutes registers SKU routes
func (h *SKUHandler) RegisterRoutes(r *gin.RouterGroup) {
	skus := r.Group("/skus")
	{
		skus.POST("", h.Create)
		skus.GET("", h.List)
		skus.GET("/:skuId", h.Get)
		skus.DELETE("/:skuId", h.Delete)
		skus.GET("/:skuId/aliases", h.ListAliases)
		skus.POST("/:skuId/aliases", h.AddAlias)
	}
}

// RegisterAdminRoutes registers SKU maintenance routes for 3PL staff
func (h *SKUHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/maintenance/alias-backfill", h.BackfillAliases)
}

// Create creates a SKU
func (h *SKUHandler) Create(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.CreateSKUCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID

	sku, err := h.service.Create(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sku)
}

// List lists a client's SKUs. includeDeleted=true also returns soft-deleted
// rows.
func (h *SKUHandler) List(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	includeDeleted := c.Query("includeDeleted") == "true"
	pagination := parsePagination(c)

	skus, err := h.service.List(c.Request.Context(), clientID, includeDeleted, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listEnvelope(skus, len(skus), pagination))
}

// Get fetches one SKU
func (h *SKUHandler) Get(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	sku, err := h.service.Get(c.Request.Context(), clientID, c.Param("skuId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sku)
}

// Delete removes a SKU. The response reports whether the row was removed or
// retained as soft-deleted.
func (h *SKUHandler) Delete(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	result, err := h.service.Delete(c.Request.Context(), application.DeleteSKUCommand{
		ClientID: clientID,
		SKUID:    c.Param("skuId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAliases returns all platform identifiers mapped to a SKU
func (h *SKUHandler) ListAliases(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	aliases, err := h.service.Aliases(c.Request.Context(), clientID, c.Param("skuId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": aliases, "count": len(aliases)})
}

type addAliasRequest struct {
	AliasType  string `json:"aliasType" binding:"required"`
	AliasValue string `json:"aliasValue" binding:"required"`
}

// AddAlias registers an external identifier for a SKU
func (h *SKUHandler) AddAlias(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	var req addAliasRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	aliasType := domain.AliasType(req.AliasType)
	if !aliasType.IsValid() {
		middleware.AbortWithAppError(c, errors.ErrValidation("invalid alias type: "+req.AliasType))
		return
	}

	alias, err := h.service.AddAlias(c.Request.Context(), clientID, c.Param("skuId"), aliasType, req.AliasValue)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, alias)
}

// BackfillAliases repairs SKUs missing a variant alias by recovering the
// variant id from legacy notes
func (h *SKUHandler) BackfillAliases(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	result, err := h.resolver.BackfillVariantAliases(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

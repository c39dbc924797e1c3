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

// DiscrepancyHandler exposes the client/admin decision workflow over
// discrepancy rows
type DiscrepancyHandler struct {
	service *application.DiscrepancyService
	logger  *logging.Logger
}

// NewDiscrepancyHandler creates a new DiscrepancyHandler
func NewDiscrepancyHandler(service *application.DiscrepancyService, logger *logging.Logger) *DiscrepancyHandler {
	return &DiscrepancyHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers discrepancy routes
func (h *DiscrepancyHandler) RegisterRoutes(r *gin.RouterGroup) {
	discrepancies := r.Group("/discrepancies")
	{
		discrepancies.GET("", h.List)
		discrepancies.GET("/:discrepancyId", h.Get)
		discrepancies.POST("/:discrepancyId/decision", h.SubmitDecision)
	}
	r.GET("/dashboard/discrepancies", h.PendingCount)
	r.GET("/asns/:asnId/skus/:skuId/discrepancy-status", h.AggregateStatus)
}

// RegisterAdminRoutes registers the processing routes for 3PL staff
func (h *DiscrepancyHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/discrepancies/:discrepancyId/process", h.Process)
	r.POST("/discrepancies/:discrepancyId/close", h.Close)
	r.POST("/discrepancies/:discrepancyId/reopen", h.Reopen)
}

// List lists a client's discrepancies, optionally filtered by status
func (h *DiscrepancyHandler) List(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	var status *domain.DiscrepancyStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.DiscrepancyStatus(raw)
		if !s.IsValid() {
			middleware.AbortWithAppError(c, errors.ErrValidation("invalid discrepancy status: "+raw))
			return
		}
		status = &s
	}

	pagination := parsePagination(c)
	rows, err := h.service.List(c.Request.Context(), clientID, status, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listEnvelope(rows, len(rows), pagination))
}

// Get fetches one discrepancy
func (h *DiscrepancyHandler) Get(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	d, err := h.service.Get(c.Request.Context(), clientID, c.Param("discrepancyId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// SubmitDecision records the client's decision on a pending discrepancy
func (h *DiscrepancyHandler) SubmitDecision(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.SubmitDecisionCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.DiscrepancyID = c.Param("discrepancyId")

	d, err := h.service.SubmitDecision(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// Process marks a submitted discrepancy acted on
func (h *DiscrepancyHandler) Process(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.ProcessDiscrepancyCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.DiscrepancyID = c.Param("discrepancyId")

	d, err := h.service.Process(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// Close terminates a processed discrepancy
func (h *DiscrepancyHandler) Close(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.CloseDiscrepancyCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.DiscrepancyID = c.Param("discrepancyId")
	cmd.AdminID = tc.UserID

	d, err := h.service.Close(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// Reopen moves a closed discrepancy back to pending
func (h *DiscrepancyHandler) Reopen(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.ReopenDiscrepancyCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.DiscrepancyID = c.Param("discrepancyId")

	d, err := h.service.Reopen(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// PendingCount returns the pending-discrepancy count for the dashboard badge
func (h *DiscrepancyHandler) PendingCount(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	count, err := h.service.CountPending(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pendingDiscrepancies": count})
}

// AggregateStatus derives the client-facing response label across every
// discrepancy raised for an ASN and SKU pair
func (h *DiscrepancyHandler) AggregateStatus(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	label, err := h.service.AggregateStatus(c.Request.Context(), clientID, c.Param("asnId"), c.Param("skuId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asnId":  c.Param("asnId"),
		"skuId":  c.Param("skuId"),
		"status": label,
	})
}

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

// ASNHandler exposes the receiving lifecycle: scheduling, counting,
// inspection, completion, and closure
type ASNHandler struct {
	service *application.ReceivingService
	logger  *logging.Logger
}

// NewASNHandler creates a new ASNHandler
func NewASNHandler(service *application.ReceivingService, logger *logging.Logger) *ASNHandler {
	return &ASNHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers receiving routes
func (h *ASNHandler) RegisterRoutes(r *gin.RouterGroup) {
	asns := r.Group("/asns")
	{
		asns.POST("", h.Create)
		asns.GET("", h.List)
		asns.GET("/:asnId", h.Get)
		asns.POST("/:asnId/start", h.Start)
		asns.POST("/:asnId/receipts", h.RecordReceipt)
		asns.POST("/:asnId/inspections", h.RecordInspection)
		asns.POST("/:asnId/complete", h.Complete)
		asns.POST("/:asnId/close", h.Close)
		asns.GET("/:asnId/photos", h.ListPhotos)
	}
	r.GET("/dashboard/receiving", h.ExpectedCount)
}

// RegisterAdminRoutes registers the manual-resolution routes for 3PL staff
func (h *ASNHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/asns/:asnId/force-close", h.ForceClose)
}

// Create schedules an inbound shipment
func (h *ASNHandler) Create(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.CreateASNCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID

	asn, err := h.service.CreateASN(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, asn)
}

// List lists a client's ASNs, optionally filtered by status
func (h *ASNHandler) List(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	var status *domain.ASNStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.ASNStatus(raw)
		if !s.IsValid() {
			middleware.AbortWithAppError(c, errors.ErrValidation("invalid asn status: "+raw))
			return
		}
		status = &s
	}

	pagination := parsePagination(c)
	asns, err := h.service.ListASNs(c.Request.Context(), clientID, status, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listEnvelope(asns, len(asns), pagination))
}

// Get fetches one ASN
func (h *ASNHandler) Get(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"client.id": clientID,
		"asn.id":    c.Param("asnId"),
	})

	asn, err := h.service.GetASN(c.Request.Context(), clientID, c.Param("asnId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, asn)
}

// Start begins counting against an ASN
func (h *ASNHandler) Start(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	asn, err := h.service.StartReceiving(c.Request.Context(), clientID, c.Param("asnId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, asn)
}

// RecordReceipt counts received units for a line
func (h *ASNHandler) RecordReceipt(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.RecordReceiptCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.ASNID = c.Param("asnId")

	asn, err := h.service.RecordReceipt(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, asn)
}

// RecordInspection records one per-unit inspection outcome
func (h *ASNHandler) RecordInspection(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.RecordInspectionCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.ASNID = c.Param("asnId")
	if cmd.InspectedBy == "" {
		cmd.InspectedBy = tc.UserID
	}

	asn, err := h.service.RecordInspection(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, asn)
}

// Complete closes out counting, writing the ledger effects and raising
// discrepancies for any variance
func (h *ASNHandler) Complete(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.CompleteReceivingCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.ASNID = c.Param("asnId")

	asn, err := h.service.CompleteReceiving(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, asn)
}

// Close closes a completed ASN
func (h *ASNHandler) Close(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	asn, err := h.service.CloseASN(c.Request.Context(), clientID, c.Param("asnId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, asn)
}

// ForceClose is the manual resolution of an issue ASN by 3PL staff
func (h *ASNHandler) ForceClose(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.ForceCloseASNCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.ASNID = c.Param("asnId")
	cmd.AdminID = tc.UserID

	asn, err := h.service.ForceClose(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, asn)
}

// ListPhotos returns the QC photos captured for an ASN, each carrying its
// retention advisory
func (h *ASNHandler) ListPhotos(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	photos, err := h.service.ListPhotos(c.Request.Context(), clientID, c.Param("asnId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

// ExpectedCount returns the expected-ASN count for the dashboard badge
func (h *ASNHandler) ExpectedCount(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	count, err := h.service.CountExpected(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expectedAsns": count})
}

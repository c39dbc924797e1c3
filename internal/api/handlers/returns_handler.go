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

// ReturnsHandler exposes the warehouse side of returns processing:
// photographing and inspecting lines as they come back
type ReturnsHandler struct {
	service *application.ReturnsService
	logger  *logging.Logger
}

// NewReturnsHandler creates a new ReturnsHandler
func NewReturnsHandler(service *application.ReturnsService, logger *logging.Logger) *ReturnsHandler {
	return &ReturnsHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers returns routes
func (h *ReturnsHandler) RegisterRoutes(r *gin.RouterGroup) {
	returns := r.Group("/returns")
	{
		returns.GET("", h.List)
		returns.GET("/:returnId", h.Get)
		returns.POST("/:returnId/lines/:lineId/photos", h.AttachPhoto)
		returns.POST("/:returnId/lines/:lineId/inspection", h.InspectLine)
	}
}

// List lists a client's returns, optionally filtered by status
func (h *ReturnsHandler) List(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	var status *domain.ReturnStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.ReturnStatus(raw)
		if !s.IsValid() {
			middleware.AbortWithAppError(c, errors.ErrValidation("invalid return status: "+raw))
			return
		}
		status = &s
	}

	pagination := parsePagination(c)
	returns, err := h.service.List(c.Request.Context(), clientID, status, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listEnvelope(returns, len(returns), pagination))
}

// Get fetches one return by its platform id
func (h *ReturnsHandler) Get(c *gin.Context) {
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
		"return.id": c.Param("returnId"),
	})

	r, err := h.service.Get(c.Request.Context(), clientID, c.Param("returnId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// AttachPhoto records a QC photo for a return line. At least one photo must
// exist before the line can be inspected.
func (h *ReturnsHandler) AttachPhoto(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.AttachReturnPhotoCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.ShopifyReturnID = c.Param("returnId")
	cmd.LineID = c.Param("lineId")

	r, err := h.service.AttachPhoto(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// InspectLine assesses a return line and routes it to restock or damaged
// removal
func (h *ReturnsHandler) InspectLine(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.InspectReturnLineCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID
	cmd.ShopifyReturnID = c.Param("returnId")
	cmd.LineID = c.Param("lineId")
	if cmd.InspectedBy == "" {
		cmd.InspectedBy = tc.UserID
	}

	r, err := h.service.InspectLine(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/middleware"
)

// SyncHandler exposes the platform connection lifecycle: OAuth connect and
// callback, disconnect, and manual resync
type SyncHandler struct {
	service      *application.SyncService
	dashboardURL string
	logger       *logging.Logger
}

// NewSyncHandler creates a new SyncHandler. dashboardURL is where the OAuth
// callback sends the browser after the flow ends.
func NewSyncHandler(service *application.SyncService, dashboardURL string, logger *logging.Logger) *SyncHandler {
	return &SyncHandler{
		service:      service,
		dashboardURL: dashboardURL,
		logger:       logger,
	}
}

// RegisterRoutes registers the authenticated connection routes
func (h *SyncHandler) RegisterRoutes(r *gin.RouterGroup) {
	connections := r.Group("/connections")
	{
		connections.POST("", h.Connect)
		connections.GET("", h.GetConnection)
		connections.DELETE("", h.Disconnect)
		connections.POST("/resync", h.Resync)
	}
}

// RegisterCallbackRoutes registers the public OAuth callback
func (h *SyncHandler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	r.GET("/callback", h.Callback)
}

// Connect begins the OAuth flow and returns the platform authorization URL
func (h *SyncHandler) Connect(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}

	var cmd application.ConnectStoreCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	clientID, ok := scopeClientID(c, tc, cmd.ClientID)
	if !ok {
		return
	}
	cmd.ClientID = clientID

	url, err := h.service.BeginOAuth(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorizeUrl": url})
}

// Callback completes the OAuth flow from the platform redirect. The caller is
// the merchant's browser, so the outcome travels back to the dashboard as a
// redirect query flag rather than a JSON body.
func (h *SyncHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	shop := c.Query("shop")
	state := c.Query("state")
	if code == "" || shop == "" || state == "" {
		h.redirectToDashboard(c, "?error=missing_parameters")
		return
	}

	if _, err := h.service.CompleteOAuth(c.Request.Context(), code, shop, state); err != nil {
		flag := strings.ToLower(errors.MapDomainError(err).Code)
		if h.logger != nil {
			h.logger.WithContext(c.Request.Context()).WithError(err).Warn("OAuth callback failed", "shop", shop)
		}
		h.redirectToDashboard(c, "?error="+flag)
		return
	}

	h.redirectToDashboard(c, "?connected=1")
}

func (h *SyncHandler) redirectToDashboard(c *gin.Context, query string) {
	c.Redirect(http.StatusFound, h.dashboardURL+query)
}

// GetConnection returns the client's store connection
func (h *SyncHandler) GetConnection(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	conn, err := h.service.GetConnection(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conn)
}

// Disconnect deactivates the client's store connection
func (h *SyncHandler) Disconnect(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	conn, err := h.service.Disconnect(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conn)
}

// Resync enqueues an inventory push for every active SKU of the client
func (h *SyncHandler) Resync(c *gin.Context) {
	tc, ok := tenantFrom(c)
	if !ok {
		return
	}
	clientID, ok := scopeClientID(c, tc, "")
	if !ok {
		return
	}

	count, err := h.service.TriggerResync(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"enqueued": count})
}

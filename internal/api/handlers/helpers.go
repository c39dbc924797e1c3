package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/api"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/middleware"
	"github.com/fulfillment-platform/portal/pkg/tenant"
)

// respondError maps any error onto the standard API error envelope
func respondError(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		middleware.AbortWithAppError(c, appErr)
		return
	}
	middleware.AbortWithAppError(c, errors.MapDomainError(err))
}

// tenantFrom extracts the request identity, aborting with 401 when absent
func tenantFrom(c *gin.Context) (*tenant.Context, bool) {
	tc, err := tenant.FromContext(c.Request.Context())
	if err != nil {
		middleware.AbortWithAppError(c, errors.ErrUnauthorized(err.Error()))
		return nil, false
	}
	return tc, true
}

// scopeClientID resolves the client a request operates on. Clients are always
// bound to their own scope; admins act on behalf of a client named in the
// request.
func scopeClientID(c *gin.Context, tc *tenant.Context, requested string) (string, bool) {
	if !tc.IsAdmin() {
		return tc.ClientID, true
	}
	if requested != "" {
		return requested, true
	}
	if q := c.Query("clientId"); q != "" {
		return q, true
	}
	if tc.ClientID != "" {
		return tc.ClientID, true
	}
	middleware.AbortWithAppError(c, errors.ErrBadRequest("clientId is required for admin requests"))
	return "", false
}

func parsePagination(c *gin.Context) domain.Pagination {
	pr := api.ParsePagination(c)
	return domain.Pagination{Page: pr.Page, PageSize: pr.PageSize}
}

// listEnvelope wraps list results with the pagination echo the portal UI
// expects
func listEnvelope(items interface{}, count int, p domain.Pagination) gin.H {
	return gin.H{
		"data":     items,
		"count":    count,
		"page":     p.Page,
		"pageSize": p.PageSize,
	}
}

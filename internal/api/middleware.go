package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/middleware"
	"github.com/fulfillment-platform/portal/pkg/tenant"
)

// Identity headers set by the edge proxy after authentication
const (
	HeaderClientID = "X-Portal-Client-Id"
	HeaderUserID   = "X-Portal-User-Id"
	HeaderRole     = "X-Portal-Role"
)

// TenantContext extracts the authenticated identity headers into the request
// context. Every downstream repository query is scoped by the client ID it
// carries; requests without a client scope are rejected unless the caller is
// an admin.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := &tenant.Context{
			ClientID: c.GetHeader(HeaderClientID),
			UserID:   c.GetHeader(HeaderUserID),
			Role:     c.GetHeader(HeaderRole),
		}
		if tc.Role == "" {
			tc.Role = tenant.RoleClient
		}

		if err := tc.Validate(); err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized(err.Error()))
			return
		}

		c.Request = c.Request.WithContext(tenant.ToContext(c.Request.Context(), tc))
		c.Next()
	}
}

// RequireAdmin rejects requests whose identity does not carry the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := tenant.FromContext(c.Request.Context())
		if err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized(err.Error()))
			return
		}
		if err := tc.RequireAdmin(); err != nil {
			middleware.AbortWithAppError(c, errors.ErrForbidden(err.Error()))
			return
		}
		c.Next()
	}
}

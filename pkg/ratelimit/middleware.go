package ratelimit

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/metrics"
	"github.com/fulfillment-platform/portal/pkg/middleware"
)

// KeyFunc derives the logical rate limit key from a request. Returning an
// empty string skips limiting for that request.
type KeyFunc func(c *gin.Context) string

// KeyByShopDomain keys webhook traffic by the shop domain header
func KeyByShopDomain(c *gin.Context) string {
	shop := c.GetHeader("X-Shopify-Shop-Domain")
	if shop == "" {
		return ""
	}
	return "webhook:" + shop
}

// FixedKey keys all traffic through a route under one logical key
func FixedKey(key string) KeyFunc {
	return func(c *gin.Context) string {
		return key
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. Counters are scoped per caller: the stored key is the logical key
// combined with the client IP.
func Middleware(limiter *Limiter, keyFunc KeyFunc, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}
		key = key + ":" + c.ClientIP()

		decision := limiter.Allow(c.Request.Context(), key)
		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))

		if !decision.Allowed {
			if m != nil {
				m.RecordRateLimitRejection(key)
			}

			retryAfter := int64(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))

			middleware.AbortWithAppError(c, errors.ErrRateLimitExceeded())
			return
		}

		c.Next()
	}
}

package ratelimit

import (
	"context"
	"time"

	"github.com/fulfillment-platform/portal/pkg/logging"
)

// Store persists request counts per key. Windows anchor at the first request:
// a hit against a live window bumps its count, a hit after the window lapsed
// starts a fresh one at the hit's time with count 1.
type Store interface {
	// Hit records a request for the key at the given time and returns the
	// count within the key's current window.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)
}

// Config holds rate limiter configuration
type Config struct {
	// MaxRequests is the number of requests allowed per window
	MaxRequests int64

	// Window is the length of the counting window
	Window time.Duration
}

// DefaultConfig returns the default webhook rate limit of 120 requests per minute
func DefaultConfig() Config {
	return Config{
		MaxRequests: 120,
		Window:      time.Minute,
	}
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	RetryAfter time.Duration
}

// Limiter applies a fixed-window count per key. A store failure never blocks
// the request: the limiter fails open and logs the error.
type Limiter struct {
	store  Store
	config Config
	logger *logging.Logger
	now    func() time.Time
}

// NewLimiter creates a rate limiter backed by the given store
func NewLimiter(store Store, config Config, logger *logging.Logger) *Limiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = DefaultConfig().MaxRequests
	}
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	return &Limiter{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Allow records a hit for the key and reports whether it is within the limit.
// Denials always advertise the full window length as the retry delay.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	count, err := l.store.Hit(ctx, key, l.now(), l.config.Window)
	if err != nil {
		// Fail open: a broken store must not reject traffic
		if l.logger != nil {
			l.logger.WithContext(ctx).WithError(err).Warn("rate limit store unavailable, allowing request", "key", key)
		}
		return Decision{Allowed: true, Limit: l.config.MaxRequests}
	}

	if count > l.config.MaxRequests {
		return Decision{
			Allowed:    false,
			Count:      count,
			Limit:      l.config.MaxRequests,
			RetryAfter: l.config.Window,
		}
	}

	return Decision{Allowed: true, Count: count, Limit: l.config.MaxRequests}
}

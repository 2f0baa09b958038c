package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"splitchain/pkg/logger"
)

// RateLimiter implements token bucket algorithm for rate limiting.
// Requests are keyed by the authenticated wallet address when one is
// set, otherwise by client IP.
type RateLimiter struct {
	callers map[string]*caller
	mu      sync.RWMutex
	rate    int           // requests per window
	window  time.Duration // time window
}

type caller struct {
	tokens     int
	lastSeen   time.Time
	blocked    bool
	blockUntil time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*caller),
		rate:    rate,
		window:  window,
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) RateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := AddressFromContext(c)
			if key == "" {
				key = c.RealIP()
			}

			if blocked, resetTime := rl.isBlocked(key); blocked {
				logger.Warn("Rate limit: blocked request from %s (reset in %v)", key, time.Until(resetTime))

				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "Rate limit exceeded",
					"retry_after": int(time.Until(resetTime).Seconds()),
				})
			}

			rl.consume(key)

			return next(c)
		}
	}
}

// isBlocked checks if the caller should be blocked and returns reset time
func (rl *RateLimiter) isBlocked(key string) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	visitor, exists := rl.callers[key]
	if !exists {
		rl.callers[key] = &caller{
			tokens:   rl.rate - 1, // Consume 1 token
			lastSeen: time.Now(),
		}
		return false, time.Time{}
	}

	now := time.Now()

	if visitor.blocked && now.Before(visitor.blockUntil) {
		return true, visitor.blockUntil
	}

	// Reset if block period is over
	if visitor.blocked && now.After(visitor.blockUntil) {
		visitor.blocked = false
		visitor.tokens = rl.rate
		visitor.lastSeen = now
	}

	// Refill tokens based on time passed
	timePassed := now.Sub(visitor.lastSeen)
	tokensToAdd := int(timePassed / rl.window * time.Duration(rl.rate))
	visitor.tokens += tokensToAdd

	if visitor.tokens > rl.rate {
		visitor.tokens = rl.rate
	}

	visitor.lastSeen = now

	if visitor.tokens <= 0 {
		visitor.blocked = true
		visitor.blockUntil = now.Add(rl.window)
		logger.Warn("Rate limiting activated for %s", key)
		return true, visitor.blockUntil
	}

	return false, time.Time{}
}

func (rl *RateLimiter) consume(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if visitor, exists := rl.callers[key]; exists {
		visitor.tokens--
		visitor.lastSeen = time.Now()
	}
}

// cleanup removes stale callers to prevent memory leaks
func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(time.Hour)

		rl.mu.Lock()
		now := time.Now()
		for key, visitor := range rl.callers {
			if now.Sub(visitor.lastSeen) > 2*time.Hour {
				delete(rl.callers, key)
			}
		}
		rl.mu.Unlock()
	}
}

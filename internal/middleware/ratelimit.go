package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/metrics"
	"github.com/meowem-bao/do1ad-assignment2/internal/ratelimit"
)

// RateLimiter enforces a fixed-window budget per client IP.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger

	// store outage warnings are logged at most once a minute
	warnings *rate.Limiter
}

// NewRateLimiter wraps limiter. A nil limiter disables throttling.
func NewRateLimiter(limiter *ratelimit.Limiter, m *metrics.Metrics, logger *zap.Logger) *RateLimiter {
	if limiter == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		limiter:  limiter,
		metrics:  m,
		logger:   logger,
		warnings: rate.NewLimiter(rate.Every(time.Minute), 1),
	}
}

// Handler returns the gin middleware enforcing throttling behaviour.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		decision, err := r.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			if r.warnings.Allow() {
				r.logger.Warn("rate limiter unavailable, allowing request",
					zap.String("scope", r.limiter.Scope()),
					zap.Error(err),
				)
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retry := decision.RetryAfterSeconds()
			h.Set("Retry-After", strconv.Itoa(retry))
			r.metrics.RateLimited(r.limiter.Scope())
			r.logger.Info("rate limited",
				zap.String("scope", r.limiter.Scope()),
				zap.String("client_ip", c.ClientIP()),
				zap.Int("retry_after", retry),
			)
			if render.WantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error":       "rate_limited",
					"message":     "Too many requests. Please slow down.",
					"retry_after": retry,
				})
				return
			}
			render.Error(c, http.StatusTooManyRequests, "rate_limited",
				"Too many requests. Please try again in "+strconv.Itoa(retry)+" seconds.")
			return
		}

		c.Next()
	}
}

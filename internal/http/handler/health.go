package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is implemented by the database pool and the session store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports readiness of the backing services.
type Health struct {
	checks map[string]Pinger
	logger *zap.Logger
}

func NewHealth(checks map[string]Pinger, logger *zap.Logger) *Health {
	if logger == nil {
		logger = zap.L()
	}
	return &Health{checks: checks, logger: logger}
}

// Check pings every dependency with a short deadline.
func (h *Health) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(gin.H, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}

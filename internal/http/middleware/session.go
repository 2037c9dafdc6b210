package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/session"
)

// Sessions loads the session for every request and saves it afterwards.
// A failing store degrades to an anonymous session rather than an error page.
func Sessions(m *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	return func(c *gin.Context) {
		s, err := m.Load(c)
		if err != nil {
			logger.Warn("session load failed", zap.Error(err))
			if s == nil {
				c.AbortWithStatus(500)
				return
			}
		}
		session.Set(c, s)

		c.Next()

		if err := m.Commit(c.Request.Context(), s); err != nil {
			logger.Error("session commit failed", zap.Error(err))
		}
	}
}

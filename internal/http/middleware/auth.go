package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
)

const (
	loginRequiredMessage  = "Please log in to continue."
	sessionExpiredMessage = "Your session has expired. Please log in again."
	unauthorizedErrorCode = "unauthorized"
)

// RequireAuth lets authenticated sessions through. Browsers are sent to the
// login page and come back to the original URL afterwards; JSON clients get 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session.Get(c)
		if ok && s.Authenticated() {
			c.Next()
			return
		}

		message := loginRequiredMessage
		if ok && s.WasExpired() {
			message = sessionExpiredMessage
		}

		if render.WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   unauthorizedErrorCode,
				"message": message,
			})
			return
		}

		if ok {
			if c.Request.Method == http.MethodGet {
				s.SetReturnTo(c.Request.URL.RequestURI())
			}
			// expired sessions already carry their own notice
			if !s.WasExpired() {
				s.AddFlash(session.FlashInfo, message)
			}
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// RequireGuest keeps logged-in users away from the login and register forms.
func RequireGuest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s, ok := session.Get(c); ok && s.Authenticated() {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id.
func CurrentUserID(c *gin.Context) (int64, bool) {
	s, ok := session.Get(c)
	if !ok || !s.Authenticated() {
		return 0, false
	}
	return s.UserID, true
}

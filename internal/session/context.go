package session

import "github.com/gin-gonic/gin"

const contextKey = "session"

// Set attaches s to the request context.
func Set(c *gin.Context, s *Session) {
	c.Set(contextKey, s)
}

// Get returns the session attached by the session middleware.
func Get(c *gin.Context) (*Session, bool) {
	value, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	s, ok := value.(*Session)
	return s, ok && s != nil
}

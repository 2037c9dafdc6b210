package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
)

const (
	CSRFFormField = "_csrf"
	CSRFHeader    = "X-CSRF-Token"
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	// AllowedOrigins lists extra origins besides the request host.
	AllowedOrigins []string
}

// CSRF requires unsafe requests to echo the session's synchronizer token in
// either the _csrf form field or the X-CSRF-Token header. When the browser
// sends Origin (or Referer) it must also point at this site.
func CSRF(config CSRFConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(config.AllowedOrigins))
	for _, origin := range config.AllowedOrigins {
		allowed[normalizeOrigin(origin)] = true
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			c.Next()
			return
		}

		if !sameSite(c.Request, allowed) {
			render.Error(c, http.StatusForbidden, "csrf_failed", "Request origin not allowed.")
			return
		}

		s, ok := session.Get(c)
		if !ok || s.CSRFToken == "" {
			render.Error(c, http.StatusForbidden, "csrf_failed", "Your form has expired. Please reload the page and try again.")
			return
		}

		presented := c.GetHeader(CSRFHeader)
		if presented == "" {
			presented = c.PostForm(CSRFFormField)
		}
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(s.CSRFToken)) != 1 {
			render.Error(c, http.StatusForbidden, "csrf_failed", "Your form has expired. Please reload the page and try again.")
			return
		}

		c.Next()
	}
}

func sameSite(r *http.Request, allowed map[string]bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		if referer := r.Header.Get("Referer"); referer != "" {
			origin = extractOrigin(referer)
		}
	}
	if origin == "" {
		return true
	}
	normalized := normalizeOrigin(origin)
	if allowed[normalized] {
		return true
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// extractOrigin extracts the origin (scheme://host:port) from a URL.
func extractOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "null"
	}
	return parsed.Scheme + "://" + parsed.Host
}

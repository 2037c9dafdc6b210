// Package render chooses between HTML pages and JSON bodies for a request
// and fills in the data every page layout needs.
package render

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

const genericErrorMessage = "Something went wrong. Please try again later."

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.EqualFold(c.GetHeader("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	for _, part := range strings.Split(c.GetHeader("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "application/json":
			return true
		case "text/html", "application/xhtml+xml":
			return false
		}
	}
	return false
}

// Page renders an HTML template with the shared layout data.
func Page(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CSRFToken"] = ""
	if s, ok := session.Get(c); ok {
		if s.Authenticated() {
			data["CurrentUser"] = s
		}
		data["CSRFToken"] = s.CSRF()
		data["Flashes"] = s.PopFlashes()
	}
	data["Phases"] = domain.AllPhases()
	data["Path"] = c.Request.URL.Path
	c.HTML(status, name, data)
}

// Error aborts with status, as an error page or {"error","message"} JSON.
func Error(c *gin.Context, status int, code, message string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
		return
	}
	Page(c, status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
	c.Abort()
}

// Unexpected logs err and answers with a generic 500. The error text is only
// exposed when detail is true (development).
func Unexpected(c *gin.Context, logger *zap.Logger, err error, detail bool) {
	if logger == nil {
		logger = zap.L()
	}
	requestID, _ := c.Get("request_id")
	logger.Error("request failed",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Any("request_id", requestID),
	)

	if WantsJSON(c) {
		body := gin.H{"error": "internal_error", "message": genericErrorMessage}
		if detail {
			body["detail"] = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		return
	}
	data := gin.H{
		"Title":   http.StatusText(http.StatusInternalServerError),
		"Status":  http.StatusInternalServerError,
		"Message": genericErrorMessage,
	}
	if detail {
		data["Detail"] = err.Error()
	}
	Page(c, http.StatusInternalServerError, "error.html", data)
	c.Abort()
}

// ValidationJSON writes 422 {"errors":[{field,message}]}.
func ValidationJSON(c *gin.Context, errs validation.Errors) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
}

// AsValidation extracts validation errors from err.
func AsValidation(err error) (validation.Errors, bool) {
	var verrs validation.Errors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs, true
	}
	return nil, false
}

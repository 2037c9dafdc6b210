// Package handler contains the gin handlers for pages, forms and the JSON API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	httpmiddleware "github.com/meowem-bao/do1ad-assignment2/internal/http/middleware"
	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/service"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

const (
	msgNotFound      = "The page you were looking for could not be found."
	msgForbidden     = "You do not have permission to change this project."
	msgBadRequest    = "The request could not be understood."
	msgLoginRequired = "Please log in to continue."
)

// Handler serves every page and API route.
type Handler struct {
	Auth     *service.AuthService
	Projects *service.ProjectService
	Sessions *session.Manager
	logger   *zap.Logger
	// detail exposes internal error text on 500 responses.
	detail bool
}

// New creates the handler set. detail should only be true in development.
func New(auth *service.AuthService, projects *service.ProjectService, sessions *session.Manager, logger *zap.Logger, detail bool) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{Auth: auth, Projects: projects, Sessions: sessions, logger: logger, detail: detail}
}

// NotFound is the fallback route.
func (h *Handler) NotFound(c *gin.Context) {
	render.Error(c, http.StatusNotFound, "not_found", msgNotFound)
}

// fail translates a service error into a response.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		render.Error(c, http.StatusNotFound, "not_found", msgNotFound)
	case errors.Is(err, domain.ErrForbidden):
		render.Error(c, http.StatusForbidden, "forbidden", msgForbidden)
	case errors.Is(err, domain.ErrUnauthorized):
		render.Error(c, http.StatusUnauthorized, "unauthorized", msgLoginRequired)
	default:
		_ = c.Error(err)
		render.Unexpected(c, h.logger, err, h.detail)
	}
}

// invalid answers a failed form submission: 422 JSON for API clients, the
// form page re-rendered with the violations otherwise.
func (h *Handler) invalid(c *gin.Context, errs validation.Errors, page string, data gin.H) {
	if render.WantsJSON(c) {
		render.ValidationJSON(c, errs)
		return
	}
	data["Errors"] = errs
	render.Page(c, http.StatusUnprocessableEntity, page, data)
}

// bind decodes a form or JSON body into form. It reports false after
// answering 400 when the body is malformed.
func (h *Handler) bind(c *gin.Context, form any) bool {
	if err := c.ShouldBind(form); err != nil {
		h.logger.Debug("bind request", zap.Error(err))
		render.Error(c, http.StatusBadRequest, "bad_request", msgBadRequest)
		return false
	}
	return true
}

// redirect sends browsers to location; JSON clients get status and body.
func redirect(c *gin.Context, location string, status int, body gin.H) {
	if render.WantsJSON(c) {
		if body == nil {
			body = gin.H{}
		}
		body["redirect"] = location
		c.JSON(status, body)
		return
	}
	c.Redirect(http.StatusFound, location)
}

func flash(c *gin.Context, kind, message string) {
	if s, ok := session.Get(c); ok {
		s.AddFlash(kind, message)
	}
}

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) (int64, bool) {
	id, ok := httpmiddleware.CurrentUserID(c)
	if !ok {
		render.Error(c, http.StatusUnauthorized, "unauthorized", msgLoginRequired)
	}
	return id, ok
}

func projectPath(id int64) string {
	return "/project/" + itoa(id)
}

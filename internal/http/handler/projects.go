package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

// Dashboard lists the user's own projects with per-phase counts.
func (h *Handler) Dashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	projects, err := h.Projects.ListByOwner(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.Projects.Stats(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if render.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"projects": projects, "stats": stats})
		return
	}
	render.Page(c, http.StatusOK, "dashboard.html", gin.H{
		"Title":    "Dashboard",
		"Projects": projects,
		"Stats":    stats,
	})
}

// AddProjectPage renders an empty project form.
func (h *Handler) AddProjectPage(c *gin.Context) {
	form := validation.ProjectForm{StartDate: time.Now().Format(domain.DateLayout)}
	render.Page(c, http.StatusOK, "project_form.html", addFormData(form))
}

// AddProject creates a project owned by the current user.
func (h *Handler) AddProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var form validation.ProjectForm
	if !h.bind(c, &form) {
		return
	}

	p, err := h.Projects.Create(c.Request.Context(), userID, &form)
	if err != nil {
		if errs, ok := render.AsValidation(err); ok {
			h.invalid(c, errs, "project_form.html", addFormData(form))
			return
		}
		h.fail(c, err)
		return
	}

	flash(c, session.FlashSuccess, "Project created.")
	if render.WantsJSON(c) {
		c.Header("Location", projectPath(p.ID))
		c.JSON(http.StatusCreated, p)
		return
	}
	c.Redirect(http.StatusFound, projectPath(p.ID))
}

// EditProjectPage renders the edit form for an owned project.
func (h *Handler) EditProjectPage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := projectID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	p, err := h.Projects.Authorize(c.Request.Context(), id, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Page(c, http.StatusOK, "project_form.html", editFormData(id, validation.ProjectFormFrom(p)))
}

// EditProject applies changes to an owned project.
func (h *Handler) EditProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := projectID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	var form validation.ProjectForm
	if !h.bind(c, &form) {
		return
	}

	p, err := h.Projects.Update(c.Request.Context(), id, userID, &form)
	if err != nil {
		if errs, ok := render.AsValidation(err); ok {
			h.invalid(c, errs, "project_form.html", editFormData(id, form))
			return
		}
		h.fail(c, err)
		return
	}

	flash(c, session.FlashSuccess, "Project updated.")
	if render.WantsJSON(c) {
		c.JSON(http.StatusOK, p)
		return
	}
	c.Redirect(http.StatusFound, projectPath(p.ID))
}

// DeleteProject removes an owned project.
func (h *Handler) DeleteProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := projectID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	if err := h.Projects.Delete(c.Request.Context(), id, userID); err != nil {
		h.fail(c, err)
		return
	}
	flash(c, session.FlashSuccess, "Project deleted.")
	redirect(c, "/dashboard", http.StatusOK, gin.H{"deleted": true})
}

func addFormData(form validation.ProjectForm) gin.H {
	return gin.H{"Title": "New project", "Form": form, "Action": "/add-project", "Editing": false}
}

func editFormData(id int64, form validation.ProjectForm) gin.H {
	return gin.H{
		"Title":     "Edit project",
		"Form":      form,
		"Action":    "/edit-project/" + itoa(id),
		"Editing":   true,
		"ProjectID": id,
	}
}

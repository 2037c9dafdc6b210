package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meowem-bao/do1ad-assignment2/internal/service"
)

// APIStats returns global project statistics.
func (h *Handler) APIStats(c *gin.Context) {
	stats, err := h.Projects.Stats(c.Request.Context(), 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// APIRecent returns the newest projects. limit defaults to 10 and is clamped
// to 1..50.
func (h *Handler) APIRecent(c *gin.Context) {
	limit := service.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = min(max(n, 1), service.MaxRecentLimit)
		}
	}
	projects, err := h.Projects.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "limit": limit})
}

// APIProject returns one project.
func (h *Handler) APIProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	p, err := h.Projects.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

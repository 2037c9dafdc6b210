package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	httpmiddleware "github.com/meowem-bao/do1ad-assignment2/internal/http/middleware"
	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/service"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

// Home shows the most recent projects and global stats.
func (h *Handler) Home(c *gin.Context) {
	var (
		recent []domain.Project
		stats  domain.Stats
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		recent, err = h.Projects.Recent(ctx, service.DefaultRecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = h.Projects.Stats(ctx, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(c, err)
		return
	}
	render.Page(c, http.StatusOK, "home.html", gin.H{"Recent": recent, "Stats": stats})
}

// Search runs the public project search.
func (h *Handler) Search(c *gin.Context) {
	var q validation.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.invalid(c, validation.Errors{{Field: "page", Message: "Page must be a positive number."}}, "search.html", gin.H{"Title": "Search", "Query": q})
		return
	}

	result, err := h.Projects.Search(c.Request.Context(), &q)
	data := gin.H{"Title": "Search", "Query": q}
	if err != nil {
		if errs, ok := render.AsValidation(err); ok {
			h.invalid(c, errs, "search.html", data)
			return
		}
		h.fail(c, err)
		return
	}
	if render.WantsJSON(c) {
		c.JSON(http.StatusOK, result)
		return
	}
	data["Result"] = result
	data["PageNum"] = max(q.Page, 1)
	render.Page(c, http.StatusOK, "search.html", data)
}

// Browse lists the projects in one phase.
func (h *Handler) Browse(c *gin.Context) {
	page := pageParam(c)
	phase, result, err := h.Projects.Browse(c.Request.Context(), c.Param("phase"), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	if render.WantsJSON(c) {
		c.JSON(http.StatusOK, result)
		return
	}
	render.Page(c, http.StatusOK, "browse.html", gin.H{
		"Title":   phase.Label(),
		"Phase":   phase,
		"Result":  result,
		"PageNum": page,
	})
}

// ProjectDetail shows a single project to anyone.
func (h *Handler) ProjectDetail(c *gin.Context) {
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
	userID, _ := httpmiddleware.CurrentUserID(c)
	render.Page(c, http.StatusOK, "project.html", gin.H{
		"Title":   p.Title,
		"Project": p,
		"IsOwner": p.OwnedBy(userID),
	})
}

func pageParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

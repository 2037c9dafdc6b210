package http

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/config"
	"github.com/meowem-bao/do1ad-assignment2/internal/http/handler"
	httpmiddleware "github.com/meowem-bao/do1ad-assignment2/internal/http/middleware"
	"github.com/meowem-bao/do1ad-assignment2/internal/http/render"
	"github.com/meowem-bao/do1ad-assignment2/internal/metrics"
	"github.com/meowem-bao/do1ad-assignment2/internal/middleware"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
	"github.com/meowem-bao/do1ad-assignment2/internal/web"
)

// RouterParams collects everything the router wires together. The rate
// limiters may be nil.
type RouterParams struct {
	Config    config.Config
	Handler   *handler.Handler
	Health    *handler.Health
	Sessions  *session.Manager
	Metrics   *metrics.Metrics
	RateLimit *middleware.RateLimiter
	AuthLimit *middleware.RateLimiter
	Logger    *zap.Logger
}

// NewRouter wires Gin routes and middleware.
func NewRouter(p RouterParams) (*gin.Engine, error) {
	cfg := p.Config
	logger := p.Logger
	if logger == nil {
		logger = zap.L()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		render.Unexpected(c, logger, fmt.Errorf("panic: %v", recovered), cfg.IsDevelopment())
	}))
	if p.Metrics != nil {
		r.Use(p.Metrics.Middleware())
	}
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middleware.SecurityHeaders(cfg.SecureCookies))

	// infrastructure routes skip rate limiting and sessions
	r.GET("/healthz", p.Health.Check)
	if p.Metrics != nil {
		r.GET("/metrics", gin.WrapH(p.Metrics.Handler()))
	}
	r.StaticFS("/static", web.Static())

	sessions := httpmiddleware.Sessions(p.Sessions, logger)
	csrf := middleware.CSRF(middleware.CSRFConfig{AllowedOrigins: cfg.AllowedOrigins})

	app := r.Group("/")
	app.Use(p.RateLimit.Handler(), sessions, csrf)

	h := p.Handler
	authLimit := p.AuthLimit.Handler()
	requireAuth := httpmiddleware.RequireAuth()
	guest := httpmiddleware.RequireGuest()

	app.GET("/", h.Home)
	app.GET("/search", h.Search)
	app.GET("/browse/:phase", h.Browse)
	app.GET("/project/:id", h.ProjectDetail)

	app.GET("/login", guest, h.LoginPage)
	app.POST("/login", authLimit, guest, h.Login)
	app.GET("/register", guest, h.RegisterPage)
	app.POST("/register", authLimit, guest, h.Register)
	app.POST("/logout", requireAuth, h.Logout)

	app.GET("/dashboard", requireAuth, h.Dashboard)
	app.GET("/add-project", requireAuth, h.AddProjectPage)
	app.POST("/add-project", requireAuth, h.AddProject)
	app.GET("/edit-project/:id", requireAuth, h.EditProjectPage)
	app.POST("/edit-project/:id", requireAuth, h.EditProject)
	app.POST("/delete-project/:id", requireAuth, h.DeleteProject)

	api := app.Group("/api")
	if len(cfg.AllowedOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodOptions},
			AllowHeaders:     []string{"Accept", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
			AllowCredentials: true,
		}))
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
	api.GET("/stats", h.APIStats)
	api.GET("/recent", h.APIRecent)
	api.GET("/projects/:id", h.APIProject)

	r.NoRoute(sessions, h.NotFound)

	return r, nil
}

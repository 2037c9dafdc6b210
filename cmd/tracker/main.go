package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/meowem-bao/do1ad-assignment2/internal/adapter/cache"
	"github.com/meowem-bao/do1ad-assignment2/internal/bootstrap"
	"github.com/meowem-bao/do1ad-assignment2/internal/config"
	"github.com/meowem-bao/do1ad-assignment2/internal/database"
	"github.com/meowem-bao/do1ad-assignment2/internal/events"
	httptransport "github.com/meowem-bao/do1ad-assignment2/internal/http"
	"github.com/meowem-bao/do1ad-assignment2/internal/http/handler"
	"github.com/meowem-bao/do1ad-assignment2/internal/jwt"
	"github.com/meowem-bao/do1ad-assignment2/internal/metrics"
	"github.com/meowem-bao/do1ad-assignment2/internal/middleware"
	"github.com/meowem-bao/do1ad-assignment2/internal/password"
	"github.com/meowem-bao/do1ad-assignment2/internal/ratelimit"
	"github.com/meowem-bao/do1ad-assignment2/internal/repository"
	"github.com/meowem-bao/do1ad-assignment2/internal/server"
	"github.com/meowem-bao/do1ad-assignment2/internal/service"
	"github.com/meowem-bao/do1ad-assignment2/internal/session"
	"github.com/meowem-bao/do1ad-assignment2/internal/telemetry"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newMetrics,
			newPGXPool,
			newSQLDB,
			newUserRepository,
			newProjectRepository,
			newRedisClient,
			newSessionStore,
			newSessionManager,
			newRateLimiters,
			newPublisher,
			validation.New,
			newPasswordHasher,
			service.NewAuthService,
			service.NewProjectService,
			newHandler,
			newHealth,
			newRouter,
			newHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureSchema, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newMetrics(cfg config.Config) *metrics.Metrics {
	return metrics.New(cfg.ServiceName)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(context.Background(), database.Options{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MaxConnIdleTime: 5 * time.Minute,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newSQLDB(pool *pgxpool.Pool) *sql.DB {
	return database.OpenDB(pool)
}

func newUserRepository(db *sql.DB) repository.UserRepository {
	return repository.NewPostgresUserRepo(db)
}

func newProjectRepository(db *sql.DB) repository.ProjectRepository {
	return repository.NewPostgresProjectRepo(db)
}

// newRedisClient returns nil when neither sessions nor rate limits live in redis.
func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newSessionStore(lc fx.Lifecycle, cfg config.Config, client redis.UniversalClient) session.Store {
	if cfg.SessionStore == config.SessionStoreRedis {
		return cacheadapter.NewRedisSessionStore(client)
	}
	store := session.NewMemoryStore(time.Minute)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()
			return nil
		},
	})
	return store
}

func newSessionManager(cfg config.Config, store session.Store, logger *zap.Logger) (*session.Manager, error) {
	codec, err := jwt.NewSessionCodec(cfg.SessionSecret, 0)
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}
	return session.NewManager(store, codec, session.Options{
		CookieName:  cfg.SessionCookieName,
		IdleTimeout: cfg.SessionIdleTimeout,
		Secure:      cfg.SecureCookies,
	}, logger), nil
}

type rateLimiters struct {
	global *middleware.RateLimiter
	auth   *middleware.RateLimiter
}

func newRateLimiters(lc fx.Lifecycle, cfg config.Config, client redis.UniversalClient, m *metrics.Metrics, logger *zap.Logger) rateLimiters {
	var store ratelimit.Store
	if cfg.RateLimitStore == config.SessionStoreRedis {
		store = ratelimit.NewRedisStore(client)
	} else {
		mem := ratelimit.NewMemoryStore(cfg.RateLimitCleanup)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				mem.Close()
				return nil
			},
		})
		store = mem
	}

	build := func(scope string, limit int, window time.Duration) *middleware.RateLimiter {
		if limit <= 0 || window <= 0 {
			logger.Info("rate limiting disabled", zap.String("scope", scope))
			return nil
		}
		return middleware.NewRateLimiter(ratelimit.New(store, scope, limit, window), m, logger)
	}

	return rateLimiters{
		global: build("global", cfg.RateLimitRequests, cfg.RateLimitWindow),
		auth:   build("auth", cfg.AuthRateLimitRequests, cfg.AuthRateLimitWindow),
	}
}

func newPublisher(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	logger.Info("publishing project events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	return publisher
}

func newPasswordHasher() *password.Hasher {
	return password.NewHasher(password.Params{})
}

func newHandler(cfg config.Config, auth *service.AuthService, projects *service.ProjectService, sessions *session.Manager, logger *zap.Logger) *handler.Handler {
	return handler.New(auth, projects, sessions, logger, cfg.IsDevelopment())
}

func newHealth(pool *pgxpool.Pool, sessions *session.Manager, logger *zap.Logger) *handler.Health {
	return handler.NewHealth(map[string]handler.Pinger{
		"database": pool,
		"sessions": sessions,
	}, logger)
}

func newRouter(cfg config.Config, h *handler.Handler, health *handler.Health, sessions *session.Manager, m *metrics.Metrics, limits rateLimiters, logger *zap.Logger) (*gin.Engine, error) {
	return httptransport.NewRouter(httptransport.RouterParams{
		Config:    cfg,
		Handler:   h,
		Health:    health,
		Sessions:  sessions,
		Metrics:   m,
		RateLimit: limits.global,
		AuthLimit: limits.auth,
		Logger:    logger,
	})
}

func newHTTPServer(router *gin.Engine, cfg config.Config, logger *zap.Logger) *server.HTTPServer {
	return server.NewHTTPServer(router, server.Options{
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}

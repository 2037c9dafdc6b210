package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config contains runtime configuration values.
type Config struct {
	Environment    string
	HTTPPort       string
	ServiceName    string
	ServiceVersion string

	DatabaseURL string
	DBMaxConns  int32

	SessionSecret      string
	SessionCookieName  string
	SessionIdleTimeout time.Duration
	SessionStore       string
	SecureCookies      bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests     int
	RateLimitWindow       time.Duration
	RateLimitCleanup      time.Duration
	RateLimitStore        string
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration

	TrustedProxies []string
	AllowedOrigins []string

	TelemetryEndpoint    string
	TelemetryInsecure    bool
	TelemetrySampleRatio float64

	KafkaBrokers []string
	KafkaTopic   string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// IsDevelopment reports whether internal error detail may be shown to clients.
// Development must be opted into with APP_ENV=development.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:    getEnv("APP_ENV", "production"),
		HTTPPort:       getEnv("HTTP_PORT", getEnv("PORT", "8080")),
		ServiceName:    getEnv("SERVICE_NAME", "project-tracker"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),

		SessionSecret:      os.Getenv("SESSION_SECRET"),
		SessionCookieName:  getEnv("SESSION_COOKIE", "tracker_session"),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 24*time.Hour),
		SessionStore:       strings.ToLower(getEnv("SESSION_STORE", SessionStoreRedis)),
		SecureCookies:      getBool("SECURE_COOKIES", false),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		RateLimitRequests:     getInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:       getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitCleanup:      getDuration("RATE_LIMIT_CLEANUP", time.Minute),
		RateLimitStore:        strings.ToLower(getEnv("RATE_LIMIT_STORE", SessionStoreMemory)),
		AuthRateLimitRequests: getInt("AUTH_RATE_LIMIT_REQUESTS", 10),
		AuthRateLimitWindow:   getDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),

		TrustedProxies: getList("TRUSTED_PROXIES", nil),
		AllowedOrigins: getList("ALLOWED_ORIGINS", nil),

		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		TelemetrySampleRatio: getFloat("OTEL_TRACES_SAMPLER_ARG", 1),

		KafkaBrokers: getList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "tracker.projects"),

		ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL or DB_HOST/DB_USER/DB_NAME is required")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("SESSION_SECRET is required")
		}
		c.SessionSecret = "development-only-session-secret-change-me"
	}
	if !c.IsDevelopment() && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q", SessionStoreRedis, SessionStoreMemory)
	}
	switch c.RateLimitStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be %q or %q", SessionStoreRedis, SessionStoreMemory)
	}
	if c.SessionIdleTimeout <= 0 {
		c.SessionIdleTimeout = 24 * time.Hour
	}
	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 10
	}
	if c.TelemetrySampleRatio < 0 || c.TelemetrySampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
	}
	return nil
}

// UsesRedis reports whether any component needs a redis connection.
func (c Config) UsesRedis() bool {
	return c.SessionStore == SessionStoreRedis || c.RateLimitStore == SessionStoreRedis
}

func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if host == "" || user == "" || name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, os.Getenv("DB_PASSWORD")),
		Host:   host + ":" + getEnv("DB_PORT", "5432"),
		Path:   "/" + name,
	}
	q := u.Query()
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}

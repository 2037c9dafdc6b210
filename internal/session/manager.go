package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const expiredMessage = "Your session has expired. Please log in again."

// CookieCodec turns a session id into a tamper-proof cookie value and back.
type CookieCodec interface {
	Encode(sessionID string) (string, error)
	Decode(value string) (string, error)
}

// Options controls cookie attributes and idle expiry.
type Options struct {
	CookieName  string
	IdleTimeout time.Duration
	Secure      bool
}

// Manager resolves the session cookie to a Session and persists changes.
type Manager struct {
	store  Store
	codec  CookieCodec
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(store Store, codec CookieCodec, opts Options, logger *zap.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "tracker_session"
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, codec: codec, opts: opts, logger: logger, now: time.Now}
}

// retention is how long records and cookies live. It exceeds the idle timeout
// so Load still finds a lapsed login and can report it as expired.
func (m *Manager) retention() time.Duration { return 2 * m.opts.IdleTimeout }

// Load resolves the request cookie. Unknown, forged or missing cookies yield
// a fresh anonymous session. An authenticated session idle for longer than
// IdleTimeout is deleted and replaced by an anonymous one flagged WasExpired.
// Authenticated sessions get their last activity refreshed.
//
// On store errors an anonymous session is returned with the error. It leaves
// the cookie alone and is never committed, so the login survives the outage.
func (m *Manager) Load(c *gin.Context) (*Session, error) {
	ctx := c.Request.Context()
	now := m.now()

	if raw, err := c.Cookie(m.opts.CookieName); err == nil && raw != "" {
		if id, err := m.codec.Decode(raw); err == nil {
			s, err := m.store.Get(ctx, id)
			switch {
			case err != nil:
				tmp, ferr := newSession(now)
				if ferr != nil {
					return nil, ferr
				}
				tmp.transient = true
				return tmp, fmt.Errorf("load session: %w", err)
			case s == nil:
			case s.Authenticated() && s.Expired(now, m.opts.IdleTimeout):
				if err := m.store.Delete(ctx, s.ID); err != nil {
					m.logger.Warn("delete expired session", zap.Error(err))
				}
				fresh, err := m.fresh(c, now)
				if err != nil {
					return nil, err
				}
				fresh.expired = true
				fresh.AddFlash(FlashInfo, expiredMessage)
				return fresh, nil
			default:
				if s.Authenticated() {
					s.Touch(now)
					if err := m.writeCookie(c, s); err != nil {
						return nil, err
					}
				}
				return s, nil
			}
		}
	}

	return m.fresh(c, now)
}

// Commit writes a modified session back to the store.
func (m *Manager) Commit(ctx context.Context, s *Session) error {
	if s == nil || s.destroyed || s.transient || !s.dirty {
		return nil
	}
	if err := m.store.Save(ctx, s, m.retention()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.dirty = false
	return nil
}

// Renew moves s to a new id and a new CSRF token. Call it whenever the
// privilege level changes so a planted session id cannot be reused.
func (m *Manager) Renew(c *gin.Context, s *Session) error {
	oldID := s.ID
	id, err := randomToken(32)
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	if err := m.store.Delete(c.Request.Context(), oldID); err != nil {
		return fmt.Errorf("delete old session: %w", err)
	}
	s.ID = id
	s.transient = false
	s.CSRFToken = ""
	s.CSRF()
	s.Touch(m.now())
	return m.writeCookie(c, s)
}

// Destroy removes the session and expires the cookie.
func (m *Manager) Destroy(c *gin.Context, s *Session) error {
	s.destroyed = true
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if err := m.store.Delete(c.Request.Context(), s.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) fresh(c *gin.Context, now time.Time) (*Session, error) {
	s, err := newSession(now)
	if err != nil {
		return nil, err
	}
	if err := m.writeCookie(c, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) writeCookie(c *gin.Context, s *Session) error {
	value, err := m.codec.Encode(s.ID)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.retention() / time.Second),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

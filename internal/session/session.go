package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

// Flash kinds understood by the templates.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

const maxReturnToLen = 512

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the server-side state behind the session cookie.
type Session struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	CSRFToken    string    `json:"csrf_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Flashes      []Flash   `json:"flashes,omitempty"`
	ReturnTo     string    `json:"return_to,omitempty"`

	dirty     bool
	destroyed bool
	expired   bool
	// transient sessions stand in while the store is unreachable.
	transient bool
}

func newSession(now time.Time) (*Session, error) {
	id, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	return &Session{ID: id, CreatedAt: now, LastActivity: now}, nil
}

// Authenticated reports whether a user is attached.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

// Expired reports whether the session has been idle longer than idle.
func (s *Session) Expired(now time.Time, idle time.Duration) bool {
	return idle > 0 && now.Sub(s.LastActivity) > idle
}

// WasExpired reports whether this request replaced an expired session.
func (s *Session) WasExpired() bool { return s.expired }

// Touch records activity.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
	s.dirty = true
}

// SetUser attaches the authenticated user.
func (s *Session) SetUser(u domain.User) {
	s.UserID = u.ID
	s.Username = u.Username
	s.Email = u.Email
	s.dirty = true
}

// CSRF returns the synchronizer token, creating it on first use.
func (s *Session) CSRF() string {
	if s.CSRFToken == "" {
		token, err := randomToken(32)
		if err != nil {
			return ""
		}
		s.CSRFToken = token
		s.dirty = true
	}
	return s.CSRFToken
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(kind, message string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
	s.dirty = true
}

// PopFlashes returns queued messages and clears them.
func (s *Session) PopFlashes() []Flash {
	if len(s.Flashes) == 0 {
		return nil
	}
	out := s.Flashes
	s.Flashes = nil
	s.dirty = true
	return out
}

// SetReturnTo remembers where to go after login. Anything other than a
// same-site absolute path is ignored.
func (s *Session) SetReturnTo(path string) {
	if !SafeRedirect(path) {
		return
	}
	s.ReturnTo = path
	s.dirty = true
}

// PopReturnTo returns the remembered path, or fallback, and clears it.
func (s *Session) PopReturnTo(fallback string) string {
	target := s.ReturnTo
	if target != "" {
		s.ReturnTo = ""
		s.dirty = true
	}
	if !SafeRedirect(target) {
		return fallback
	}
	return target
}

// Dirty reports whether the session must be written back.
func (s *Session) Dirty() bool { return s.dirty }

// SafeRedirect accepts only local absolute paths such as "/dashboard".
func SafeRedirect(path string) bool {
	if path == "" || len(path) > maxReturnToLen {
		return false
	}
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.HasPrefix(path, `/\`) {
		return false
	}
	u, err := url.Parse(path)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return false
	}
	return true
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

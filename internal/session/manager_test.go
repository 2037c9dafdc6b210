package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/jwt"
)

const testCookie = "tracker_session"

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore(0)
	t.Cleanup(store.Close)
	codec, err := jwt.NewSessionCodec("test-secret-test-secret-test-secret", 0)
	require.NoError(t, err)
	return NewManager(store, codec, Options{CookieName: testCookie, IdleTimeout: 24 * time.Hour}, nil), store
}

func newContext(cookie *http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		c.Request.AddCookie(cookie)
	}
	return c, w
}

func lastCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == testCookie {
			found = ck
		}
	}
	require.NotNil(t, found, "session cookie not set")
	return found
}

func login(t *testing.T, m *Manager) *http.Cookie {
	t.Helper()
	c, w := newContext(nil)
	s, err := m.Load(c)
	require.NoError(t, err)
	s.SetUser(domain.User{ID: 42, Username: "alice", Email: "alice@example.com"})
	require.NoError(t, m.Renew(c, s))
	require.NoError(t, m.Commit(context.Background(), s))
	return lastCookie(t, w)
}

func TestLoadWithoutCookieIsAnonymous(t *testing.T) {
	m, store := newTestManager(t)
	c, w := newContext(nil)

	s, err := m.Load(c)
	require.NoError(t, err)
	require.False(t, s.Authenticated())
	require.NotEmpty(t, s.ID)

	ck := lastCookie(t, w)
	require.True(t, ck.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, ck.SameSite)

	require.NoError(t, m.Commit(context.Background(), s))
	require.Zero(t, store.Len(), "untouched anonymous sessions are not stored")
}

func TestAuthenticatedRoundTripRefreshesActivity(t *testing.T) {
	m, _ := newTestManager(t)
	start := time.Now()
	m.now = func() time.Time { return start }
	ck := login(t, m)

	later := start.Add(23 * time.Hour)
	m.now = func() time.Time { return later }
	c, _ := newContext(ck)
	s, err := m.Load(c)
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	require.Equal(t, "alice", s.Username)
	require.Equal(t, later, s.LastActivity)
	require.True(t, s.Dirty())
	require.NoError(t, m.Commit(context.Background(), s))

	// 23h after the refreshed activity the session is still valid.
	m.now = func() time.Time { return later.Add(23 * time.Hour) }
	c, _ = newContext(ck)
	s, err = m.Load(c)
	require.NoError(t, err)
	require.True(t, s.Authenticated())
}

func TestIdleSessionExpires(t *testing.T) {
	m, store := newTestManager(t)
	now := time.Now()
	clock := func() time.Time { return now }
	m.now = clock
	store.now = clock

	ck := login(t, m)
	require.Equal(t, 1, store.Len())
	require.Equal(t, int((48 * time.Hour).Seconds()), ck.MaxAge, "cookie outlives the idle window")

	now = now.Add(24*time.Hour + time.Second)
	c, _ := newContext(ck)
	s, err := m.Load(c)
	require.NoError(t, err)
	require.False(t, s.Authenticated())
	require.True(t, s.WasExpired())
	require.Equal(t, []Flash{{Kind: FlashInfo, Message: expiredMessage}}, s.PopFlashes())
	require.Zero(t, store.Len(), "expired session deleted")
}

func TestLapsedRecordIsPlainAnonymous(t *testing.T) {
	m, store := newTestManager(t)
	now := time.Now()
	clock := func() time.Time { return now }
	m.now = clock
	store.now = clock

	ck := login(t, m)
	now = now.Add(48*time.Hour + time.Second)
	c, _ := newContext(ck)
	s, err := m.Load(c)
	require.NoError(t, err)
	require.False(t, s.Authenticated())
	require.False(t, s.WasExpired())
}

type flakyStore struct {
	*MemoryStore
	failGets int
}

func (f *flakyStore) Get(ctx context.Context, id string) (*Session, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("connection reset")
	}
	return f.MemoryStore.Get(ctx, id)
}

func TestStoreOutageKeepsLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := NewMemoryStore(0)
	t.Cleanup(mem.Close)
	store := &flakyStore{MemoryStore: mem}
	codec, err := jwt.NewSessionCodec("test-secret-test-secret-test-secret", 0)
	require.NoError(t, err)
	m := NewManager(store, codec, Options{CookieName: testCookie, IdleTimeout: 24 * time.Hour}, nil)

	ck := login(t, m)

	store.failGets = 1
	c, w := newContext(ck)
	s, err := m.Load(c)
	require.Error(t, err)
	require.NotNil(t, s)
	require.False(t, s.Authenticated())
	s.CSRF()
	s.AddFlash(FlashInfo, "hello")
	require.NoError(t, m.Commit(context.Background(), s))
	require.Empty(t, w.Result().Cookies(), "cookie left untouched")
	require.Equal(t, 1, mem.Len(), "stand-in session not stored")

	c, _ = newContext(ck)
	s, err = m.Load(c)
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	require.Equal(t, "alice", s.Username)
}

func TestRenewRotatesID(t *testing.T) {
	m, store := newTestManager(t)
	c, _ := newContext(nil)
	s, err := m.Load(c)
	require.NoError(t, err)
	s.CSRF()
	require.NoError(t, m.Commit(context.Background(), s))
	oldID, oldToken := s.ID, s.CSRFToken

	require.NoError(t, m.Renew(c, s))
	require.NotEqual(t, oldID, s.ID)
	require.NotEqual(t, oldToken, s.CSRFToken)
	got, err := store.Get(context.Background(), oldID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDestroy(t *testing.T) {
	m, store := newTestManager(t)
	ck := login(t, m)

	c, w := newContext(ck)
	s, err := m.Load(c)
	require.NoError(t, err)
	require.NoError(t, m.Destroy(c, s))
	require.NoError(t, m.Commit(context.Background(), s))
	require.Zero(t, store.Len())
	require.Equal(t, -1, lastCookie(t, w).MaxAge)

	c, _ = newContext(ck)
	s, err = m.Load(c)
	require.NoError(t, err)
	require.False(t, s.Authenticated())
}

func TestForgedCookieIsAnonymous(t *testing.T) {
	m, _ := newTestManager(t)
	login(t, m)

	c, _ := newContext(&http.Cookie{Name: testCookie, Value: "forged.value.here"})
	s, err := m.Load(c)
	require.NoError(t, err)
	require.False(t, s.Authenticated())
}

func TestFlashAndReturnToAreSingleRead(t *testing.T) {
	s := &Session{}
	s.AddFlash(FlashSuccess, "Saved")
	require.Len(t, s.PopFlashes(), 1)
	require.Nil(t, s.PopFlashes())

	s.SetReturnTo("/edit-project/5")
	require.Equal(t, "/edit-project/5", s.PopReturnTo("/dashboard"))
	require.Equal(t, "/dashboard", s.PopReturnTo("/dashboard"))

	s.SetReturnTo("https://evil.example/")
	require.Equal(t, "/dashboard", s.PopReturnTo("/dashboard"))
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]bool{
		"/dashboard":          true,
		"/search?q=a&phase=b": true,
		"":                    false,
		"dashboard":           false,
		"//evil.example":      false,
		`/\evil.example`:      false,
		"https://evil":        false,
	}
	for path, want := range cases {
		require.Equal(t, want, SafeRedirect(path), path)
	}
}

func TestMemoryStoreEvictsExpired(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), &Session{ID: "a"}, time.Minute))
	require.NoError(t, store.Save(context.Background(), &Session{ID: "b"}, time.Hour))

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	store.evictExpired()
	require.Equal(t, 1, store.Len())

	got, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = store.Get(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, "b", got.ID)
}

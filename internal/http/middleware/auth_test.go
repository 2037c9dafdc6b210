package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/meowem-bao/do1ad-assignment2/internal/session"
)

func guardedRouter(s *session.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if s != nil {
			session.Set(c, s)
		}
		c.Next()
	})
	r.GET("/dashboard", RequireAuth(), func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	r.GET("/api/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/login", RequireGuest(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequireAuthRedirectsBrowsers(t *testing.T) {
	s := &session.Session{ID: "anon"}
	w := httptest.NewRecorder()
	guardedRouter(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard?tab=mine", nil))

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
	require.Equal(t, "/dashboard?tab=mine", s.ReturnTo)
	require.Len(t, s.Flashes, 1)
	require.Equal(t, loginRequiredMessage, s.Flashes[0].Message)
}

func TestRequireAuthAnswersJSONClientsWith401(t *testing.T) {
	s := &session.Session{ID: "anon"}
	w := httptest.NewRecorder()
	guardedRouter(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/private", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"unauthorized","message":"Please log in to continue."}`, w.Body.String())
	require.Empty(t, s.ReturnTo)
}

func TestRequireAuthPassesAuthenticatedSessions(t *testing.T) {
	s := &session.Session{ID: "s", UserID: 7}
	w := httptest.NewRecorder()
	guardedRouter(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":7}`, w.Body.String())
}

func TestRequireAuthWithoutSession(t *testing.T) {
	w := httptest.NewRecorder()
	guardedRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusFound, w.Code)
}

func TestRequireGuest(t *testing.T) {
	w := httptest.NewRecorder()
	guardedRouter(&session.Session{ID: "s", UserID: 7}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	guardedRouter(&session.Session{ID: "anon"}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

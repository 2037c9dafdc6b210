package render

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

func newContext(method, path string, headers map[string]string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c, w
}

func TestWantsJSON(t *testing.T) {
	cases := []struct {
		path    string
		headers map[string]string
		want    bool
	}{
		{"/api/stats", nil, true},
		{"/dashboard", nil, false},
		{"/dashboard", map[string]string{"Accept": "application/json"}, true},
		{"/dashboard", map[string]string{"Accept": "text/html,application/xhtml+xml,application/json;q=0.9"}, false},
		{"/dashboard", map[string]string{"Accept": "application/json, text/plain, */*"}, true},
		{"/dashboard", map[string]string{"X-Requested-With": "XMLHttpRequest"}, true},
	}
	for _, tc := range cases {
		c, _ := newContext(http.MethodGet, tc.path, tc.headers)
		require.Equal(t, tc.want, WantsJSON(c), "%s %v", tc.path, tc.headers)
	}
}

func TestErrorJSON(t *testing.T) {
	c, w := newContext(http.MethodGet, "/api/projects/1", nil)
	Error(c, http.StatusNotFound, "not_found", "Project not found.")

	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"not_found","message":"Project not found."}`, w.Body.String())
}

func TestUnexpectedHidesDetailOutsideDevelopment(t *testing.T) {
	c, w := newContext(http.MethodGet, "/api/stats", nil)
	Unexpected(c, zap.NewNop(), errors.New("pq: connection refused"), false)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")

	c, w = newContext(http.MethodGet, "/api/stats", nil)
	Unexpected(c, zap.NewNop(), errors.New("pq: connection refused"), true)
	require.Contains(t, w.Body.String(), "connection refused")
}

func TestValidationJSON(t *testing.T) {
	c, w := newContext(http.MethodPost, "/register", map[string]string{"Accept": "application/json"})
	ValidationJSON(c, validation.Errors{{Field: "username", Message: "bad"}})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Errors []validation.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "username", body.Errors[0].Field)

	verrs, ok := AsValidation(validation.Errors{{Field: "x", Message: "y"}})
	require.True(t, ok)
	require.Len(t, verrs, 1)
	_, ok = AsValidation(errors.New("plain"))
	require.False(t, ok)
}

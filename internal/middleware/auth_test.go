package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-storefront/internal/auth"
	"prompt-storefront/internal/config"
)

func newVerifier() *auth.Verifier {
	return auth.NewVerifier("test-secret", "", "")
}

func whoami(c echo.Context) error {
	return c.String(http.StatusOK, UserID(c))
}

func serve(t *testing.T, mw echo.MiddlewareFunc, header string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.GET("/", whoami, mw)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	v := newVerifier()
	token, err := v.GenerateToken("user-1", "a@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := v.GenerateToken("user-1", "a@example.com", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, AuthMiddleware(v), tc.header)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	v := newVerifier()
	token, err := v.GenerateToken("user-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	rec := serve(t, OptionalAuthMiddleware(v), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(t, OptionalAuthMiddleware(v), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())

	rec = serve(t, OptionalAuthMiddleware(v), "Bearer broken")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentity(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := Identity(c)
	assert.Error(t, err)

	c.Set(identityKey, &auth.Identity{UserID: "u", Email: "e@example.com"})
	id, err := Identity(c)
	require.NoError(t, err)
	assert.Equal(t, "u", id.UserID)
}

func TestRateLimiter(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		RateLimiter(config.RateLimit{PerSecond: 0.001, Burst: 2, ExpiresIn: time.Minute}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

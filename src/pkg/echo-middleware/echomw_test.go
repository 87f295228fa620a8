package echomw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

const testHeader = "X-Telegram-Bot-Api-Secret-Token"

func newTestServer(middlewares ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(middlewares...)
	e.POST("/hook", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return e
}

func post(e *echo.Echo, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.RemoteAddr = remoteAddr
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireSecretToken(t *testing.T) {
	e := newTestServer(RequireSecretToken(testHeader, "s3cret"))

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1000", map[string]string{testHeader: "s3cret"}))
	assert.Equal(t, http.StatusUnauthorized, post(e, "10.0.0.1:1000", nil))
	assert.Equal(t, http.StatusUnauthorized, post(e, "10.0.0.1:1000", map[string]string{testHeader: "wrong"}))
	assert.Equal(t, http.StatusUnauthorized, post(e, "10.0.0.1:1000", map[string]string{testHeader: "s3cret-longer"}))
}

func TestRequireSecretTokenFailsClosed(t *testing.T) {
	e := newTestServer(RequireSecretToken(testHeader, "  "))

	assert.Equal(t, http.StatusUnauthorized, post(e, "10.0.0.1:1000", map[string]string{testHeader: ""}))
	assert.Equal(t, http.StatusUnauthorized, post(e, "10.0.0.1:1000", map[string]string{testHeader: "anything"}))
}

func TestRateLimiterPerClient(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	e := newTestServer(limiter.Middleware)

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1000", nil))
	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1000", nil))
	assert.Equal(t, http.StatusTooManyRequests, post(e, "10.0.0.1:1000", nil))

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.2:1000", nil), "other clients have their own budget")
}

func TestRouteAccessLoggerMiddlewarePassesThrough(t *testing.T) {
	e := newTestServer(RouteAccessLoggerMiddleware)

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.1:1000", nil))
}

func TestInitializeConfig(t *testing.T) {
	assert.Equal(t, DefaultValueConfig(), InitializeConfig(nil))

	cfg := InitializeConfig(&Config{Address: "0.0.0.0"})
	assert.Equal(t, "0.0.0.0:8401", cfg.ListenAddress())
	assert.Equal(t, 30, cfg.MiddlewareRateLimit)
	assert.Equal(t, 100, cfg.MiddlewareBurst)
}

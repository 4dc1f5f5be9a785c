package instrument

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type teapotError struct{}

func (teapotError) Error() string   { return "short and stout" }
func (teapotError) StatusCode() int { return 418 }

func newApp(logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(statusFor(err)).SendString(err.Error())
		},
	})
	app.Use(RequestID(), RequestLogger(logger), Metrics())
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestID(c))
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return teapotError{}
	})
	app.Get("/metrics", MetricsHandler())
	return app
}

func TestRequestID(t *testing.T) {
	app := newApp(zap.NewNop())

	resp, err := app.Test(httptest.NewRequest("GET", "/items/1", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	generated := resp.Header.Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, string(body))

	req := httptest.NewRequest("GET", "/items/1", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := newApp(zap.New(core))

	_, err := app.Test(httptest.NewRequest("GET", "/items/7", nil), -1)
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/teapot", nil), -1)
	require.NoError(t, err)

	served := logs.FilterMessage("Request served").All()
	require.Len(t, served, 1)
	assert.Equal(t, "/items/7", served[0].ContextMap()["path"])

	rejected := logs.FilterMessage("Request rejected").All()
	require.Len(t, rejected, 1)
	assert.EqualValues(t, 418, rejected[0].ContextMap()["status"])
}

func TestRequestLogger_FieldsSurviveLaterRequests(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := newApp(zap.New(core))

	paths := []string{"/items/1", "/items/22", "/teapot", "/items/333"}
	for _, path := range paths {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set(RequestIDHeader, "id"+path)
		_, err := app.Test(req, -1)
		require.NoError(t, err)
	}

	entries := logs.All()
	require.Len(t, entries, len(paths))
	for i, entry := range entries {
		fields := entry.ContextMap()
		assert.Equal(t, paths[i], fields["path"])
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "id"+paths[i], fields["request_id"])
	}
}

func TestMetrics(t *testing.T) {
	app := newApp(zap.NewNop())
	ok := httpRequestsTotal.WithLabelValues("GET", "/items/:id", "200")
	teapot := httpRequestsTotal.WithLabelValues("GET", "/teapot", "418")
	okBefore, teapotBefore := testutil.ToFloat64(ok), testutil.ToFloat64(teapot)

	for _, path := range []string{"/items/1", "/items/2", "/teapot"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, teapotBefore+1, testutil.ToFloat64(teapot))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "pcbuild_http_requests_total"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 418, statusFor(teapotError{}))
	assert.Equal(t, 404, statusFor(fiber.ErrNotFound))
	assert.Equal(t, 500, statusFor(io.EOF))
}

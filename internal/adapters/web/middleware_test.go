package web

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"feedthread/pkg/log"
	"feedthread/pkg/log/transporters"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
)

func setupTestApp() *fiber.App {
	app := fiber.New()
	app.Use(requestid.New(RequestIDConfig()))
	app.Use(RequestIDToContextMiddleware())
	return app
}

// captureLogs installs a global logger writing to a buffer. The returned
// func flushes it and returns the output.
func captureLogs(t *testing.T) func() string {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(log.Info, transporters.NewStdoutWithWriter(&buf))
	log.SetDefault(logger)
	t.Cleanup(func() { log.SetDefault(nil) })
	return func() string {
		logger.Close()
		return buf.String()
	}
}

func TestRequestIDToContext_ExtractsIDFromFiber(t *testing.T) {
	app := setupTestApp()

	var capturedRequestID string
	app.Get("/test", func(c *fiber.Ctx) error {
		capturedRequestID = log.RequestIDFromContext(c.UserContext())
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if capturedRequestID == "" {
		t.Error("request_id should be extracted from Fiber's requestid middleware")
	}
	if headerID := resp.Header.Get("X-Request-ID"); headerID != capturedRequestID {
		t.Errorf("response header = %q, context = %q, should match", headerID, capturedRequestID)
	}
}

func TestRequestIDToContext_UsesProvidedID(t *testing.T) {
	app := setupTestApp()

	var capturedRequestID string
	app.Get("/test", func(c *fiber.Ctx) error {
		capturedRequestID = log.RequestIDFromContext(c.UserContext())
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "custom-trace-id-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if capturedRequestID != "custom-trace-id-123" {
		t.Errorf("request_id = %q, want %q", capturedRequestID, "custom-trace-id-123")
	}
}

func TestRequestLoggerMiddleware_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, `"level":"INFO"`},
		{404, `"level":"WARN"`},
		{500, `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(utils.StatusMessage(tt.status), func(t *testing.T) {
			// Arrange
			output := captureLogs(t)
			app := setupTestApp()
			app.Use(RequestLoggerMiddleware())
			app.Get("/test-path", func(c *fiber.Ctx) error {
				return c.Status(tt.status).SendString("body")
			})
			req := httptest.NewRequest("GET", "/test-path", nil)
			req.Header.Set("X-Request-ID", "test-req-123")

			// Act
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			// Assert
			out := output()
			for _, want := range []string{"request completed", "test-req-123", "/test-path", tt.level} {
				if !strings.Contains(out, want) {
					t.Errorf("log should contain %q, got: %s", want, out)
				}
			}
		})
	}
}

func TestRateLimiter_AllowsUpToLimitPerIP(t *testing.T) {
	// Arrange
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	// Act & Assert
	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other IPs have their own budget")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	defer rl.Close()

	rl.Allow("1.1.1.1")
	time.Sleep(30 * time.Millisecond)

	if !rl.Allow("1.1.1.1") {
		t.Error("request after the window should pass")
	}
}

func TestRateLimiter_Middleware_Returns429(t *testing.T) {
	// Arrange
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	app := fiber.New()
	app.Get("/limited", rl.Middleware(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	// Act
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/limited", nil))
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	// Assert
	if codes[0] != fiber.StatusOK || codes[1] != fiber.StatusTooManyRequests {
		t.Errorf("status codes: got %v, want [200 429]", codes)
	}
}

type requestRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *requestRecorder) ObserveRequest(method, route string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, method+" "+route+" "+utils.StatusMessage(status))
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	// Arrange
	rec := &requestRecorder{}
	app := fiber.New()
	app.Use(MetricsMiddleware(rec))
	app.Get("/api/tweet/:username/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	// Act
	resp, err := app.Test(httptest.NewRequest("GET", "/api/tweet/jack/20", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	resp.Body.Close()

	// Assert
	want := "GET /api/tweet/:username/:id Not Found"
	if len(rec.calls) != 1 || rec.calls[0] != want {
		t.Errorf("calls: got %v, want [%s]", rec.calls, want)
	}
}

package web

import (
	"errors"
	"sync"
	"time"

	"feedthread/internal/domain"
	"feedthread/pkg/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// RateLimiter tracks collection requests per IP over a sliding window.
type RateLimiter struct {
	scrapes map[string][]time.Time
	mu      sync.Mutex
	limit   int
	window  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter. Close stops its cleanup.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		scrapes: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow records a request for ip and reports whether it is within the limit.
// Rejected requests are not recorded.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := recentSince(rl.scrapes[ip], now.Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.scrapes[ip] = recent
		return false
	}
	rl.scrapes[ip] = append(recent, now)
	return true
}

// Middleware returns a Fiber middleware rejecting requests over the limit.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.Allow(c.IP()) {
			log.GlobalWarnCtx(c.UserContext(), "rate limited", "ip", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(errorResponse{
				Error:   domain.ErrRateLimited.Error(),
				Message: "Too many requests. Please wait a moment and try again.",
			})
		}
		return c.Next()
	}
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup periodically removes old entries from the rate limiter.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			cutoff := now.Add(-rl.window)
			for ip, timestamps := range rl.scrapes {
				if recent := recentSince(timestamps, cutoff); len(recent) == 0 {
					delete(rl.scrapes, ip)
				} else {
					rl.scrapes[ip] = recent
				}
			}
			rl.mu.Unlock()
		}
	}
}

func recentSince(timestamps []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range timestamps {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}

// RequestRecorder counts served requests.
type RequestRecorder interface {
	ObserveRequest(method, route string, status int)
}

// MetricsMiddleware reports every request by method, route pattern and
// status code.
func MetricsMiddleware(rec RequestRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		rec.ObserveRequest(c.Method(), c.Route().Path, status)
		return err
	}
}

// RequestIDConfig returns the configuration for Fiber's requestid middleware.
// Uses X-Request-ID header, generates UUID if not present.
func RequestIDConfig() requestid.Config {
	return requestid.Config{
		Header:     "X-Request-ID",
		Generator:  uuid.NewString,
		ContextKey: "requestid",
	}
}

// RequestIDToContextMiddleware bridges Fiber's requestid to pkg/log context.
// Must be used AFTER requestid.New() middleware.
func RequestIDToContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get request ID from Fiber's requestid middleware
		reqID := c.Locals("requestid")
		if reqID != nil {
			if id, ok := reqID.(string); ok {
				ctx := log.WithRequestID(c.UserContext(), id)
				c.SetUserContext(ctx)
			}
		}
		return c.Next()
	}
}

// RequestLoggerMiddleware logs HTTP requests in structured JSON format.
// Replaces Fiber's default logger middleware.
// Must be used AFTER RequestIDToContextMiddleware.
func RequestLoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		// Calculate latency
		latency := time.Since(start)

		// Get status code
		status := c.Response().StatusCode()

		// Determine log level based on status
		ctx := c.UserContext()
		fields := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"ip", c.IP(),
			"user_agent", c.Get("User-Agent"),
		}

		// Add error if present
		if err != nil {
			fields = append(fields, "error", err.Error())
		}

		// Log based on status code
		switch {
		case status >= 500:
			log.GlobalErrorCtx(ctx, "request completed", fields...)
		case status >= 400:
			log.GlobalWarnCtx(ctx, "request completed", fields...)
		default:
			log.GlobalInfoCtx(ctx, "request completed", fields...)
		}

		return err
	}
}

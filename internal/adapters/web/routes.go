package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SetupRoutes configures the application routes. metrics may be nil.
func SetupRoutes(app *fiber.App, handlers *Handlers, rateLimiter *RateLimiter, metrics http.Handler) {
	app.Get("/healthz", handlers.Health)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	api := app.Group("/api")
	api.Post("/extract", handlers.Extract)
	api.Post("/thread", handlers.Thread)

	// Mirrors the X URL structure; may drive the browser on a miss.
	// Example: /api/tweet/acgfbr/2006396789411172607
	api.Get("/tweet/:username/:id", rateLimiter.Middleware(), handlers.GetTweet)
}

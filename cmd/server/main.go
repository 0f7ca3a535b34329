package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"feedthread/internal/adapters/browser"
	"feedthread/internal/adapters/cache"
	"feedthread/internal/adapters/metrics"
	"feedthread/internal/adapters/sink"
	"feedthread/internal/adapters/web"
	"feedthread/internal/config"
	"feedthread/internal/extract"
	"feedthread/internal/usecases"
	"feedthread/pkg/log"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log:", err)
		os.Exit(1)
	}
	log.SetDefault(logger)

	err = run(cfg)
	if err != nil {
		log.GlobalError("server stopped", "error", err)
	}
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	selectors, err := loadSelectors(cfg.SelectorsPath)
	if err != nil {
		return err
	}
	defer selectors.Close()

	out, err := sink.New(cfg.Sink, cfg.SinkPath)
	if err != nil {
		return err
	}
	defer out.Close()

	tweetCache := cache.NewMemoryCache(cfg.CacheTTL)
	defer tweetCache.Close()
	m := metrics.New()

	// Initialize use cases
	x := extract.NewExtractor(selectors)
	collectTweet := usecases.NewCollectTweetUseCase(x, out, tweetCache, m)
	collectThread := usecases.NewCollectThreadUseCase(x, out, tweetCache, m)

	var lookup usecases.TweetLookup
	if l, ok := out.(usecases.TweetLookup); ok {
		lookup = l
	}

	var fetcher usecases.PageFetcher
	if pool, err := newBrowserPool(cfg); err != nil {
		log.GlobalWarn("browser unavailable, live lookups disabled", "error", err)
	} else {
		defer pool.Close()
		cookies := loadCookies(cfg.CookiesPath)
		fetcher = browser.NewFetcher(pool, cookies)
	}
	getTweet := usecases.NewGetTweetUseCase(tweetCache, lookup, fetcher, collectTweet)

	// Initialize web handlers
	handlers := web.NewHandlers(collectTweet, collectThread, getTweet)
	rateLimiter := web.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer rateLimiter.Close()

	app := fiber.New(fiber.Config{
		AppName:               "feedthread",
		BodyLimit:             2 * extract.MaxDocumentSize,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(web.RequestIDConfig()))
	app.Use(web.RequestIDToContextMiddleware())
	app.Use(web.RequestLoggerMiddleware())
	app.Use(web.MetricsMiddleware(m))

	web.SetupRoutes(app, handlers, rateLimiter, m.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.GlobalWarn("shutdown incomplete", "error", err)
		}
	}()

	log.GlobalInfo("starting feedthread server", "port", cfg.Port, "sink", cfg.Sink)
	return app.Listen(":" + cfg.Port)
}

// loadSelectors reads the override file, falling back to the compiled-in
// patterns when it does not exist.
func loadSelectors(path string) (*extract.Selectors, error) {
	selectors, err := extract.LoadSelectors(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.GlobalInfo("no selector file, using defaults", "path", path)
		return extract.DefaultSelectors(), nil
	}
	return selectors, err
}

func newBrowserPool(cfg config.Config) (*browser.BrowserPool, error) {
	return browser.NewBrowserPool(
		browser.WithChromePath(cfg.ChromePath),
		browser.WithRemoteURL(cfg.RemoteAllocatorURL),
	)
}

func loadCookies(path string) []*network.Cookie {
	if path == "" {
		return nil
	}
	cookies, err := browser.LoadCookies(path)
	if err != nil {
		log.GlobalWarn("cookies not loaded", "path", path, "error", err)
		return nil
	}
	return cookies
}

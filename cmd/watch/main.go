package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"feedthread/internal/adapters/browser"
	"feedthread/internal/adapters/metrics"
	"feedthread/internal/adapters/sink"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.GlobalError("watcher stopped", "error", err)
	}
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	selectors, err := extract.LoadSelectors(cfg.SelectorsPath)
	if errors.Is(err, fs.ErrNotExist) {
		selectors, err = extract.DefaultSelectors(), nil
	}
	if err != nil {
		return err
	}
	defer selectors.Close()

	out, err := sink.New(cfg.Sink, cfg.SinkPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var cookies []*network.Cookie
	if cfg.CookiesPath != "" {
		if cookies, err = browser.LoadCookies(cfg.CookiesPath); err != nil {
			return fmt.Errorf("load cookies: %w", err)
		}
	}

	pool, err := browser.NewBrowserPool(
		browser.WithChromePath(cfg.ChromePath),
		browser.WithRemoteURL(cfg.RemoteAllocatorURL),
		// a tall viewport renders more of the timeline per scroll step
		browser.WithAllocatorOptions(chromedp.WindowSize(1280, 2400)),
	)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer pool.Close()

	m := metrics.New()
	var handler *usecases.FeedHandler

	tabParent, cancelTab := browser.Linger(ctx, browser.DefaultDrainGrace)
	defer cancelTab()

	err = pool.WithTab(tabParent, func(tabCtx context.Context) error {
		page := browser.NewPage(tabCtx)
		if err := page.SetCookies(cookies); err != nil {
			return err
		}
		if err := page.Navigate(cfg.WatchURL); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		// Saves must outlive the signal so the final drain still lands.
		handler = usecases.NewFeedHandler(context.WithoutCancel(ctx), out, page, nil, m)

		x := extract.NewExtractor(selectors, extract.WithExpander(page))
		lastURL := cfg.WatchURL
		w := extract.NewWatcher(x, handler,
			extract.WithDebounce(cfg.Debounce),
			extract.WithPageURL(func() string {
				if u, err := page.Location(); err == nil && u != "" {
					lastURL = u
				}
				return lastURL
			}),
		)

		log.GlobalInfo("watching feed", "url", cfg.WatchURL, "interval", cfg.WatchInterval.String(), "sink", cfg.Sink)
		return browser.NewFeedDriver(page, w, cfg.WatchInterval, cfg.Scroll).Run(ctx)
	})

	if handler != nil {
		saved, failed := handler.Stats()
		log.GlobalInfo("feed session finished", "saved", saved, "failed", failed)
	}
	return err
}

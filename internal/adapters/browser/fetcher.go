package browser

import (
	"context"
	"fmt"
	"time"

	"feedthread/internal/extract"
	"feedthread/pkg/log"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
)

// DefaultPostWait bounds how long Fetch waits for the first post.
const DefaultPostWait = 15 * time.Second

// Fetcher loads single pages through the pool and returns their snapshot.
type Fetcher struct {
	pool     *BrowserPool
	cookies  []*network.Cookie
	postWait time.Duration
}

// NewFetcher creates a Fetcher that injects cookies into every tab.
func NewFetcher(pool *BrowserPool, cookies []*network.Cookie) *Fetcher {
	return &Fetcher{pool: pool, cookies: cookies, postWait: DefaultPostWait}
}

// Fetch navigates to url and snapshots the rendered page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := f.pool.WithTab(ctx, func(tabCtx context.Context) error {
		page := NewPage(tabCtx)
		if err := page.SetCookies(f.cookies); err != nil {
			return err
		}
		if err := page.Navigate(url); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		page.WaitForPosts(extract.DefaultSelectorSet().Post[0], f.postWait)

		var err error
		doc, err = page.Snapshot()
		return err
	})
	if err != nil {
		log.GlobalWarnCtx(ctx, "fetch page failed", "url", url, "error", err)
		return nil, err
	}
	return doc, nil
}

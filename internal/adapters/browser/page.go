package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedthread/internal/extract"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"
)

// DefaultSettle is the pause after a click before the page is re-read.
const DefaultSettle = 400 * time.Millisecond

// ErrElementGone is returned when a snapshot node has no live counterpart.
var ErrElementGone = errors.New("element no longer in the live page")

// Page is one browser tab. Calls are serialized; a Page is safe to share
// between the feed driver and the watcher's drain.
type Page struct {
	ctx    context.Context
	settle time.Duration
	mu     sync.Mutex
}

// NewPage wraps a chromedp tab context.
func NewPage(tabCtx context.Context) *Page {
	return &Page{ctx: tabCtx, settle: DefaultSettle}
}

func (p *Page) run(actions ...chromedp.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return chromedp.Run(p.ctx, actions...)
}

// SetCookies injects session cookies before navigation.
func (p *Page) SetCookies(cookies []*network.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return p.run(chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			set := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.SameSite != "" {
				set = set.WithSameSite(c.SameSite)
			}
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				set = set.WithExpires(&exp)
			}
			if err := set.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

// Navigate loads url and waits for the body.
func (p *Page) Navigate(url string) error {
	return p.run(
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitForPosts waits up to timeout for the first post to render. A timeout
// is not an error: the page may simply hold no posts.
func (p *Page) WaitForPosts(selector string, timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	_ = chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Location returns the tab's current URL.
func (p *Page) Location() (string, error) {
	var url string
	err := p.run(chromedp.Location(&url))
	return url, err
}

// Snapshot reads the live DOM into a static document.
func (p *Page) Snapshot() (*goquery.Document, error) {
	var outer string
	if err := p.run(chromedp.OuterHTML("html", &outer, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return extract.LoadDocumentString(outer)
}

// Scroll moves the viewport down one screen so the timeline loads more.
func (p *Page) Scroll() error {
	return p.run(chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil))
}

// Expand clicks the live counterpart of affordance and returns a fresh
// copy of root read after the page settles.
func (p *Page) Expand(root, affordance *goquery.Selection) (*goquery.Selection, error) {
	if err := p.evalOn(affordance, `el.click()`); err != nil {
		return nil, fmt.Errorf("click expand: %w", err)
	}
	time.Sleep(p.settle)

	rootPath := CSSPath(root)
	doc, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	fresh := doc.Find(rootPath)
	if fresh.Length() == 0 {
		return nil, ErrElementGone
	}
	return fresh.First(), nil
}

// Mark sets the collected marker on the live counterpart of root.
func (p *Page) Mark(root *goquery.Selection) error {
	return p.evalOn(root, `el.setAttribute(`+strconv.Quote(extract.MarkerAttr)+`, "true")`)
}

// evalOn runs stmt with el bound to the live element addressed by sel's
// CSS path.
func (p *Page) evalOn(sel *goquery.Selection, stmt string) error {
	path := CSSPath(sel)
	if path == "" {
		return ErrElementGone
	}
	script := `(() => { const el = document.querySelector(` + strconv.Quote(path) + `); if (!el) return false; ` + stmt + `; return true; })()`

	var found bool
	if err := p.run(chromedp.Evaluate(script, &found)); err != nil {
		return err
	}
	if !found {
		return ErrElementGone
	}
	return nil
}

// CSSPath returns a selector that addresses sel's first node by
// nth-child steps from the root element.
func CSSPath(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var steps []string
	for n := sel.Nodes[0]; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			steps = append(steps, n.Data)
			break
		}
		idx := 1
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				idx++
			}
		}
		steps = append(steps, n.Data+":nth-child("+strconv.Itoa(idx)+")")
	}
	if len(steps) == 0 {
		return ""
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, " > ")
}

// storedCookies is the on-disk cookie file layout.
type storedCookies struct {
	Cookies []*network.Cookie `json:"cookies"`
}

// LoadCookies reads a cookie file written as {"cookies": [...]} or as a
// bare array of DevTools cookies.
func LoadCookies(path string) ([]*network.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var cookies []*network.Cookie
		if err := json.Unmarshal(data, &cookies); err != nil {
			return nil, fmt.Errorf("parse cookies: %w", err)
		}
		return cookies, nil
	}

	var stored storedCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse cookies: %w", err)
	}
	return stored.Cookies, nil
}

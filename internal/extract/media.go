package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"feedthread/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// mediaHostSuffix identifies the platform's image CDN.
const mediaHostSuffix = "twimg.com"

// imageDenylist marks image URLs or attributes that are never post media.
var imageDenylist = []string{
	"profile_images",
	"profile_banners",
	"profile-image",
	"avatar",
	"emoji",
	"/hashflags/",
	"icon",
	"abs.twimg.com",
	"data:image",
}

// legacySize matches the old ":small" / ":large" suffix form.
var legacySize = regexp.MustCompile(`:(thumb|small|medium|large|orig|\d+x\d+)$`)

// NormalizeImageURL rewrites a CDN image URL to request original quality.
// URLs off the CDN are returned unchanged, and so is any URL that fails to
// parse.
func NormalizeImageURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.HasSuffix(u.Hostname(), mediaHostSuffix) || !strings.Contains(u.Path, "/media/") {
		return raw
	}

	q := u.Query()
	if loc := legacySize.FindStringIndex(u.Path); loc != nil {
		u.Path = u.Path[:loc[0]]
	}
	if ext := path.Ext(u.Path); ext != "" {
		u.Path = strings.TrimSuffix(u.Path, ext)
		if q.Get("format") == "" {
			q.Set("format", strings.TrimPrefix(ext, "."))
		}
	}
	q.Set("name", "orig")
	u.RawQuery = q.Encode()
	u.RawPath = ""

	return u.String()
}

// deniedImage reports whether an image is avatar, emoji or icon chrome.
func deniedImage(src string, el *goquery.Selection) bool {
	haystack := strings.ToLower(src + " " + el.AttrOr("alt", "") + " " + el.AttrOr("class", "") + " " + el.AttrOr("data-testid", ""))
	for _, marker := range imageDenylist {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return el.Closest(`[data-testid="Tweet-User-Avatar"], [data-testid^="UserAvatar"]`).Length() > 0
}

// urlList accumulates URLs in insertion order without duplicates.
type urlList struct {
	seen  map[string]struct{}
	items []string
}

func (l *urlList) add(u string) {
	if u == "" {
		return
	}
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	if _, ok := l.seen[u]; ok {
		return
	}
	l.seen[u] = struct{}{}
	l.items = append(l.items, u)
}

func (l *urlList) list() []string {
	if l.items == nil {
		return []string{}
	}
	return l.items
}

// extractMedia gathers images and videos from every media pattern.
// Broad patterns are allowed to over-collect; the denylist and URL
// deduplication remove false positives.
func extractMedia(root *goquery.Selection, set SelectorSet) domain.TweetMedia {
	var images, videos urlList

	for _, q := range set.Images {
		query(root, q).Each(func(_ int, img *goquery.Selection) {
			if insideQuote(img, root) {
				return
			}
			src := strings.TrimSpace(img.AttrOr("src", ""))
			if src == "" || deniedImage(src, img) {
				return
			}
			images.add(NormalizeImageURL(src))
		})
	}

	for _, q := range set.Videos {
		query(root, q).Each(func(_ int, v *goquery.Selection) {
			if insideQuote(v, root) {
				return
			}
			for _, src := range videoSources(v) {
				videos.add(src)
			}
		})
	}

	return domain.TweetMedia{Images: images.list(), Videos: videos.list()}
}

// videoSources returns the downloadable sources of a video element.
// blob: sources are not addressable outside the page, so the poster image
// is recorded in their place.
func videoSources(v *goquery.Selection) []string {
	var out []string
	addSrc := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		if strings.HasPrefix(src, "blob:") {
			if poster := strings.TrimSpace(v.AttrOr("poster", "")); poster != "" {
				out = append(out, poster)
			}
			return
		}
		out = append(out, src)
	}

	addSrc(v.AttrOr("src", ""))
	v.Find("source[src]").Each(func(_ int, s *goquery.Selection) {
		addSrc(s.AttrOr("src", ""))
	})
	return out
}

// insideQuote reports whether el belongs to a quoted post nested in root.
func insideQuote(el, root *goquery.Selection) bool {
	quote := el.Closest(`[data-testid="quoteTweet"]`)
	if quote.Length() == 0 {
		return false
	}
	return root.Contains(quote.Nodes[0])
}

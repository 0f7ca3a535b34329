package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"feedthread/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// minTextLength is the classifier threshold for plain body text.
const minTextLength = 3

var (
	reHandle       = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
	reLeadingCount = regexp.MustCompile(`^([\d.,]+(?:\s?[KkMmBb]\b|\s?[万亿千])?)`)
	rePermalink    = regexp.MustCompile(`^/([A-Za-z0-9_]{1,15})/status/(\d+)`)
	reMediaSuffix  = regexp.MustCompile(`/(photo|video)/\d+/?$|/analytics/?$|/quotes/?$|/retweets/?$|/likes/?$`)
)

// reservedSegments are first path segments that never name an account.
var reservedSegments = map[string]bool{
	"i": true, "home": true, "search": true, "explore": true, "notifications": true,
	"messages": true, "hashtag": true, "settings": true, "compose": true, "intent": true,
	"share": true, "login": true, "logout": true, "tos": true, "privacy": true,
}

// userInfo holds the author fields of one post.
type userInfo struct {
	name   string
	handle string
	avatar string
}

// extractUserInfo runs the name, handle and avatar chains.
func extractUserInfo(root *goquery.Selection, set SelectorSet) userInfo {
	return userInfo{
		name:   extractUserName(root, set),
		handle: extractUserHandle(root, set),
		avatar: firstValue(root, rules(set.AuthorAvatar, readAttr("src")), nil),
	}
}

// extractUserName returns the display name, skipping "@handle" spans and
// separators that live inside the same container.
func extractUserName(root *goquery.Selection, set SelectorSet) string {
	return firstValue(root, rules(set.AuthorName, readText), func(v string, _ *goquery.Selection) bool {
		return !strings.HasPrefix(v, "@") && v != "·" && !IsUIChrome(v)
	})
}

// extractUserHandle resolves the handle from link targets first, then from
// visible "@handle" text.
func extractUserHandle(root *goquery.Selection, set SelectorSet) string {
	fromLink := firstValue(root, rules(set.AuthorHandle, readAttr("href")), func(v string, _ *goquery.Selection) bool {
		return HandleFromPath(v) != ""
	})
	if fromLink != "" {
		return HandleFromPath(fromLink)
	}

	atText := firstValue(root, rules(set.AuthorName, readText), func(v string, _ *goquery.Selection) bool {
		return strings.HasPrefix(v, "@") && reHandle.MatchString(strings.TrimPrefix(v, "@"))
	})
	return strings.TrimPrefix(atText, "@")
}

// HandleFromPath derives an account handle from a link target such as
// "/alice", "/@alice", "/alice/status/1" or "https://x.com/alice".
// It returns "" when the first segment is not a plausible handle.
func HandleFromPath(href string) string {
	p := href
	if u, err := url.Parse(href); err == nil && u.Host != "" {
		p = u.Path
	}
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, "@")
	seg, _, _ := strings.Cut(p, "/")
	seg, _, _ = strings.Cut(seg, "?")
	if !reHandle.MatchString(seg) || reservedSegments[strings.ToLower(seg)] {
		return ""
	}
	return seg
}

// extractText returns the first classifier-approved body text.
func extractText(root *goquery.Selection, set SelectorSet) string {
	for _, q := range set.Text {
		var text string
		query(root, q).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if insideQuote(el, root) || insideIdentity(el, root) {
				return true
			}
			t := textOf(el)
			if !IsContent(t, el, minTextLength) {
				return true
			}
			text = t
			return false
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// insideIdentity reports whether el sits in a link, timestamp or user-name
// region of root. Such elements are never body content.
func insideIdentity(el, root *goquery.Selection) bool {
	region := el.Closest(`a, time, [data-testid="User-Name"]`)
	if region.Length() == 0 {
		return false
	}
	return root.Contains(region.Nodes[0]) || sameNode(region, root)
}

// extractStats reads the three engagement counters.
func extractStats(root *goquery.Selection, set SelectorSet) domain.TweetStats {
	return domain.TweetStats{
		Replies:  extractCount(root, set.Replies),
		Retweets: extractCount(root, set.Retweets),
		Likes:    extractCount(root, set.Likes),
	}
}

// extractCount returns the displayed counter of the first matching button.
// An empty visible label falls back to the leading number of aria-label,
// and a present button with no number reads "0".
func extractCount(root *goquery.Selection, queries []string) string {
	for _, q := range queries {
		btn := query(root, q).First()
		if btn.Length() == 0 {
			continue
		}
		if text := readText(btn); text != "" && reLeadingCount.MatchString(text) {
			return text
		}
		if m := reLeadingCount.FindStringSubmatch(strings.TrimSpace(btn.AttrOr("aria-label", ""))); m != nil {
			return strings.TrimSpace(m[1])
		}
		return "0"
	}
	return "0"
}

// extractPermalink returns the absolute URL of the post itself.
func extractPermalink(root *goquery.Selection, set SelectorSet, pageURL string) string {
	href := firstValue(root, rules(set.Permalink, readAttr("href")), func(v string, el *goquery.Selection) bool {
		return strings.Contains(v, "/status/") && !insideQuote(el, root)
	})
	if href == "" {
		return ""
	}
	return absoluteURL(reMediaSuffix.ReplaceAllString(href, ""), pageURL)
}

// extractTweetTime returns the authored time in RFC 3339 when parseable,
// otherwise the raw datetime attribute.
func extractTweetTime(root *goquery.Selection, set SelectorSet) string {
	raw := firstValue(root, rules(set.Time, readAttr("datetime")), func(_ string, el *goquery.Selection) bool {
		return !insideQuote(el, root)
	})
	if raw == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return raw
}

// absoluteURL resolves href against the page address.
func absoluteURL(href, pageURL string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		base = &url.URL{Scheme: "https", Host: "x.com"}
	}
	return base.ResolveReference(ref).String()
}

// StatusFromURL splits a permalink into handle and status ID.
func StatusFromURL(link string) (handle, statusID string) {
	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	}
	m := rePermalink.FindStringSubmatch(p)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// applyAuthorFallback guarantees that name and handle are not both empty.
// The permalink's account segment is tried first, then the page URL's
// first path segment; as a last resort the handle doubles as the name.
func applyAuthorFallback(data *domain.TweetData) {
	if data.UserHandle == "" {
		if h, _ := StatusFromURL(data.TweetURL); h != "" {
			data.UserHandle = h
		}
	}
	if data.UserHandle == "" && data.UserName == "" {
		data.UserHandle = HandleFromPath(data.URL)
	}
	if data.UserName == "" {
		data.UserName = data.UserHandle
	}
	if data.UserName == "" && data.UserHandle == "" {
		data.UserName = UnknownAuthor
	}
}

// UnknownAuthor is the display name used when no author signal exists at all.
const UnknownAuthor = "unknown"

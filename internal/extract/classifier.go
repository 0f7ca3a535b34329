package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// LongContentLength is the length at which text counts as prose without
	// any other signal.
	LongContentLength = 50

	// linkSlack is how much longer than its text a link may be and still
	// count as wrapping it tightly.
	linkSlack = 10
)

// chromePatterns match interface strings that are never post content.
// English and Simplified Chinese UI labels are both covered.
var chromePatterns = []*regexp.Regexp{
	// pure digits, long digit runs and formatted counters
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^[\d.,]+\s*[KkMmBb万亿千]?$`),
	// a handle on its own
	regexp.MustCompile(`^@\w{1,15}$`),
	// relative durations: 2h, 5m, 3 d, 10分钟, 2小时前
	regexp.MustCompile(`^\d+\s*[smhdwy]$`),
	regexp.MustCompile(`^\d+\s*(秒|分钟|小时|天|周|个月|年)前?$`),
	// clock times: 14:30, 2:30 PM
	regexp.MustCompile(`(?i)^\d{1,2}:\d{2}(\s*[ap]\.?m\.?)?$`),
	regexp.MustCompile(`^(上午|下午)\s*\d{1,2}:\d{2}$`),
	// action buttons
	regexp.MustCompile(`(?i)^(reply|replies|repost|reposts|retweet|retweets|undo repost|like|likes|unlike|share|share post|bookmark|bookmarks|view|views|quote|quotes|follow|following|unfollow|more|show more|show less|read more|translate post|translate|show this thread|show replies|post|subscribe|copy link|embed post)$`),
	regexp.MustCompile(`^(回复|转帖|转推|撤销转帖|喜欢|取消喜欢|分享|书签|查看|引用|关注|正在关注|取消关注|更多|显示更多|显示更少|翻译帖子|翻译|显示此帖子串|订阅|复制链接)$`),
	// pinned labels
	regexp.MustCompile(`(?i)^(pinned|pinned post|pinned tweet)$`),
	regexp.MustCompile(`^(已置顶|置顶|置顶帖子)$`),
	// premium upsell prompts
	regexp.MustCompile(`(?i)^(subscribe to premium|upgrade to premium|get verified|only premium\+? subscribers?|订阅\s*premium|获得认证).{0,40}$`),
	// counters with a unit: "1.2K Views", "35 replies", "3万 次查看"
	regexp.MustCompile(`(?i)^[\d.,]+\s*[KkMmBb万亿千]?\s*(replies|reply|reposts|repost|retweets|likes|like|views|view|quotes|bookmarks|次查看|查看|回复|转帖|喜欢|引用|书签)$`),
	// dates: "Jan 5", "Jan 5, 2026", "12:00 PM · Jan 1, 2026", "2026-01-05", "2026年1月5日", "1月5日"
	regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(,\s*\d{4})?$`),
	regexp.MustCompile(`(?i)^\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?(\s+\d{4})?$`),
	regexp.MustCompile(`(?i)^\d{1,2}:\d{2}\s*([ap]\.?m\.?)?\s*·\s*(\p{L}{3,9}\.?\s+\d{1,2},\s*\d{4}|\d{1,2}\s+\p{L}{3,9}\.?\s+\d{4})$`),
	regexp.MustCompile(`^(上午|下午)?\s*\d{1,2}:\d{2}\s*·\s*\d{4}年\d{1,2}月\d{1,2}日$`),
	regexp.MustCompile(`^\d{4}[-/.]\d{1,2}[-/.]\d{1,2}$`),
	regexp.MustCompile(`^(\d{4}年)?\d{1,2}月\d{1,2}日$`),
	// whitespace or punctuation only
	regexp.MustCompile(`^[\s\p{P}\p{S}]*$`),
}

// IsUIChrome reports whether text matches one of the interface-chrome
// patterns (counters, handles, durations, buttons, dates and the like).
func IsUIChrome(text string) bool {
	t := strings.TrimSpace(text)
	for _, re := range chromePatterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// IsContent decides whether text taken from el is genuine body content.
// Text of LongContentLength runes or more from an element carrying lang or
// dir is always content. Otherwise rejection runs first: too short,
// interface chrome, or tightly wrapped by a link. A lang or dir element is
// then accepted outright; anything else needs LongContentLength runes. el
// may be nil for a purely lexical check.
func IsContent(text string, el *goquery.Selection, minLen int) bool {
	t := strings.TrimSpace(text)
	if t == "" || runeLen(t) < minLen {
		return false
	}
	tagged := el != nil && el.Length() > 0 && hasLanguageSignal(el)
	if tagged && runeLen(t) >= LongContentLength {
		return true
	}
	if IsUIChrome(t) {
		return false
	}
	if el != nil && el.Length() > 0 {
		if wrappedByLink(t, el) {
			return false
		}
		if tagged {
			return true
		}
	}
	return runeLen(t) >= LongContentLength
}

// hasLanguageSignal reports whether el carries a lang or dir attribute.
func hasLanguageSignal(el *goquery.Selection) bool {
	if _, ok := el.Attr("lang"); ok {
		return true
	}
	_, ok := el.Attr("dir")
	return ok
}

// wrappedByLink reports whether the nearest enclosing link holds little more
// than text itself. Short link-wrapped strings are affordances, not prose.
func wrappedByLink(text string, el *goquery.Selection) bool {
	if runeLen(text) >= LongContentLength {
		return false
	}
	link := el.Closest("a")
	if link.Length() == 0 {
		return false
	}
	linkText := cleanText(link.Text())
	return runeLen(linkText) <= runeLen(text)+linkSlack
}

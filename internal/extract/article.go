package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// MinArticleLength is the length a cleaned article must exceed.
	MinArticleLength = 50

	// minBlockLength is the length a text block needs to be kept.
	minBlockLength = 20

	// minCandidateLength is the classifier threshold for article candidates.
	minCandidateLength = 10
)

// longFormSelector matches the containers of long-form articles.
const longFormSelector = `[data-testid="twitterArticleRichTextView"], [data-testid="longformRichTextComponent"]`

// blockSelector lists the text-bearing descendants scanned for blocks.
const blockSelector = "div, p, span, li, h1, h2, h3, blockquote"

// expandVocabulary matches expand affordance labels in both UI languages.
var expandVocabulary = regexp.MustCompile(`(?i)^(show more|read more|expand|see more|显示更多|展开|阅读更多|查看更多)$`)

var (
	reHandlePrefix  = regexp.MustCompile(`^(\s*@\w{1,15}\s*[·:]?\s*)+`)
	rePremiumSuffix = regexp.MustCompile(`(?i)\s*(subscribe to premium|upgrade to premium|get verified|only premium\+? subscribers?|订阅\s*premium|获得认证)[\s\S]*$`)
	reCountSuffix   = regexp.MustCompile(`(?i)(\s*[\d.,]+\s*[KkMmBb万亿千]?\s*(views?|replies|reply|reposts?|retweets?|likes?|quotes?|bookmarks?|次查看|查看|回复|转帖|喜欢|引用|书签))+\s*$`)
	reLongID        = regexp.MustCompile(`\b\d{15,}\b`)
	reNumbered      = regexp.MustCompile(`([^\n])[ \t]+(\d{1,2}[.、)][ \t]+)`)
	reSection       = regexp.MustCompile(`([^\n])[ \t]*((?:Summary|Conclusion|TL;DR|Background|Introduction|Key takeaways|Update):|(?:总结|背景|结论)：)`)
)

// markupPolicy drops every tag and keeps only text.
var markupPolicy = bluemonday.StrictPolicy()

// Expander triggers an expand affordance inside a post root. It returns the
// post root to read afterwards, which may be a refreshed copy.
type Expander interface {
	Expand(root, affordance *goquery.Selection) (*goquery.Selection, error)
}

// NopExpander leaves static documents untouched.
type NopExpander struct{}

// Expand returns root unchanged.
func (NopExpander) Expand(root, _ *goquery.Selection) (*goquery.Selection, error) {
	return root, nil
}

// findExpander returns the first element whose accessible label or visible
// text reads like "show more".
func findExpander(root *goquery.Selection, set SelectorSet) *goquery.Selection {
	for _, q := range set.Expand {
		var found *goquery.Selection
		query(root, q).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			label := cleanText(el.AttrOr("aria-label", ""))
			if expandVocabulary.MatchString(label) || expandVocabulary.MatchString(readText(el)) {
				found = el
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// bestArticleCandidate returns the article-shaped element with the longest
// classifier-approved text. Ties keep the higher-ranked pattern.
func bestArticleCandidate(root *goquery.Selection, set SelectorSet) *goquery.Selection {
	var (
		best    *goquery.Selection
		bestLen int
	)
	for _, q := range set.Article {
		query(root, q).Each(func(_ int, el *goquery.Selection) {
			if insideIdentity(el, root) || insideQuote(el, root) {
				return
			}
			text := textOf(el)
			if !IsContent(text, el, minCandidateLength) {
				return
			}
			if n := runeLen(text); n > bestLen {
				best, bestLen = el, n
			}
		})
	}
	return best
}

// isLongForm reports whether el is, or sits inside, a long-form container.
func isLongForm(el *goquery.Selection) bool {
	return el.Closest(longFormSelector).Length() > 0
}

// articleBlocks returns the text of el and of each block in its subtree, in
// document order.
func articleBlocks(el *goquery.Selection) []string {
	var blocks []string
	if t := textOf(el); t != "" {
		blocks = append(blocks, t)
	}
	el.Find(blockSelector).Each(func(_ int, b *goquery.Selection) {
		if t := textOf(b); t != "" {
			blocks = append(blocks, t)
		}
	})
	return blocks
}

// BuildArticle turns raw candidate blocks into cleaned article text, or ""
// when nothing long enough survives.
func BuildArticle(blocks []string) string {
	return buildFromBlocks(DedupeBlocks(FilterBlocks(blocks)))
}

func buildFromBlocks(kept []string) string {
	text := CleanArticle(LongestBlock(kept))
	if runeLen(text) <= MinArticleLength {
		return ""
	}
	return text
}

// FilterBlocks keeps blocks longer than the block threshold that are not
// interface chrome.
func FilterBlocks(blocks []string) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if runeLen(b) <= minBlockLength || IsUIChrome(b) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// DedupeBlocks drops every block whose text is a substring or superstring of
// a block kept before it. Comparison ignores whitespace differences.
func DedupeBlocks(blocks []string) []string {
	var (
		out  []string
		keys []string
	)
	for _, b := range blocks {
		key := cleanText(b)
		dup := false
		for _, k := range keys {
			if strings.Contains(k, key) || strings.Contains(key, k) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, b)
		keys = append(keys, key)
	}
	return out
}

// LongestBlock returns the longest block; the earliest wins a tie.
func LongestBlock(blocks []string) string {
	var best string
	for _, b := range blocks {
		if runeLen(b) > runeLen(best) {
			best = b
		}
	}
	return best
}

// CleanArticle strips boilerplate from article text and restores paragraph
// breaks before numbered items and section headers.
func CleanArticle(text string) string {
	text = html.UnescapeString(markupPolicy.Sanitize(text))
	text = reHandlePrefix.ReplaceAllString(text, "")
	text = rePremiumSuffix.ReplaceAllString(text, "")
	text = reCountSuffix.ReplaceAllString(text, "")
	text = reLongID.ReplaceAllString(text, "")
	text = cleanTextPreserveNewlines(text)
	text = reNumbered.ReplaceAllString(text, "$1\n\n$2")
	text = reSection.ReplaceAllString(text, "$1\n\n$2")
	return strings.TrimSpace(text)
}

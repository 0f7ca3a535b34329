package extract

import (
	"time"

	"feedthread/internal/domain"
	"feedthread/pkg/log"

	"github.com/PuerkitoBio/goquery"
)

// Extractor turns post roots into TweetData records.
type Extractor struct {
	selectors *Selectors
	expander  Expander
	now       func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExpander sets the component that triggers "show more" affordances.
func WithExpander(e Expander) Option {
	return func(x *Extractor) {
		if e != nil {
			x.expander = e
		}
	}
}

// WithClock overrides the collection timestamp source.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) {
		if now != nil {
			x.now = now
		}
	}
}

// NewExtractor creates an Extractor reading patterns from selectors.
// A nil selectors uses the compiled-in defaults.
func NewExtractor(selectors *Selectors, opts ...Option) *Extractor {
	if selectors == nil {
		selectors = DefaultSelectors()
	}
	x := &Extractor{
		selectors: selectors,
		expander:  NopExpander{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Selectors returns the pattern set in use.
func (x *Extractor) Selectors() SelectorSet {
	return x.selectors.Current()
}

// Extract runs the full pipeline over one post root: user info, content,
// media, stats and metadata. Missing fields are left empty. The only error
// is ErrDetachedElement, for a root that is empty or not part of a document.
func (x *Extractor) Extract(root *goquery.Selection, pageURL string) (*domain.TweetData, error) {
	if !attached(root) {
		return nil, domain.ErrDetachedElement
	}
	root = root.First()
	set := x.selectors.Current()

	user := extractUserInfo(root, set)
	data := &domain.TweetData{
		UserName:   user.name,
		UserHandle: user.handle,
		Avatar:     user.avatar,
		Timestamp:  x.now().UTC().Format(time.RFC3339),
		URL:        pageURL,
	}

	data.Text = x.extractContent(root, set)
	if !attached(root) {
		return nil, domain.ErrDetachedElement
	}

	data.Media = extractMedia(root, set)
	data.Stats = extractStats(root, set)
	data.TweetURL = extractPermalink(root, set, pageURL)
	data.TweetTime = extractTweetTime(root, set)

	applyAuthorFallback(data)

	return data, nil
}

// extractContent prefers long-form article text and falls back to the
// ordinary body text.
func (x *Extractor) extractContent(root *goquery.Selection, set SelectorSet) string {
	if text := x.extractArticle(root, set); text != "" {
		return text
	}
	return extractText(root, set)
}

// extractArticle expands a collapsed post when possible and runs the
// article chain over the best candidate. Ordinary posts return "": the chain
// only applies after an expansion, inside a long-form container, or when
// several distinct blocks compete.
func (x *Extractor) extractArticle(root *goquery.Selection, set SelectorSet) string {
	source := root
	affordance := findExpander(root, set)
	if affordance != nil {
		expanded, err := x.expander.Expand(root, affordance)
		switch {
		case err != nil:
			log.GlobalDebug("expand affordance failed", "error", err.Error())
		case attached(expanded):
			source = expanded.First()
		}
	}

	candidate := bestArticleCandidate(source, set)
	if candidate == nil {
		return ""
	}
	blocks := DedupeBlocks(FilterBlocks(articleBlocks(candidate)))
	if affordance == nil && !isLongForm(candidate) && len(blocks) < 2 {
		return ""
	}
	return buildFromBlocks(blocks)
}

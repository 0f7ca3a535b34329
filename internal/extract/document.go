package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"feedthread/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// MaxDocumentSize limits HTML input to 10MB.
const MaxDocumentSize = 10 * 1024 * 1024

// LoadDocumentString parses an HTML document held in memory.
func LoadDocumentString(s string) (*goquery.Document, error) {
	return LoadDocument(strings.NewReader(s))
}

// LoadDocument parses HTML after detecting and converting its charset.
func LoadDocument(r io.Reader) (*goquery.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	if len(data) > MaxDocumentSize {
		return nil, domain.ErrDocumentTooLarge
	}

	contentType := "text/html"
	if cs := detectCharset(data); cs != "" {
		contentType += "; charset=" + cs
	}
	utf8Reader, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return goquery.NewDocumentFromReader(bytes.NewReader(data))
	}
	return goquery.NewDocumentFromReader(utf8Reader)
}

// detectCharset returns the most likely charset name. An empty result
// leaves the decision to the document's own meta declaration.
func detectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	result, err := chardet.NewHtmlDetector().DetectBest(data)
	if err != nil || result == nil || result.Confidence < 50 {
		return ""
	}
	return strings.ToLower(result.Charset)
}

// PostRoots returns the post-like elements below root in document order,
// using the first post pattern that matches anything.
func PostRoots(root *goquery.Selection, set SelectorSet) *goquery.Selection {
	for _, q := range set.Post {
		if found := query(root, q); found.Length() > 0 {
			return found
		}
	}
	return root.FindNodes()
}

// isPost reports whether el itself matches one of the post patterns.
func isPost(el *goquery.Selection, set SelectorSet) bool {
	for _, q := range set.Post {
		if strings.HasPrefix(q, xpathPrefix) {
			continue
		}
		if el.Is(q) {
			return true
		}
	}
	return false
}

// postsIn returns el when it is itself post-shaped, otherwise every
// post-shaped descendant.
func postsIn(el *goquery.Selection, set SelectorSet) []*goquery.Selection {
	if isPost(el, set) {
		return []*goquery.Selection{el}
	}
	var out []*goquery.Selection
	PostRoots(el, set).Each(func(_ int, p *goquery.Selection) {
		out = append(out, p)
	})
	return out
}

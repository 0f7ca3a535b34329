package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const xpathPrefix = "xpath:"

var (
	reSpaces        = regexp.MustCompile(`\s+`)
	reHorizontal    = regexp.MustCompile(`[^\S\n]+`)
	reManyNewlines  = regexp.MustCompile(`\n{3,}`)
	reTrailingSpace = regexp.MustCompile(` +\n`)
)

// query evaluates one structural pattern below root. Invalid patterns match
// nothing.
func query(root *goquery.Selection, q string) *goquery.Selection {
	expr, isXPath := strings.CutPrefix(q, xpathPrefix)
	if !isXPath {
		return root.Find(q)
	}

	var found []*html.Node
	for _, n := range root.Nodes {
		nodes, err := htmlquery.QueryAll(n, expr)
		if err != nil {
			return root.FindNodes()
		}
		found = append(found, nodes...)
	}
	return root.FindNodes(found...)
}

// rule pairs a structural query with the closure that reads a value from
// each matching element.
type rule struct {
	query string
	read  func(*goquery.Selection) string
}

// rules builds a chain that reads every query with the same closure.
func rules(queries []string, read func(*goquery.Selection) string) []rule {
	chain := make([]rule, 0, len(queries))
	for _, q := range queries {
		chain = append(chain, rule{query: q, read: read})
	}
	return chain
}

// firstValue walks the chain in rank order and returns the first value the
// accept func approves. A nil accept approves any non-empty value.
func firstValue(root *goquery.Selection, chain []rule, accept func(string, *goquery.Selection) bool) string {
	for _, r := range chain {
		var value string
		query(root, r.query).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			v := strings.TrimSpace(r.read(el))
			if v == "" {
				return true
			}
			if accept != nil && !accept(v, el) {
				return true
			}
			value = v
			return false
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// readText returns the single-line visible text of an element.
func readText(el *goquery.Selection) string {
	return cleanText(textOf(el))
}

// readAttr returns a closure reading the named attribute.
func readAttr(name string) func(*goquery.Selection) string {
	return func(el *goquery.Selection) string {
		return el.AttrOr(name, "")
	}
}

// textOf renders the visible text of a selection. Line breaks and block
// boundaries become newlines; emoji images contribute their alt text.
func textOf(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return cleanTextPreserveNewlines(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			b.WriteByte('\n')
			return
		case atom.Img:
			for _, a := range n.Attr {
				if a.Key == "alt" {
					b.WriteString(a.Val)
				}
			}
			return
		case atom.Script, atom.Style, atom.Svg, atom.Noscript:
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}

	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.P, atom.Li, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Section:
		return true
	}
	return false
}

// attached reports whether the selection's first node is reachable from a
// document node.
func attached(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	for n := sel.Nodes[0]; n != nil; n = n.Parent {
		if n.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

// sameNode reports whether two selections start at the same element.
func sameNode(a, b *goquery.Selection) bool {
	if a == nil || b == nil || a.Length() == 0 || b.Length() == 0 {
		return false
	}
	return a.Nodes[0] == b.Nodes[0]
}

// cleanText collapses all whitespace and trims the text.
func cleanText(text string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(text, " "))
}

// cleanTextPreserveNewlines normalizes horizontal whitespace but keeps line
// breaks, with at most one blank line between paragraphs.
func cleanTextPreserveNewlines(text string) string {
	text = reHorizontal.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = reTrailingSpace.ReplaceAllString(text, "\n")
	text = reManyNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

package extract

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/covgate/internal/model"
)

// Meta names read from <meta name="..." content="..."> tags
const (
	MetaIssuer       = "covgate:issuer"
	MetaProduct      = "covgate:product"
	MetaDocumentType = "covgate:document-type"
)

// PageAttr marks the page number of an element subtree
const PageAttr = "data-page"

// Segmenter splits an HTML rendition of a document into passages:
// one per paragraph, list item or table row
type Segmenter struct{}

// NewSegmenter creates a new segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment parses r and returns its passages in document order
func (s *Segmenter) Segment(r io.Reader, documentID string) ([]model.Passage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentID, err)
	}

	meta := readMeta(doc)
	if meta[MetaIssuer] == "" {
		return nil, fmt.Errorf("document %s: missing %s meta tag", documentID, MetaIssuer)
	}

	var passages []model.Passage
	seq := make(map[int]int)

	var walk func(n *html.Node, page int)
	walk = func(n *html.Node, page int) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
			if v, ok := attr(n, PageAttr); ok {
				if p, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && p > 0 {
					page = p
				}
			}
			switch n.Data {
			case "p", "li", "tr":
				seq[page]++
				passages = append(passages, model.Passage{
					Issuer:       meta[MetaIssuer],
					Product:      meta[MetaProduct],
					DocumentID:   documentID,
					DocumentType: meta[MetaDocumentType],
					Page:         page,
					Seq:          seq[page],
					Excerpt:      visibleText(n),
				})
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, page)
		}
	}

	walk(doc, 1)
	return passages, nil
}

// readMeta collects covgate meta tags
func readMeta(doc *html.Node) map[string]string {
	meta := make(map[string]string)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			name, _ := attr(n, "name")
			content, _ := attr(n, "content")
			if strings.HasPrefix(name, "covgate:") {
				meta[name] = strings.TrimSpace(content)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return meta
}

// visibleText joins the text nodes of a subtree, skipping scripts/styles
func visibleText(n *html.Node) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(parts, " ")
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Package markup wraps goquery with the small query surface the extractors
// need. Parsing is deliberately forgiving: malformed or empty input yields a
// document with no matches rather than an error, so a shell page from the
// site degrades to "nothing found" instead of aborting a run. goquery sits
// on the html5 parser, which keeps modern block elements structural and
// queryable instead of flattening them into text.
package markup

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is one parsed page.
type Document struct {
	doc *goquery.Document
}

// Node is a handle to one element inside a Document.
type Node struct {
	sel *goquery.Selection
}

// Link pairs an anchor's href with its element, so callers can dig further
// into the row the link came from.
type Link struct {
	Href string
	Node Node
}

// Parse builds a Document from raw page bytes.
func Parse(body []byte) *Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &Document{}
	}
	return &Document{doc: doc}
}

// Root returns the document root node.
func (d *Document) Root() Node {
	if d == nil || d.doc == nil {
		return Node{}
	}
	return Node{sel: d.doc.Selection}
}

// FindFirst returns the first descendant matching tag and/or class. Empty
// tag matches any element; empty class matches regardless of class.
func (n Node) FindFirst(tag, class string) (Node, bool) {
	if n.sel == nil {
		return Node{}, false
	}
	found := n.sel.Find(cssSelector(tag, class)).First()
	if found.Length() == 0 {
		return Node{}, false
	}
	return Node{sel: found}, true
}

// FindAll returns every descendant matching tag and/or class, in page order.
func (n Node) FindAll(tag, class string) []Node {
	if n.sel == nil {
		return nil
	}
	var nodes []Node
	n.sel.Find(cssSelector(tag, class)).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, Node{sel: s})
	})
	return nodes
}

// Attr returns the named attribute value.
func (n Node) Attr(name string) (string, bool) {
	if n.sel == nil {
		return "", false
	}
	return n.sel.Attr(name)
}

// Text returns the node's concatenated visible text, trimmed.
func (n Node) Text() string {
	if n.sel == nil {
		return ""
	}
	return strings.TrimSpace(n.sel.Text())
}

// Links collects every descendant of the given tag carrying an href.
func (n Node) Links(tag string) []Link {
	if n.sel == nil {
		return nil
	}
	var links []Link
	n.sel.Find(tag).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		links = append(links, Link{Href: href, Node: Node{sel: s}})
	})
	return links
}

func cssSelector(tag, class string) string {
	if tag == "" {
		tag = "*"
	}
	if class == "" {
		return tag
	}
	return tag + "." + class
}

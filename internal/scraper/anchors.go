package scraper

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Anchor is a hyperlink found in an HTML fragment.
type Anchor struct {
	Text string
	Href string
}

// ParseAnchors parses an HTML fragment, such as a JSON cell of the archive
// feed, and returns its anchors in document order.
func ParseAnchors(fragment string) ([]Anchor, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}

	var anchors []Anchor
	for _, n := range nodes {
		anchors = appendAnchors(anchors, n)
	}
	return anchors, nil
}

func appendAnchors(anchors []Anchor, n *html.Node) []Anchor {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		return append(anchors, Anchor{Text: nodeText(n), Href: attr(n, "href")})
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		anchors = appendAnchors(anchors, child)
	}
	return anchors
}

// nodeText concatenates every text node below n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

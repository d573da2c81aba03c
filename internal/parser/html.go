package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files, e.g. arXiv's LaTeXML rendering. Headings
// and text blocks each become one block of a single page, so a section
// heading such as "1 Introduction" lands on its own line.
type HTMLParser struct{}

func (p *HTMLParser) Pages(r io.Reader, filename string) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", filename, err)
	}
	var b htmlBlocks
	b.walk(doc)
	if len(b.blocks) == 0 && b.title != "" {
		b.blocks = []string{b.title}
	}
	return singlePage(b.blocks), nil
}

type htmlBlocks struct {
	title  string // <title>, used only when the body has no text
	blocks []string
}

// Page chrome and non-text content.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
	"nav": true, "footer": true, "header": true, "form": true, "button": true,
}

// Elements whose whole text is one block.
var blockTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "li": true, "dt": true, "dd": true, "td": true, "th": true,
	"blockquote": true, "pre": true, "figcaption": true, "caption": true,
}

func (b *htmlBlocks) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch {
		case n.Data == "title":
			if b.title == "" {
				b.title = textContent(n)
			}
			return
		case skipTags[n.Data]:
			return
		case blockTags[n.Data]:
			if t := textContent(n); t != "" {
				b.blocks = append(b.blocks, t)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

// textContent returns the node's text with whitespace runs collapsed, so
// a heading split across source lines stays one line. MathML is replaced
// by its alttext (the LaTeX source) when present.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			if n.Data == "math" {
				if alt := attr(n, "alttext"); alt != "" {
					buf.WriteString(" " + alt + " ")
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

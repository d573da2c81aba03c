package parser

import (
	"io"
	"strings"
)

// TextParser handles plain text files. Form feeds separate pages, as in
// pdftotext output.
type TextParser struct{}

func (p *TextParser) Pages(r io.Reader, filename string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return splitPages(text), nil
}

// splitPages splits on form feeds and drops a trailing empty page.
func splitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}

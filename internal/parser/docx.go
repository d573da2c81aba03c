package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Word documents carry no reliable page
// breaks, so the whole body is one page of paragraph blocks.
type DOCXParser struct{}

func (p *DOCXParser) Pages(r io.Reader, filename string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx %s: %w", filename, err)
	}
	return singlePage(docxBlocks(doc)), nil
}

// docxBlocks returns the non-empty body paragraphs in order. Tables and
// drawings are skipped.
func docxBlocks(doc *docx.Docx) []string {
	var blocks []string
	for _, item := range doc.Document.Body.Items {
		if para, ok := item.(*docx.Paragraph); ok {
			if text := paragraphText(para); text != "" {
				blocks = append(blocks, text)
			}
		}
	}
	return blocks
}

// paragraphText joins the text runs of a paragraph. Runs split words
// arbitrarily, so no separator is inserted between them.
func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}

// Package segment walks the lines of a paper and cuts them into labeled
// sections, then windows each section into quality-filtered chunks.
//
// The walk is a two-state machine. In the normal state numbered headers open
// sections and subsections and every other line accumulates into the current
// section. Once the reference list starts, every line is dropped until an
// appendix header brings the walk back to the normal state.
package segment

import (
	"strings"

	"github.com/dgallion1/paperchunk/internal/boundary"
	"github.com/dgallion1/paperchunk/internal/chunker"
	"github.com/dgallion1/paperchunk/internal/paper"
	"github.com/dgallion1/paperchunk/internal/prose"
)

// Mode is the state of the segmentation walk.
type Mode int

const (
	Normal Mode = iota
	InReferences
)

func (m Mode) String() string {
	if m == InReferences {
		return "in_references"
	}
	return "normal"
}

// state is owned by one segmentation run.
type state struct {
	mode       Mode
	section    string
	subsection string

	parts []string // finished block parts awaiting flush
	lines []string // lines of the block being read

	docID    string
	windower *chunker.Windower
	seq      int
	out      []paper.Section
}

func newState(docID string, w *chunker.Windower) *state {
	return &state{
		mode:     Normal,
		section:  paper.AbstractLabel,
		docID:    docID,
		windower: w,
	}
}

// Split segments the per-page text of one document. It is pure: identical
// input always yields identical sections, labels and chunk boundaries.
// Sections whose windows were all rejected are kept with no chunks, since
// their text still feeds fact extraction.
func Split(docID string, pages []string, w *chunker.Windower) []paper.Section {
	if w == nil {
		w = chunker.NewWindower(chunker.DefaultSize, chunker.DefaultOverlap)
	}
	s := newState(docID, w)
	for _, block := range blocks(bodyText(pages)) {
		for _, line := range strings.Split(block, "\n") {
			s.step(line)
		}
		s.endBlock()
	}
	s.finish()
	return s.out
}

func (s *state) step(raw string) {
	line := strings.TrimSpace(raw)
	if s.mode == InReferences {
		s.stepReferences(line)
		return
	}

	b := boundary.Classify(line)
	switch b.Kind {
	case boundary.References:
		s.flush()
		s.mode = InReferences
	case boundary.Section:
		s.flush()
		s.openSection(line)
	case boundary.Subsection:
		s.flush()
		s.subsection = line
	default:
		// Appendix headers outside the reference list are body text.
		s.lines = append(s.lines, raw)
	}
}

// stepReferences drops everything except an appendix header, which resumes
// the walk under a heading named after it.
func (s *state) stepReferences(line string) {
	if !boundary.IsAppendixHeader(line) {
		return
	}
	s.mode = Normal
	if number, _, ok := boundary.MatchNumbered(line); ok && strings.Contains(number, ".") {
		s.subsection = line
		return
	}
	s.openSection(line)
}

func (s *state) openSection(line string) {
	s.section = line
	s.subsection = ""
}

// endBlock moves the lines of the finished block into the buffer.
func (s *state) endBlock() {
	if len(s.lines) > 0 {
		s.parts = append(s.parts, strings.Join(s.lines, "\n"))
	}
	s.lines = s.lines[:0]
}

func (s *state) finish() {
	if s.mode == InReferences {
		return
	}
	s.flush()
}

// flush turns the buffered text into a section tagged with the labels in
// effect while it accumulated, and clears the buffer. Callers update the
// labels after flushing.
func (s *state) flush() {
	s.endBlock()
	text := strings.TrimSpace(strings.Join(s.parts, " "))
	s.parts = s.parts[:0]
	if text == "" {
		return
	}

	sec := paper.Section{Label: s.section, Subsection: s.subsection, Text: text}
	for win := range s.windower.Windows(text) {
		if !prose.IsProse(win) {
			continue
		}
		sec.Chunks = append(sec.Chunks, paper.Chunk{
			DocID:      s.docID,
			Seq:        s.seq,
			Content:    win,
			Section:    s.section,
			Subsection: s.subsection,
		})
		s.seq++
	}
	s.out = append(s.out, sec)
}

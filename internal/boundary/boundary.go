// Package boundary classifies single lines of extracted paper text as
// structural boundaries: numbered section and subsection headers, the start
// of the reference list, and appendix headers.
package boundary

import (
	"regexp"
	"strings"
)

// Kind is the structural role of a line.
type Kind int

const (
	Plain Kind = iota
	Section
	Subsection
	References
	Appendix
)

func (k Kind) String() string {
	switch k {
	case Section:
		return "section"
	case Subsection:
		return "subsection"
	case References:
		return "references"
	case Appendix:
		return "appendix"
	}
	return "plain"
}

// Header length limits, in whitespace-separated tokens and characters.
const (
	MaxHeaderTokens     = 15
	MaxReferencesTokens = 10
	MaxBareRefsTokens   = 4
	MaxAppendixChars    = 120
)

// Boundary is the classification of one line.
type Boundary struct {
	Kind   Kind
	Number string // dotted numeric prefix for numbered headers, e.g. "3.2"
	Title  string // header text after the number
	// Embedded is set for References produced by a numbered header whose
	// title mentions references, e.g. "6 References and Notes".
	Embedded bool
}

var (
	numberedRe   = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\s+(.+?)\s*$`)
	numberedRefs = regexp.MustCompile(`^\d+(\.\d+)*\s+(references|bibliography)(\s|$)`)
)

// Classify returns the structural role of a single line. References checks
// run before generic numbered-header detection so that "6 References" is
// never opened as a section.
func Classify(line string) Boundary {
	s := strings.TrimSpace(line)
	if s == "" {
		return Boundary{Kind: Plain}
	}
	if IsStandaloneReferences(s) {
		return Boundary{Kind: References}
	}
	if number, title, ok := MatchNumbered(s); ok {
		if mentionsReferences(title) {
			return Boundary{Kind: References, Number: number, Title: title, Embedded: true}
		}
		kind := Section
		if strings.Contains(number, ".") {
			kind = Subsection
		}
		return Boundary{Kind: kind, Number: number, Title: title}
	}
	if IsAppendixHeader(s) {
		return Boundary{Kind: Appendix, Title: s}
	}
	return Boundary{Kind: Plain}
}

// MatchNumbered reports whether line is shaped like a numbered header:
// dotted integers, whitespace, a non-empty title, and at most
// MaxHeaderTokens tokens overall.
func MatchNumbered(line string) (number, title string, ok bool) {
	s := strings.TrimSpace(line)
	m := numberedRe.FindStringSubmatch(s)
	if m == nil || len(strings.Fields(s)) > MaxHeaderTokens {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// IsStandaloneReferences reports whether line opens the reference list on
// its own: "References", "Bibliography", "6 References", "References Cited".
// Titles that merely contain the word, such as "Learning to Retrieve
// References", do not match.
func IsStandaloneReferences(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	tokens := len(strings.Fields(s))
	if tokens > MaxReferencesTokens {
		return false
	}
	t := strings.ToLower(s)
	if t == "references" || t == "bibliography" {
		return true
	}
	if numberedRefs.MatchString(t) {
		return true
	}
	return tokens <= MaxBareRefsTokens &&
		(strings.HasPrefix(t, "references ") || strings.HasPrefix(t, "bibliography "))
}

// IsAppendixHeader reports whether line is heading-shaped and mentions an
// appendix. Body sentences that refer to an appendix are usually too long.
func IsAppendixHeader(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	t := strings.ToLower(s)
	if !strings.Contains(t, "appendix") && !strings.Contains(t, "appendices") {
		return false
	}
	return len(strings.Fields(s)) <= MaxHeaderTokens && len([]rune(s)) <= MaxAppendixChars
}

func mentionsReferences(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "references") || strings.Contains(t, "bibliography")
}

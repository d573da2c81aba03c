package chunker

import (
	"iter"
	"strings"
	"unicode"
)

// Default window geometry, in tokens.
const (
	DefaultSize    = 500
	DefaultOverlap = 100
)

// Windower splits prose into overlapping windows made of whole sentences.
type Windower struct {
	Size    int // target window size in tokens
	Overlap int // tokens carried over from the previous window
	Counter Counter
}

// NewWindower returns a Windower counting tokens with tiktoken. Non-positive
// size falls back to DefaultSize; negative overlap to DefaultOverlap.
func NewWindower(size, overlap int) *Windower {
	w := &Windower{Size: size, Overlap: overlap, Counter: NewTiktokenCounter()}
	w.normalize()
	return w
}

func (w *Windower) normalize() {
	if w.Size <= 0 {
		w.Size = DefaultSize
	}
	if w.Overlap < 0 {
		w.Overlap = DefaultOverlap
	}
	if w.Overlap >= w.Size {
		w.Overlap = w.Size / 5
	}
	if w.Counter == nil {
		w.Counter = CounterFunc(EstimateTokens)
	}
}

// Windows returns the window sequence for text. The sequence is computed on
// demand and may be ranged over any number of times with identical results.
// Empty input yields nothing.
func (w *Windower) Windows(text string) iter.Seq[string] {
	cfg := *w
	cfg.normalize()
	return func(yield func(string) bool) {
		sents := SplitSentences(text)
		if len(sents) == 0 {
			return
		}
		counts := make([]int, len(sents))
		for i, s := range sents {
			counts[i] = cfg.Counter.CountTokens(s)
		}
		for start := 0; start < len(sents); {
			end := cfg.fill(counts, start)
			if !yield(strings.Join(sents[start:end], " ")) {
				return
			}
			if end == len(sents) {
				return
			}
			start = cfg.rewind(counts, start, end)
		}
	}
}

// Split collects all windows of text.
func (w *Windower) Split(text string) []string {
	var out []string
	for win := range w.Windows(text) {
		out = append(out, win)
	}
	return out
}

// fill returns the end (exclusive) of the longest sentence run starting at
// start that fits in Size. A lone oversized sentence still forms a window.
func (w *Windower) fill(counts []int, start int) int {
	end, total := start, 0
	for end < len(counts) {
		if end > start && total+counts[end] > w.Size {
			break
		}
		total += counts[end]
		end++
	}
	return end
}

// rewind picks the start of the window after [start, end): as many trailing
// sentences as fit in Overlap, minus any that would leave no room for the
// sentence at end. The result is always in (start, end].
func (w *Windower) rewind(counts []int, start, end int) int {
	next, carried := end, 0
	for next-1 > start && carried+counts[next-1] <= w.Overlap {
		carried += counts[next-1]
		next--
	}
	for next < end && carried+counts[end] > w.Size {
		carried -= counts[next]
		next++
	}
	return next
}

// SplitSentences breaks text into sentences. A sentence ends at '.', '!' or
// '?' (plus any closing quotes or brackets) followed by whitespace, unless the
// next word starts with a lower-case letter ("et al. show"). Whitespace inside
// a sentence is collapsed to single spaces.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	var current strings.Builder

	emit := func() {
		s := strings.Join(strings.Fields(current.String()), " ")
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		for i+1 < len(runes) && isCloser(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j < len(runes) && unicode.IsLower(runes[j]) {
			continue
		}
		emit()
	}
	emit()
	return sentences
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

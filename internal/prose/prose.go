// Package prose separates genuine running text from PDF extraction noise:
// table fragments, equation remnants, running headers and reference-list
// debris. No single signal is reliable, so a window is accepted only when
// every heuristic agrees.
package prose

import (
	"strings"
	"unicode"
)

// Thresholds for the acceptance gate.
const (
	MinChars          = 35
	MinWords          = 5
	MaxDigitRatio     = 0.40
	MaxSingleRatio    = 0.28
	MinAlphaRatio     = 0.50
	MinUniqueRatio    = 0.30
	MinAvgWordLen     = 3.2
	ShoutingMaxLength = 80
)

// Metrics are the raw signals computed for one text window.
type Metrics struct {
	Chars          int     `json:"chars"`
	Words          int     `json:"words"`
	DigitRatio     float64 `json:"digit_ratio"`
	SingleRatio    float64 `json:"single_char_word_ratio"`
	AlphaRatio     float64 `json:"alpha_word_ratio"`
	UniqueRatio    float64 `json:"unique_word_ratio"`
	AvgWordLen     float64 `json:"avg_word_len"`
	HasTerminal    bool    `json:"has_terminal_punct"`
	AllUpper       bool    `json:"all_upper"`
	RejectedReason string  `json:"rejected_reason,omitempty"`
}

// Accepted reports whether the metrics pass every check.
func (m Metrics) Accepted() bool { return m.RejectedReason == "" }

// IsProse reports whether text looks like real prose.
func IsProse(text string) bool {
	return Inspect(text).Accepted()
}

// Inspect computes the classifier signals for text and records the first
// failing check, if any.
func Inspect(text string) Metrics {
	s := strings.TrimSpace(text)
	words := strings.Fields(s)
	m := Metrics{Chars: len([]rune(s)), Words: len(words)}

	if m.Chars < MinChars || m.Words < MinWords {
		m.RejectedReason = "too_short"
		return m
	}

	var digits, cased, lower int
	for _, r := range s {
		if isDigit(r) {
			digits++
		}
		if unicode.IsLower(r) {
			lower++
			cased++
		} else if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased++
		}
		if r == '.' || r == '!' || r == '?' {
			m.HasTerminal = true
		}
	}

	var single, alpha, totalLen int
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		n := len([]rune(w))
		totalLen += n
		if n == 1 {
			single++
		}
		if strings.IndexFunc(w, unicode.IsLetter) >= 0 {
			alpha++
		}
		unique[strings.ToLower(w)] = struct{}{}
	}

	nw := float64(m.Words)
	m.DigitRatio = float64(digits) / float64(m.Chars)
	m.SingleRatio = float64(single) / nw
	m.AlphaRatio = float64(alpha) / nw
	m.UniqueRatio = float64(len(unique)) / nw
	m.AvgWordLen = float64(totalLen) / nw
	m.AllUpper = cased > 0 && lower == 0

	switch {
	case m.DigitRatio > MaxDigitRatio:
		m.RejectedReason = "digits"
	case m.SingleRatio > MaxSingleRatio:
		m.RejectedReason = "single_char_words"
	case m.AlphaRatio < MinAlphaRatio:
		m.RejectedReason = "non_alpha_words"
	case m.UniqueRatio < MinUniqueRatio:
		m.RejectedReason = "repetitive"
	case !m.HasTerminal && m.AvgWordLen < MinAvgWordLen:
		m.RejectedReason = "no_sentence_shape"
	case m.AllUpper && m.Chars < ShoutingMaxLength:
		m.RejectedReason = "running_header"
	}
	return m
}

// isDigit reports decimal digits plus the superscript, subscript and
// circled digits that footnote markers extract as. Fractions such as '½'
// are not digits.
func isDigit(r rune) bool {
	switch {
	case unicode.IsDigit(r):
		return true
	case r == '¹' || r == '²' || r == '³':
		return true
	case r == '⁰' || r >= '⁴' && r <= '⁹':
		return true
	case r >= '₀' && r <= '₉':
		return true
	case r >= '①' && r <= '⑨':
		return true
	}
	return false
}

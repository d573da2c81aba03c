package chunker

import (
	"fmt"
	"slices"
	"strings"
	"testing"
)

// numberedSentences builds n distinct sentences of exactly words words each.
func numberedSentences(n, words int) []string {
	out := make([]string, n)
	for i := range n {
		fill := strings.TrimSpace(strings.Repeat("token ", words-2))
		out[i] = fmt.Sprintf("Sentence%d %s end.", i, fill)
	}
	return out
}

func wordWindower(size, overlap int) *Windower {
	return &Windower{Size: size, Overlap: overlap, Counter: WordCounter}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", "  \n\t ", nil},
		{"basic", "One two. Three four! Five six?", []string{"One two.", "Three four!", "Five six?"}},
		{"no terminal", "just a fragment", []string{"just a fragment"}},
		{"decimal", "Accuracy rose to 94.5 points. Next.", []string{"Accuracy rose to 94.5 points.", "Next."}},
		{"abbreviation", "Lewis et al. show gains. Then more.", []string{"Lewis et al. show gains.", "Then more."}},
		{"closing quote", `He said "stop." Then left.`, []string{`He said "stop."`, "Then left."}},
		{"collapses whitespace", "Line one\ncontinues here.\n\nNext   one.", []string{"Line one continues here.", "Next one."}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitSentences(tc.in)
			if !slices.Equal(got, tc.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWindows_Empty(t *testing.T) {
	w := wordWindower(50, 10)
	if got := w.Split(""); len(got) != 0 {
		t.Errorf("expected no windows, got %d", len(got))
	}
	if got := w.Split("   \n\n "); len(got) != 0 {
		t.Errorf("expected no windows for whitespace, got %d", len(got))
	}
}

func TestWindows_SingleWindow(t *testing.T) {
	text := "A short paragraph. It has two sentences."
	got := wordWindower(50, 10).Split(text)
	if len(got) != 1 {
		t.Fatalf("expected 1 window, got %d", len(got))
	}
	if got[0] != text {
		t.Errorf("window = %q, want %q", got[0], text)
	}
}

func TestWindows_SizeAndOverlap(t *testing.T) {
	// 20 sentences of 10 words, 50-word windows, 20-word overlap:
	// each window holds 5 sentences and repeats the last 2 of the previous one.
	sents := numberedSentences(20, 10)
	windows := wordWindower(50, 20).Split(strings.Join(sents, " "))

	if len(windows) < 2 {
		t.Fatalf("expected several windows, got %d", len(windows))
	}
	for i, win := range windows {
		if n := WordCounter.CountTokens(win); n > 50 {
			t.Errorf("window %d has %d words, exceeds size", i, n)
		}
	}
	for i := 1; i < len(windows); i++ {
		prev := SplitSentences(windows[i-1])
		cur := SplitSentences(windows[i])
		shared := 0
		for _, s := range cur {
			if slices.Contains(prev, s) {
				shared++
			}
		}
		if shared != 2 {
			t.Errorf("window %d shares %d sentences with previous, want 2", i, shared)
		}
	}
}

func TestWindows_RoundTrip(t *testing.T) {
	sents := numberedSentences(37, 7)
	text := strings.Join(sents, "\n")
	windows := wordWindower(40, 12).Split(text)

	// Dropping each window's leading overlap must reconstruct the sentence list.
	var rebuilt []string
	for i, win := range windows {
		ws := SplitSentences(win)
		k := 0
		for k < len(ws) && len(rebuilt) > 0 && slices.Contains(rebuilt, ws[k]) {
			k++
		}
		if i > 0 && k == len(ws) {
			t.Fatalf("window %d adds no new sentences", i)
		}
		rebuilt = append(rebuilt, ws[k:]...)
	}
	if !slices.Equal(rebuilt, sents) {
		t.Errorf("round trip mismatch:\n got %q\nwant %q", rebuilt, sents)
	}
}

func TestWindows_OversizedSentenceNotSplit(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("lengthy ", 80)) + "."
	text := "Short intro here. " + "Huge " + long + " Short outro here."
	windows := wordWindower(30, 5).Split(text)

	found := false
	for _, w := range windows {
		if strings.Contains(w, "Huge lengthy") {
			if !strings.HasSuffix(strings.TrimSpace(w), "lengthy.") && !strings.Contains(w, "lengthy. ") {
				t.Errorf("oversized sentence was cut: %q", w)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("oversized sentence missing from windows")
	}
	last := windows[len(windows)-1]
	if !strings.Contains(last, "Short outro here.") {
		t.Errorf("final window %q lost trailing sentence", last)
	}
}

func TestWindows_Restartable(t *testing.T) {
	text := strings.Join(numberedSentences(30, 9), " ")
	seq := wordWindower(45, 9).Windows(text)

	var first, second []string
	for w := range seq {
		first = append(first, w)
	}
	for w := range seq {
		second = append(second, w)
	}
	if !slices.Equal(first, second) {
		t.Error("ranging twice produced different windows")
	}

	// Early break must not affect later iterations.
	for range seq {
		break
	}
	var third []string
	for w := range seq {
		third = append(third, w)
	}
	if !slices.Equal(first, third) {
		t.Error("early break changed subsequent iteration")
	}
}

func TestWindower_Normalize(t *testing.T) {
	w := &Windower{}
	w.normalize()
	if w.Size != DefaultSize {
		t.Errorf("size = %d, want %d", w.Size, DefaultSize)
	}
	if w.Overlap != 0 {
		t.Errorf("zero overlap should stay zero, got %d", w.Overlap)
	}
	if w.Counter == nil {
		t.Error("expected fallback counter")
	}

	w = &Windower{Size: 100, Overlap: 150, Counter: WordCounter}
	w.normalize()
	if w.Overlap != 20 {
		t.Errorf("overlap >= size should shrink to size/5, got %d", w.Overlap)
	}
}

func TestTiktokenCounter(t *testing.T) {
	c := NewTiktokenCounter()
	if c.CountTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	n := c.CountTokens("Retrieval-augmented generation combines parametric and non-parametric memory.")
	if n < 5 || n > 40 {
		t.Errorf("implausible token count %d", n)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 for empty text")
	}
	if got := EstimateTokens("hi"); got != 1 {
		t.Errorf("expected minimum of 1, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("word ", 300)); got != 399 {
		t.Errorf("expected 399, got %d", got)
	}
}

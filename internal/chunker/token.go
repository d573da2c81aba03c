package chunker

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter measures text length in tokens.
type Counter interface {
	CountTokens(text string) int
}

// CounterFunc adapts a plain function to Counter.
type CounterFunc func(text string) int

func (f CounterFunc) CountTokens(text string) int { return f(text) }

// WordCounter counts whitespace-separated words.
var WordCounter = CounterFunc(func(text string) int { return len(strings.Fields(text)) })

// EstimateTokens gives a rough token count from the word count.
// Used when the BPE encoder cannot be loaded.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 0.75 words per token for English text.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

var loadCodec = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.ForModel(tokenizer.GPT4o)
})

// TiktokenCounter counts tokens with the GPT-4o BPE encoding, the same one
// the downstream chat and embedding models use.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter loads the shared encoder. If loading fails the counter
// degrades to EstimateTokens.
func NewTiktokenCounter() *TiktokenCounter {
	codec, err := loadCodec()
	if err != nil {
		return &TiktokenCounter{}
	}
	return &TiktokenCounter{codec: codec}
}

func (c *TiktokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c.codec == nil {
		return EstimateTokens(text)
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return EstimateTokens(text)
	}
	return len(ids)
}

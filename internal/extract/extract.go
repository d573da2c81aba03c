// Package extract asks a chat model for one fact sentence per paper section
// and for the condensed document summary built from those facts.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// ErrNoResult is returned when there was nothing to send or the model
// replied with nothing usable.
var ErrNoResult = errors.New("extract: no result")

// Operation names used in stats and logs.
const (
	OpSectionFact = "section_fact"
	OpSummary     = "summary"
)

// Client produces section facts and document summaries.
type Client interface {
	SectionFact(ctx context.Context, text string) (string, error)
	Summarize(ctx context.Context, facts []string) (string, error)
	Model() string
	Stats() *LLMStats
}

// Options shared by every client.
type Options struct {
	Timeout    time.Duration // per attempt
	MaxRetries int           // retries after the first attempt
	RetryDelay time.Duration // first backoff step
	Stats      *LLMStats
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Stats == nil {
		o.Stats = NewLLMStats(time.Hour)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// completeFunc sends one system+user exchange and returns the raw reply.
type completeFunc func(ctx context.Context, system, user string, maxTokens int) (string, error)

const (
	factMaxTokens    = 200
	summaryMaxTokens = 600
)

// sectionFact is the provider-independent SectionFact flow.
func sectionFact(ctx context.Context, c *caller, complete completeFunc, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoResult
	}
	reply, err := c.do(ctx, OpSectionFact, func(ctx context.Context) (string, error) {
		return complete(ctx, SectionFactPrompt, BuildFactInput(text), factMaxTokens)
	})
	if err != nil {
		return "", err
	}
	line := firstLine(reply)
	if line == "" {
		return "", ErrNoResult
	}
	return line, nil
}

// summarize is the provider-independent Summarize flow.
func summarize(ctx context.Context, c *caller, complete completeFunc, facts []string) (string, error) {
	input := BuildSummaryInput(facts)
	if input == "" {
		return "", ErrNoResult
	}
	reply, err := c.do(ctx, OpSummary, func(ctx context.Context) (string, error) {
		return complete(ctx, SummaryPrompt, input, summaryMaxTokens)
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(reply)
	if summary == "" {
		return "", ErrNoResult
	}
	return summary, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"
)

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying: rate limits and server
// errors from either provider.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

const maxBackoff = 30 * time.Second

// caller wraps single model calls with a per-attempt timeout, exponential
// backoff with jitter, and latency stats.
type caller struct {
	opts Options
	log  *slog.Logger
}

func newCaller(provider, model string, opts Options) *caller {
	opts = opts.withDefaults()
	return &caller{
		opts: opts,
		log:  opts.Logger.With("provider", provider, "model", model),
	}
}

func (c *caller) do(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) (string, error) {
	jitter := max(c.opts.RetryDelay/2, time.Millisecond)
	start := time.Now()
	out, err := retry.DoWithData(
		func() (string, error) {
			actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			return fn(actx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.MaxRetries)+1),
		retry.Delay(c.opts.RetryDelay),
		retry.MaxDelay(maxBackoff),
		retry.MaxJitter(jitter),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// An attempt timing out while the caller is still waiting is transient.
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return IsRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("retryable llm error", "op", op, "attempt", n, "error", err)
		}),
	)
	c.opts.Stats.Record(op, time.Since(start), err != nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Stats returns the latency tracker.
func (c *caller) Stats() *LLMStats { return c.opts.Stats }

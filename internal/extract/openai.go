package extract

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the chat model used for facts and summaries.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	*caller
	client *openai.Client
	model  string
}

// NewOpenAIClient returns a client for apiKey. baseURL may be empty to use
// the public endpoint.
func NewOpenAIClient(apiKey, baseURL, model string, opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		caller: newCaller("openai", model, opts),
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIClient) Model() string { return c.model }

// SectionFact returns one fact sentence for a section, or ErrNoResult.
func (c *OpenAIClient) SectionFact(ctx context.Context, text string) (string, error) {
	return sectionFact(ctx, c.caller, c.complete, text)
}

// Summarize condenses fact sentences into one paragraph, or ErrNoResult.
func (c *OpenAIClient) Summarize(ctx context.Context, facts []string) (string, error) {
	return summarize(ctx, c.caller, c.complete, facts)
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Package summarizer adapts an OpenAI-compatible chat completion call to
// the scanner.SummarizerOracle contract, producing plain-prose summaries
// of token discussions.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// ErrUnavailable mirrors the embedding gateway's "not configured or
// breaker open" behavior.
var ErrUnavailable = errors.New("summarizer oracle unavailable")

const promptTemplate = `You are analyzing crypto chat messages about $%s.

Messages:
%s

Write a 2-3 sentence summary of what traders are saying. Include:
- The overall vibe (bullish/bearish/cautious)
- Any specific price targets, warnings, or calls mentioned
- Key opinions or concerns

IMPORTANT: Write in plain text only. No markdown, no bullet points, no headers. Just 2-3 natural sentences summarizing the discussion.`

// Client wraps go-openai's chat completion endpoint.
type Client struct {
	openai  *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// Config configures the summarizer client. APIKey empty leaves the
// client permanently unavailable.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// New builds a Client from Config.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	var oc *openai.Client
	if cfg.APIKey != "" {
		oc = openai.NewClient(cfg.APIKey)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "summarizer-oracle",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{openai: oc, model: model, breaker: cb, timeout: timeout}
}

// Summarize satisfies scanner.SummarizerOracle.
func (c *Client) Summarize(ctx context.Context, symbol string, messages []string) (string, error) {
	if c.openai == nil {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString("- ")
		sb.WriteString(m)
		sb.WriteString("\n")
	}
	prompt := fmt.Sprintf(promptTemplate, symbol, sb.String())

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
			MaxTokens:   300,
			Temperature: 0.3,
		})
		if err != nil {
			return "", fmt.Errorf("chat completion request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return result.(string), nil
}

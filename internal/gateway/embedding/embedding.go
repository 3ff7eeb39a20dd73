// Package embedding adapts an OpenAI-compatible embeddings endpoint to
// the dedup.EmbeddingOracle contract, with a circuit breaker so a
// flapping provider degrades the caller to fingerprint-only dedup
// instead of hanging the hot path.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainpulse/signal-engine/internal/extract"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// Cache persists embeddings across process restarts and across
// duplicate text seen by different sources. internal/storage/cache's
// Redis wrapper satisfies this.
type Cache interface {
	GetEmbedding(fingerprint string) ([]float32, bool)
	SetEmbedding(fingerprint string, vec []float32) error
}

// ErrUnavailable is returned for every call when no client is configured
// (no API key) or while the breaker is open. Callers treat this the same
// as any other embedding failure: fall back to fingerprint-only dedup.
var ErrUnavailable = errors.New("embedding oracle unavailable")

// Client wraps go-openai's embeddings endpoint behind a circuit breaker.
// The zero value with a nil openai client is valid and always returns
// ErrUnavailable, which is how "not configured" and "failing" share one
// code path.
type Client struct {
	openai  *openai.Client
	model   openai.EmbeddingModel
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	cache   Cache
}

// Config configures the embedding client. APIKey empty leaves the client
// permanently unavailable. Cache is optional; when set, embeddings are
// looked up and stored by content fingerprint.
type Config struct {
	APIKey  string
	Model   openai.EmbeddingModel
	Timeout time.Duration
	Cache   Cache
}

// New builds a Client from Config, wiring a circuit breaker that opens
// after 5 consecutive failures and probes again after 30s.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = openai.AdaEmbeddingV2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var oc *openai.Client
	if cfg.APIKey != "" {
		oc = openai.NewClient(cfg.APIKey)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "embedding-oracle",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{openai: oc, model: model, breaker: cb, timeout: timeout, cache: cfg.Cache}
}

// Embed satisfies dedup.EmbeddingOracle.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.openai == nil {
		return nil, ErrUnavailable
	}

	fp := extract.Fingerprint(text)
	if c.cache != nil {
		if vec, ok := c.cache.GetEmbedding(fp); ok {
			return vec, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.openai.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: c.model,
			Input: []string{text},
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("embedding response had no data")
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	vec := result.([]float32)
	if c.cache != nil {
		if err := c.cache.SetEmbedding(fp, vec); err != nil {
			return vec, nil
		}
	}
	return vec, nil
}

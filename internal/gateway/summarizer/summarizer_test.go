package summarizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeWithoutAPIKeyReturnsUnavailable(t *testing.T) {
	c := New(Config{})
	_, err := c.Summarize(context.Background(), "FOO", []string{"looks bullish"})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

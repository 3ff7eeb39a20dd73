package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbedWithoutAPIKeyReturnsUnavailable(t *testing.T) {
	c := New(Config{})
	_, err := c.Embed(context.Background(), "hello world")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

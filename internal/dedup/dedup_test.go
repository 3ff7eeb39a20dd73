package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeOracle struct {
	vectors map[string][]float32
}

func (f *fakeOracle) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestExactDuplicateWithinWindow(t *testing.T) {
	d := New(5*time.Minute, 0.85)
	ctx := context.Background()

	text := "this is a message long enough to matter for dedup purposes"
	dup, _ := d.IsDuplicate(ctx, text)
	assert.False(t, dup)

	d.MarkSeen(ctx, text)

	dup, fp := d.IsDuplicate(ctx, text)
	assert.True(t, dup)
	assert.NotEmpty(t, fp)
}

func TestSemanticDuplicateThreshold(t *testing.T) {
	oracle := &fakeOracle{vectors: map[string][]float32{
		"alpha message about the gem token right here": {1, 0, 0},
		"a slightly different alpha message about gem":  {0.95, 0.05, 0},
		"totally unrelated text about something else":   {0, 1, 0},
	}}
	d := New(5*time.Minute, 0.85, WithEmbeddingOracle(oracle))
	ctx := context.Background()

	d.MarkSeen(ctx, "alpha message about the gem token right here")

	dup, _ := d.IsDuplicate(ctx, "a slightly different alpha message about gem")
	assert.True(t, dup)

	dup2, _ := d.IsDuplicate(ctx, "totally unrelated text about something else")
	assert.False(t, dup2)
}

func TestDeduplicateBatchStableOrder(t *testing.T) {
	texts := []string{"hello world", "HELLO   world", "goodbye world"}
	out := DeduplicateBatch(texts)
	assert.Equal(t, []string{"hello world", "goodbye world"}, out)
}

func TestOracleDownFallsBackToFingerprintOnly(t *testing.T) {
	d := New(5*time.Minute, 0.85)
	ctx := context.Background()
	text := "a message with more than twenty characters in it"
	d.MarkSeen(ctx, text)
	dup, _ := d.IsDuplicate(ctx, text)
	assert.True(t, dup)
}

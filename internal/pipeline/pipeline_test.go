package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRawMessageRoundTrips(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	values := map[string]interface{}{
		"id":          "m1",
		"source_id":   "s1",
		"source_name": "Alpha Calls",
		"timestamp":   now.Format(time.RFC3339Nano),
		"text":        "$FOO to the moon",
		"reply_to_id": "",
	}

	raw, ok := decodeRawMessage(values)
	require.True(t, ok)
	assert.Equal(t, "m1", raw.ID)
	assert.Equal(t, "s1", raw.SourceID)
	assert.Equal(t, "Alpha Calls", raw.SourceName)
	assert.True(t, raw.Timestamp.Equal(now))
	assert.Equal(t, "$FOO to the moon", raw.Text)
}

func TestDecodeRawMessageRejectsMissingFields(t *testing.T) {
	_, ok := decodeRawMessage(map[string]interface{}{"text": "hello"})
	assert.False(t, ok)

	_, ok = decodeRawMessage(map[string]interface{}{"source_id": "s1"})
	assert.False(t, ok)
}

func TestDecodeRawMessageFallsBackOnBadTimestamp(t *testing.T) {
	raw, ok := decodeRawMessage(map[string]interface{}{
		"source_id": "s1",
		"text":      "hello",
		"timestamp": "not-a-time",
	})
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), raw.Timestamp, 5*time.Second)
}

func TestIsBusyGroupAndRedisNil(t *testing.T) {
	assert.True(t, isBusyGroup(assertErr("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(assertErr("some other error")))
	assert.True(t, isRedisNil(assertErr("redis: nil")))
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(s string) error { return simpleErr(s) }

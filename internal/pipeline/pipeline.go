// Package pipeline implements the Redis Streams ingest fan-in that feeds
// raw chat messages into the batch scheduler.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chainpulse/signal-engine/internal/storage/cache"
	"github.com/chainpulse/signal-engine/pkg/models"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

const rawStream = "signal:raw_messages"

// Ingest reads raw chat messages published to a Redis stream and buffers
// them for the batch scheduler to drain. It satisfies jobs.BatchSource.
type Ingest struct {
	cache    *cache.Redis
	log      *logger.Logger
	group    string
	consumer string
}

// NewIngest builds an Ingest reading from the given consumer group. The
// stream and group are created on first use if absent.
func NewIngest(c *cache.Redis, log *logger.Logger, group, consumer string) *Ingest {
	return &Ingest{cache: c, log: log, group: group, consumer: consumer}
}

// Publish pushes a raw message onto the ingest stream. Chat adapters call
// this as messages arrive.
func (p *Ingest) Publish(msg models.RawMessage) error {
	values := map[string]interface{}{
		"id":          msg.ID,
		"source_id":   msg.SourceID,
		"source_name": msg.SourceName,
		"timestamp":   msg.Timestamp.Format(time.RFC3339Nano),
		"text":        msg.Text,
		"reply_to_id": msg.ReplyToID,
	}
	if err := p.cache.XAdd(rawStream, values); err != nil {
		return fmt.Errorf("failed to publish raw message: %w", err)
	}
	return nil
}

// Drain satisfies jobs.BatchSource: it reads whatever is pending on the
// consumer group, waiting at most 50 ms when nothing is pending, ACKing
// every message it successfully decodes so it is not redelivered.
func (p *Ingest) Drain(ctx context.Context) []models.RawMessage {
	if err := p.cache.XGroupCreate(rawStream, p.group); err != nil {
		if !isBusyGroup(err) {
			p.log.Warning("failed to create consumer group", map[string]interface{}{"error": err.Error()})
			return nil
		}
	}

	xmsgs, err := p.cache.XReadGroup(rawStream, p.group, p.consumer, 500, 50*time.Millisecond)
	if err != nil {
		if !isRedisNil(err) {
			p.log.Warning("error reading raw message stream", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}

	out := make([]models.RawMessage, 0, len(xmsgs))
	for _, xm := range xmsgs {
		raw, ok := decodeRawMessage(xm.Values)
		if !ok {
			continue
		}
		out = append(out, raw)
		if err := p.cache.XAck(rawStream, p.group, xm.ID); err != nil {
			p.log.Warning("failed to ack raw message", map[string]interface{}{"id": xm.ID, "error": err.Error()})
		}
	}

	select {
	case <-ctx.Done():
	default:
	}

	return out
}

func decodeRawMessage(values map[string]interface{}) (models.RawMessage, bool) {
	var raw models.RawMessage
	id, _ := values["id"].(string)
	sourceID, _ := values["source_id"].(string)
	sourceName, _ := values["source_name"].(string)
	text, _ := values["text"].(string)
	replyTo, _ := values["reply_to_id"].(string)
	tsRaw, _ := values["timestamp"].(string)

	if sourceID == "" || text == "" {
		return raw, false
	}

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		ts = time.Now()
	}

	raw = models.RawMessage{
		ID:         id,
		SourceID:   sourceID,
		SourceName: sourceName,
		Timestamp:  ts,
		Text:       text,
		ReplyToID:  replyTo,
	}
	return raw, true
}

func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func isRedisNil(err error) bool {
	return err != nil && strings.Contains(err.Error(), "redis: nil")
}

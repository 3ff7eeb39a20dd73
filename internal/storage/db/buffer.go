package db

import (
	"context"
	"sync"
	"time"

	"github.com/chainpulse/signal-engine/pkg/models"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

// BufferedSink wraps Connection's Retire with an in-memory ring buffer so
// a momentary outage on the database does not block the Clustering
// Engine's retirement path. When the buffer is full the oldest pending
// cluster is dropped and counted rather than blocking the publisher.
type BufferedSink struct {
	conn    *Connection
	log     *logger.Logger
	mu      sync.Mutex
	pending []*models.Cluster
	cap     int
	dropped int64
}

// NewBufferedSink wraps conn with a bounded retry buffer of the given
// capacity and starts the background flush loop, which calls
// FlushPending once a minute for the life of the process.
func NewBufferedSink(conn *Connection, log *logger.Logger, capacity int) *BufferedSink {
	if capacity <= 0 {
		capacity = 1000
	}
	b := &BufferedSink{conn: conn, log: log, cap: capacity}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			b.FlushPending(context.Background())
		}
	}()
	return b
}

// Retire satisfies cluster.Sink. It waits at most 2 s for the immediate
// write; a failed write is queued for the background flush loop.
func (b *BufferedSink) Retire(cl *models.Cluster) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.conn.StoreCluster(ctx, cl); err == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) >= b.cap {
		b.pending = b.pending[1:]
		b.dropped++
		b.log.Warning("retirement buffer full, dropping oldest cluster", map[string]interface{}{
			"dropped_total": b.dropped,
		})
	}
	b.pending = append(b.pending, cl)
}

// Dropped returns the number of clusters dropped because the buffer was
// full while the database was unreachable.
func (b *BufferedSink) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// FlushPending retries every buffered cluster once, removing the ones
// that succeed. The loop started by NewBufferedSink calls it once a
// minute.
func (b *BufferedSink) FlushPending(ctx context.Context) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	var stillFailing []*models.Cluster
	for _, cl := range pending {
		storeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := b.conn.StoreCluster(storeCtx, cl)
		cancel()
		if err != nil {
			stillFailing = append(stillFailing, cl)
		}
	}

	if len(stillFailing) == 0 {
		return
	}

	b.mu.Lock()
	b.pending = append(stillFailing, b.pending...)
	if len(b.pending) > b.cap {
		overflow := len(b.pending) - b.cap
		b.pending = b.pending[overflow:]
		b.dropped += int64(overflow)
	}
	b.mu.Unlock()
}

package api

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/chainpulse/signal-engine/pkg/models"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

// subscriberBuffer bounds how far behind a single websocket subscriber
// may fall before it is dropped rather than blocking the publisher.
const subscriberBuffer = 64

// Hub fans out cluster updates to every connected websocket subscriber.
// A slow subscriber is disconnected instead of backpressuring the
// publish path.
type Hub struct {
	log *logger.Logger

	mu          sync.Mutex
	subscribers map[*websocket.Conn]chan []byte
	dropped     int64
}

// NewHub builds an empty Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{log: log, subscribers: make(map[*websocket.Conn]chan []byte)}
}

// Register adds conn to the fan-out set and starts its writer goroutine.
func (h *Hub) Register(conn *websocket.Conn) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[conn] = ch
	h.mu.Unlock()

	go h.writeLoop(conn, ch)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan []byte) {
	defer func() {
		h.mu.Lock()
		delete(h.subscribers, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for payload := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// Publish broadcasts a cluster update to every subscriber. Subscribers
// whose buffer is full are dropped, never blocked on.
func (h *Hub) Publish(cl *models.Cluster) {
	payload, err := json.Marshal(cl)
	if err != nil {
		h.log.Warning("failed to marshal cluster for push", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.subscribers {
		select {
		case ch <- payload:
		default:
			h.dropped++
			delete(h.subscribers, conn)
			close(ch)
			conn.Close()
		}
	}
}

// Subscribers reports the current number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Dropped reports how many subscribers have been disconnected for
// falling behind.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

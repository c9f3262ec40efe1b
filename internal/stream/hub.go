// Package stream fans ingested samples out to live WebSocket subscribers.
package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voltlog/internal/models"
)

// Hub tracks live subscribers and broadcasts each accepted sample to all of
// them. Delivery is best-effort: a slow subscriber drops messages, never
// blocks ingestion.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Client
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds the subscriber hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[string]*Client),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers a subscriber.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Remove drops a subscriber.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// NewClientID allocates a subscriber identifier.
func (h *Hub) NewClientID() string {
	return uuid.NewString()
}

// Broadcast sends a sample to every subscriber.
func (h *Hub) Broadcast(sample *models.TelemetrySample) {
	payload, err := json.Marshal(sample)
	if err != nil {
		h.logger.Warn("sample marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Send(payload)
	}
}

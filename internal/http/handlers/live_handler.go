package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voltlog/internal/stream"
)

// LiveHandler upgrades GET /ws/live connections into hub subscribers.
type LiveHandler struct {
	hub      *stream.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewLiveHandler builds the handler.
func NewLiveHandler(hub *stream.Hub, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the connection and registers it with the hub.
func (h *LiveHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := h.hub.NewClientID()
	client := stream.NewClient(id, conn, 10*time.Second, 30*time.Second, h.logger, func(id string) {
		h.hub.Remove(id)
		cancel()
	})
	h.hub.Add(client)

	go client.Start(ctx)
	h.logger.Info("live subscriber connected", zap.String("client_id", id))
}

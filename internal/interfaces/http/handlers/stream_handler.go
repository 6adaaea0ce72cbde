package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/turtacn/sentra/internal/infrastructure/events"
	"github.com/turtacn/sentra/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// StreamHandler streams pipeline lifecycle events to WebSocket clients. Each
// client gets its own bounded subscription; a slow client loses the oldest
// events instead of stalling the pipeline.
type StreamHandler struct {
	bus      *events.Bus
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewStreamHandler creates the event stream handler.
func NewStreamHandler(bus *events.Bus, log logger.Logger) *StreamHandler {
	return &StreamHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.WithComponent("stream"),
	}
}

// Stream upgrades the connection and forwards the tenant's events until the
// client disconnects.
// GET /api/v1/events/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn(c.Request.Context(), "WebSocket upgrade failed",
			logger.String("error", err.Error()),
		)
		return
	}

	sub := h.bus.Subscribe(tenantID(c))
	defer sub.Close()
	defer conn.Close()

	// Reader goroutine: consume control frames and detect disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case event := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

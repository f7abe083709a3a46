package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blackjack/internal/stats"
)

// HTTP upgrade handler for the live stats feed

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// read-only feed, any dashboard origin may watch
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

// LiveStatsHandler upgrades the request and pushes a snapshot every interval
// until the peer goes away.
func LiveStatsHandler(src SnapshotSource, serverName string, interval time.Duration) gin.HandlerFunc {
	if interval <= 0 {
		interval = time.Second
	}
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error
			slog.Warn("websocket_upgrade_failed", "error", err)
			return
		}

		client := NewClient(uuid.NewString(), serverName, conn, src, interval)
		slog.Info("live_stats_client_connected",
			"client_id", client.ID,
			"remote_addr", c.Request.RemoteAddr,
		)

		go client.ReadPump()
		client.WritePump()
	}
}

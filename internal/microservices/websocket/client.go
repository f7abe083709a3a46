package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blackjack/internal/microservices/http-api/dto"
)

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time to write a message to the peer
	PongWait       = 60 * time.Second    // no pong within this = no connection
	PingPeriod     = (PongWait * 9) / 10 // ping before pong wait expires
	MaxMessageSize = 512                 // maximum message size allowed from peer
)

// Client is one live stats subscriber.
type Client struct {
	ID         string
	ServerName string
	Conn       *websocket.Conn
	src        SnapshotSource
	interval   time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(id, serverName string, conn *websocket.Conn, src SnapshotSource, interval time.Duration) *Client {
	return &Client{
		ID:         id,
		ServerName: serverName,
		Conn:       conn,
		src:        src,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

// ReadPump discards anything the peer sends and notices when it leaves.
func (c *Client) ReadPump() {
	defer c.Close()

	c.Conn.SetReadLimit(MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("live_stats_read_error", "client_id", c.ID, "error", err)
			}
			return
		}
	}
}

// WritePump sends the first snapshot right away, then one per interval, with
// pings in between.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.interval)
	ping := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
		c.Close()
	}()

	if err := c.SendSnapshot(); err != nil {
		return
	}
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.SendSnapshot(); err != nil {
				slog.Debug("live_stats_write_failed", "client_id", c.ID, "error", err)
				return
			}
		case <-ping.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) SendSnapshot() error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.Conn.WriteJSON(dto.StatsFromSnapshot(c.ServerName, c.src.Snapshot()))
}

// Close is safe to call from both pumps.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.Conn.Close()
		slog.Info("live_stats_client_disconnected", "client_id", c.ID)
	})
	return err
}

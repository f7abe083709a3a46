package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackjack/internal/session"
	"blackjack/internal/stats"
)

// DefaultReadTimeout closes a session whose client has gone quiet.
const DefaultReadTimeout = 60 * time.Second

// ClientConnection wraps one accepted socket. It arms a fresh deadline before
// every read and write, so an idle or stalled client always releases its slot.
type ClientConnection struct {
	ID      string // unique identifier = key in map
	conn    net.Conn
	Manager *ConnectionManager
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func NewClientConnection(conn net.Conn, manager *ConnectionManager, timeout time.Duration) *ClientConnection {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &ClientConnection{
		ID:      uuid.NewString(),
		conn:    conn,
		Manager: manager,
		timeout: timeout,
	}
}

func (c *ClientConnection) Read(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.conn.Read(p)
}

func (c *ClientConnection) Write(p []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.conn.Write(p)
}

func (c *ClientConnection) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Close is safe to call more than once.
func (c *ClientConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Serve runs one session over the connection and logs how it ended.
func (c *ClientConnection) Serve(ctx context.Context, reg *stats.Registry, opts ...session.Option) (session.Summary, error) {
	logger := c.Manager.logger.With("session_id", c.ID)
	logger.Info("session_started",
		"remote_addr", c.RemoteAddr(),
	)

	engine := session.New(c.ID, c, reg, append(opts, session.WithLogger(c.Manager.logger))...)
	summary, err := engine.Run(ctx)

	attrs := []any{
		"requested", summary.Requested,
		"completed", summary.Completed,
		"wins", summary.Wins,
		"losses", summary.Losses,
		"pushes", summary.Pushes,
	}
	switch {
	case err == nil:
		logger.Info("session_completed", attrs...)
	case errors.Is(err, session.ErrTimeout):
		logger.Warn("client_read_timeout", attrs...)
	case errors.Is(err, session.ErrClientGone), errors.Is(err, context.Canceled):
		logger.Info("client_disconnected", attrs...)
	case errors.Is(err, session.ErrProtocolViolation):
		logger.Warn("client_protocol_violation", append(attrs, "error", err.Error())...)
	default:
		logger.Error("session_error", append(attrs, "error", err.Error())...)
	}
	return summary, err
}

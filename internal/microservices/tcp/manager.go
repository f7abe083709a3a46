package tcp

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrManagerClosed is returned by AddConnection once shutdown has started.
var ErrManagerClosed = errors.New("connection manager closed")

// ConnectionManager tracks every live client connection so shutdown can reach
// them all.
type ConnectionManager struct {
	clients map[string]*ClientConnection
	// key: session ID
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

func NewConnectionManager(logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		clients: make(map[string]*ClientConnection),
		logger:  logger,
	}
}

// AddConnection registers client. After CloseAllConnections it refuses new
// clients so none can slip past shutdown.
func (m *ConnectionManager) AddConnection(client *ClientConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	m.clients[client.ID] = client
	m.logger.Debug("client_added",
		"session_id", client.ID,
		"remote_addr", client.RemoteAddr(),
	)
	return nil
}

func (m *ConnectionManager) RemoveConnection(client *ClientConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, client.ID)
	m.logger.Debug("client_removed",
		"session_id", client.ID,
	)
}

// CloseAllConnections closes every registered connection. Their sessions see
// the close as a read error and unwind on their own.
func (m *ConnectionManager) CloseAllConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, client := range m.clients {
		_ = client.Close()
		m.logger.Info("client_connection_closed",
			"session_id", id,
		)
	}
	m.clients = make(map[string]*ClientConnection)
}

// Count is the number of live connections.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

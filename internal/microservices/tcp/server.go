// Package tcp accepts game connections and runs one session per client on a
// bounded worker pool.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"blackjack/internal/game"
	"blackjack/internal/session"
	"blackjack/internal/stats"
)

type ServerConfig struct {
	Host        string
	Port        int // 0 lets the OS pick
	ReadTimeout time.Duration
	MaxSessions int
	AcceptRate  float64 // connections per second, 0 means unlimited
	AcceptBurst int
	CardPacing  time.Duration
}

type TCPServer struct {
	cfg     ServerConfig
	Manager *ConnectionManager
	reg     *stats.Registry
	logger  *slog.Logger

	listener net.Listener
	pool     *ants.Pool
	limiter  *rate.Limiter
	decks    func() *game.Deck

	// ctx is cancelled by Stop and is the parent of every session
	ctx      context.Context
	cancel   context.CancelFunc
	quitChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type ServerOption func(*TCPServer)

func WithLogger(l *slog.Logger) ServerOption {
	return func(s *TCPServer) { s.logger = l }
}

// WithDeckSource replaces the per-round deck factory handed to sessions.
func WithDeckSource(fn func() *game.Deck) ServerOption {
	return func(s *TCPServer) { s.decks = fn }
}

// NewServer binds the listening socket right away so Port is known before
// Start, which the offer broadcaster needs.
func NewServer(cfg ServerConfig, reg *stats.Registry, opts ...ServerOption) (*TCPServer, error) {
	if reg == nil {
		return nil, errors.New("tcp: nil stats registry")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	s := &TCPServer{
		cfg:      cfg,
		reg:      reg,
		logger:   slog.Default(),
		quitChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Manager = NewConnectionManager(s.logger)

	limit := rate.Inf
	if cfg.AcceptRate > 0 {
		limit = rate.Limit(cfg.AcceptRate)
	}
	burst := cfg.AcceptBurst
	if burst <= 0 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(limit, burst)

	pool, err := ants.NewPool(cfg.MaxSessions,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			s.logger.Error("session_worker_panic", "panic", fmt.Sprint(p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session pool: %w", err)
	}
	s.pool = pool

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		pool.Release()
		return nil, fmt.Errorf("failed to start TCP server, error: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Port is the bound TCP port.
func (s *TCPServer) Port() uint16 {
	if a, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return uint16(a.Port)
	}
	return 0
}

func (s *TCPServer) Addr() string { return s.listener.Addr().String() }

// Start runs the accept loop until Stop is called or ctx is cancelled.
func (s *TCPServer) Start(ctx context.Context) error {
	// the loop itself holds the wait group so late Adds never race Wait
	s.wg.Add(1)
	defer s.wg.Done()

	stop := context.AfterFunc(ctx, func() { go s.Stop() })
	defer stop()

	s.logger.Info("tcp_server_started",
		"addr", s.Addr(),
		"max_sessions", s.cfg.MaxSessions,
	)

	for {
		if err := s.limiter.Wait(s.ctx); err != nil {
			if s.stopping() {
				return nil
			}
			return fmt.Errorf("accept limiter: %w", err)
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("failed_to_accept_connection", "error", err)
			continue
		}
		s.dispatch(conn)
	}
}

func (s *TCPServer) stopping() bool {
	select {
	case <-s.quitChan:
		return true
	default:
		return false
	}
}

func (s *TCPServer) dispatch(conn net.Conn) {
	client := NewClientConnection(conn, s.Manager, s.cfg.ReadTimeout)

	s.wg.Add(1)
	err := s.pool.Submit(func() {
		defer s.wg.Done()
		s.handleConnection(client)
	})
	if err != nil {
		// pool saturated: turn the client away without touching active sessions
		s.wg.Done()
		s.reg.RecordRejected()
		s.logger.Warn("session_rejected",
			"remote_addr", client.RemoteAddr(),
			"running", s.pool.Running(),
			"error", err,
		)
		_ = client.Close()
	}
}

// handleConnection owns the lifecycle of a single session.
func (s *TCPServer) handleConnection(client *ClientConnection) {
	defer client.Close()
	if err := s.Manager.AddConnection(client); err != nil {
		return
	}
	defer s.Manager.RemoveConnection(client)

	s.reg.SessionOpened()
	aborted := true
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session_panic",
				"session_id", client.ID,
				"panic", fmt.Sprint(r),
			)
		}
		s.reg.SessionClosed(aborted)
	}()

	opts := []session.Option{session.WithPacing(s.cfg.CardPacing)}
	if s.decks != nil {
		opts = append(opts, session.WithDeckSource(s.decks))
	}
	_, err := client.Serve(s.ctx, s.reg, opts...)
	aborted = err != nil
}

// Stop closes the listener and every live connection, then waits for all
// sessions to unwind. Safe to call more than once.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.quitChan)
		s.cancel()
		_ = s.listener.Close()
		s.Manager.CloseAllConnections()
		s.wg.Wait()
		s.pool.Release()
		s.logger.Info("tcp_server_stopped")
	})
}

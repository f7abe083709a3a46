// Package httpapi serves read-only server statistics over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"blackjack/internal/microservices/http-api/handler"
	"blackjack/internal/microservices/websocket"
)

type Config struct {
	Host         string
	Port         int
	ServerName   string
	LiveInterval time.Duration
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(src handler.SnapshotSource, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/check-conn", handler.CheckConn)

	statsGroup := r.Group("/api/stats")
	handler.NewStatsHandler(src, cfg.ServerName).RegisterRoutes(statsGroup)
	statsGroup.GET("/live", websocket.LiveStatsHandler(src, cfg.ServerName, cfg.LiveInterval))
	return r
}

type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewServer binds the address so Addr is valid before Start.
func NewServer(src handler.SnapshotSource, cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return &Server{
		srv: &http.Server{
			Handler:           NewRouter(src, cfg),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}, nil
}

func (s *Server) Addr() string { return s.listener.Addr().String() }

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http_server_started", "addr", s.Addr())
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

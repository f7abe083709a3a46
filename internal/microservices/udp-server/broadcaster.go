// Package udp announces the game server on the local network and lets clients
// find it.
package udp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"blackjack/internal/protocol"
)

const (
	DefaultDiscoveryPort = 13122
	DefaultBroadcastAddr = "255.255.255.255"
	DefaultOfferInterval = time.Second
)

type BroadcasterConfig struct {
	ServerName    string
	BroadcastAddr string
	Port          int // destination port, the one clients listen on
	Interval      time.Duration
	Logger        *slog.Logger
}

// Broadcaster sends one Offer per interval for as long as the server runs.
type Broadcaster struct {
	cfg    BroadcasterConfig
	portFn func() uint16
	logger *slog.Logger
	sent   atomic.Uint64
}

// NewBroadcaster takes the game port as a func because it is only known once
// the TCP listener is bound.
func NewBroadcaster(cfg BroadcasterConfig, portFn func() uint16) *Broadcaster {
	if cfg.BroadcastAddr == "" {
		cfg.BroadcastAddr = DefaultBroadcastAddr
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultDiscoveryPort
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultOfferInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{cfg: cfg, portFn: portFn, logger: logger}
}

// Sent is the number of offers written so far.
func (b *Broadcaster) Sent() uint64 { return b.sent.Load() }

// Run blocks until ctx is cancelled. A failed send is logged and the next tick
// tries again; only socket setup errors are returned.
func (b *Broadcaster) Run(ctx context.Context) error {
	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(b.cfg.BroadcastAddr, strconv.Itoa(b.cfg.Port)))
	if err != nil {
		return fmt.Errorf("failed to resolve broadcast address: %w", err)
	}

	lc := net.ListenConfig{Control: broadcastControl}
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return fmt.Errorf("failed to open broadcast socket: %w", err)
	}
	defer conn.Close()

	b.logger.Info("offer_broadcast_started",
		"destination", dst.String(),
		"server_name", b.cfg.ServerName,
		"interval", b.cfg.Interval.String(),
	)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		b.send(conn, dst)
		select {
		case <-ctx.Done():
			b.logger.Info("offer_broadcast_stopped", "sent", b.Sent())
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Broadcaster) send(conn net.PacketConn, dst net.Addr) {
	data, err := protocol.Encode(protocol.Offer{Port: b.portFn(), ServerName: b.cfg.ServerName})
	if err != nil {
		b.logger.Error("offer_encode_failed", "error", err)
		return
	}
	if _, err := conn.WriteTo(data, dst); err != nil {
		b.logger.Warn("offer_send_failed",
			"destination", dst.String(),
			"error", err,
		)
		return
	}
	b.sent.Add(1)
}

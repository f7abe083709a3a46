package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blackjack/internal/config"
	httpapi "blackjack/internal/microservices/http-api"
	"blackjack/internal/microservices/tcp"
	udp "blackjack/internal/microservices/udp-server"
	"blackjack/internal/stats"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// Setup structured logging
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_error", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := stats.NewRegistry()

	server, err := tcp.NewServer(tcp.ServerConfig{
		Host:        cfg.TCPHost,
		Port:        cfg.TCPPort,
		ReadTimeout: cfg.ReadTimeout,
		MaxSessions: cfg.MaxSessions,
		AcceptRate:  cfg.AcceptRate,
		AcceptBurst: cfg.AcceptBurst,
		CardPacing:  cfg.CardPacing,
	}, reg, tcp.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("starting_server",
		"server_name", cfg.ServerName,
		"tcp_addr", server.Addr(),
		"discovery_port", cfg.DiscoveryPort,
		"http_port", cfg.HTTPPort,
		"redis_enabled", cfg.RedisURL != "",
	)

	errChan := make(chan error, 4)
	go func() {
		if err := server.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	broadcaster := udp.NewBroadcaster(udp.BroadcasterConfig{
		ServerName:    cfg.ServerName,
		BroadcastAddr: cfg.BroadcastAddr,
		Port:          cfg.DiscoveryPort,
		Interval:      cfg.OfferInterval,
		Logger:        logger,
	}, server.Port)
	go func() {
		if err := broadcaster.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	var api *httpapi.Server
	if cfg.HTTPPort != 0 {
		api, err = httpapi.NewServer(reg, httpapi.Config{
			Host:         cfg.TCPHost,
			Port:         cfg.HTTPPort,
			ServerName:   cfg.ServerName,
			LiveInterval: time.Second,
		}, logger)
		if err != nil {
			server.Stop()
			return err
		}
		go func() {
			if err := api.Start(); err != nil {
				errChan <- err
			}
		}()
	}

	publisherDone := make(chan struct{})
	if cfg.RedisURL != "" {
		rdb, err := stats.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			// the game keeps running without the mirror
			logger.Warn("redis_unavailable", "error", err.Error())
			close(publisherDone)
		} else {
			defer rdb.Close()
			pub := stats.NewRedisPublisher(rdb, reg, cfg.ServerName, cfg.StatsPublishInterval, logger)
			go func() {
				defer close(publisherDone)
				if err := pub.Run(ctx); err != nil {
					logger.Warn("stats_publisher_stopped", "error", err.Error())
				}
			}()
		}
	} else {
		close(publisherDone)
	}

	// Wait for shutdown signal or error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case runErr = <-errChan:
		stop()
	}

	server.Stop()
	if api != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := api.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http_shutdown_failed", "error", err.Error())
		}
	}
	<-publisherDone

	snap := reg.Snapshot()
	logger.Info("server_stopped_gracefully",
		"served", snap.Served,
		"rounds", snap.Rounds,
		"win_rate", snap.WinRate(),
	)
	return runErr
}

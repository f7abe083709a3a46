package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blackjack:stats:"

// RedisPublisher mirrors registry snapshots into a Redis hash so totals can be
// read from other hosts. The key is removed on start and on shutdown; nothing
// is kept across restarts.
type RedisPublisher struct {
	client   *redis.Client
	reg      *Registry
	key      string
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func NewRedisPublisher(client *redis.Client, reg *Registry, serverName string, interval time.Duration, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RedisPublisher{
		client:   client,
		reg:      reg,
		key:      keyPrefix + serverName,
		interval: interval,
		ttl:      3 * interval,
		logger:   logger,
	}
}

func (p *RedisPublisher) Key() string { return p.key }

// Run publishes every interval until ctx is done. Write failures are logged and
// retried on the next tick.
func (p *RedisPublisher) Run(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("reset stats key: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Publish(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("stats_publish_failed", "key", p.key, "error", err)
		}
		select {
		case <-ctx.Done():
			cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := p.client.Del(cleanup, p.key).Err(); err != nil {
				p.logger.Warn("stats_key_cleanup_failed", "key", p.key, "error", err)
			}
			return nil
		case <-ticker.C:
		}
	}
}

// Publish writes the current snapshot once.
func (p *RedisPublisher) Publish(ctx context.Context) error {
	s := p.reg.Snapshot()
	fields := map[string]any{
		"served":     s.Served,
		"active":     s.Active,
		"rounds":     s.Rounds,
		"wins":       s.Wins,
		"losses":     s.Losses,
		"pushes":     s.Pushes,
		"aborted":    s.Aborted,
		"rejected":   s.Rejected,
		"win_rate":   strconv.FormatFloat(s.WinRate(), 'f', 4, 64),
		"started_at": s.StartedAt.Format(time.RFC3339Nano),
		"taken_at":   s.TakenAt.Format(time.RFC3339Nano),
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, p.key, fields)
	pipe.Expire(ctx, p.key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

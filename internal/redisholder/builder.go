package redisholder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/config"
)

var errNoNodes = errors.New("no nodes defined")

// Build connects to Redis and keeps the connection alive in the background
// until ctx is done. REDIS_URL wins; otherwise the configured nodes are tried
// as a cluster first and then one by one.
func Build(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*Holder, error) {
	cl, err := connect(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}

	h := NewHolder(cl)

	go healthLoop(ctx, h, cfg, logger)

	return h, nil
}

func connect(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (redis.UniversalClient, error) {
	if cfg.URL != "" {
		return newURLClient(ctx, cfg)
	}

	cl, err := newClusterClient(ctx, cfg)
	if err == nil {
		return cl, nil
	}
	logger.Info("redis cluster client failed, using single-node client", zap.Error(err))

	return newClient(ctx, cfg)
}

func healthLoop(ctx context.Context, h *Holder, cfg *config.RedisConfig, logger *zap.Logger) {
	logger.Debug("redis health loop started", zap.Duration("interval", cfg.HealthCheckInterval))

	ping := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.Get().Ping(pingCtx).Err()
		cancel()

		if err == nil || ctx.Err() != nil {
			return
		}
		logger.Warn("redis ping failed, reconnecting", zap.Error(err))

		newCl, err := connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("redis reconnect failed", zap.Error(err))
			return
		}

		if old := h.swap(newCl); old != nil {
			_ = old.Close()
		}
		logger.Info("redis reconnected")
	}

	t := time.NewTicker(cfg.HealthCheckInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = h.Close()
			logger.Debug("redis health loop stopped", zap.Error(ctx.Err()))
			return
		case <-t.C:
			ping()
		}
	}
}

func newURLClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	cl := redis.NewClient(opts)
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("error pinging redis server: %w", err)
	}
	return cl, nil
}

func newClusterClient(ctx context.Context, cfg *config.RedisConfig) (*redis.ClusterClient, error) {
	if len(cfg.Nodes) < 2 {
		return nil, errNoNodes
	}

	nodeAddrs := make([]string, 0, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		nodeAddrs = append(nodeAddrs, node.Addr())
	}

	cl := redis.NewClusterClient(&redis.ClusterOptions{
		RouteByLatency: true,
		Password:       cfg.Password,
		Addrs:          nodeAddrs,
		DialTimeout:    cfg.DialTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		PoolSize:       20,
		PoolTimeout:    30 * time.Second,
		MaxRetries:     5,
	})

	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("error pinging redis cluster: %w", err)
	}

	return cl, nil
}

func newClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	stickyErr := errNoNodes

	for _, node := range cfg.Nodes {
		cl := redis.NewClient(&redis.Options{
			Addr:         node.Addr(),
			Password:     cfg.Password,
			DB:           cfg.DatabaseID,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})

		if err := cl.Ping(ctx).Err(); err != nil {
			_ = cl.Close()
			stickyErr = fmt.Errorf("error pinging redis server: %w", err)
			continue
		}

		return cl, nil
	}

	return nil, stickyErr
}

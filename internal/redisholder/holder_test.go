package redisholder

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/config"
)

func redisConfig() config.RedisConfig {
	return config.RedisConfig{
		HealthCheckInterval: time.Hour,
		DialTimeout:         time.Second,
		ReadTimeout:         time.Second,
		WriteTimeout:        time.Second,
	}
}

func TestBuildFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig()
	cfg.URL = "redis://" + mr.Addr() + "/0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := Build(ctx, &cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, h.Get().Set(ctx, "k", "v", 0).Err())

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestBuildFromSingleNode(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, ok := strings.Cut(mr.Addr(), ":")
	require.True(t, ok)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := redisConfig()
	cfg.Nodes = []config.RedisNode{{Host: host, Port: p}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := Build(ctx, &cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, h.Get().Ping(ctx).Err())
}

func TestBuildNoNodes(t *testing.T) {
	cfg := redisConfig()
	_, err := Build(context.Background(), &cfg, zap.NewNop())
	assert.ErrorIs(t, err, errNoNodes)
}

func TestHolderSwap(t *testing.T) {
	a := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	b := redis.NewClusterClient(&redis.ClusterOptions{Addrs: []string{"127.0.0.1:1"}})

	h := NewHolder(a)
	assert.Same(t, a, h.Get())

	old := h.swap(b)
	assert.Same(t, a, old)
	assert.Same(t, b, h.Get())

	_ = a.Close()
	assert.NoError(t, h.Close())
}

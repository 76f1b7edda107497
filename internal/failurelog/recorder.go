// Package failurelog records the keys of objects that could not be fetched
// or uploaded, and reads them back for replay.
package failurelog

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/NFT-com/image-resizer/internal/config"
)

// Recorder appends one source key per failure. Implementations must make a
// single append atomic; ordering between concurrent appends is not kept.
type Recorder interface {
	Append(ctx context.Context, key string) error
}

// ClientGetter returns the Redis client to use for the next command.
type ClientGetter interface {
	Get() redis.UniversalClient
}

// KeySource yields previously recorded keys in append order.
type KeySource interface {
	Each(ctx context.Context, fn func(key string) error) error
}

type Noop struct{}

func (Noop) Append(context.Context, string) error { return nil }

var ErrNoRedis = errors.New("failure log stream configured without a redis client")

// New picks the backend from config: a Redis stream when one is named, else
// a file, else Noop.
func New(cfg config.FailureLogConfig, rc ClientGetter) (Recorder, error) {
	switch {
	case cfg.Stream != "":
		if rc == nil {
			return nil, ErrNoRedis
		}
		return NewStream(rc, cfg.Stream, cfg.MaxLen), nil
	case cfg.Path != "":
		f, err := OpenFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return Noop{}, nil
	}
}

package webp_converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/entities"
)

var (
	// ErrTimeout is returned when decode, resize and encode did not finish
	// within the wall-clock budget.
	ErrTimeout = errors.New("transcode timed out")

	// ErrUnsupportedInput is returned when an engine cannot decode the bytes it was given.
	ErrUnsupportedInput = errors.New("unsupported input format")
)

// Input is one decode→resize→encode job.
type Input struct {
	Data     []byte
	Type     entities.ImageType
	Animated bool
}

// Options shared by all engines.
type Options struct {
	Width   int
	Quality int
}

type Converter interface {
	ToWebP(ctx context.Context, in Input) ([]byte, error)
}

// Bounded runs a Converter on a fixed-size pool and gives up once a job has
// been running for timeout. Time spent waiting for a free worker does not
// count. Engines that call into C cannot be interrupted; an abandoned job
// keeps its pool slot until it returns and its result is discarded.
type Bounded struct {
	conv    Converter
	timeout time.Duration
	pool    pond.ResultPool[[]byte]
	logger  *zap.Logger
}

func NewBounded(conv Converter, timeout time.Duration, workers int, logger *zap.Logger) *Bounded {
	if workers <= 0 {
		workers = 1
	}
	return &Bounded{
		conv:    conv,
		timeout: timeout,
		pool:    pond.NewResultPool[[]byte](workers),
		logger:  logger,
	}
}

func (b *Bounded) ToWebP(ctx context.Context, in Input) ([]byte, error) {
	start := time.Now()
	out, err := b.Run(ctx, func(ctx context.Context) ([]byte, error) {
		return b.conv.ToWebP(ctx, in)
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug("transcoded",
		zap.String("type", string(in.Type)),
		zap.Bool("animated", in.Animated),
		zap.Int("in_bytes", len(in.Data)),
		zap.Int("out_bytes", len(out)),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

// Run executes fn on the pool. fn gets a context that expires timeout after
// it starts; the caller stops waiting at the same moment with ErrTimeout.
func (b *Bounded) Run(ctx context.Context, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	started := make(chan struct{})
	task := b.pool.SubmitErr(func() ([]byte, error) {
		close(started)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		jobCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return fn(jobCtx)
	})

	var deadline <-chan time.Time
	for {
		select {
		case <-started:
			started = nil
			timer := time.NewTimer(b.timeout)
			defer timer.Stop()
			deadline = timer.C
		case <-deadline:
			return nil, b.timedOut()
		case <-task.Done():
			out, err := task.Wait()
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					return nil, b.timedOut()
				}
				return nil, err
			}
			return out, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Bounded) timedOut() error {
	return fmt.Errorf("%w after %s", ErrTimeout, b.timeout)
}

// Close waits for running jobs and releases the pool.
func (b *Bounded) Close() {
	b.pool.StopAndWait()
}

// Package driver feeds existing objects through the pipeline: every key of
// a bucket, or every key of a failure log.
package driver

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/entities"
	"github.com/NFT-com/image-resizer/internal/failurelog"
	"github.com/NFT-com/image-resizer/internal/pipeline"
)

type Lister interface {
	List(ctx context.Context, bucket, prefix string, fn func(key string) error) error
}

// Summary counts outcomes of one driver run.
type Summary struct {
	mu       sync.Mutex
	Outcomes map[entities.Outcome]int
}

func (s *Summary) add(o entities.Outcome) {
	s.mu.Lock()
	s.Outcomes[o]++
	s.mu.Unlock()
}

func (s *Summary) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Outcomes {
		n += c
	}
	return n
}

type Driver struct {
	resizer pipeline.Resizer
	dest    pipeline.Destination
	delay   time.Duration
	workers int
	logger  *zap.Logger
}

func New(resizer pipeline.Resizer, dest pipeline.Destination, delay time.Duration, workers int, logger *zap.Logger) *Driver {
	if workers <= 0 {
		workers = 1
	}
	return &Driver{
		resizer: resizer,
		dest:    dest,
		delay:   delay,
		workers: workers,
		logger:  logger,
	}
}

// Bucket resizes every object under prefix in bucket.
func (d *Driver) Bucket(ctx context.Context, lister Lister, bucket, prefix string) (*Summary, error) {
	return d.run(ctx, bucket, func(fn func(string) error) error {
		return lister.List(ctx, bucket, prefix, fn)
	})
}

// Replay resizes every key recorded in src, reading the sources from bucket.
func (d *Driver) Replay(ctx context.Context, src failurelog.KeySource, bucket string) (*Summary, error) {
	return d.run(ctx, bucket, func(fn func(string) error) error {
		return src.Each(ctx, fn)
	})
}

func (d *Driver) run(ctx context.Context, bucket string, each func(fn func(string) error) error) (*Summary, error) {
	// Submit blocks once workers are busy and the queue is full, so listing
	// never runs more than one queue ahead of the resizes.
	pool := pond.NewPool(d.workers, pond.WithQueueSize(d.workers))
	sum := &Summary{Outcomes: make(map[entities.Outcome]int)}

	err := each(func(key string) error {
		req, err := d.dest.Request(bucket, key)
		if err != nil {
			d.logger.Debug("skipping key", zap.String("key", key), zap.Error(err))
			sum.add(entities.OutcomeSkippedType)
			return nil
		}

		pool.Submit(func() {
			outcome, _ := d.resizer.Resize(ctx, req)
			sum.add(outcome)
		})

		return pace(ctx, d.delay)
	})

	pool.StopAndWait()

	if errors.Is(err, io.EOF) {
		err = nil
	}

	d.logger.Info("driver finished",
		zap.String("bucket", bucket),
		zap.Int("processed", sum.Total()),
		zap.Any("outcomes", sum.Outcomes),
	)

	return sum, err
}

func pace(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package pipeline fetches a source image, transcodes it to WebP and stores
// the rendition next to the source bucket.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/entities"
	"github.com/NFT-com/image-resizer/internal/failurelog"
	"github.com/NFT-com/image-resizer/internal/imagetype"
	"github.com/NFT-com/image-resizer/internal/svg"
	webp_converter "github.com/NFT-com/image-resizer/internal/webp-converter"
)

var (
	ErrFetch     = errors.New("fetch source")
	ErrTranscode = errors.New("transcode")
	ErrUpload    = errors.New("upload rendition")
)

type Store interface {
	Fetch(ctx context.Context, bucket, key string) (entities.RawAsset, error)
	Put(ctx context.Context, bucket, key string, asset entities.EncodedAsset) error
}

type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte) ([]byte, error)
}

// Budget runs fn under the transcode wall-clock budget.
type Budget interface {
	Run(ctx context.Context, fn func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

type unbounded struct{}

func (unbounded) Run(ctx context.Context, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	return fn(ctx)
}

type Observer interface {
	Outcome(o entities.Outcome)
	Transcode(d time.Duration, animated bool)
}

type nopObserver struct{}

func (nopObserver) Outcome(entities.Outcome) {}
func (nopObserver) Transcode(time.Duration, bool) {}

type Option func(*Pipeline)

// WithObserver reports outcomes and transcode timings.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithBudget bounds SVG rasterization the same way transcoding is bounded.
func WithBudget(b Budget) Option {
	return func(p *Pipeline) { p.budget = b }
}

// WithDetector replaces the SVG animation check.
func WithDetector(detect func([]byte) (bool, error)) Option {
	return func(p *Pipeline) { p.detect = detect }
}

type Pipeline struct {
	store      Store
	recorder   failurelog.Recorder
	converter  webp_converter.Converter
	rasterizer Rasterizer
	budget     Budget
	detect     func([]byte) (bool, error)
	observer   Observer
	logger     *zap.Logger
}

func New(
	store Store,
	recorder failurelog.Recorder,
	converter webp_converter.Converter,
	rasterizer Rasterizer,
	logger *zap.Logger,
	opts ...Option,
) *Pipeline {
	if recorder == nil {
		recorder = failurelog.Noop{}
	}
	p := &Pipeline{
		store:      store,
		recorder:   recorder,
		converter:  converter,
		rasterizer: rasterizer,
		budget:     unbounded{},
		detect:     svg.HasAnimation,
		observer:   nopObserver{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resize runs fetch, transcode and upload for one classified request. The
// returned error is informational; every failure is already handled here
// according to its kind.
func (p *Pipeline) Resize(ctx context.Context, req entities.TranscodeRequest) (entities.Outcome, error) {
	log := p.logger.With(
		zap.String("bucket", req.SourceBucket),
		zap.String("key", req.SourceKey),
		zap.String("type", string(req.Type)),
	)

	outcome, err := p.resize(ctx, req, log)
	p.observer.Outcome(outcome)

	switch outcome {
	case entities.OutcomeUploaded:
		log.Info("rendition stored", zap.String("dest_bucket", req.DestBucket), zap.String("dest_key", req.DestKey))
	case entities.OutcomeSkippedEmpty:
		log.Info("empty object skipped")
	case entities.OutcomeFetchFailed, entities.OutcomeUploadFailed:
		log.Error("request abandoned", zap.String("outcome", string(outcome)), zap.Error(err))
		p.record(ctx, log, req.SourceKey)
	case entities.OutcomeTranscodeFailed:
		log.Error("request abandoned", zap.String("outcome", string(outcome)), zap.Error(err))
		capture(req, err)
	}

	return outcome, err
}

func (p *Pipeline) resize(ctx context.Context, req entities.TranscodeRequest, log *zap.Logger) (entities.Outcome, error) {
	asset, err := p.store.Fetch(ctx, req.SourceBucket, req.SourceKey)
	if err != nil {
		return entities.OutcomeFetchFailed, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if asset.Length == 0 || len(asset.Data) == 0 {
		return entities.OutcomeSkippedEmpty, nil
	}

	in := webp_converter.Input{
		Data:     asset.Data,
		Type:     req.Type,
		Animated: imagetype.IsAnimatedByType(req.Type),
	}

	if req.Type == entities.TypeSVG {
		animated, err := p.detect(asset.Data)
		if err != nil {
			log.Warn("svg animation check failed, encoding as still", zap.Error(err))
		}
		if animated {
			log.Debug("rasterizing animated svg")
			frames, err := p.budget.Run(ctx, func(ctx context.Context) ([]byte, error) {
				return p.rasterizer.Rasterize(ctx, asset.Data)
			})
			if err != nil {
				return entities.OutcomeTranscodeFailed, fmt.Errorf("%w: rasterize svg: %w", ErrTranscode, err)
			}
			in = webp_converter.Input{Data: frames, Type: entities.TypeGIF, Animated: true}
		}
	}

	start := time.Now()
	out, err := p.converter.ToWebP(ctx, in)
	if err != nil {
		return entities.OutcomeTranscodeFailed, fmt.Errorf("%w: %w", ErrTranscode, err)
	}
	p.observer.Transcode(time.Since(start), in.Animated)

	err = p.store.Put(ctx, req.DestBucket, req.DestKey, entities.EncodedAsset{
		Data:        out,
		ContentType: entities.ContentTypeWebP,
	})
	if err != nil {
		return entities.OutcomeUploadFailed, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	return entities.OutcomeUploaded, nil
}

func (p *Pipeline) record(ctx context.Context, log *zap.Logger, key string) {
	if err := p.recorder.Append(context.WithoutCancel(ctx), key); err != nil {
		log.Error("failure log append failed", zap.Error(err))
	}
}

func capture(req entities.TranscodeRequest, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("bucket", req.SourceBucket)
		scope.SetTag("type", string(req.Type))
		scope.SetContext("object", sentry.Context{"key": req.SourceKey})
	})
	hub.CaptureException(err)
}

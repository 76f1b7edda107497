package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/config"
	"github.com/NFT-com/image-resizer/internal/driver"
	"github.com/NFT-com/image-resizer/internal/failurelog"
	"github.com/NFT-com/image-resizer/internal/metrics"
	"github.com/NFT-com/image-resizer/internal/objectstore"
	"github.com/NFT-com/image-resizer/internal/pipeline"
	"github.com/NFT-com/image-resizer/internal/redisholder"
	"github.com/NFT-com/image-resizer/internal/svg"
	"github.com/NFT-com/image-resizer/internal/transport/handler"
	"github.com/NFT-com/image-resizer/internal/transport/router"
	webp_converter "github.com/NFT-com/image-resizer/internal/webp-converter"
	"github.com/NFT-com/image-resizer/internal/webp-converter/libvips"
)

var ErrNoSourceBucket = errors.New("no source bucket configured (SRC_BUCKET)")

type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *objectstore.S3
	redis   *redisholder.Holder
	metrics *metrics.Metrics

	recorder  failurelog.Recorder
	converter *webp_converter.Bounded
	pipeline  *pipeline.Pipeline
	handler   *pipeline.Handler

	cancel context.CancelFunc
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cfg: cfg, logger: logger, cancel: cancel}

	store, err := objectstore.NewStorage(ctx, &cfg.AWS)
	if err != nil {
		cancel()
		return nil, err
	}
	a.store = store

	var rc failurelog.ClientGetter
	if cfg.Redis.Configured() {
		a.redis, err = redisholder.Build(ctx, &cfg.Redis, logger)
		if err != nil {
			cancel()
			return nil, err
		}
		rc = a.redis
	}

	a.recorder, err = failurelog.New(cfg.FailureLog, rc)
	if err != nil {
		cancel()
		return nil, err
	}

	a.metrics, err = metrics.New()
	if err != nil {
		cancel()
		return nil, err
	}

	// the SVG renderer needs libvips whichever engine encodes
	libvips.Startup(cfg.Resize.Workers)

	opts := webp_converter.Options{Width: cfg.Resize.Width, Quality: cfg.Resize.Quality}
	var engine webp_converter.Converter = libvips.New(opts)
	if cfg.Resize.Engine == "native" {
		engine = webp_converter.NewNative(opts)
	}
	a.converter = webp_converter.NewBounded(engine, cfg.Resize.Timeout, cfg.Resize.Workers, logger)

	rasterizer := svg.NewRasterizer(libvips.SVGRenderer{}, cfg.Resize.SVGFrameRate, cfg.Resize.SVGMaxFrames)

	a.pipeline = pipeline.New(store, a.recorder, a.converter, rasterizer, logger,
		pipeline.WithObserver(a.metrics),
		pipeline.WithBudget(a.converter),
	)
	a.handler = pipeline.NewHandler(a.pipeline, pipeline.Destination{
		Width:  cfg.Resize.Width,
		Suffix: cfg.Resize.DestBucketSuffix,
	}, logger).WithObserver(a.metrics)

	logger.Info("image resizer ready",
		zap.Int("width", cfg.Resize.Width),
		zap.String("engine", cfg.Resize.Engine),
		zap.Duration("timeout", cfg.Resize.Timeout),
		zap.Bool("failure_log", cfg.FailureLog.Enabled()),
	)

	return a, nil
}

// RunLambda blocks serving S3 notifications.
func (a *App) RunLambda() {
	lambda.Start(a.handler.Handle)
}

func (a *App) Serve(ctx context.Context) error {
	h := handler.New(a.handler, &a.cfg.Server, a.logger)

	s := &http.Server{
		Handler:           router.NewRouter(h, a.metrics.Handler()),
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("addr", s.Addr))
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func (a *App) driver() (*driver.Driver, error) {
	if a.cfg.Driver.SourceBucket == "" {
		return nil, ErrNoSourceBucket
	}
	dest := pipeline.Destination{
		Width:  a.cfg.Resize.Width,
		Suffix: a.cfg.Resize.DestBucketSuffix,
		Bucket: a.cfg.Driver.DestBucket,
	}
	return driver.New(a.pipeline, dest, a.cfg.Driver.Delay, a.cfg.Driver.Workers, a.logger), nil
}

// RunBucket resizes every object in the configured source bucket.
func (a *App) RunBucket(ctx context.Context) error {
	d, err := a.driver()
	if err != nil {
		return err
	}
	_, err = d.Bucket(ctx, a.store, a.cfg.Driver.SourceBucket, a.cfg.Driver.Prefix)
	return err
}

// RunReplay resizes every key in the failure log: the Redis stream when one
// is configured, else the replay file.
func (a *App) RunReplay(ctx context.Context) error {
	d, err := a.driver()
	if err != nil {
		return err
	}

	var src failurelog.KeySource = failurelog.FileSource{Path: a.cfg.Driver.ReplayFile}
	if s, ok := a.recorder.(*failurelog.Stream); ok {
		src = s
	}

	_, err = d.Replay(ctx, src, a.cfg.Driver.SourceBucket)
	return err
}

func (a *App) Close() error {
	a.converter.Close()
	libvips.Shutdown()

	var errs []error
	if f, ok := a.recorder.(*failurelog.File); ok {
		errs = append(errs, f.Close())
	}
	a.cancel()
	return errors.Join(errs...)
}

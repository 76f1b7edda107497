package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/app"
	"github.com/NFT-com/image-resizer/internal/config"
	"github.com/NFT-com/image-resizer/internal/logger"
)

var version = "dev"

func initSentry(cfg *config.SentryConfig, version string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     version,
	})
}

func main() {
	file := flag.String("config", "config.json", "optional json config file")
	mode := flag.String("mode", "lambda", "lambda, serve, bucket or replay")
	flag.Parse()

	cfg := config.NewConfig()
	if err := cfg.Read(*file); err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	if err := initSentry(&cfg.Sentry, version); err != nil {
		lg.Fatal("sentry.Init", zap.Error(err))
	}
	// Flush buffered events before the program terminates.
	defer sentry.Flush(2 * time.Second)

	if err := run(*mode, cfg, lg); err != nil {
		lg.Error("exiting", zap.String("mode", *mode), zap.Error(err))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(mode string, cfg *config.Config, lg *zap.Logger) error {
	a, err := app.New(cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "lambda":
		a.RunLambda()
		return nil
	case "serve":
		return a.Serve(ctx)
	case "bucket":
		return a.RunBucket(ctx)
	case "replay":
		return a.RunReplay(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

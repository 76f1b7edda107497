package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/entities"
	"github.com/NFT-com/image-resizer/internal/imagetype"
)

// Destination maps a source object to its rendition: the key becomes
// <width>/<key>.webp and the bucket is either fixed or the source bucket
// plus a suffix.
type Destination struct {
	Width  int
	Suffix string
	Bucket string
}

// Request classifies key and builds the transcode request for it.
func (d Destination) Request(sourceBucket, key string) (entities.TranscodeRequest, error) {
	t, err := imagetype.Classify(key)
	if err != nil {
		return entities.TranscodeRequest{}, err
	}

	dest := d.Bucket
	if dest == "" {
		dest = sourceBucket + d.Suffix
	}

	return entities.TranscodeRequest{
		SourceBucket: sourceBucket,
		SourceKey:    key,
		DestBucket:   dest,
		DestKey:      fmt.Sprintf("%d/%s.webp", d.Width, key),
		Type:         t,
	}, nil
}

// DecodeKey recovers the literal object key from its event notification
// form, where spaces arrive as '+' and everything else is percent-encoded.
func DecodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(strings.ReplaceAll(raw, "+", " "))
	if err != nil {
		return "", fmt.Errorf("decode key %q: %w", raw, err)
	}
	return key, nil
}

type Resizer interface {
	Resize(ctx context.Context, req entities.TranscodeRequest) (entities.Outcome, error)
}

// Result is the outcome of one notification record.
type Result struct {
	Bucket  string           `json:"bucket"`
	Key     string           `json:"key"`
	Outcome entities.Outcome `json:"outcome"`
	Error   string           `json:"error,omitempty"`
}

type Handler struct {
	resizer  Resizer
	dest     Destination
	observer Observer
	logger   *zap.Logger
}

func NewHandler(resizer Resizer, dest Destination, logger *zap.Logger) *Handler {
	return &Handler{resizer: resizer, dest: dest, observer: nopObserver{}, logger: logger}
}

// WithObserver counts records skipped before they reach the resizer.
func (h *Handler) WithObserver(o Observer) *Handler {
	h.observer = o
	return h
}

// Handle is the Lambda entry point. Every record is processed in order and
// nil is always returned: failures are visible through logs, Sentry and the
// failure log, never through redelivery.
func (h *Handler) Handle(ctx context.Context, e events.S3Event) error {
	h.Process(ctx, e)
	return nil
}

func (h *Handler) Process(ctx context.Context, e events.S3Event) []Result {
	results := make([]Result, 0, len(e.Records))
	for _, rec := range e.Records {
		results = append(results, h.Record(ctx, rec.S3.Bucket.Name, rec.S3.Object.Key))
	}
	return results
}

// Record handles a single notification with a still-encoded key.
func (h *Handler) Record(ctx context.Context, bucket, rawKey string) Result {
	res := Result{Bucket: bucket, Key: rawKey}

	key, err := DecodeKey(rawKey)
	if err != nil {
		h.logger.Warn("undecodable key", zap.String("bucket", bucket), zap.String("raw_key", rawKey), zap.Error(err))
		res.Outcome, res.Error = entities.OutcomeSkippedKey, err.Error()
		h.observer.Outcome(res.Outcome)
		return res
	}
	res.Key = key

	req, err := h.dest.Request(bucket, key)
	if err != nil {
		h.logger.Info("skipping object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		res.Outcome, res.Error = entities.OutcomeSkippedType, err.Error()
		h.observer.Outcome(res.Outcome)
		return res
	}

	res.Outcome, err = h.resizer.Resize(ctx, req)
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

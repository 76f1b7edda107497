package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/NFT-com/image-resizer/internal/config"
	"github.com/NFT-com/image-resizer/internal/pipeline"
)

type Processor interface {
	Process(ctx context.Context, e events.S3Event) []pipeline.Result
}

type Handler struct {
	processor Processor
	cfg       *config.ServerConfig
	validator *validator.Validate
	logger    *zap.Logger
}

func New(processor Processor, cfg *config.ServerConfig, logger *zap.Logger) *Handler {
	return &Handler{
		processor: processor,
		cfg:       cfg,
		validator: validator.New(),
		logger:    logger,
	}
}

// Events accepts an S3 notification document and runs every record through
// the pipeline before answering.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyMB<<20)

	var e events.S3Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.validator.Struct(eventParamsFrom(e)); err != nil {
		writeJSON(w, http.StatusBadRequest, validationErrorsToMap(err))
		return
	}

	results := h.processor.Process(r.Context(), e)
	h.logger.Debug("event processed", zap.Int("records", len(results)))

	writeJSON(w, http.StatusOK, EventsResponse{Results: results})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONError(w, "request body exceeds maximum allowed size", http.StatusRequestEntityTooLarge)
		return
	}
	writeJSONError(w, "invalid event document: "+err.Error(), http.StatusBadRequest)
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NFT-com/image-resizer/internal/transport/handler"
)

func NewRouter(h *handler.Handler, metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/events", h.Events)
	r.Get("/healthz", h.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unihub/notify-svc/internal/config"
	"github.com/unihub/notify-svc/internal/service/models/event"
	orderevent "github.com/unihub/notify-svc/internal/transport/http/order_event"
	"github.com/unihub/notify-svc/pkg/http/middleware/trace"
	"github.com/unihub/notify-svc/pkg/logger"
)

type service interface {
	HandleOrderEvent(ctx context.Context, ev event.ChangeEvent) error
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(cfg *config.HTTPConfig, service service) *HTTPTransport {
	router := newRouter(cfg)
	server := newServer(cfg, router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/hooks/order-events", h.handleOrderEvent)
	})

	h.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"status":"ok","service":"notify-svc"}`)); err != nil {
			slog.Error("Error sending health response", "error", err)
		}
	})
}

func (h *HTTPTransport) handleOrderEvent(w http.ResponseWriter, r *http.Request) {
	orderevent.Handle(w, r, h.service)
}

func newRouter(cfg *config.HTTPConfig) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(cfg *config.HTTPConfig, router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: router,
	}
}

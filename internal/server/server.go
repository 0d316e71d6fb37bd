package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plst/internal/playback"
	"github.com/desertthunder/plst/internal/shared"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, recovery, rate limiting and metrics.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own their routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 10 * time.Second

// Server serves the playlist API and the viewer sockets.
type Server struct {
	config  shared.ServerConfig
	service *playback.Service
	logger  *log.Logger
	router  *BasicRouter
	handler http.Handler
	http    *http.Server

	mu       sync.Mutex
	sockets  map[*wsConn]struct{}
	closing  bool
	handlers sync.WaitGroup
}

// New creates a Server with every route registered.
func New(config shared.ServerConfig, service *playback.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Server{
		config:  config,
		service: service,
		logger:  shared.WithLogger(logger, "component", "server"),
		router:  NewBasicRouter(),
	}

	s.router.Use(
		recoveryMiddleware(s.logger),
		metricsMiddleware,
		loggingMiddleware(s.logger),
	)
	if config.RateLimit > 0 {
		s.router.Use(rateLimitMiddleware(config.RateLimit, config.RateBurst))
	}

	s.router.Handler(healthHandler{})
	s.router.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	s.routes()

	s.handler = otelhttp.NewHandler(s.router, "plst",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !isQuietPath(r.URL.Path)
		}),
	)
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.http.RegisterOnShutdown(s.closeSockets)

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		errs <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.closeSockets()
	if err := s.waitSockets(shutdownCtx); err != nil {
		s.logger.Warn("viewer sockets still open after shutdown", "err", err)
		return err
	}
	return nil
}

// Close ends every open viewer socket and waits for their handlers to return.
func (s *Server) Close() {
	s.closeSockets()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.waitSockets(ctx); err != nil {
		s.logger.Warn("viewer sockets still open", "err", err)
	}
}

type healthHandler struct{}

func (healthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/observability"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr      string
	handlers  *Handlers
	metrics   *observability.Metrics
	accessLog io.Writer
}

// NewServer creates a server configured for the given address and dependencies.
// metrics may be nil; accessLog may be nil to disable access logging.
func NewServer(addr string, h *Handlers, metrics *observability.Metrics, accessLog io.Writer) *Server {
	return &Server{
		addr:      addr,
		handlers:  h,
		metrics:   metrics,
		accessLog: accessLog,
	}
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	route := func(method, path string, h http.HandlerFunc) {
		r.Handle(path, s.metrics.WrapHandler(path, h)).Methods(method)
	}
	route(http.MethodGet, "/state", s.handlers.HandleState)
	route(http.MethodPost, "/override", s.handlers.HandleOverride)
	route(http.MethodGet, "/config", s.handlers.HandleConfig)
	route(http.MethodGet, "/status/stream", s.handlers.HandleStatusStream)
	r.HandleFunc("/ws", s.handlers.HandleStateSocket).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	var h http.Handler = r
	if s.accessLog != nil {
		h = handlers.LoggingHandler(s.accessLog, h)
	}
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(debug.IsEnabled(debug.LevelVerbose)))(h)
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("Web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

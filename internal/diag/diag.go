// Package diag exposes the daemon's loopback diagnostics HTTP server:
// /healthz for liveness and /metrics for Prometheus scraping. It never
// listens on anything but loopback, and is entirely independent of the
// bus socket's event loop.
package diag

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the loopback diagnostics HTTP server.
type Server struct {
	httpSrv *http.Server
	addr    string
}

// New builds a diagnostics server bound to addr (e.g. "127.0.0.1:9090"),
// exposing Prometheus metrics gathered from reg.
func New(addr string, reg *prometheus.Registry) *Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		addr: addr,
		httpSrv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe starts serving, blocking until the listener fails or
// Shutdown is called. http.ErrServerClosed is not returned as an error.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	err = s.httpSrv.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

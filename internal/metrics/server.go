package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"porter/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Handler returns the router serving /metrics.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Server serves the metrics router until Shutdown.
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   logger.Logger
	done     chan struct{}
}

// NewServer binds addr immediately so a busy port fails at startup.
func NewServer(addr string, m *Metrics, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	return &Server{
		srv: &http.Server{
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   log,
		done:     make(chan struct{}),
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) Start() {
	s.logger.Info("Metrics", "metrics server started", map[string]interface{}{
		"addr": s.Addr(),
	})

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics", err, map[string]interface{}{
				"addr": s.Addr(),
			})
		}
	}()
}

// Shutdown stops accepting requests and waits for the serve loop to exit.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warning("Metrics", "metrics server shutdown incomplete", map[string]interface{}{
			"error": err.Error(),
		})
	}
	<-s.done
}

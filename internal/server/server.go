// Package server exposes the relay over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shineum/sealed-relay/internal/relay"
)

// shutdownTimeout is the maximum time to wait for in-flight requests
// during graceful shutdown.
const shutdownTimeout = 30 * time.Second

// apiVersion is the last path segment of every API route.
const apiVersion = "v1"

// Config holds the configuration for an HTTP server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string

	// Directory is an optional path prefix placed before /v1.
	Directory string

	// TLSConfig enables HTTPS when non-nil.
	TLSConfig *tls.Config

	// RateLimit is the sustained number of requests per second across all
	// clients. Zero disables rate limiting.
	RateLimit float64
	RateBurst int

	// MaxBodySize caps request bodies in bytes. Zero disables the cap.
	MaxBodySize int64
}

// Server serves the relay API.
type Server struct {
	config  Config
	service *relay.Service
	metrics *metrics
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server for service.
func New(cfg Config, service *relay.Service) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	s := &Server{
		config:  cfg,
		service: service,
		metrics: newMetrics(),
	}
	s.handler = s.routes()
	return s
}

// BasePath returns the route prefix for directory, e.g. "/relay/v1".
func BasePath(directory string) string {
	directory = strings.Trim(directory, "/")
	if directory == "" {
		return "/" + apiVersion
	}
	return "/" + directory + "/" + apiVersion
}

func (s *Server) routes() http.Handler {
	var limiter *rate.Limiter
	if s.config.RateLimit > 0 {
		burst := s.config.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.metrics))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := r.Group(BasePath(s.config.Directory))
	api.Use(rateLimit(limiter, s.metrics), maxBody(s.config.MaxBodySize))
	api.GET("/healthcheck", handleHealthcheck)
	api.GET("/id", handleIdentifier)
	api.POST("/mail", s.handleReceive)
	api.GET("/mail", s.handleSample)
	api.GET("/stats", s.handleStats)

	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then waits up to 30 seconds
// for in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	slog.Info("HTTP server listening",
		"addr", ln.Addr().String(),
		"base_path", BasePath(s.config.Directory),
		"tls_enabled", s.config.TLSConfig != nil,
		"rate_limit", s.config.RateLimit,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown timeout reached, forcing close", "error", err)
			return srv.Close()
		}
		slog.Info("all requests completed")
		return nil
	})

	return g.Wait()
}

// Addr returns the listener address, or empty string if not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

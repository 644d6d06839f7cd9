// Package server implements the development HTTP server: static file
// serving with reload-client injection, the reload-status endpoint, an
// optional push channel and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/devreload/internal/inject"
	"github.com/hupe1980/devreload/internal/reload"
	"github.com/hupe1980/devreload/internal/watch"
)

// Timeouts of the HTTP server lifecycle.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves a directory and tells connected pages when to reload.
type Server struct {
	opts     Options
	root     string
	signal   *reload.Signal
	rewriter *inject.Rewriter
	files    http.Handler
	cache    *lru.Cache[cacheKey, rendered]
	hub      *hub
	metrics  *metrics
	logger   *slog.Logger

	// announcer is set by Serve once the listen address is known.
	announcer *announcer
}

// New creates a Server for opts. The signal is shared with the change
// handler; the server only reads it while serving requests.
func New(opts Options, sig *reload.Signal) (*Server, error) {
	if sig == nil {
		return nil, errors.New("reload signal is required")
	}

	opts = opts.withDefaults()

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", opts.Root, err)
	}

	cache, err := lru.New[cacheKey, rendered](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating rewrite cache: %w", err)
	}

	h := newHub(opts.Logger)

	s := &Server{
		opts:   opts,
		root:   root,
		signal: sig,
		rewriter: inject.New(inject.Options{
			Endpoint: opts.Endpoint,
			Interval: opts.ClientInterval,
			Socket:   true,
			Epoch:    sig.Epoch(),
		}),
		files:   http.FileServer(http.Dir(root)),
		cache:   cache,
		hub:     h,
		metrics: newMetrics(h.count),
		logger:  opts.Logger,
	}

	return s, nil
}

// Signal returns the reload signal read by the server.
func (s *Server) Signal() *reload.Signal {
	return s.signal
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get(s.opts.Endpoint, s.handleStatus)
	r.Get(s.opts.Endpoint+"/ws", s.hub.handle)

	if s.opts.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	}

	r.Get("/*", s.handleStatic)
	r.Head("/*", s.handleStatic)

	return r
}

// HandleChange advances the reload signal for an accepted change episode and
// notifies push clients. It is the only writer of the signal and is safe for
// concurrent use.
func (s *Server) HandleChange(ctx context.Context, change watch.Change) uint64 {
	v := s.signal.Advance()

	s.metrics.episodes.Inc()
	s.metrics.version.Set(float64(v))

	s.logger.Info("change detected",
		slog.String("path", change.Path),
		slog.String("op", change.Op),
		slog.Uint64("version", v),
	)

	sent := s.hub.broadcast(s.signal.Epoch(), v)
	s.logger.Info("reload broadcast", slog.Uint64("version", v), slog.Int("clients", sent))

	if s.announcer != nil {
		go s.announcer.announce(ctx)
	}

	return v
}

// Serve runs the detector and the HTTP server on ln until ctx is cancelled.
// A detector failure stops the server and is returned.
func (s *Server) Serve(ctx context.Context, ln net.Listener, det watch.Detector) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.opts.Announce {
		s.announcer = newAnnouncer(s.statusURL(ln.Addr()), s.logger)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 2)

	go func() {
		if err := det.Watch(ctx, func(c watch.Change) { s.HandleChange(ctx, c) }); err != nil {
			errCh <- fmt.Errorf("%s detector: %w", det.Name(), err)
		}
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serving http: %w", err)
		}
	}()

	s.logger.Info("serving",
		slog.String("root", s.root),
		slog.String("addr", ln.Addr().String()),
		slog.String("detector", det.Name()),
	)

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Hijacked socket connections are not tracked by Shutdown.
	s.hub.close()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutting down: %w", err)
	}

	return runErr
}

// statusURL returns a loopback URL of the status endpoint for addr.
func (s *Server) statusURL(addr net.Addr) string {
	host := "127.0.0.1"
	port := strconv.Itoa(s.opts.Port)

	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = strconv.Itoa(tcp.Port)

		if !tcp.IP.IsUnspecified() {
			host = tcp.IP.String()
		}
	}

	return "http://" + net.JoinHostPort(host, port) + s.opts.Endpoint
}

// Package devreload provides a public Go API for the devreload development
// server.
//
// This package exposes the server as a library, allowing programmatic use
// without the CLI.
//
// Basic usage:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := devreload.Serve(ctx, "./public"); err != nil {
//	    log.Fatal(err)
//	}
//
// Mounting the handler in an existing server:
//
//	srv, err := devreload.New("./public",
//	    devreload.WithExtensions("html", "css"),
//	    devreload.WithDebounce(500*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go srv.Watch(ctx)
//	http.ListenAndServe(":8080", srv.Handler())
package devreload

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hupe1980/devreload/internal/inject"
	"github.com/hupe1980/devreload/internal/logging"
	"github.com/hupe1980/devreload/internal/reload"
	"github.com/hupe1980/devreload/internal/server"
	"github.com/hupe1980/devreload/internal/watch"
)

// Change detection strategies.
const (
	StrategyAuto  = string(watch.StrategyAuto)
	StrategyEvent = string(watch.StrategyEvent)
	StrategyPoll  = string(watch.StrategyPoll)
)

// Option configures the development server.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	host           string
	port           int
	endpoint       string
	extensions     []string
	debounce       time.Duration
	pollInterval   time.Duration
	clientInterval time.Duration
	strategy       string
	announce       bool
	metrics        bool
	logger         *slog.Logger
}

// --- Listening ---

// WithHost sets the interface to bind (default: all interfaces).
func WithHost(host string) Option { return func(o *options) { o.host = host } }

// WithPort sets the TCP port (default: 8000, 0 picks a free port).
func WithPort(port int) Option { return func(o *options) { o.port = port } }

// WithEndpoint sets the path of the reload-status endpoint (default: "/reload").
func WithEndpoint(path string) Option { return func(o *options) { o.endpoint = path } }

// WithMetrics exposes Prometheus metrics on /metrics.
func WithMetrics() Option { return func(o *options) { o.metrics = true } }

// WithAnnounce requests the own status endpoint after every change.
func WithAnnounce() Option { return func(o *options) { o.announce = true } }

// --- Change detection ---

// WithExtensions sets the watched file extensions (default: html, css, js, json).
func WithExtensions(exts ...string) Option { return func(o *options) { o.extensions = exts } }

// WithDebounce sets the minimum interval between two reloads (default: 1s).
func WithDebounce(d time.Duration) Option { return func(o *options) { o.debounce = d } }

// WithPollInterval sets the rescan period of the polling detector (default: 2s).
func WithPollInterval(d time.Duration) Option { return func(o *options) { o.pollInterval = d } }

// WithStrategy selects auto, event or poll change detection.
func WithStrategy(s string) Option { return func(o *options) { o.strategy = s } }

// --- Client ---

// WithClientInterval sets the polling period of the injected script (default: 1.5s).
func WithClientInterval(d time.Duration) Option {
	return func(o *options) { o.clientInterval = d }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = logging.Discard()
	}
}

func buildOptions(root string, opts []Option) server.Options {
	o := &options{port: server.DefaultOptions().Port}
	for _, opt := range opts {
		opt(o)
	}

	o.applyDefaults()

	return server.Options{
		Root:           root,
		Host:           o.host,
		Port:           o.port,
		Endpoint:       o.endpoint,
		ClientInterval: o.clientInterval,
		Metrics:        o.metrics,
		Announce:       o.announce,
		Logger:         logging.Component(o.logger, "server"),
		Watch: watch.Options{
			Extensions:   o.extensions,
			Debounce:     o.debounce,
			PollInterval: o.pollInterval,
			Strategy:     watch.Strategy(o.strategy),
			Logger:       logging.Component(o.logger, "watch"),
		},
	}
}

// Serve serves root until ctx is cancelled.
func Serve(ctx context.Context, root string, opts ...Option) error {
	if root == "" {
		return errors.New("root directory must not be empty")
	}

	return server.Run(ctx, buildOptions(root, opts))
}

// Server is a development server that can be mounted into an existing
// HTTP stack.
type Server struct {
	srv      *server.Server
	detector watch.Detector
}

// New creates a Server for root. Call Watch to start change detection.
func New(root string, opts ...Option) (*Server, error) {
	if root == "" {
		return nil, errors.New("root directory must not be empty")
	}

	o := buildOptions(root, opts)

	srv, err := server.New(o, reload.New())
	if err != nil {
		return nil, err
	}

	o.Watch.Root = root

	det, err := watch.New(o.Watch)
	if err != nil {
		return nil, err
	}

	return &Server{srv: srv, detector: det}, nil
}

// Handler returns the HTTP handler serving files, the reload endpoint and
// the push channel.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler()
}

// Watch runs change detection until ctx is cancelled.
func (s *Server) Watch(ctx context.Context) error {
	return s.detector.Watch(ctx, func(c watch.Change) {
		s.srv.HandleChange(ctx, c)
	})
}

// Reload triggers a reload of all connected pages as if path had changed,
// and returns the new version. It is safe to call concurrently with Watch.
func (s *Server) Reload(ctx context.Context, path string) uint64 {
	return s.srv.HandleChange(ctx, watch.Change{Path: path, Op: "manual"})
}

// Version returns the current reload version.
func (s *Server) Version() uint64 {
	return s.srv.Signal().Version()
}

// Detector returns the name of the change detection strategy in use.
func (s *Server) Detector() string {
	return s.detector.Name()
}

// InjectScript returns html with the reload client inserted before the first
// closing body tag. version seeds the client; pages reload once the server
// reports a newer one. Documents without <html> or </body> are returned
// unchanged.
func InjectScript(html []byte, version uint64, opts ...Option) []byte {
	o := buildOptions(".", opts)

	return inject.New(inject.Options{
		Endpoint: o.Endpoint,
		Interval: o.ClientInterval,
		Socket:   true,
	}).Rewrite(html, version)
}

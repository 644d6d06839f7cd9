package server

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/hupe1980/devreload/internal/watch"
)

// Options configures the development server.
type Options struct {
	// Root is the directory that is served and watched.
	Root string

	// Host is the interface to bind. Empty binds all interfaces.
	Host string

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// Endpoint is the path of the reload-status endpoint.
	Endpoint string

	// ClientInterval is the polling period of the injected script.
	ClientInterval time.Duration

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool

	// Announce sends a best-effort request to the own status endpoint after
	// every accepted change.
	Announce bool

	// CacheSize bounds the number of rewritten HTML bodies kept in memory.
	CacheSize int

	// Watch configures change detection. Root is taken from Options.Root.
	Watch watch.Options

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default server options.
func DefaultOptions() Options {
	return Options{
		Root:           ".",
		Port:           8000,
		Endpoint:       "/reload",
		ClientInterval: 1500 * time.Millisecond,
		Metrics:        true,
		CacheSize:      128,
		Watch:          watch.DefaultOptions(),
		Logger:         slog.Default(),
	}
}

// Addr returns the listen address.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()

	if o.Root == "" {
		o.Root = d.Root
	}

	if o.Endpoint == "" {
		o.Endpoint = d.Endpoint
	}

	if o.ClientInterval <= 0 {
		o.ClientInterval = d.ClientInterval
	}

	if o.CacheSize <= 0 {
		o.CacheSize = d.CacheSize
	}

	if o.Logger == nil {
		o.Logger = d.Logger
	}

	o.Watch.Root = o.Root
	if o.Watch.Logger == nil {
		o.Watch.Logger = o.Logger
	}

	return o
}

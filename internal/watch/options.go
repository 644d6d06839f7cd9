package watch

import (
	"log/slog"
	"time"
)

// Strategy names a change detection implementation.
type Strategy string

const (
	// StrategyAuto uses OS notifications when available and falls back to
	// polling otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyEvent forces fsnotify based detection.
	StrategyEvent Strategy = "event"
	// StrategyPoll forces periodic rescans.
	StrategyPoll Strategy = "poll"
)

// Options configures a Detector.
type Options struct {
	// Root is the directory to watch recursively.
	Root string

	// Extensions is the allowlist of relevant file suffixes.
	Extensions []string

	// Debounce is the minimum interval between two accepted changes.
	Debounce time.Duration

	// PollInterval is the rescan period of the polling detector.
	PollInterval time.Duration

	// Strategy selects the implementation.
	Strategy Strategy

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Root:         ".",
		Extensions:   []string{".html", ".css", ".js", ".json"},
		Debounce:     time.Second,
		PollInterval: 2 * time.Second,
		Strategy:     StrategyAuto,
		Logger:       slog.Default(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()

	if o.Root == "" {
		o.Root = d.Root
	}

	if len(o.Extensions) == 0 {
		o.Extensions = d.Extensions
	}

	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}

	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}

	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}

	if o.Logger == nil {
		o.Logger = d.Logger
	}

	return o
}

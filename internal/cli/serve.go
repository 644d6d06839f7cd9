package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/devreload/internal/config"
	"github.com/hupe1980/devreload/internal/logging"
	"github.com/hupe1980/devreload/internal/server"
	"github.com/hupe1980/devreload/internal/watch"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve a directory with automatic browser reload",
		Long: `Serve starts an HTTP server for the given directory (default: the
current directory) and watches it for changes.

Every HTML page is served with a small script that polls the reload
endpoint. When a watched file changes, the server advances its reload
version and open pages reload themselves. Bursts of changes within the
debounce window trigger a single reload.

Change detection uses OS file notifications when available and falls back
to periodic rescans otherwise. Use --strategy to force one of them.`,
		Example: `  devreload serve
  devreload serve ./public --port 3000 --ext html,css,js,svg
  devreload serve site --strategy poll --poll-interval 500ms`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if len(args) == 1 {
				cfg.Root = args[0]
			}

			return runServe(cmd, cfg)
		},
	}

	d := config.Default()

	f := cmd.Flags()
	f.String("host", d.Host, "interface to bind (default: all interfaces)")
	f.IntP("port", "p", d.Port, "port to listen on (0 picks a free port)")
	f.StringSlice("ext", d.Extensions, "watched file extensions")
	f.Duration("debounce", d.Debounce, "minimum interval between two reloads")
	f.Duration("poll-interval", d.PollInterval, "rescan period of the polling detector")
	f.Duration("client-interval", d.ClientInterval, "polling period of the injected client")
	f.String("strategy", d.Strategy, "change detection: auto, event, poll")
	f.String("endpoint", d.Endpoint, "path of the reload-status endpoint")
	f.Bool("announce", d.Announce, "request the reload endpoint after every change")
	f.Bool("metrics", d.Metrics, "expose Prometheus metrics on /metrics")

	_ = cmd.RegisterFlagCompletionFunc("strategy", cobra.FixedCompletions(
		[]string{config.StrategyAuto, config.StrategyEvent, config.StrategyPoll},
		cobra.ShellCompDirectiveNoFileComp,
	))

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := server.Run(ctx, serverOptions(ctx, cfg))
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), "server stopped")

	return err
}

// serverOptions maps the loaded configuration onto server options.
func serverOptions(ctx context.Context, cfg *config.Config) server.Options {
	logger := logging.FromContext(ctx)

	opts := server.DefaultOptions()
	opts.Host = cfg.Host
	opts.Port = cfg.Port
	opts.Endpoint = cfg.Endpoint
	opts.ClientInterval = cfg.ClientInterval
	opts.Metrics = cfg.Metrics
	opts.Announce = cfg.Announce
	opts.Logger = logging.Component(logger, "server")

	if cfg.Root != "" {
		opts.Root = cfg.Root
	}

	opts.Watch = watch.Options{
		Extensions:   cfg.Extensions,
		Debounce:     cfg.Debounce,
		PollInterval: cfg.PollInterval,
		Strategy:     watch.Strategy(cfg.Strategy),
		Logger:       logging.Component(logger, "watch"),
	}

	return opts
}

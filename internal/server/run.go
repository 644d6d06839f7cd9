package server

import (
	"context"
	"fmt"
	"net"

	"github.com/hupe1980/devreload/internal/reload"
	"github.com/hupe1980/devreload/internal/watch"
)

// Run wires a detector, a fresh reload signal and a server for opts, binds
// the listen address and serves until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	det, err := watch.New(opts.Watch)
	if err != nil {
		return err
	}

	srv, err := New(opts, reload.New())
	if err != nil {
		return err
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", opts.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", opts.Addr(), err)
	}

	return srv.Serve(ctx, ln, det)
}

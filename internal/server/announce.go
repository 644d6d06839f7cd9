package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hupe1980/devreload/internal/version"
)

// announceTimeout bounds a single announce request.
const announceTimeout = time.Second

// announcer pokes the server's own status endpoint after a change. It is
// strictly best-effort: every failure (server not listening yet, restart in
// progress) is discarded and the browser poller still picks up the change.
type announcer struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func newAnnouncer(url string, logger *slog.Logger) *announcer {
	return &announcer{
		url:    url,
		client: &http.Client{Timeout: announceTimeout},
		logger: logger,
	}
}

func (a *announcer) announce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, announceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return
	}

	req.Header.Set("User-Agent", version.GetInfo().UserAgent())

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Debug("announce failed", slog.String("url", a.url), slog.String("error", err.Error()))
		return
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

package server

import (
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// cacheKey identifies one rendering of an HTML file. The signal version is
// part of the key because the client script embeds it.
type cacheKey struct {
	path    string
	modTime int64
	size    int64
	version uint64
}

// rendered is a cached response body.
type rendered struct {
	body     []byte
	injected bool
}

// handleStatic serves files below the root. HTML documents are rewritten to
// carry the reload client; everything else, including directory listings
// and 404s, is left to http.FileServer.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name, info, ok := s.resolveHTML(r.URL.Path)
	if !ok {
		s.files.ServeHTTP(w, r)
		return
	}

	body, err := s.render(name, info)
	if err != nil {
		s.logger.Debug("reading html failed, delegating",
			slog.String("path", name), slog.String("error", err.Error()))
		s.files.ServeHTTP(w, r)

		return
	}

	// Headers are derived from the final body, after rewriting.
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	// The embedded version goes stale, so browsers must not reuse the page.
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

// resolveHTML maps a URL path to an HTML file below the root. Directories
// resolve to their index.html. It reports false for anything the file
// server should handle unchanged.
func (s *Server) resolveHTML(urlPath string) (string, os.FileInfo, bool) {
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}

	name := filepath.Join(s.root, filepath.FromSlash(path.Clean(urlPath)))

	info, err := os.Stat(name)
	if err != nil {
		return "", nil, false
	}

	if info.IsDir() {
		// Let the file server redirect "/dir" to "/dir/".
		if !strings.HasSuffix(urlPath, "/") {
			return "", nil, false
		}

		name = filepath.Join(name, "index.html")

		if info, err = os.Stat(name); err != nil || info.IsDir() {
			return "", nil, false
		}
	}

	if !isHTML(name) {
		return "", nil, false
	}

	return name, info, true
}

// render returns the body to send for an HTML file.
func (s *Server) render(name string, info os.FileInfo) ([]byte, error) {
	key := cacheKey{
		path:    name,
		modTime: info.ModTime().UnixNano(),
		size:    info.Size(),
		version: s.signal.Version(),
	}

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.cacheHits.Inc()
		if cached.injected {
			s.metrics.injectedPages.Inc()
		}

		return cached.body, nil
	}

	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	out := rendered{body: s.rewriter.Rewrite(raw, key.version)}
	out.injected = len(out.body) != len(raw)

	if out.injected {
		s.metrics.injectedPages.Inc()
	}

	// Only cache when the file did not change while we read it.
	if int64(len(raw)) == key.size {
		s.cache.Add(key, out)
	}

	return out.body, nil
}

func isHTML(name string) bool {
	return strings.HasPrefix(mime.TypeByExtension(filepath.Ext(name)), "text/html")
}

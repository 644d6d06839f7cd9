// Package inject rewrites HTML documents so they carry the reload client: a
// small standalone script that polls the reload-status endpoint and reloads
// the page once the server reports a newer version.
package inject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
	"time"
)

// Marker is the attribute that identifies an injected script tag.
const Marker = "data-devreload"

var (
	htmlOpen  = []byte("<html")
	bodyClose = []byte("</body>")
	marker    = []byte(Marker)
)

// Options configures the emitted client script.
type Options struct {
	// Endpoint is the path of the reload-status endpoint.
	Endpoint string

	// Interval is the client polling period.
	Interval time.Duration

	// Socket additionally subscribes to <Endpoint>/ws for push notifications.
	Socket bool

	// Epoch identifies the server process. Pages reload when the server
	// reports a different one, since versions restart with every process.
	Epoch string
}

// DefaultOptions returns the options used by the dev server.
func DefaultOptions() Options {
	return Options{
		Endpoint: "/reload",
		Interval: 1500 * time.Millisecond,
		Socket:   true,
	}
}

// Rewriter injects the reload client into HTML bodies.
type Rewriter struct {
	opts Options
}

// New returns a Rewriter. Zero fields fall back to DefaultOptions.
func New(opts Options) *Rewriter {
	d := DefaultOptions()

	if opts.Endpoint == "" {
		opts.Endpoint = d.Endpoint
	}

	if opts.Interval <= 0 {
		opts.Interval = d.Interval
	}

	return &Rewriter{opts: opts}
}

// Applicable reports whether body looks like a full HTML document that can
// take the script: it needs an opening <html tag and a closing </body> tag.
func Applicable(body []byte) bool {
	return indexFold(body, htmlOpen) >= 0 && indexFold(body, bodyClose) >= 0
}

// Injected reports whether body already carries the reload client.
func Injected(body []byte) bool {
	return bytes.Contains(body, marker)
}

// Rewrite returns body with the client script inserted immediately before
// the first </body>. version seeds the client so it only reloads for changes
// newer than the page it runs in. Bodies that are not full documents, or
// that already carry the script, are returned unchanged.
func (r *Rewriter) Rewrite(body []byte, version uint64) []byte {
	if !Applicable(body) || Injected(body) {
		return body
	}

	idx := indexFold(body, bodyClose)
	script := r.Script(version)

	out := make([]byte, 0, len(body)+len(script))
	out = append(out, body[:idx]...)
	out = append(out, script...)
	out = append(out, body[idx:]...)

	return out
}

// Script renders the client script tag for version.
func (r *Rewriter) Script(version uint64) []byte {
	var buf bytes.Buffer

	_ = clientTemplate.Execute(&buf, clientData{
		Marker:   Marker,
		Endpoint: jsString(r.opts.Endpoint),
		Epoch:    jsString(r.opts.Epoch),
		Interval: r.opts.Interval.Milliseconds(),
		Version:  version,
		Socket:   r.opts.Socket,
	})

	return buf.Bytes()
}

type clientData struct {
	Marker   string
	Endpoint string
	Epoch    string
	Interval int64
	Version  uint64
	Socket   bool
}

// jsString renders s as a JavaScript string literal that is safe inside a
// script element.
func jsString(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		// A string always marshals.
		panic(fmt.Sprintf("inject: marshaling %q: %v", s, err))
	}

	return string(out)
}

// indexFold is an ASCII case-insensitive bytes.Index. Byte offsets into the
// original slice stay valid, which bytes.ToLower does not guarantee for
// non-ASCII input.
func indexFold(s, sep []byte) int {
	n := len(sep)

	for i := 0; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], sep) {
			return i
		}
	}

	return -1
}

func equalFoldASCII(a, b []byte) bool {
	for i := range a {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}

	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}

	return c
}

var clientTemplate = template.Must(template.New("client").Parse(`<script {{.Marker}}>
(function() {
    'use strict';

    var endpoint = {{.Endpoint}};
    var interval = {{.Interval}};
    var version = {{.Version}};
    var epoch = {{.Epoch}};
    var reloading = false;

    function stale(msg) {
        if (epoch !== '' && typeof msg.epoch === 'string' && msg.epoch !== '' && msg.epoch !== epoch) {
            return true;
        }
        return typeof msg.version === 'number' && msg.version > version;
    }

    function reload() {
        if (reloading) {
            return;
        }
        reloading = true;
        console.log('[devreload] change detected, reloading');
        window.location.reload();
    }

    function check() {
        var url = endpoint + '?since=' + version + '&epoch=' + encodeURIComponent(epoch) + '&t=' + Date.now();
        fetch(url, { cache: 'no-store' })
            .then(function(res) { return res.json(); })
            .then(function(data) {
                if (data.reload === true || stale(data)) {
                    reload();
                }
            })
            .catch(function() {
                // Server may be restarting; try again on the next tick.
            });
    }
{{if .Socket}}
    function subscribe() {
        if (!window.WebSocket) {
            return;
        }
        try {
            var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            var ws = new WebSocket(protocol + '//' + location.host + endpoint + '/ws');
            ws.onmessage = function(e) {
                try {
                    var msg = JSON.parse(e.data);
                    if (stale(msg)) {
                        reload();
                    }
                } catch (err) {}
            };
            ws.onerror = function() {
                ws.close();
            };
        } catch (err) {}
    }

    subscribe();
{{end}}
    setInterval(check, interval);
    console.log('[devreload] polling enabled (' + interval + 'ms)');
})();
</script>
`))

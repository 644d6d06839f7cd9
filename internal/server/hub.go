package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single push write so a client that stopped reading
// cannot stall the change handler.
const writeWait = time.Second

// pushMessage is sent to socket clients after every change episode.
type pushMessage struct {
	Type    string `json:"type"`
	Epoch   string `json:"epoch"`
	Version uint64 `json:"version"`
}

// hub manages push connections. Delivery is best-effort: the polling client
// is the authoritative path and recovers on its own.
type hub struct {
	clients  map[*websocket.Conn]struct{}
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
	now      func() time.Time

	// writeMu serializes broadcasts. A websocket connection supports only
	// one concurrent writer.
	writeMu sync.Mutex
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true // pages may be opened from any dev host
			},
		},
		logger: logger,
		now:    time.Now,
	}
}

// handle upgrades the connection and keeps it registered until the client
// goes away.
func (h *hub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		return
	}

	h.add(conn)
	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast sends a reload notification for version to every client and
// returns the number of clients reached. Safe for concurrent use.
func (h *hub) broadcast(epoch string, version uint64) int {
	data, err := json.Marshal(pushMessage{Type: "reload", Epoch: epoch, Version: version})
	if err != nil {
		return 0
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0

	for _, c := range clients {
		if err := h.write(c, data); err != nil {
			h.logger.Debug("dropping push client", slog.String("error", err.Error()))
			h.remove(c)

			continue
		}

		sent++
	}

	return sent
}

func (h *hub) write(c *websocket.Conn, data []byte) error {
	if err := c.SetWriteDeadline(h.now().Add(writeWait)); err != nil {
		return err
	}

	return c.WriteMessage(websocket.TextMessage, data)
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		_ = c.Close()
	}
}

// close disconnects every client.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

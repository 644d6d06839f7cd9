package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Status is the JSON body of the reload-status endpoint.
type Status struct {
	// Reload is true when the signal advanced past the client's "since"
	// version, or, without "since", when anything changed since startup.
	// A client reporting another "epoch" always gets true.
	Reload bool `json:"reload"`

	// Epoch identifies the server process the version belongs to.
	Epoch string `json:"epoch"`

	// Version is the current reload signal version.
	Version uint64 `json:"version"`

	// ChangedAt is the time of the last accepted change, if any.
	ChangedAt *time.Time `json:"changedAt"`
}

// handleStatus answers the reload-status endpoint. It only reads the atomic
// signal and never waits on the detector.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.metrics.statusPolls.Inc()

	state := s.signal.Snapshot()

	query := r.URL.Query()

	var since uint64

	if raw := query.Get("since"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			since = v
		}
	}

	st := Status{
		Reload:  state.ChangedSince(query.Get("epoch"), since),
		Epoch:   state.Epoch,
		Version: state.Version,
	}

	if !state.ChangedAt.IsZero() {
		t := state.ChangedAt.UTC()
		st.ChangedAt = &t
	}

	body, err := json.Marshal(st)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

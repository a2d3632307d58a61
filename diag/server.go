// Package diag exposes a read-only view of a running l4.SAP over HTTP: a
// snapshot of frame counters at GET /stats, and a live stream of frame
// events over a WebSocket at GET /ws. It never accepts input that could
// affect the transport; it exists purely to let an operator watch a link
// without touching it.
package diag

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/l4"
)

// Stats is the JSON body returned by GET /stats.
type Stats struct {
	FramesSent     uint64    `json:"frames_sent"`
	FramesReceived uint64    `json:"frames_received"`
	LastEventAt    time.Time `json:"last_event_at"`
}

// Server serves diagnostics for a single l4.SAP over HTTP.
type Server struct {
	router *mux.Router
	http   *http.Server
	upgr   websocket.Upgrader

	mu    sync.Mutex
	stats Stats

	subsMu sync.Mutex
	subs   map[chan l4.Event]struct{}
}

// NewServer builds a Server bound to listenAddr. Call Observer to obtain
// the l4.Observer to attach to the SAP being watched, then call
// ListenAndServe to start serving.
func NewServer(listenAddr string) *Server {
	s := &Server{
		router: mux.NewRouter(),
		subs:   make(map[chan l4.Event]struct{}),
	}
	s.http = &http.Server{Addr: listenAddr, Handler: s.router}

	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)

	return s
}

// Observer returns the l4.Observer to attach to the watched SAP.
func (s *Server) Observer() l4.Observer {
	return func(ev l4.Event) {
		s.mu.Lock()
		if ev.Direction == "send" {
			s.stats.FramesSent++
		} else {
			s.stats.FramesReceived++
		}
		s.stats.LastEventAt = ev.At
		s.mu.Unlock()

		s.broadcast(ev)
	}
}

func (s *Server) broadcast(ev l4.Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			log.Debug("diag: dropped event, subscriber channel full")
		}
	}
}

// ServeHTTPForTest dispatches r directly through the router, bypassing
// http.Server.ListenAndServe. It exists so tests can exercise handlers
// without binding a real socket.
func (s *Server) ServeHTTPForTest(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snapshot := s.stats
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		log.WithError(err).Warn("diag: failed to write stats response")
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgr.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("diag: websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan l4.Event, 32)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	defer func() {
		s.subsMu.Lock()
		delete(s.subs, ch)
		s.subsMu.Unlock()
		close(ch)
	}()

	for ev := range ch {
		if err := conn.WriteJSON(eventJSON{
			Direction: ev.Direction,
			Type:      ev.Header.Type.String(),
			Seqno:     ev.Header.Seqno,
			Ackno:     ev.Header.Ackno,
			Bytes:     ev.PayloadLen,
			At:        ev.At,
		}); err != nil {
			return
		}
	}
}

type eventJSON struct {
	Direction string    `json:"direction"`
	Type      string    `json:"type"`
	Seqno     uint8     `json:"seqno"`
	Ackno     uint8     `json:"ackno"`
	Bytes     int       `json:"bytes"`
	At        time.Time `json:"at"`
}

// Package api serves the gateway's HTTP surface: current classifier
// state, recorded transitions, and a websocket push feed of live state
// changes.
package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
	"github.com/banshee-data/slumber.report/internal/db"
	"github.com/banshee-data/slumber.report/internal/httputil"
	"github.com/banshee-data/slumber.report/internal/monitoring"
	"github.com/banshee-data/slumber.report/internal/version"
)

// StateFunc reports the tracker's current classification.
type StateFunc func() actigraphy.State

type Server struct {
	db        *db.DB
	stats     *monitoring.PipelineStats
	sessionID string
	current   StateFunc

	upgrader websocket.Upgrader

	mu       sync.Mutex
	liveSubs map[*websocket.Conn]bool
}

// LiveEvent is the JSON frame pushed to /live subscribers on each
// transition.
type LiveEvent struct {
	State       uint8   `json:"state"`
	StateName   string  `json:"state_name"`
	TimeSeconds float64 `json:"time_s"`
}

func NewServer(database *db.DB, stats *monitoring.PipelineStats, sessionID string, current StateFunc) *Server {
	return &Server{
		db:        database,
		stats:     stats,
		sessionID: sessionID,
		current:   current,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		liveSubs: make(map[*websocket.Conn]bool),
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.stateHandler)
	mux.HandleFunc("/transitions", s.listTransitions)
	mux.HandleFunc("/live", s.liveHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Slumber Gateway!"))
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	state := s.current()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": s.sessionID,
		"state":      uint8(state),
		"state_name": state.String(),
		"counters":   s.stats.Snapshot(),
		"version":    version.String(),
	})
}

func (s *Server) listTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = s.sessionID
	}

	transitions, err := s.db.Transitions(sessionID, limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve transitions")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, transitions)
}

// liveHandler upgrades the connection and holds it open until the client
// goes away. Events arrive via Broadcast.
func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	s.liveSubs[conn] = true
	s.mu.Unlock()

	// Drain client frames to detect disconnects; the feed is one-way.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.mu.Lock()
		delete(s.liveSubs, conn)
		s.mu.Unlock()
		conn.Close()
	}()
}

// Broadcast pushes a transition to all live subscribers, dropping any
// connection whose write fails.
func (s *Server) Broadcast(state actigraphy.State, timeSeconds float64) {
	event := LiveEvent{
		State:       uint8(state),
		StateName:   state.String(),
		TimeSeconds: timeSeconds,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.liveSubs {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(s.liveSubs, conn)
		}
	}
}

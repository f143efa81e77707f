package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/slumber.report/internal/actigraphy"
	"github.com/banshee-data/slumber.report/internal/db"
	"github.com/banshee-data/slumber.report/internal/monitoring"
)

func newTestServer(t *testing.T) (*Server, *db.DB, string) {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	sessionID, err := database.BeginSession(10, "api test")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	srv := NewServer(database, &monitoring.PipelineStats{}, sessionID, func() actigraphy.State {
		return actigraphy.StateSleep
	})
	return srv, database, sessionID
}

func TestStateHandler(t *testing.T) {
	srv, _, sessionID := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["state"] != float64(1) || resp["state_name"] != "sleep" {
		t.Errorf("unexpected state payload: %v", resp)
	}
	if resp["session_id"] != sessionID {
		t.Errorf("session_id = %v", resp["session_id"])
	}
	if _, ok := resp["counters"]; !ok {
		t.Error("missing counters")
	}
}

func TestStateHandlerRejectsPost(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/state", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status %d", rec.Code)
	}
}

func TestListTransitions(t *testing.T) {
	srv, database, sessionID := newTestServer(t)

	for i, state := range []uint8{1, 0, 1} {
		if err := database.RecordTransition(sessionID, int64(i*51), float64(i)*5.1, state); err != nil {
			t.Fatalf("RecordTransition: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transitions?limit=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var rows []db.Transition
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].State != 1 || rows[1].State != 0 {
		t.Errorf("unexpected rows: %+v", rows)
	}

	rec = httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transitions?limit=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit should 400, got %d", rec.Code)
	}
}

func TestLiveBroadcast(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ts := httptest.NewServer(srv.ServeMux())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Allow the handler goroutine to register the subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for {
		srv.mu.Lock()
		n := len(srv.liveSubs)
		srv.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.Broadcast(actigraphy.StateWake, 321.3)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event LiveEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.State != 0 || event.StateName != "wake" || event.TimeSeconds != 321.3 {
		t.Errorf("unexpected event: %+v", event)
	}
}

// A fake investigation coordinator for tests: it serves the snapshot REST
// endpoint and the websocket push channel, records the control messages
// clients send, and lets tests push arbitrary event frames or kill
// connections to exercise the reconnect path.

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/wildtrace/wildtrace-go/internal/models"
)

// TestToken is the bearer credential the fake coordinator accepts.
const TestToken = "test-coordinator-token"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ControlMessage is a decoded join/leave notice received from a client.
type ControlMessage struct {
	Type            string `json:"type"`
	InvestigationID string `json:"investigation_id"`
}

// FakeCoordinator is safe for concurrent use from test and server goroutines.
type FakeCoordinator struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	snapshot *models.InvestigationSnapshot
	conns    []*websocket.Conn
	control  []ControlMessage
	rejectWS bool
}

// NewFakeCoordinator starts the fake server; it shuts down on test cleanup.
func NewFakeCoordinator(t *testing.T) *FakeCoordinator {
	t.Helper()
	f := &FakeCoordinator{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/investigations", f.serveWs)
	mux.HandleFunc("/api/investigations/", f.serveSnapshot)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the HTTP base URL.
func (f *FakeCoordinator) URL() string {
	return f.srv.URL
}

// WSURL returns the push channel endpoint.
func (f *FakeCoordinator) WSURL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/investigations"
}

// SetSnapshot configures the response of the snapshot endpoint.
func (f *FakeCoordinator) SetSnapshot(snap models.InvestigationSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = &snap
}

// RejectConnections makes the websocket endpoint refuse upgrades, to drive
// the dial-failure path.
func (f *FakeCoordinator) RejectConnections(reject bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectWS = reject
}

// Push broadcasts one event frame to every connected client.
func (f *FakeCoordinator) Push(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		f.t.Fatalf("Failed to marshal event data: %v", err)
	}
	frame, _ := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(`"` + event + `"`),
		"data":  payload,
	})
	f.PushRaw(frame)
}

// PushRaw broadcasts a raw frame, valid or not.
func (f *FakeCoordinator) PushRaw(frame []byte) {
	f.mu.Lock()
	conns := append([]*websocket.Conn(nil), f.conns...)
	f.mu.Unlock()
	for _, conn := range conns {
		conn.WriteMessage(websocket.TextMessage, frame)
	}
}

// DropClients closes all push connections without a close handshake,
// simulating a coordinator crash.
func (f *FakeCoordinator) DropClients() {
	f.mu.Lock()
	conns := f.conns
	f.conns = nil
	f.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}

// ControlMessages returns a copy of all join/leave notices received so far.
func (f *FakeCoordinator) ControlMessages() []ControlMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ControlMessage(nil), f.control...)
}

// ConnCount returns the number of live push connections.
func (f *FakeCoordinator) ConnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *FakeCoordinator) serveWs(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	reject := f.rejectWS
	f.mu.Unlock()
	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+TestToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	// Record control messages until the client goes away.
	go func() {
		defer f.removeConn(conn)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg ControlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			f.mu.Lock()
			f.control = append(f.control, msg)
			f.mu.Unlock()
		}
	}()
}

func (f *FakeCoordinator) removeConn(conn *websocket.Conn) {
	conn.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.conns {
		if c == conn {
			f.conns = append(f.conns[:i], f.conns[i+1:]...)
			return
		}
	}
}

func (f *FakeCoordinator) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	snap := f.snapshot
	f.mu.Unlock()

	if snap == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

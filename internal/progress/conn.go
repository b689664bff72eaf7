// The connection manager owns the single persistent websocket channel to the
// remote coordinator: authentication, room membership, the read loop and the
// exponential-backoff reconnect policy.

package progress

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wildtrace/wildtrace-go/internal/models"
)

var (
	// ErrNoCredential is returned when no bearer token is available. This is
	// a hard precondition: no dial is attempted.
	ErrNoCredential = errors.New("no coordinator credential available")
	// ErrNoInvestigation is returned for an empty investigation id.
	ErrNoInvestigation = errors.New("no investigation id")
)

// CredentialSource supplies the bearer token used to authenticate against
// the coordinator. Session management itself lives outside this subsystem;
// the engine only consumes the token.
type CredentialSource interface {
	Token() string
}

// StaticCredential is a CredentialSource wrapping a fixed token.
type StaticCredential string

// Token implements CredentialSource.
func (c StaticCredential) Token() string { return string(c) }

// ConnConfig configures the coordinator channel and its reconnect policy.
type ConnConfig struct {
	URL         string        // websocket endpoint of the coordinator
	BackoffBase time.Duration // first retry delay
	BackoffCap  time.Duration // upper bound for retry delays
	MaxAttempts int           // retries before surfacing a terminal error
	DialTimeout time.Duration
}

func (c *ConnConfig) applyDefaults() {
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
}

// Backoff returns the reconnect delay for the given attempt number:
// base doubled per attempt, bounded by limit.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	if delay > limit {
		return limit
	}
	return delay
}

// ConnectionManager maintains zero-or-one open websocket connection. At most
// one dial and one reconnect timer are in flight at any time.
type ConnectionManager struct {
	cfg       ConnConfig
	creds     CredentialSource
	tracker   *Tracker
	processor *Processor

	mu              sync.Mutex
	conn            *websocket.Conn
	investigationID string
	attempts        int
	retryTimer      *time.Timer
	dialing         bool
	closed          bool
}

// NewConnectionManager creates a manager feeding frames into the tracker's
// processor.
func NewConnectionManager(cfg ConnConfig, creds CredentialSource, tracker *Tracker) *ConnectionManager {
	cfg.applyDefaults()
	return &ConnectionManager{
		cfg:       cfg,
		creds:     creds,
		tracker:   tracker,
		processor: NewProcessor(tracker),
		closed:    true,
	}
}

// Connect opens the channel for an investigation. Calling it again for the
// same investigation while the channel is open (or a dial/retry is pending)
// is a no-op guard, not a queued retry. When the channel is already open for
// a different investigation, room membership is switched on the existing
// channel instead of redialing.
func (m *ConnectionManager) Connect(investigationID string) error {
	if investigationID == "" {
		return ErrNoInvestigation
	}
	token := m.creds.Token()
	if token == "" {
		m.tracker.setConnection(models.ConnError, ErrNoCredential.Error())
		return ErrNoCredential
	}

	m.mu.Lock()
	if m.conn != nil {
		if m.investigationID == investigationID {
			m.mu.Unlock()
			return nil
		}
		previous := m.investigationID
		m.investigationID = investigationID
		conn := m.conn
		m.mu.Unlock()
		// Best effort; a write failure surfaces through the read loop.
		conn.WriteJSON(controlMessage{Type: controlLeave, InvestigationID: previous})
		conn.WriteJSON(controlMessage{Type: controlJoin, InvestigationID: investigationID})
		return nil
	}
	if m.dialing || m.retryTimer != nil {
		m.investigationID = investigationID
		m.mu.Unlock()
		return nil
	}
	m.closed = false
	m.dialing = true
	m.attempts = 0
	m.investigationID = investigationID
	m.mu.Unlock()

	go m.dial(token)
	return nil
}

// Disconnect sends a best-effort leave notice, cancels any pending reconnect
// timer and closes the channel.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	m.closed = true
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	conn := m.conn
	m.conn = nil
	investigationID := m.investigationID
	m.investigationID = ""
	m.mu.Unlock()

	if conn != nil {
		conn.WriteJSON(controlMessage{Type: controlLeave, InvestigationID: investigationID})
		conn.Close()
	}
	m.tracker.setConnection(models.ConnClosed, "")
}

// dial performs one connection attempt. Dial failures feed the backoff
// machinery instead of being returned: transport errors are retried
// transparently until attempts are exhausted.
func (m *ConnectionManager) dial(token string) {
	m.tracker.setConnection(models.ConnConnecting, "")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}
	conn, resp, err := dialer.Dial(m.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	m.dialing = false
	if m.closed {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.scheduleReconnect(err)
		return
	}
	m.conn = conn
	m.attempts = 0
	investigationID := m.investigationID
	m.mu.Unlock()

	m.tracker.setConnection(models.ConnOpen, "")
	// Re-establish server-side room membership on every open, so state keeps
	// flowing after a drop.
	conn.WriteJSON(controlMessage{Type: controlJoin, InvestigationID: investigationID})

	go m.readLoop(conn)
}

// readLoop applies inbound frames in arrival order until the channel dies.
func (m *ConnectionManager) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err == nil {
			m.processor.HandleFrame(frame)
			continue
		}

		m.mu.Lock()
		intentional := m.closed || m.conn != conn
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()

		conn.Close()
		if !intentional {
			// A transport error mid-stream is treated identically to an
			// unexpected closure.
			m.scheduleReconnect(err)
		}
		return
	}
}

// scheduleReconnect arms the single backoff timer, or surfaces a terminal
// error once the attempt budget is spent.
func (m *ConnectionManager) scheduleReconnect(cause error) {
	m.mu.Lock()
	if m.closed || m.retryTimer != nil || m.dialing || m.conn != nil {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.cfg.MaxAttempts {
		m.mu.Unlock()
		m.tracker.setConnection(models.ConnError,
			fmt.Sprintf("connection lost, giving up after %d attempts: %v", m.cfg.MaxAttempts, cause))
		return
	}
	delay := Backoff(m.attempts, m.cfg.BackoffBase, m.cfg.BackoffCap)
	m.attempts++
	m.retryTimer = time.AfterFunc(delay, m.retry)
	m.mu.Unlock()

	m.tracker.setConnection(models.ConnConnecting, cause.Error())
}

func (m *ConnectionManager) retry() {
	m.mu.Lock()
	m.retryTimer = nil
	if m.closed || m.dialing || m.conn != nil {
		m.mu.Unlock()
		return
	}
	m.dialing = true
	m.mu.Unlock()

	token := m.creds.Token()
	if token == "" {
		m.mu.Lock()
		m.dialing = false
		m.mu.Unlock()
		m.tracker.setConnection(models.ConnError, ErrNoCredential.Error())
		return
	}
	m.dial(token)
}

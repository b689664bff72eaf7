// The manager ties the engine together: one tracker, one coordinator
// connection and one scheduled poll loop per process. Push events and poll
// responses converge on the tracker, which reconciles them.

package progress

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/wildtrace/wildtrace-go/internal/coordinator"
)

const pollTimeout = 10 * time.Second

// Config configures the whole sync engine.
type Config struct {
	Conn           ConnConfig
	PollInterval   time.Duration // snapshot poll cadence, default 5s
	EnsembleModels []string      // nil selects the default ensemble
}

// Manager runs the sync engine for at most one investigation at a time.
type Manager struct {
	tracker   *Tracker
	conn      *ConnectionManager
	coord     *coordinator.Client
	scheduler *gocron.Scheduler
	interval  time.Duration

	mu      sync.Mutex
	pollJob *gocron.Job
}

// NewManager wires up tracker, connection manager and poll scheduler. The
// scheduler runs in singleton mode so a slow poll can never overlap the
// next one.
func NewManager(cfg Config, creds CredentialSource, coord *coordinator.Client) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	tracker := NewTracker(cfg.EnsembleModels)
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	scheduler.StartAsync()

	return &Manager{
		tracker:   tracker,
		conn:      NewConnectionManager(cfg.Conn, creds, tracker),
		coord:     coord,
		scheduler: scheduler,
		interval:  cfg.PollInterval,
	}
}

// Tracker exposes the engine's state owner, e.g. for subscribing.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Track starts synchronizing an investigation: state is reset, the push
// channel is (re)joined and the snapshot poll begins. Tracking a second id
// switches the engine over to it.
func (m *Manager) Track(investigationID string) error {
	if investigationID == "" {
		return ErrNoInvestigation
	}

	m.tracker.Track(investigationID)
	if err := m.conn.Connect(investigationID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollJob == nil {
		job, err := m.scheduler.Every(m.interval).Do(m.poll)
		if err != nil {
			return err
		}
		m.pollJob = job
	}
	return nil
}

// Untrack tears the engine down: the channel is closed (cancelling any
// pending reconnect), the poll job is removed and state is cleared. A poll
// response still in flight is discarded by the tracker's id check.
func (m *Manager) Untrack() {
	m.mu.Lock()
	if m.pollJob != nil {
		m.scheduler.RemoveByReference(m.pollJob)
		m.pollJob = nil
	}
	m.mu.Unlock()

	m.conn.Disconnect()
	m.tracker.Reset()
}

// Stop shuts the scheduler down and disconnects. Used on process exit.
func (m *Manager) Stop() {
	m.Untrack()
	m.scheduler.Stop()
}

// Poll fetches one snapshot immediately. Exposed so tests and the track
// handler can force a reconcile without waiting for the schedule.
func (m *Manager) Poll() {
	m.poll()
}

func (m *Manager) poll() {
	investigationID := m.tracker.InvestigationID()
	if investigationID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	snap, err := m.coord.GetInvestigation(ctx, investigationID)
	if err != nil {
		// Transport trouble on the poll channel is not fatal; the next tick
		// tries again and the push channel keeps flowing independently.
		log.Printf("Snapshot poll failed for investigation %s: %v", investigationID, err)
		return
	}
	m.tracker.ApplySnapshot(*snap)
}

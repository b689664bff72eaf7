// The tracker is the single owner of all in-memory progress state for the
// tracked investigation: subagent registry, ensemble aggregator, phase
// timeline, connection status and last error. Mutations arrive from the
// websocket read loop (via the Processor), from the reconnect machinery and
// from the poll loop; each one is applied as a discrete step under the
// tracker lock and then published to subscribers. Consumers only ever see
// value-copy views.

package progress

import (
	"sync"

	"github.com/wildtrace/wildtrace-go/internal/models"
)

// Subscriber receives the derived view after every applied mutation.
// Subscribers are invoked synchronously within the same event-application
// step, in registration order.
type Subscriber func(models.ProgressUpdate)

// Tracker holds the engine's state for at most one investigation at a time.
type Tracker struct {
	mu             sync.Mutex
	ensembleModels []string

	investigationID string
	subagents       *SubagentRegistry
	ensemble        *EnsembleAggregator
	timeline        *PhaseTimeline
	connState       models.ConnectionState
	lastError       string

	subscribers []Subscriber
}

// NewTracker creates a tracker. ensembleModels is the fixed set of scoring
// models initialized when the ensemble phase starts; nil selects the default
// WildTrace ensemble.
func NewTracker(ensembleModels []string) *Tracker {
	if len(ensembleModels) == 0 {
		ensembleModels = models.DefaultEnsembleModels
	}
	return &Tracker{
		ensembleModels: ensembleModels,
		subagents:      NewSubagentRegistry(),
		ensemble:       NewEnsembleAggregator(),
		connState:      models.ConnClosed,
	}
}

// Subscribe registers a subscriber for derived-view updates.
func (t *Tracker) Subscribe(fn Subscriber) {
	t.mu.Lock()
	t.subscribers = append(t.subscribers, fn)
	t.mu.Unlock()
}

// Track resets all state and binds the tracker to a new investigation,
// creating its phase timeline.
func (t *Tracker) Track(investigationID string) {
	t.mu.Lock()
	t.investigationID = investigationID
	t.subagents.Clear()
	t.ensemble.Reset()
	t.timeline = NewPhaseTimeline(investigationID)
	t.lastError = ""
	t.mu.Unlock()
	t.publish()
}

// Reset clears all state and unbinds the tracker.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.investigationID = ""
	t.subagents.Clear()
	t.ensemble.Reset()
	t.timeline = nil
	t.lastError = ""
	t.mu.Unlock()
	t.publish()
}

// InvestigationID returns the currently tracked id ("" when idle).
func (t *Tracker) InvestigationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.investigationID
}

// View builds the derived read-only snapshot for consumers.
func (t *Tracker) View() models.ProgressUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked()
}

func (t *Tracker) viewLocked() models.ProgressUpdate {
	view := models.ProgressUpdate{
		InvestigationID: t.investigationID,
		Connection:      t.connState,
		LastError:       t.lastError,
		Subagents:       t.subagents.Counts(),
		Ensemble:        t.ensemble.Summary(),
	}
	if t.timeline != nil {
		view.Phases = t.timeline.Steps()
	}
	return view
}

// Subagent returns a copy of one subagent entry, for detail views.
func (t *Tracker) Subagent(id string) (models.Subagent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subagents.Get(id)
}

// EnsembleMembers returns copies of the ensemble members in order.
func (t *Tracker) EnsembleMembers() []models.ModelProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensemble.Members()
}

// ApplySnapshot reconciles a polled snapshot. The investigation id is
// checked here, at apply time, because a stale poll response cannot always
// be aborted transport-side: a response that resolves after tracking stopped
// or switched must be discarded, not applied.
func (t *Tracker) ApplySnapshot(snap models.InvestigationSnapshot) {
	t.mu.Lock()
	if t.timeline == nil || snap.InvestigationID != t.investigationID {
		t.mu.Unlock()
		return
	}
	changed := t.timeline.MergeSnapshot(snap)
	t.mu.Unlock()
	if changed {
		t.publish()
	}
}

// setConnection records the channel state and last transport error.
func (t *Tracker) setConnection(state models.ConnectionState, lastError string) {
	t.mu.Lock()
	t.connState = state
	t.lastError = lastError
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handleSubagentSpawned(ev subagentSpawnedEvent) {
	t.mu.Lock()
	t.subagents.OnSpawned(ev.SubagentID, ev.SubagentType, ev.Phase)
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handleSubagentProgress(ev subagentProgressEvent) {
	t.mu.Lock()
	t.subagents.OnProgress(ev.SubagentID, ev.Progress, ev.Result)
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handleSubagentCompleted(ev subagentCompletedEvent) {
	t.mu.Lock()
	t.subagents.OnCompleted(ev.SubagentID, ev.Result, ev.Error)
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handleSubagentError(ev subagentErrorEvent) {
	t.mu.Lock()
	t.subagents.OnCompleted(ev.SubagentID, nil, ev.Error)
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handleModelProgress(ev modelProgressEvent) {
	t.mu.Lock()
	t.ensemble.OnModelProgress(ev.Model, ev.Progress, ev.Status, ModelExtras{
		Embeddings:     ev.Embeddings,
		ProcessingTime: ev.ProcessingTime,
		MatchesFound:   ev.MatchesFound,
		TopScore:       ev.TopScore,
		Error:          ev.Error,
	})
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handlePhaseStarted(ev phaseEvent) {
	t.mu.Lock()
	if t.timeline != nil {
		status := ev.Status
		if status == "" {
			status = models.StatusRunning
		}
		t.timeline.Advance(ev.Phase, status)
	}
	// The ensemble only exists during the scoring phase, so its members are
	// initialized when that phase starts, not when the investigation does.
	if ev.Phase == models.PhaseEnsembleScoring {
		t.ensemble.Initialize(t.ensembleModels)
	}
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handlePhaseCompleted(ev phaseEvent) {
	t.mu.Lock()
	if t.timeline != nil {
		status := ev.Status
		if status == "" {
			status = models.StatusCompleted
		}
		t.timeline.Advance(ev.Phase, status)
	}
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) handleInvestigationCompleted(investigationCompletedEvent) {
	t.mu.Lock()
	if t.timeline != nil {
		t.timeline.Complete()
	}
	t.mu.Unlock()
	t.publish()
}

// publish delivers the current view to all subscribers. The snapshot and
// subscriber list are captured under the lock; delivery happens outside it
// so a subscriber may read back from the tracker without deadlocking.
func (t *Tracker) publish() {
	t.mu.Lock()
	view := t.viewLocked()
	subs := append([]Subscriber(nil), t.subscribers...)
	t.mu.Unlock()
	for _, fn := range subs {
		fn(view)
	}
}

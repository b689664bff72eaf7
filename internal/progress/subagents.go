// The subagent registry tracks the lifecycle of dynamically spawned workers
// for the current investigation. Entries are keyed by subagent id, inserted
// on spawn, mutated in place, and only ever removed in bulk by Clear.

package progress

import (
	"encoding/json"
	"time"

	"github.com/wildtrace/wildtrace-go/internal/models"
)

// SubagentRegistry is not safe for concurrent use on its own; it is owned by
// the Tracker and mutated under the tracker's lock.
type SubagentRegistry struct {
	agents map[string]*models.Subagent
}

// NewSubagentRegistry returns an empty registry.
func NewSubagentRegistry() *SubagentRegistry {
	return &SubagentRegistry{agents: make(map[string]*models.Subagent)}
}

// OnSpawned inserts a new running entry. Spawn is idempotent per id: a
// duplicate spawn overwrites the existing entry with a fresh one.
func (r *SubagentRegistry) OnSpawned(id, subagentType string, phase models.Phase) {
	r.agents[id] = &models.Subagent{
		ID:        id,
		Type:      subagentType,
		Phase:     phase,
		Status:    models.StatusRunning,
		Progress:  0,
		StartedAt: time.Now(),
	}
}

// OnProgress updates the progress (and optionally an interim result) of an
// existing entry. Progress events for unknown ids are dropped; they can
// arrive out of order relative to spawn, or after a reset. Events arriving
// after the entry finalized are dropped too.
func (r *SubagentRegistry) OnProgress(id string, progress int, result json.RawMessage) {
	agent, ok := r.agents[id]
	if !ok || agent.Status.Terminal() {
		return
	}
	agent.Progress = clampProgress(progress)
	if result != nil {
		agent.Result = result
	}
}

// OnCompleted finalizes an entry exactly once: a duplicate or late completion
// for an already terminal entry is a no-op. An error message wins over a
// result: the entry becomes errored instead of completed. Unknown ids are a
// no-op.
func (r *SubagentRegistry) OnCompleted(id string, result json.RawMessage, errMsg string) {
	agent, ok := r.agents[id]
	if !ok || agent.Status.Terminal() {
		return
	}
	now := time.Now()
	agent.CompletedAt = &now
	if errMsg != "" {
		agent.Status = models.StatusError
		agent.Error = errMsg
	} else {
		agent.Status = models.StatusCompleted
		agent.Progress = 100
	}
	if result != nil {
		agent.Result = result
	}
}

// Clear empties the registry.
func (r *SubagentRegistry) Clear() {
	r.agents = make(map[string]*models.Subagent)
}

// Len returns the number of tracked subagents.
func (r *SubagentRegistry) Len() int {
	return len(r.agents)
}

// Get returns a copy of the entry for id.
func (r *SubagentRegistry) Get(id string) (models.Subagent, bool) {
	agent, ok := r.agents[id]
	if !ok {
		return models.Subagent{}, false
	}
	return *agent, true
}

// Counts recomputes per-status totals on every read instead of maintaining
// counters incrementally, which would drift under duplicate events.
func (r *SubagentRegistry) Counts() models.SubagentCounts {
	var counts models.SubagentCounts
	for _, agent := range r.agents {
		switch agent.Status {
		case models.StatusRunning:
			counts.Running++
		case models.StatusCompleted:
			counts.Completed++
		case models.StatusError:
			counts.Errored++
		}
	}
	counts.Total = len(r.agents)
	return counts
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

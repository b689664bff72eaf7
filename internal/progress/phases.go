// The phase timeline holds the ordered workflow sequence of the tracked
// investigation and merges two independent truth sources: push events from
// the websocket channel and periodically polled snapshots. The merge is
// monotonic per phase so that neither source can move displayed state
// backward, whatever order the two arrive in.

package progress

import (
	"github.com/wildtrace/wildtrace-go/internal/models"
)

// PhaseTimeline is owned by the Tracker and mutated under its lock.
type PhaseTimeline struct {
	investigationID string
	steps           []*models.PhaseStep
}

// NewPhaseTimeline creates the full fixed sequence for one investigation,
// all phases pending. The timeline is bound 1:1 to the investigation id.
func NewPhaseTimeline(investigationID string) *PhaseTimeline {
	steps := make([]*models.PhaseStep, len(models.PhaseOrder))
	for i, phase := range models.PhaseOrder {
		steps[i] = &models.PhaseStep{Phase: phase, Status: models.StatusPending}
	}
	return &PhaseTimeline{investigationID: investigationID, steps: steps}
}

// InvestigationID returns the id the timeline is bound to.
func (t *PhaseTimeline) InvestigationID() string {
	return t.investigationID
}

// Steps returns a copy of the ordered phase sequence.
func (t *PhaseTimeline) Steps() []models.PhaseStep {
	out := make([]models.PhaseStep, len(t.steps))
	for i, step := range t.steps {
		out[i] = *step
	}
	return out
}

// Status returns the current status of one phase.
func (t *PhaseTimeline) Status(phase models.Phase) (models.Status, bool) {
	i := phase.Ordinal()
	if i < 0 {
		return "", false
	}
	return t.steps[i].Status, true
}

// Advance moves a phase to the given status if that is equal or more
// advanced than its current one, then restores the cross-phase ordering
// invariant: once a phase is running or finished, every earlier phase must
// have finished, so earlier non-terminal phases are pulled up to completed.
// Unknown phases are ignored.
func (t *PhaseTimeline) Advance(phase models.Phase, status models.Status) {
	i := phase.Ordinal()
	if i < 0 {
		return
	}
	if !status.AtLeast(t.steps[i].Status) {
		return
	}
	t.steps[i].Status = status

	if status.Rank() >= models.StatusRunning.Rank() {
		for j := 0; j < i; j++ {
			if !t.steps[j].Status.Terminal() {
				t.steps[j].Status = models.StatusCompleted
			}
		}
	}
}

// Complete force-finishes the whole timeline: the terminal phase becomes
// completed, which in turn pulls every earlier phase to completed.
func (t *PhaseTimeline) Complete() {
	t.Advance(models.PhaseOrder[len(models.PhaseOrder)-1], models.StatusCompleted)
}

// MergeSnapshot reconciles a polled snapshot into the timeline. A snapshot
// for a different investigation id is ignored entirely: it is either stale
// (tracking switched or stopped while the request was in flight) or belongs
// to someone else's job. Per phase, the polled status replaces the local one
// only when it is equal or more advanced; a poll computed before a push
// event's effect was persisted server-side must not regress what the push
// already established. Returns whether any phase changed.
func (t *PhaseTimeline) MergeSnapshot(snap models.InvestigationSnapshot) bool {
	if snap.InvestigationID != t.investigationID {
		return false
	}

	changed := false
	for _, step := range snap.Steps {
		i := step.StepType.Ordinal()
		if i < 0 {
			continue
		}
		local := t.steps[i].Status
		if step.Status.AtLeast(local) && step.Status != local {
			t.steps[i].Status = step.Status
			changed = true
		}
	}
	return changed
}

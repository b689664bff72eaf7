// The ensemble aggregator tracks the fixed set of scoring models that run
// during the ensemble_scoring phase and derives an overall completion
// percentage across all members.

package progress

import (
	"math"
	"time"

	"github.com/wildtrace/wildtrace-go/internal/models"
)

// ModelExtras carries the optional metrics a model_progress event may attach.
// Fields left nil/empty are not merged.
type ModelExtras struct {
	Embeddings     *int
	ProcessingTime *float64
	MatchesFound   *int
	TopScore       *float64
	Error          string
}

// EnsembleAggregator is owned by the Tracker and mutated under its lock.
type EnsembleAggregator struct {
	order   []string
	members map[string]*models.ModelProgress
}

// NewEnsembleAggregator returns an empty aggregator. The ensemble only exists
// while the scoring phase runs, so members appear on Initialize, not here.
func NewEnsembleAggregator() *EnsembleAggregator {
	return &EnsembleAggregator{members: make(map[string]*models.ModelProgress)}
}

// Initialize resets the ensemble to exactly the given model names, all
// pending at 0%. There is no partial initialization: every member exists as
// soon as the scoring phase begins.
func (e *EnsembleAggregator) Initialize(names []string) {
	e.order = append([]string(nil), names...)
	e.members = make(map[string]*models.ModelProgress, len(names))
	for _, name := range names {
		e.members[name] = &models.ModelProgress{
			Model:  name,
			Status: models.StatusPending,
		}
	}
}

// OnModelProgress applies one progress event. Events for model names outside
// the configured ensemble are ignored, as are events for members that already
// reached a terminal status: a stale running update must not lower a finished
// model's displayed progress. Status only ever moves forward along
// pending -> running -> completed/error; extras are merged into the existing
// record, never replacing it wholesale.
func (e *EnsembleAggregator) OnModelProgress(model string, progress int, status models.Status, extras ModelExtras) {
	member, ok := e.members[model]
	if !ok || member.Status.Terminal() {
		return
	}

	member.Progress = clampProgress(progress)

	if status.AtLeast(member.Status) && status != member.Status {
		now := time.Now()
		if status == models.StatusRunning && member.StartedAt == nil {
			member.StartedAt = &now
		}
		if status.Terminal() && member.CompletedAt == nil {
			member.CompletedAt = &now
		}
		member.Status = status
	}

	if extras.Embeddings != nil {
		member.Embeddings = extras.Embeddings
	}
	if extras.ProcessingTime != nil {
		member.ProcessingTime = extras.ProcessingTime
	}
	if extras.MatchesFound != nil {
		member.MatchesFound = extras.MatchesFound
	}
	if extras.TopScore != nil {
		member.TopScore = extras.TopScore
	}
	if extras.Error != "" {
		member.Error = extras.Error
	}
}

// Reset drops all members. Used when tracking stops.
func (e *EnsembleAggregator) Reset() {
	e.order = nil
	e.members = make(map[string]*models.ModelProgress)
}

// Size returns the number of ensemble members.
func (e *EnsembleAggregator) Size() int {
	return len(e.members)
}

// Members returns copies of all members in initialization order.
func (e *EnsembleAggregator) Members() []models.ModelProgress {
	out := make([]models.ModelProgress, 0, len(e.order))
	for _, name := range e.order {
		if member, ok := e.members[name]; ok {
			out = append(out, *member)
		}
	}
	return out
}

// Get returns a copy of one member.
func (e *EnsembleAggregator) Get(model string) (models.ModelProgress, bool) {
	member, ok := e.members[model]
	if !ok {
		return models.ModelProgress{}, false
	}
	return *member, true
}

// CompletedCount returns how many members reached completed.
func (e *EnsembleAggregator) CompletedCount() int {
	count := 0
	for _, member := range e.members {
		if member.Status == models.StatusCompleted {
			count++
		}
	}
	return count
}

// OverallProgress is the arithmetic mean of all member progress values,
// rounded to the nearest integer. An empty ensemble reports 0.
func (e *EnsembleAggregator) OverallProgress() int {
	if len(e.members) == 0 {
		return 0
	}
	sum := 0
	for _, member := range e.members {
		sum += member.Progress
	}
	return int(math.Round(float64(sum) / float64(len(e.members))))
}

// Summary builds the derived ensemble view.
func (e *EnsembleAggregator) Summary() models.EnsembleSummary {
	return models.EnsembleSummary{
		CompletedCount:  e.CompletedCount(),
		OverallProgress: e.OverallProgress(),
		TotalModels:     len(e.members),
	}
}

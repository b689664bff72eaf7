package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wildtrace/wildtrace-go/internal/models"
)

func TestPhaseTimeline_StartsAllPending(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")
	steps := tl.Steps()
	assert.Len(t, steps, len(models.PhaseOrder))
	for _, step := range steps {
		assert.Equal(t, models.StatusPending, step.Status)
	}
}

func TestPhaseTimeline_AdvanceIsMonotonic(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")

	tl.Advance(models.PhaseUpload, models.StatusRunning)
	tl.Advance(models.PhaseUpload, models.StatusCompleted)
	// A late "running" push must not regress the completed phase.
	tl.Advance(models.PhaseUpload, models.StatusRunning)

	status, _ := tl.Status(models.PhaseUpload)
	assert.Equal(t, models.StatusCompleted, status)
}

func TestPhaseTimeline_LaterPhasePullsEarlierForward(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")

	// A phase_started for detection arriving before any upload events must
	// not leave upload pending behind a running detection.
	tl.Advance(models.PhaseDetection, models.StatusRunning)

	uploadStatus, _ := tl.Status(models.PhaseUpload)
	metaStatus, _ := tl.Status(models.PhaseMetadataExtraction)
	assert.Equal(t, models.StatusCompleted, uploadStatus)
	assert.Equal(t, models.StatusCompleted, metaStatus)

	reportStatus, _ := tl.Status(models.PhaseReport)
	assert.Equal(t, models.StatusPending, reportStatus)
}

func TestPhaseTimeline_UnknownPhaseIgnored(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")
	tl.Advance(models.Phase("teleportation"), models.StatusCompleted)

	for _, step := range tl.Steps() {
		assert.Equal(t, models.StatusPending, step.Status)
	}
}

func TestPhaseTimeline_MergeSnapshotNonRegression(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")
	tl.Advance(models.PhaseUpload, models.StatusCompleted)

	// Poll computed before the push's effect was persisted server-side.
	changed := tl.MergeSnapshot(models.InvestigationSnapshot{
		InvestigationID: "inv-1",
		Status:          "running",
		Steps: []models.SnapshotStep{
			{StepType: models.PhaseUpload, Status: models.StatusRunning},
		},
	})

	assert.False(t, changed)
	status, _ := tl.Status(models.PhaseUpload)
	assert.Equal(t, models.StatusCompleted, status)
}

func TestPhaseTimeline_MergeSnapshotAdvances(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")
	tl.Advance(models.PhaseUpload, models.StatusRunning)

	changed := tl.MergeSnapshot(models.InvestigationSnapshot{
		InvestigationID: "inv-1",
		Steps: []models.SnapshotStep{
			{StepType: models.PhaseUpload, Status: models.StatusCompleted},
			{StepType: models.PhaseMetadataExtraction, Status: models.StatusRunning},
			{StepType: models.Phase("unknown_step"), Status: models.StatusCompleted},
		},
	})

	assert.True(t, changed)
	uploadStatus, _ := tl.Status(models.PhaseUpload)
	metaStatus, _ := tl.Status(models.PhaseMetadataExtraction)
	assert.Equal(t, models.StatusCompleted, uploadStatus)
	assert.Equal(t, models.StatusRunning, metaStatus)
}

func TestPhaseTimeline_MergeSnapshotWrongInvestigationIgnored(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")

	changed := tl.MergeSnapshot(models.InvestigationSnapshot{
		InvestigationID: "inv-2",
		Steps: []models.SnapshotStep{
			{StepType: models.PhaseUpload, Status: models.StatusCompleted},
		},
	})

	assert.False(t, changed)
	status, _ := tl.Status(models.PhaseUpload)
	assert.Equal(t, models.StatusPending, status)
}

func TestPhaseTimeline_CompleteForcesTerminalPhase(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")
	tl.Advance(models.PhaseDetection, models.StatusRunning)

	tl.Complete()

	for _, step := range tl.Steps() {
		assert.Equal(t, models.StatusCompleted, step.Status, "phase %s", step.Phase)
	}
}

func TestPhaseTimeline_ErrorIsTerminal(t *testing.T) {
	tl := NewPhaseTimeline("inv-1")
	tl.Advance(models.PhaseDetection, models.StatusError)

	// The errored phase stays errored even if a stale poll reports running.
	tl.MergeSnapshot(models.InvestigationSnapshot{
		InvestigationID: "inv-1",
		Steps: []models.SnapshotStep{
			{StepType: models.PhaseDetection, Status: models.StatusRunning},
		},
	})

	status, _ := tl.Status(models.PhaseDetection)
	assert.Equal(t, models.StatusError, status)
}

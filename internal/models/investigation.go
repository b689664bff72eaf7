// This file defines the core data structures for investigation progress
// tracking: phases, subagents and the ensemble of scoring models.

package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle status shared by subagents, ensemble models and
// phase steps.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Rank orders statuses for monotonic merges: pending < running < completed/error.
// Unknown statuses rank below pending so they can never overwrite known state.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusRunning:
		return 2
	case StatusCompleted, StatusError:
		return 3
	default:
		return 0
	}
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// AtLeast reports whether s is equal or more advanced than other.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

// Phase identifies one stage of the fixed investigation workflow.
type Phase string

const (
	PhaseUpload             Phase = "upload"
	PhaseMetadataExtraction Phase = "metadata_extraction"
	PhaseDetection          Phase = "detection"
	PhaseEnsembleScoring    Phase = "ensemble_scoring"
	PhaseCrossReference     Phase = "cross_reference"
	PhaseReport             Phase = "report"
)

// PhaseOrder is the fixed workflow sequence of an investigation.
var PhaseOrder = []Phase{
	PhaseUpload,
	PhaseMetadataExtraction,
	PhaseDetection,
	PhaseEnsembleScoring,
	PhaseCrossReference,
	PhaseReport,
}

// Ordinal returns the position of the phase in the workflow, or -1 for a
// phase name the engine does not recognize.
func (p Phase) Ordinal() int {
	for i, phase := range PhaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// Subagent represents one dynamically spawned background worker of the
// currently tracked investigation.
type Subagent struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Phase       Phase           `json:"phase"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"` // 0-100
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ModelProgress represents one member of the fixed ensemble of scoring models.
type ModelProgress struct {
	Model       string     `json:"model"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"` // 0-100
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Optional metrics reported by the scoring pipeline.
	Embeddings     *int     `json:"embeddings,omitempty"`
	ProcessingTime *float64 `json:"processing_time,omitempty"`
	MatchesFound   *int     `json:"matches_found,omitempty"`
	TopScore       *float64 `json:"top_score,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// DefaultEnsembleModels is the standard WildTrace scoring ensemble.
var DefaultEnsembleModels = []string{
	"wildlife_tools",
	"megadetector",
	"bioclip",
	"species_net",
	"geo_prior",
	"pattern_match",
}

// PhaseStep is one node of the fixed, ordered phase sequence.
type PhaseStep struct {
	Phase  Phase  `json:"phase"`
	Status Status `json:"status"`
}

// InvestigationSnapshot is the polled, authoritative view of an
// investigation returned by the coordinator's REST API.
type InvestigationSnapshot struct {
	InvestigationID string         `json:"investigation_id"`
	Status          string         `json:"status"`
	Steps           []SnapshotStep `json:"steps"`
}

// SnapshotStep is one phase entry of a polled snapshot.
type SnapshotStep struct {
	StepType Phase  `json:"step_type"`
	Status   Status `json:"status"`
}

// ConnectionState describes the coordinator channel.
type ConnectionState string

const (
	ConnConnecting ConnectionState = "connecting"
	ConnOpen       ConnectionState = "open"
	ConnClosed     ConnectionState = "closed"
	ConnError      ConnectionState = "error"
)

// SubagentCounts holds per-status subagent totals, recomputed on read.
type SubagentCounts struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Errored   int `json:"errored"`
	Total     int `json:"total"`
}

// EnsembleSummary is the derived view of the scoring ensemble.
type EnsembleSummary struct {
	CompletedCount  int `json:"completed_count"`
	OverallProgress int `json:"overall_progress"` // 0-100, mean of member progress
	TotalModels     int `json:"total_models"`
}

// ProgressUpdate is the derived, read-only view of the tracked investigation
// that is served over the API and broadcast to dashboard clients. Consumers
// never mutate engine state through it.
type ProgressUpdate struct {
	InvestigationID string          `json:"investigation_id"`
	Connection      ConnectionState `json:"connection"`
	LastError       string          `json:"last_error,omitempty"`
	Subagents       SubagentCounts  `json:"subagents"`
	Ensemble        EnsembleSummary `json:"ensemble"`
	Phases          []PhaseStep     `json:"phases"`
}

// This file defines the wire format of the coordinator's push channel: the
// inbound event envelope, the per-tag payloads and the outbound control
// messages for room membership.

package progress

import (
	"encoding/json"

	"github.com/wildtrace/wildtrace-go/internal/models"
)

// Envelope is the outer frame of every inbound push message. The event tag
// selects the payload shape of Data.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Recognized event tags. Frames with any other tag are ignored.
const (
	EventSubagentSpawned        = "subagent_spawned"
	EventSubagentProgress       = "subagent_progress"
	EventSubagentCompleted      = "subagent_completed"
	EventSubagentError          = "subagent_error"
	EventModelProgress          = "model_progress"
	EventPhaseStarted           = "phase_started"
	EventPhaseCompleted         = "phase_completed"
	EventInvestigationCompleted = "investigation_completed"
)

type subagentSpawnedEvent struct {
	SubagentID   string       `json:"subagent_id"`
	SubagentType string       `json:"subagent_type"`
	Phase        models.Phase `json:"phase"`
	Timestamp    string       `json:"timestamp"`
}

type subagentProgressEvent struct {
	SubagentID string          `json:"subagent_id"`
	Progress   int             `json:"progress"`
	Result     json.RawMessage `json:"result,omitempty"`
}

type subagentCompletedEvent struct {
	SubagentID string          `json:"subagent_id"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type subagentErrorEvent struct {
	SubagentID string `json:"subagent_id"`
	Error      string `json:"error"`
}

type modelProgressEvent struct {
	Model          string        `json:"model"`
	Progress       int           `json:"progress"`
	Status         models.Status `json:"status"`
	Embeddings     *int          `json:"embeddings,omitempty"`
	ProcessingTime *float64      `json:"processing_time,omitempty"`
	MatchesFound   *int          `json:"matches_found,omitempty"`
	TopScore       *float64      `json:"top_score,omitempty"`
	Error          string        `json:"error,omitempty"`
}

type phaseEvent struct {
	Phase     models.Phase  `json:"phase"`
	Status    models.Status `json:"status"`
	Timestamp string        `json:"timestamp"`
}

type investigationCompletedEvent struct {
	Timestamp string `json:"timestamp"`
}

// Control message types sent client -> coordinator.
const (
	controlJoin  = "join_investigation"
	controlLeave = "leave_investigation"
)

// controlMessage manages server-side room membership for an investigation.
type controlMessage struct {
	Type            string `json:"type"`
	InvestigationID string `json:"investigation_id"`
}

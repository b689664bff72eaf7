// The event stream processor decodes raw frames from the coordinator's push
// channel and routes each event to the matching tracker mutator. A corrupt or
// unknown frame must never take down the pipeline: it is counted, logged and
// dropped.

package progress

import (
	"encoding/json"
	"log"
	"sync/atomic"
)

// Processor turns raw inbound frames into typed events. Events are applied
// strictly in the order frames are handed to HandleFrame; there is no
// reordering or batching.
type Processor struct {
	tracker *Tracker
	dropped atomic.Int64
}

// NewProcessor creates a processor feeding the given tracker.
func NewProcessor(tracker *Tracker) *Processor {
	return &Processor{tracker: tracker}
}

// DroppedFrames returns how many frames were discarded as malformed.
func (p *Processor) DroppedFrames() int64 {
	return p.dropped.Load()
}

// HandleFrame decodes one raw frame and applies it. Decode failures are
// recorded for diagnostics and swallowed.
func (p *Processor) HandleFrame(frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		p.drop("envelope", err)
		return
	}

	switch env.Event {
	case EventSubagentSpawned:
		var ev subagentSpawnedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handleSubagentSpawned(ev)

	case EventSubagentProgress:
		var ev subagentProgressEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handleSubagentProgress(ev)

	case EventSubagentCompleted:
		var ev subagentCompletedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handleSubagentCompleted(ev)

	case EventSubagentError:
		var ev subagentErrorEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handleSubagentError(ev)

	case EventModelProgress:
		var ev modelProgressEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handleModelProgress(ev)

	case EventPhaseStarted:
		var ev phaseEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handlePhaseStarted(ev)

	case EventPhaseCompleted:
		var ev phaseEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handlePhaseCompleted(ev)

	case EventInvestigationCompleted:
		var ev investigationCompletedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			p.drop(env.Event, err)
			return
		}
		p.tracker.handleInvestigationCompleted(ev)

	default:
		// Unknown tags are ignored so the coordinator can add event types
		// without breaking older dashboards.
	}
}

func (p *Processor) drop(context string, err error) {
	p.dropped.Add(1)
	log.Printf("Dropping malformed frame (%s): %v", context, err)
}

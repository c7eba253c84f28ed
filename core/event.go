package core

import "time"

// EventType discriminates lifecycle frames streamed to the caller while a
// pipeline runs.
type EventType string

const (
	// EventStart opens the stream, exactly once per execution.
	EventStart EventType = "start"
	// EventProgress precedes each working stage with step/total counters.
	EventProgress EventType = "progress"
	// EventData carries intermediate payloads (reserved for partial output).
	EventData EventType = "data"
	// EventResult carries the finalized, request-type-specific payload.
	EventResult EventType = "result"
	// EventError terminates the stream after an unrecoverable failure.
	EventError EventType = "error"
	// EventComplete closes a successful stream after the result frame.
	EventComplete EventType = "complete"
)

// Event is one typed frame of the progress stream. For a single request id
// frames are delivered strictly in order:
// start, progress(0..n-1), then either (result, complete) or one error.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// StartData is the payload of a start frame.
type StartData struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressData is the payload of a progress frame. Step counts from zero;
// Total is the number of working stages in the graph.
type ProgressData struct {
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Message string `json:"message"`
}

// CompleteData is the payload of a complete frame.
type CompleteData struct {
	ProcessingTime float64 `json:"processing_time"`
}

// NewStartEvent builds the opening frame of a stream.
func NewStartEvent(message string) Event {
	return Event{Type: EventStart, Data: StartData{Message: message, Timestamp: time.Now().UTC()}}
}

// NewProgressEvent builds the frame preceding working stage step of total.
func NewProgressEvent(step, total int, message string) Event {
	return Event{Type: EventProgress, Data: ProgressData{Step: step, Total: total, Message: message}}
}

// NewResultEvent wraps the finalized payload selected by the terminal stage.
func NewResultEvent(payload map[string]any) Event {
	return Event{Type: EventResult, Data: payload}
}

// NewErrorEvent builds the single terminating error frame.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Data: ErrorData{Message: message}}
}

// NewCompleteEvent closes a successful stream with the elapsed wall time.
func NewCompleteEvent(elapsed time.Duration) Event {
	return Event{Type: EventComplete, Data: CompleteData{ProcessingTime: elapsed.Seconds()}}
}

package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is one prior exchange entry in a session's conversation history.
// History is chronological and read-only input to stages.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Diagnostic is a structured, append-only error or warning entry attached to
// a record by a stage or by the engine.
type Diagnostic struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Solution is one generated code solution for an answer request. The answer
// pipeline always produces three, ordered basic to advanced.
type Solution struct {
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	Explanation string   `json:"explanation"`
	Difficulty  string   `json:"difficulty"`
	Packages    []string `json:"packages,omitempty"`
	Filename    string   `json:"filename,omitempty"`
}

// Record is the mutable state threaded through a stage graph. It is owned
// exclusively by one pipeline execution; stages mutate it in place and never
// run concurrently against the same record. Once the pipeline finishes the
// record is frozen: checkpointed, handed to the history store and to the
// final event frame.
type Record struct {
	SessionID   string      `json:"session_id"`
	RequestID   string      `json:"request_id"`
	RequestType RequestType `json:"request_type"`

	UserInput string    `json:"user_input"`
	History   []Message `json:"conversation_history,omitempty"`

	// Results maps stage name to that stage's output. Each stage writes
	// exactly one entry under its own name; overwriting another stage's
	// entry is an invariant violation.
	Results map[string]any `json:"derived_results"`

	// ProcessingLog lists completed stage names in execution order.
	ProcessingLog []string `json:"processing_log"`

	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`

	// Demo marks the record as carrying fallback output produced without a
	// configured completion provider.
	Demo bool `json:"demo"`

	Complete   bool      `json:"is_complete"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// NewRecord creates a fresh record for one pipeline execution with a
// generated request id.
func NewRecord(sessionID string, reqType RequestType, input string, history []Message) *Record {
	return &Record{
		SessionID:   sessionID,
		RequestID:   uuid.NewString(),
		RequestType: reqType,
		UserInput:   input,
		History:     history,
		Results:     map[string]any{},
		StartedAt:   time.Now().UTC(),
	}
}

// SetResult stores a stage's output under its own name. A second write under
// the same name is rejected as an invariant violation.
func (r *Record) SetResult(stage string, value any) error {
	if _, exists := r.Results[stage]; exists {
		return &InvariantError{Stage: stage, Reason: "derived result already written"}
	}
	r.Results[stage] = value
	return nil
}

// Result returns the output written by the named stage, if any.
func (r *Record) Result(stage string) (any, bool) {
	v, ok := r.Results[stage]
	return v, ok
}

// MarkProcessed appends the stage name to the processing log.
func (r *Record) MarkProcessed(stage string) {
	r.ProcessingLog = append(r.ProcessingLog, stage)
}

// AddWarning appends a non-fatal diagnostic for the named stage.
func (r *Record) AddWarning(stage, format string, args ...any) {
	r.Warnings = append(r.Warnings, Diagnostic{Stage: stage, Message: fmt.Sprintf(format, args...), Time: time.Now().UTC()})
}

// AddError appends a fatal diagnostic for the named stage. The record stays
// incomplete; the engine halts the graph after the stage returns.
func (r *Record) AddError(stage, format string, args ...any) {
	r.Errors = append(r.Errors, Diagnostic{Stage: stage, Message: fmt.Sprintf(format, args...), Time: time.Now().UTC()})
}

// Progress reports the completed fraction of the given graph length.
func (r *Record) Progress(graphLen int) float64 {
	if graphLen == 0 {
		return 0
	}
	return float64(len(r.ProcessingLog)) / float64(graphLen)
}

// Clone returns a deep copy safe for checkpointing while the original keeps
// mutating. Result values are copied by reference; stages treat written
// outputs as immutable.
func (r *Record) Clone() *Record {
	clone := *r
	clone.Results = make(map[string]any, len(r.Results))
	for k, v := range r.Results {
		clone.Results[k] = v
	}
	clone.History = append([]Message(nil), r.History...)
	clone.ProcessingLog = append([]string(nil), r.ProcessingLog...)
	clone.Errors = append([]Diagnostic(nil), r.Errors...)
	clone.Warnings = append([]Diagnostic(nil), r.Warnings...)
	return &clone
}

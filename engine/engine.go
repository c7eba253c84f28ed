// Package engine orchestrates pipeline execution: it resolves a request
// type to its stage graph, runs the stages sequentially against one state
// record, checkpoints snapshots per (session, request), streams lifecycle
// events to the caller and persists the finished exchange to the history
// store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/history"
	"github.com/avilaj/rassist/logging"
)

// DefaultTimeout is the end-to-end wall-clock budget per pipeline run.
const DefaultTimeout = 5 * time.Minute

// Options configures an Engine via the functional options pattern.
type Options struct {
	// Graphs maps request types to their stage graphs; typically
	// stage.Graphs(provider).
	Graphs map[core.RequestType]core.Graph

	// History persists completed exchanges. Defaults to in-memory.
	History history.Store

	// Logger defaults to a no-op so logging stays opt-in.
	Logger logging.Logger

	// Timeout bounds one Start call end to end.
	Timeout time.Duration

	// EventBufferSize is the channel buffer per stream. A slow consumer only
	// stalls its own pipeline once the buffer fills, never other sessions.
	EventBufferSize int

	// MaxCheckpointSessions caps checkpoint retention (LRU by session).
	MaxCheckpointSessions int
}

// Engine executes stage graphs. Stages within one run are strictly
// sequential; runs across sessions (and across request ids within a
// session's history) are independent tasks.
type Engine struct {
	graphs      map[core.RequestType]core.Graph
	history     history.Store
	checkpoints *CheckpointStore
	logger      logging.Logger
	timeout     time.Duration
	bufSize     int

	// active tracks sessions with an in-flight pipeline. A second Start for
	// the same session is rejected rather than queued.
	activeMu sync.Mutex
	active   map[string]string // session id -> request id
}

// New constructs an Engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		History:               history.NewInMemoryStore(),
		Logger:                logging.NoOpLogger{},
		Timeout:               DefaultTimeout,
		EventBufferSize:       64,
		MaxCheckpointSessions: 128,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		graphs:      opts.Graphs,
		history:     opts.History,
		checkpoints: NewCheckpointStore(opts.MaxCheckpointSessions),
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		bufSize:     opts.EventBufferSize,
		active:      make(map[string]string),
	}
}

// Start validates the request type, admits the request and begins executing
// its graph in a separate goroutine. It returns the ordered event stream;
// the channel is closed after the terminal frame. Unknown request types and
// busy sessions fail before any event is produced.
func (e *Engine) Start(ctx context.Context, requestType, input, sessionID string) (<-chan core.Event, error) {
	reqType, err := core.ParseRequestType(requestType)
	if err != nil {
		return nil, err
	}
	graph, ok := e.graphs[reqType]
	if !ok || len(graph) == 0 {
		return nil, fmt.Errorf("%w: no graph registered for %q", core.ErrUnknownRequestType, requestType)
	}

	prior, err := e.history.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation history: %w", err)
	}
	rec := core.NewRecord(sessionID, reqType, input, prior)

	e.activeMu.Lock()
	if other, busy := e.active[sessionID]; busy {
		e.activeMu.Unlock()
		return nil, fmt.Errorf("%w: request %s still running", core.ErrSessionBusy, other)
	}
	e.active[sessionID] = rec.RequestID
	e.activeMu.Unlock()

	events := make(chan core.Event, e.bufSize)
	go e.run(ctx, rec, graph, events)
	return events, nil
}

// StartExplain starts a code explanation pipeline.
func (e *Engine) StartExplain(ctx context.Context, code, sessionID string) (<-chan core.Event, error) {
	return e.Start(ctx, core.RequestExplain.String(), code, sessionID)
}

// StartAnswer starts a problem solving pipeline.
func (e *Engine) StartAnswer(ctx context.Context, problem, sessionID string) (<-chan core.Event, error) {
	return e.Start(ctx, core.RequestAnswer.String(), problem, sessionID)
}

// StartTalk starts a conversation pipeline.
func (e *Engine) StartTalk(ctx context.Context, message, sessionID string) (<-chan core.Event, error) {
	return e.Start(ctx, core.RequestTalk.String(), message, sessionID)
}

// ClearHistory purges a session's stored exchanges and checkpoints. Safe to
// call repeatedly; clearing an empty session is a no-op.
func (e *Engine) ClearHistory(ctx context.Context, sessionID string) error {
	e.checkpoints.EvictSession(sessionID)
	return e.history.Clear(ctx, sessionID)
}

// History lists a session's stored exchanges in chronological order.
func (e *Engine) History(ctx context.Context, sessionID string) ([]core.Message, error) {
	return e.history.List(ctx, sessionID)
}

// LatestCheckpoint returns the newest record snapshot for a request, for
// read-only resume after a transport interruption.
func (e *Engine) LatestCheckpoint(sessionID, requestID string) (*core.Record, bool) {
	return e.checkpoints.Latest(sessionID, requestID)
}

// run executes the graph sequentially, emitting frames in the guaranteed
// order: start, progress(0..n-1), then (result, complete) or a single error.
func (e *Engine) run(ctx context.Context, rec *core.Record, graph core.Graph, events chan<- core.Event) {
	defer close(events)
	defer func() {
		e.activeMu.Lock()
		delete(e.active, rec.SessionID)
		e.activeMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	total := graph.WorkingStages()

	if !e.emit(ctx, events, core.NewStartEvent(startMessage(rec.RequestType))) {
		return
	}

	for i, s := range graph {
		// Cancellation and timeout are only observed between stages;
		// provider calls are not preemptible.
		if halted := e.checkHalt(ctx, rec, events, s.Name()); halted {
			return
		}

		if i < total {
			if !e.emit(ctx, events, core.NewProgressEvent(i, total, s.Label())) {
				return
			}
		}

		e.logger.Debug("stage starting", "stage", s.Name(), "session_id", rec.SessionID, "request_id", rec.RequestID)
		if err := s.Process(ctx, rec); err != nil {
			e.failStage(ctx, rec, events, s.Name(), err)
			return
		}
		if err := e.verifyStage(rec, graph, i); err != nil {
			e.failStage(ctx, rec, events, s.Name(), err)
			return
		}

		e.checkpoints.Save(rec)
	}

	rec.FinishedAt = time.Now().UTC()
	e.checkpoints.Save(rec)

	payload, err := finalPayload(rec)
	if err != nil {
		e.failStage(ctx, rec, events, core.StageFinalize, err)
		return
	}
	elapsed := time.Since(started)
	payload["processing_time"] = elapsed.Seconds()

	if !e.emit(ctx, events, core.NewResultEvent(payload)) {
		return
	}
	if !e.emit(ctx, events, core.NewCompleteEvent(elapsed)) {
		return
	}

	e.persistExchange(ctx, rec, payload)
	e.logger.Info("pipeline complete",
		"request_type", rec.RequestType.String(),
		"session_id", rec.SessionID,
		"request_id", rec.RequestID,
		"elapsed", elapsed.Seconds())
}

// checkHalt reports whether the run must stop before the next stage. A
// deadline produces a timeout error frame; a cancelled transport produces
// none since no one is listening.
func (e *Engine) checkHalt(ctx context.Context, rec *core.Record, events chan<- core.Event, stageName string) bool {
	switch {
	case ctx.Err() == nil:
		return false
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		rec.AddError(stageName, "%v", core.ErrTimeout)
		e.checkpoints.Save(rec)
		e.emitFinal(ctx, events, core.NewErrorEvent(core.ErrTimeout.Error()))
		e.logger.Warn("pipeline timed out", "session_id", rec.SessionID, "request_id", rec.RequestID)
	default:
		// Transport disconnected: abort quietly between stages.
		e.checkpoints.Save(rec)
		e.logger.Debug("pipeline aborted, transport gone", "session_id", rec.SessionID, "request_id", rec.RequestID)
	}
	return true
}

// verifyStage enforces the stage contract after a successful Process: the
// stage wrote its own derived result and appended itself to the processing
// log, and the log never outgrows the graph.
func (e *Engine) verifyStage(rec *core.Record, graph core.Graph, idx int) error {
	name := graph[idx].Name()
	if _, ok := rec.Result(name); !ok {
		return &core.InvariantError{Stage: name, Reason: "no derived result written"}
	}
	if len(rec.ProcessingLog) == 0 || rec.ProcessingLog[len(rec.ProcessingLog)-1] != name {
		return &core.InvariantError{Stage: name, Reason: "processing log not appended"}
	}
	if len(rec.ProcessingLog) > len(graph) {
		return &core.InvariantError{Stage: name, Reason: "processing log longer than graph"}
	}
	return nil
}

// failStage checkpoints the partial record and emits the single terminating
// error frame. Deadline expiry during the stage is reported as a timeout.
func (e *Engine) failStage(ctx context.Context, rec *core.Record, events chan<- core.Event, stageName string, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		e.checkpoints.Save(rec)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = core.ErrTimeout
		rec.AddError(stageName, "%v", err)
	}
	e.checkpoints.Save(rec)
	e.emitFinal(ctx, events, core.NewErrorEvent(err.Error()))
	e.logger.Error("stage failed",
		"stage", stageName,
		"session_id", rec.SessionID,
		"request_id", rec.RequestID,
		"error", err)
}

// emit delivers one frame, giving up if the caller's context ends first.
func (e *Engine) emit(ctx context.Context, events chan<- core.Event, ev core.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// emitFinal delivers a terminating frame. Unlike emit it prefers delivery
// over an already-expired context, so a timeout is still reported to a
// consumer that is keeping up with the stream.
func (e *Engine) emitFinal(ctx context.Context, events chan<- core.Event, ev core.Event) {
	select {
	case events <- ev:
		return
	default:
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// persistExchange appends the user input and the assistant's reply to the
// history store. Persistence happens only after finalize succeeded, so
// partial exchanges never reach storage.
func (e *Engine) persistExchange(ctx context.Context, rec *core.Record, payload map[string]any) {
	now := time.Now().UTC()
	if err := e.history.Append(ctx, rec.SessionID, "user", rec.UserInput, now); err != nil {
		e.logger.Warn("failed to persist user message", "session_id", rec.SessionID, "error", err)
		return
	}
	if err := e.history.Append(ctx, rec.SessionID, "assistant", responseText(rec.RequestType, payload), now); err != nil {
		e.logger.Warn("failed to persist assistant message", "session_id", rec.SessionID, "error", err)
	}
}

// finalPayload extracts the user-facing payload the terminal stage selected.
func finalPayload(rec *core.Record) (map[string]any, error) {
	raw, ok := rec.Result(core.StageFinalize)
	if !ok {
		return nil, &core.InvariantError{Stage: core.StageFinalize, Reason: "no finalized payload"}
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		return nil, &core.InvariantError{Stage: core.StageFinalize, Reason: "finalized payload has unexpected type"}
	}
	// Copy so the emitted frame stays detached from the checkpointed record.
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	return out, nil
}

func responseText(t core.RequestType, payload map[string]any) string {
	var v any
	switch t {
	case core.RequestExplain:
		v = payload["explanation"]
	case core.RequestAnswer:
		v = payload["answer_result"]
	case core.RequestTalk:
		v = payload["response"]
	}
	s, _ := v.(string)
	return s
}

func startMessage(t core.RequestType) string {
	switch t {
	case core.RequestExplain:
		return "Starting code analysis..."
	case core.RequestAnswer:
		return "Starting problem analysis..."
	default:
		return "Starting conversation..."
	}
}

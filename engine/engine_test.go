package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/engine"
	"github.com/avilaj/rassist/provider"
	"github.com/avilaj/rassist/stage"
)

// unconfiguredProvider mimics an adapter with no credential.
type unconfiguredProvider struct{}

func (unconfiguredProvider) Complete(context.Context, provider.Request) (string, error) {
	return "", provider.ErrUnconfigured
}

func (unconfiguredProvider) Info() provider.Info {
	return provider.Info{Name: "none", Vendor: "none"}
}

// slowProvider delays every completion, honoring context cancellation.
type slowProvider struct {
	delay time.Duration
}

func (s slowProvider) Complete(ctx context.Context, _ provider.Request) (string, error) {
	select {
	case <-time.After(s.delay):
		return "slow completion", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s slowProvider) Info() provider.Info { return provider.Info{Name: "slow", Vendor: "test"} }

// gateProvider blocks completions until released, signalling first entry.
type gateProvider struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGateProvider() *gateProvider {
	return &gateProvider{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateProvider) Complete(ctx context.Context, _ provider.Request) (string, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return "gated completion", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gateProvider) Info() provider.Info { return provider.Info{Name: "gate", Vendor: "test"} }

func newTestEngine(p provider.Provider, optFns ...func(o *engine.Options)) *engine.Engine {
	fns := append([]func(o *engine.Options){func(o *engine.Options) {
		o.Graphs = stage.Graphs(p)
	}}, optFns...)
	return engine.New(fns...)
}

// collect drains the stream until it closes.
func collect(t *testing.T, events <-chan core.Event) []core.Event {
	t.Helper()
	var out []core.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}
}

func eventTypes(events []core.Event) []core.EventType {
	types := make([]core.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func resultPayload(t *testing.T, events []core.Event) map[string]any {
	t.Helper()
	for _, ev := range events {
		if ev.Type == core.EventResult {
			payload, ok := ev.Data.(map[string]any)
			require.True(t, ok, "result data should be a payload map")
			return payload
		}
	}
	t.Fatal("no result event in stream")
	return nil
}

func TestEngine_ExplainEventOrder(t *testing.T) {
	e := newTestEngine(provider.NewMock())

	ch, err := e.StartExplain(context.Background(), "x <- c(1, 2, 3)\nmean(x)", "sess-explain")
	require.NoError(t, err)

	events := collect(t, ch)
	require.Equal(t, []core.EventType{
		core.EventStart,
		core.EventProgress,
		core.EventProgress,
		core.EventResult,
		core.EventComplete,
	}, eventTypes(events))

	first, ok := events[1].Data.(core.ProgressData)
	require.True(t, ok)
	assert.Equal(t, 0, first.Step)
	assert.Equal(t, 2, first.Total)
	second := events[2].Data.(core.ProgressData)
	assert.Equal(t, 1, second.Step)
	assert.Equal(t, 2, second.Total)

	payload := resultPayload(t, events)
	assert.NotEmpty(t, payload["explanation"])
	assert.Equal(t, false, payload["demo"])
	pt, ok := payload["processing_time"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, pt, 0.0)

	done, ok := events[4].Data.(core.CompleteData)
	require.True(t, ok)
	assert.GreaterOrEqual(t, done.ProcessingTime, 0.0)
}

func TestEngine_AnswerProducesThreeSolutions(t *testing.T) {
	e := newTestEngine(provider.NewMock())

	ch, err := e.StartAnswer(context.Background(), "How do I read a CSV file?", "sess-answer")
	require.NoError(t, err)

	events := collect(t, ch)
	payload := resultPayload(t, events)
	solutions, ok := payload["solutions"].([]core.Solution)
	require.True(t, ok)
	require.Len(t, solutions, 3)
	for _, sol := range solutions {
		assert.NotEmpty(t, sol.Title)
		assert.NotEmpty(t, sol.Code)
		assert.NotEmpty(t, sol.Filename)
	}
	assert.NotEmpty(t, payload["answer_result"])
}

func TestEngine_UnconfiguredProviderFallsBackToDemo(t *testing.T) {
	e := newTestEngine(unconfiguredProvider{})

	ch, err := e.StartExplain(context.Background(), "plot(mtcars)", "sess-demo")
	require.NoError(t, err)

	events := collect(t, ch)
	assert.Equal(t, []core.EventType{
		core.EventStart,
		core.EventProgress,
		core.EventProgress,
		core.EventResult,
		core.EventComplete,
	}, eventTypes(events))

	payload := resultPayload(t, events)
	assert.Equal(t, true, payload["demo"])
	assert.NotEmpty(t, payload["explanation"])
}

func TestEngine_ProviderFailureEmitsSingleError(t *testing.T) {
	e := newTestEngine(&provider.Mock{Err: errors.New("upstream unavailable")})

	ch, err := e.StartTalk(context.Background(), "hello", "sess-fail")
	require.NoError(t, err)

	events := collect(t, ch)
	require.Equal(t, []core.EventType{
		core.EventStart,
		core.EventProgress,
		core.EventError,
	}, eventTypes(events))

	data, ok := events[2].Data.(core.ErrorData)
	require.True(t, ok)
	assert.Contains(t, data.Message, "upstream unavailable")
}

func TestEngine_UnknownRequestTypeRejectedBeforeEvents(t *testing.T) {
	e := newTestEngine(provider.NewMock())

	ch, err := e.Start(context.Background(), "summarize", "text", "sess-unknown")
	require.ErrorIs(t, err, core.ErrUnknownRequestType)
	assert.Nil(t, ch)
}

func TestEngine_ConcurrentStartSameSessionRejected(t *testing.T) {
	gate := newGateProvider()
	e := newTestEngine(gate)

	ch1, err := e.StartExplain(context.Background(), "first", "sess-busy")
	require.NoError(t, err)
	<-gate.entered

	_, err = e.StartExplain(context.Background(), "second", "sess-busy")
	require.ErrorIs(t, err, core.ErrSessionBusy)

	// Other sessions are unaffected.
	ch2, err := e.StartExplain(context.Background(), "third", "sess-other")
	require.NoError(t, err)

	close(gate.release)
	collect(t, ch1)
	collect(t, ch2)

	// The session frees up once its run finishes.
	ch3, err := e.StartExplain(context.Background(), "fourth", "sess-busy")
	require.NoError(t, err)
	collect(t, ch3)
}

func TestEngine_TimeoutEmitsErrorFrame(t *testing.T) {
	e := newTestEngine(slowProvider{delay: time.Second}, func(o *engine.Options) {
		o.Timeout = 30 * time.Millisecond
	})

	ch, err := e.StartExplain(context.Background(), "while (TRUE) {}", "sess-timeout")
	require.NoError(t, err)

	events := collect(t, ch)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, core.EventError, last.Type)
	assert.Contains(t, last.Data.(core.ErrorData).Message, core.ErrTimeout.Error())
	for _, ev := range events {
		assert.NotEqual(t, core.EventResult, ev.Type)
		assert.NotEqual(t, core.EventComplete, ev.Type)
	}
}

func TestEngine_CancelledTransportClosesStreamQuietly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := newTestEngine(slowProvider{delay: 50 * time.Millisecond})

	ch, err := e.StartTalk(ctx, "hello", "sess-cancel")
	require.NoError(t, err)
	cancel()

	events := collect(t, ch)
	for _, ev := range events {
		assert.NotEqual(t, core.EventError, ev.Type)
		assert.NotEqual(t, core.EventResult, ev.Type)
		assert.NotEqual(t, core.EventComplete, ev.Type)
	}
}

func TestEngine_CompletedRunPersistsExchange(t *testing.T) {
	e := newTestEngine(provider.NewMock())
	ctx := context.Background()

	ch, err := e.StartTalk(ctx, "what is a tibble?", "sess-hist")
	require.NoError(t, err)
	collect(t, ch)

	msgs, err := e.History(ctx, "sess-hist")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "what is a tibble?", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.NotEmpty(t, msgs[1].Content)
}

func TestEngine_FailedRunPersistsNothing(t *testing.T) {
	e := newTestEngine(&provider.Mock{Err: errors.New("boom")})
	ctx := context.Background()

	ch, err := e.StartTalk(ctx, "hello", "sess-nofail")
	require.NoError(t, err)
	collect(t, ch)

	msgs, err := e.History(ctx, "sess-nofail")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEngine_ClearHistoryIsIdempotent(t *testing.T) {
	e := newTestEngine(provider.NewMock())
	ctx := context.Background()

	ch, err := e.StartTalk(ctx, "hi", "sess-clear")
	require.NoError(t, err)
	collect(t, ch)

	require.NoError(t, e.ClearHistory(ctx, "sess-clear"))
	msgs, err := e.History(ctx, "sess-clear")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Clearing an already empty session succeeds.
	require.NoError(t, e.ClearHistory(ctx, "sess-clear"))
	require.NoError(t, e.ClearHistory(ctx, "sess-never-seen"))
}

func TestEngine_LatestCheckpointMiss(t *testing.T) {
	e := newTestEngine(provider.NewMock())

	rec, ok := e.LatestCheckpoint("nope", "nope")
	assert.False(t, ok)
	assert.Nil(t, rec)
}

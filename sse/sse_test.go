package sse

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avilaj/rassist/core"
)

func TestEncode_FrameFormat(t *testing.T) {
	b, err := Encode(core.NewProgressEvent(1, 2, "Explaining the code..."))
	require.NoError(t, err)

	s := string(b)
	assert.True(t, strings.HasPrefix(s, "data: "))
	assert.True(t, strings.HasSuffix(s, "\n\n"))

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(s, "data: "), "\n\n")), &frame))
	assert.Equal(t, core.EventProgress, frame.Type)

	var data core.ProgressData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, 1, data.Step)
	assert.Equal(t, 2, data.Total)
	assert.Equal(t, "Explaining the code...", data.Message)
}

func TestWriter_SetsStreamingHeadersAndFlushes(t *testing.T) {
	rr := httptest.NewRecorder()
	w, err := NewWriter(rr)
	require.NoError(t, err)

	require.NoError(t, w.Send(core.NewStartEvent("Starting code analysis...")))
	require.NoError(t, w.Send(core.NewErrorEvent("boom")))

	assert.Equal(t, "text/event-stream; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rr.Header().Get("Cache-Control"))
	assert.True(t, rr.Flushed)

	body := rr.Body.String()
	assert.Equal(t, 2, strings.Count(body, "data: "))
	assert.Contains(t, body, `"type":"start"`)
	assert.Contains(t, body, `"type":"error"`)
}

// nonFlushingWriter is a ResponseWriter without Flush support.
type nonFlushingWriter struct {
	header http.Header
}

func (w *nonFlushingWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *nonFlushingWriter) Write(b []byte) (int, error) { return len(b), nil }

func (w *nonFlushingWriter) WriteHeader(int) {}

func TestNewWriter_RequiresFlusher(t *testing.T) {
	_, err := NewWriter(&nonFlushingWriter{})
	require.Error(t, err)
}

func TestReader_DecodesStream(t *testing.T) {
	stream := `data: {"type":"start","data":{"message":"Starting conversation..."}}` + "\n\n" +
		`data: {"type":"progress","data":{"step":0,"total":2,"message":"Thinking..."}}` + "\n\n" +
		`data: {"type":"complete","data":{"processing_time":0.5}}` + "\n\n"

	r := NewReader(strings.NewReader(stream))

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.EventStart, frame.Type)

	frame, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.EventProgress, frame.Type)

	frame, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.EventComplete, frame.Type)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

// drip yields one byte per Read call so records always span reads.
type drip struct {
	data []byte
	pos  int
}

func (d *drip) Read(p []byte) (int, error) {
	if d.pos >= len(d.data) {
		return 0, io.EOF
	}
	p[0] = d.data[d.pos]
	d.pos++
	return 1, nil
}

func TestReader_RecordSplitAcrossReads(t *testing.T) {
	stream := `data: {"type":"result","data":{"demo":false}}` + "\n\n" +
		`data: {"type":"complete","data":{"processing_time":1.25}}` + "\n\n"

	r := NewReader(&drip{data: []byte(stream)})

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.EventResult, frame.Type)

	frame, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.EventComplete, frame.Type)

	var data core.CompleteData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, 1.25, data.ProcessingTime)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_SkipsMalformedRecords(t *testing.T) {
	stream := "data: {not json}\n\n" +
		": comment record\n\n" +
		`data: {"data":{"message":"typeless"}}` + "\n\n" +
		`data: {"type":"complete","data":{"processing_time":0}}` + "\n\n"

	r := NewReader(strings.NewReader(stream))

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.EventComplete, frame.Type)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_JoinsMultipleDataLines(t *testing.T) {
	// One record may carry its JSON across several data lines.
	stream := "data: {\"type\":\"error\",\ndata: \"data\":{\"message\":\"split\"}}\n\n"

	r := NewReader(strings.NewReader(stream))

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, core.EventError, frame.Type)

	var data core.ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "split", data.Message)
}

func TestReader_DropsTrailingPartialRecord(t *testing.T) {
	r := NewReader(strings.NewReader(`data: {"type":"start"`))

	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriterToReaderRoundTrip(t *testing.T) {
	events := []core.Event{
		core.NewStartEvent("Starting problem analysis..."),
		core.NewProgressEvent(0, 3, "Analyzing the problem..."),
		core.NewResultEvent(map[string]any{"demo": true, "answer_result": "use read.csv"}),
		core.NewCompleteEvent(0),
	}

	var encoded []byte
	for _, ev := range events {
		b, err := Encode(ev)
		require.NoError(t, err)
		encoded = append(encoded, b...)
	}

	r := NewReader(&drip{data: encoded})
	for _, want := range events {
		frame, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want.Type, frame.Type)
	}
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

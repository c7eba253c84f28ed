// Package sse implements the event stream transport: server-sent-events
// encoding of pipeline lifecycle frames and an incremental, split-tolerant
// client-side decoder.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/avilaj/rassist/core"
)

// Encode serializes one event as a single SSE record: a "data: " marker,
// the JSON frame {"type":...,"data":...}, and the blank-line delimiter.
func Encode(ev core.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return append(append([]byte("data: "), payload...), '\n', '\n'), nil
}

// Writer streams events over one HTTP response. Each Send flushes, so
// frames reach the client before the pipeline finishes.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares the response for event streaming and returns a Writer.
// It fails when the underlying connection cannot flush incrementally.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable nginx buffering if present
	return &Writer{w: w, flusher: flusher}, nil
}

// Send encodes, writes and flushes one event.
func (s *Writer) Send(ev core.Event) error {
	b, err := Encode(ev)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

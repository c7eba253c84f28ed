package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/logging"
)

// Frame is the decoded wire form of one event. Data stays raw so callers
// unmarshal into the payload type matching Type.
type Frame struct {
	Type core.EventType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readChunk is the transport read size. Deliberately small in tests'
// favor: records regularly arrive split across reads.
const readChunk = 512

// Reader incrementally decodes an event stream. It buffers transport reads
// until a full delimiter-terminated record is available, tolerates records
// split across arbitrary read boundaries and skips malformed frames with a
// log line instead of aborting the stream.
type Reader struct {
	src    io.Reader
	buf    bytes.Buffer
	eof    bool
	logger logging.Logger
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Logger logging.Logger
}

// NewReader wraps a transport stream.
func NewReader(src io.Reader, optFns ...func(o *ReaderOptions)) *Reader {
	opts := ReaderOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reader{src: src, logger: opts.Logger}
}

// Next returns the next well-formed frame, or io.EOF once the stream is
// exhausted.
func (r *Reader) Next() (Frame, error) {
	for {
		record, ok := r.takeRecord()
		if !ok {
			if err := r.fill(); err != nil {
				return Frame{}, err
			}
			continue
		}

		frame, err := parseRecord(record)
		if err != nil {
			r.logger.Warn("skipping malformed frame", "error", err)
			continue
		}
		return frame, nil
	}
}

// takeRecord extracts one delimiter-terminated record from the buffer.
func (r *Reader) takeRecord() (string, bool) {
	data := r.buf.Bytes()
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return "", false
	}
	record := string(data[:idx])
	r.buf.Next(idx + 2)
	return record, true
}

// fill reads more bytes from the transport into the buffer.
func (r *Reader) fill() error {
	if r.eof {
		// Trailing bytes without a delimiter are dropped at end of stream.
		return io.EOF
	}
	chunk := make([]byte, readChunk)
	n, err := r.src.Read(chunk)
	if n > 0 {
		r.buf.Write(chunk[:n])
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.eof = true
			return nil
		}
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

// parseRecord joins the record's data lines and unmarshals the JSON frame.
func parseRecord(record string) (Frame, error) {
	var payload []string
	for _, line := range strings.Split(record, "\n") {
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			payload = append(payload, strings.TrimPrefix(data, " "))
		}
	}
	if len(payload) == 0 {
		return Frame{}, fmt.Errorf("record has no data line: %q", record)
	}

	var frame Frame
	if err := json.Unmarshal([]byte(strings.Join(payload, "\n")), &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Type == "" {
		return Frame{}, fmt.Errorf("frame missing type")
	}
	return frame, nil
}

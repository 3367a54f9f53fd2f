// fakeagent/utils/sse/sse.go
package sse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fakeagent/fakeagent/types"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const ContentType = "text/event-stream"

var ErrStreamingUnsupported = errors.New("streaming not supported")

// Writer writes named events to an http.ResponseWriter, flushing after each one.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter sets the event-stream headers on w. It fails when w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &Writer{w: w, flusher: flusher}, nil
}

func (s *Writer) WriteEvent(event string, data []byte) error {
	var buf bytes.Buffer
	if event != "" {
		fmt.Fprintf(&buf, "event: %s\n", event)
	}
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteByte('\n')
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Send encodes frame.Data as JSON and writes it as one event.
func (s *Writer) Send(ctx context.Context, frame types.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(frame.Data)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", frame.Event, err)
	}
	return s.WriteEvent(string(frame.Event), data)
}

type Event struct {
	Event string
	Data  []byte
}

// Reader decodes an event stream. Lines other than "event:" and "data:"
// are ignored; a blank line ends an event.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next complete event, or io.EOF when the stream ends.
func (r *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		pending bool
	)
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if pending {
				ev.Data = []byte(strings.Join(data, "\n"))
				return ev, nil
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.Event = strings.TrimSpace(line[len("event:"):])
			pending = true
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(line[len("data:"):], " "))
			pending = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	if pending {
		ev.Data = []byte(strings.Join(data, "\n"))
		return ev, nil
	}
	return Event{}, io.EOF
}

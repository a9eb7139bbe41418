// Package sse writes and reads the server-sent event stream used by the
// chat endpoint: "event: <name>\n" followed by "data: <json>\n\n".
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SetHeaders sets the response headers for an event stream
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer encodes named events with JSON data and flushes after each one
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w is an http.Flusher every event is flushed.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Event writes one event
func (w *Writer) Event(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// Event is a decoded server-sent event
type Event struct {
	Name string
	Data []byte
}

// Decode unmarshals the event data into v
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Reader decodes an event stream
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next event. It returns io.EOF when the stream ends
// cleanly between events.
func (r *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    [][]byte
		started bool
	)
	for {
		line, err := r.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) && started {
				ev.Data = bytes.Join(data, []byte("\n"))
				return ev, nil
			}
			return Event{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if !started {
				continue
			}
			ev.Data = bytes.Join(data, []byte("\n"))
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
			started = true
		case "data":
			data = append(data, []byte(value))
			started = true
		}
	}
}

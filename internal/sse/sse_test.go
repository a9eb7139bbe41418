package sse

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
)

func TestWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Event("token", map[string]string{"token": "Hel"}); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if err := w.Event("done", struct{}{}); err != nil {
		t.Fatalf("Event: %v", err)
	}

	want := "event: token\ndata: {\"token\":\"Hel\"}\n\nevent: done\ndata: {}\n\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriterFlushes(t *testing.T) {
	rr := httptest.NewRecorder()
	SetHeaders(rr.Header())
	w := NewWriter(rr)

	if err := w.Event("open", map[string]string{"model": "ollama:llama2"}); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if !rr.Flushed {
		t.Error("expected recorder to be flushed")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
}

func TestReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Event("open", map[string]string{"model": "m"})
	w.Event("token", map[string]string{"token": "a\nb"})
	w.Event("done", struct{}{})

	// One byte at a time exercises partial reads
	r := NewReader(iotest.OneByteReader(&buf))

	var names []string
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		names = append(names, ev.Name)
		if ev.Name == "token" {
			var p struct{ Token string }
			if err := ev.Decode(&p); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if p.Token != "a\nb" {
				t.Errorf("expected token %q, got %q", "a\nb", p.Token)
			}
		}
	}

	if strings.Join(names, ",") != "open,token,done" {
		t.Errorf("unexpected events: %v", names)
	}
}

func TestReaderIgnoresCommentsAndHandlesUnterminatedTail(t *testing.T) {
	stream := ": keepalive\n\nevent: error\ndata: {\"error\":\"x\"}"
	r := NewReader(strings.NewReader(stream))

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Name != "error" || string(ev.Data) != `{"error":"x"}` {
		t.Errorf("unexpected event: %+v", ev)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

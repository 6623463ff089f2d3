// Package sse writes the Server-Sent-Events framing both downstream
// dialects ride on (spec.md §6.1, §4.6). It is the write-side counterpart
// of the teacher's read-side GenericSSEStream
// (pkg/providers/common/streaming/sse_parser.go), adapted from consuming
// SSE to producing it.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer frames SSE events onto an http.ResponseWriter, flushing after
// every write so each event reaches the client as soon as it is produced.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// New prepares w for SSE: sets the standard headers and wraps it as a
// Writer. The caller must have write access to headers (i.e. call this
// before any other write to w).
func New(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteJSON marshals v and writes it as an unnamed "data:" SSE frame,
// the shape both dialects' chunk/event payloads use.
func (s *Writer) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.WriteData(data)
}

// WriteNamedEvent writes an "event: <name>\ndata: <json>\n\n" frame, the
// shape the Anthropic dialect's typed SSE events use (spec.md §4.6).
func (s *Writer) WriteNamedEvent(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
		return err
	}
	return s.WriteData(data)
}

// WriteData writes a raw "data: <bytes>\n\n" frame and flushes.
func (s *Writer) WriteData(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flush()
	return nil
}

// WriteDone writes the OpenAI-dialect terminal "data: [DONE]\n\n" frame.
func (s *Writer) WriteDone() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *Writer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// Package sse writes server-sent event streams.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// Emitter writes `data: <json>\n\n` frames and flushes each one. After the
// first failed write the client is treated as gone and later events are
// dropped.
type Emitter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
	dropped int
	logger  *zap.Logger
}

// NewEmitter sets the event-stream headers and returns an emitter for w.
func NewEmitter(w http.ResponseWriter, logger *zap.Logger) *Emitter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	e := &Emitter{w: w, flusher: flusher, logger: logger}
	e.flush()
	return e
}

// Send encodes v as one event. It reports whether the event was written.
func (e *Emitter) Send(v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		e.logger.Error("Failed to encode stream event", zap.Error(err))
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.dropped++
		e.logger.Debug("Dropping stream event after disconnect", zap.Int("dropped", e.dropped))
		return false
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		e.closed = true
		e.logger.Debug("Stream client went away", zap.Error(err))
		return false
	}
	e.flush()
	return true
}

// Close marks the stream finished; later sends are dropped.
func (e *Emitter) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// Dropped returns how many events were discarded after the stream closed.
func (e *Emitter) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

func (e *Emitter) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

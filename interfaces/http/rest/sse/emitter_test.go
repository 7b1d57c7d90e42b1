package sse

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmitterFramesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	e := NewEmitter(rec, zap.NewNop())

	require.True(t, e.Send(map[string]interface{}{"type": "start", "total": 2}))
	require.True(t, e.Send(map[string]interface{}{"type": "complete", "total": 2}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.True(t, rec.Flushed)

	frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	require.Len(t, frames, 2)
	assert.Equal(t, `data: {"total":2,"type":"start"}`, frames[0])
}

type brokenWriter struct {
	header http.Header
	writes int
}

func (b *brokenWriter) Header() http.Header { return b.header }
func (b *brokenWriter) WriteHeader(int)     {}
func (b *brokenWriter) Write(p []byte) (int, error) {
	b.writes++
	return 0, errors.New("connection reset by peer")
}

func TestEmitterDropsAfterDisconnect(t *testing.T) {
	w := &brokenWriter{header: http.Header{}}
	e := NewEmitter(w, zap.NewNop())

	assert.False(t, e.Send(map[string]string{"type": "start"}))
	assert.False(t, e.Send(map[string]string{"type": "item"}))
	assert.False(t, e.Send(map[string]string{"type": "complete"}))

	assert.Equal(t, 1, w.writes, "no writes are attempted once the client is gone")
	assert.Equal(t, 2, e.Dropped())
}

func TestEmitterCloseStopsWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	e := NewEmitter(rec, zap.NewNop())
	e.Close()

	assert.False(t, e.Send(map[string]string{"type": "item"}))
	assert.Empty(t, rec.Body.String())
}

package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"eden-backend/domain/events"
)

func TestLogPublisherWritesOneEntryPerEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	err := p.PublishBatch(context.Background(), []events.DomainEvent{
		events.NewItemSaved("i1", "u1", "https://a.test", "a.test", nil, "capture", time.Now()),
		events.NewItemDeleted("i1", "u1", time.Now()),
	})
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "item.saved", entries[0].ContextMap()["event_type"])
	assert.Equal(t, "item.deleted", entries[1].ContextMap()["event_type"])
}

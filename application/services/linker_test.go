package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainconfig "eden-backend/domain/config"
	"eden-backend/domain/core/entities"
)

func makeItems(t *testing.T, n int) []*entities.SavedItem {
	t.Helper()
	items := make([]*entities.SavedItem, 0, n)
	for i := 0; i < n; i++ {
		item, err := entities.NewSavedItem(entities.NewItemParams{
			UserID:  "u1",
			URL:     fmt.Sprintf("https://site%d.test", i),
			Title:   fmt.Sprintf("Item %d", i),
			Summary: "summary",
		}, 50000)
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func TestLinkFiltersModelOutput(t *testing.T) {
	items := makeItems(t, 6)
	item, pool := items[0], items[1:]

	reply := fmt.Sprintf(`{"connections": ["%s", "unknown-id", "%s", "%s", "%s", "%s", "%s"], "reasons": {"%s": " same topic "}}`,
		pool[0].ID, item.ID, pool[0].ID, pool[1].ID, pool[2].ID, pool[3].ID, pool[0].ID)
	p := &scriptedProvider{reply: reply}
	linker := NewLinkerService(p, domainconfig.DefaultDomainConfig(), nil, zap.NewNop())

	got := linker.Link(context.Background(), item, pool)
	assert.Equal(t, []string{pool[0].ID, pool[1].ID, pool[2].ID}, got.Connections)
	assert.Equal(t, map[string]string{pool[0].ID: "same topic"}, got.Reasons)
}

func TestLinkCapsCandidatePool(t *testing.T) {
	items := makeItems(t, 13)
	item, pool := items[0], items[1:]
	p := &scriptedProvider{reply: `{"connections": []}`}
	linker := NewLinkerService(p, domainconfig.DefaultDomainConfig(), nil, zap.NewNop())

	got := linker.Link(context.Background(), item, pool)
	assert.True(t, got.IsEmpty())

	prompt := p.lastPrompt()
	for i, c := range pool {
		if i < 10 {
			assert.Contains(t, prompt, c.ID)
		} else {
			assert.NotContains(t, prompt, c.ID)
		}
	}
}

func TestLinkReturnsEmptyOnFailure(t *testing.T) {
	items := makeItems(t, 3)
	cfg := domainconfig.DefaultDomainConfig()

	failing := &scriptedProvider{err: errors.New("boom")}
	got := NewLinkerService(failing, cfg, nil, zap.NewNop()).Link(context.Background(), items[0], items[1:])
	assert.True(t, got.IsEmpty())
	assert.NotNil(t, got.Reasons)

	garbage := &scriptedProvider{reply: "no json here"}
	got = NewLinkerService(garbage, cfg, nil, zap.NewNop()).Link(context.Background(), items[0], items[1:])
	assert.True(t, got.IsEmpty())

	unused := &scriptedProvider{}
	got = NewLinkerService(unused, cfg, nil, zap.NewNop()).Link(context.Background(), items[0], nil)
	assert.True(t, got.IsEmpty())
	assert.Empty(t, unused.prompts, "an empty pool must not call the model")
}

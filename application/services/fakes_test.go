package services

import (
	"context"
	"errors"
	"sync"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
	"eden-backend/domain/core/valueobjects"
	"eden-backend/domain/events"
	pkgerrors "eden-backend/pkg/errors"
)

// scriptedProvider returns canned replies and records prompts.
type scriptedProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	down    bool
	prompts []string
}

func (p *scriptedProvider) Name() string      { return "scripted" }
func (p *scriptedProvider) IsAvailable() bool { return !p.down }
func (p *scriptedProvider) Complete(ctx context.Context, prompt string, _ ports.CompletionOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return p.reply, p.err
}

func (p *scriptedProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

// staticExtractor serves extractions from a map keyed by URL.
type staticExtractor struct {
	pages map[string]*ports.Extraction
}

func (e *staticExtractor) ExtractURL(ctx context.Context, rawURL string) (*ports.Extraction, error) {
	target, err := valueobjects.NormalizeURLInput(rawURL)
	if err != nil {
		return nil, err
	}
	page, ok := e.pages[target]
	if !ok {
		return nil, pkgerrors.NewExtractionError("could not fetch "+target, nil)
	}
	out := *page
	out.URL = target
	out.Domain = valueobjects.DomainOf(target)
	return &out, nil
}

func (e *staticExtractor) ExtractFile(ctx context.Context, file ports.FileSource) (*ports.Extraction, error) {
	return nil, errors.New("not supported")
}

// fixedAnalyzer returns the same analysis for everything.
type fixedAnalyzer struct{ analysis ports.Analysis }

func (a fixedAnalyzer) Analyze(ctx context.Context, content, title string) ports.Analysis {
	return a.analysis
}

// funcLinker delegates to a function.
type funcLinker func(item *entities.SavedItem, candidates []*entities.SavedItem) ports.LinkResult

func (f funcLinker) Link(ctx context.Context, item *entities.SavedItem, candidates []*entities.SavedItem) ports.LinkResult {
	return f(item, candidates)
}

// recordingBus keeps published events.
type recordingBus struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (b *recordingBus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	for _, e := range evs {
		_ = b.Publish(ctx, e)
	}
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.GetEventType())
	}
	return out
}

// conflictingStore fails the first n UpdateItem calls with a conflict.
type conflictingStore struct {
	ports.ItemStore
	mu        sync.Mutex
	conflicts int
	updates   int
}

func (s *conflictingStore) UpdateItem(ctx context.Context, item *entities.SavedItem) error {
	s.mu.Lock()
	s.updates++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return pkgerrors.NewConflictError("item was modified concurrently")
	}
	s.mu.Unlock()
	return s.ItemStore.UpdateItem(ctx, item)
}

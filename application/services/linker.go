package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	domainconfig "eden-backend/domain/config"
	"eden-backend/domain/core/entities"
	"eden-backend/domain/core/valueobjects"
	"eden-backend/pkg/observability"
)

const linkSystemPrompt = "You find meaningful relationships between items in a personal knowledge base. " +
	"Reply with a single JSON object and no other text."

const linkPromptTemplate = `A new item was saved. Pick at most %d candidates that are meaningfully related to it
(shared topic, one builds on the other, opposing views). Pick none if nothing is related.
Respond with JSON of the form {"connections": ["<candidate id>"], "reasons": {"<candidate id>": "<one short sentence>"}}

<item>%s</item>

<candidates>
%s
</candidates>`

// LinkerService asks the LLM which existing items relate to a new one. It
// never fails: errors yield an empty result.
type LinkerService struct {
	provider ports.LLMProvider
	config   *domainconfig.DomainConfig
	metrics  *observability.Collector
	logger   *zap.Logger
}

var _ ports.Linker = (*LinkerService)(nil)

// NewLinkerService creates a new linker
func NewLinkerService(
	provider ports.LLMProvider,
	config *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *LinkerService {
	return &LinkerService{
		provider: provider,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// Link selects up to MaxConnections ids from candidates. Only the first
// MaxCandidatePool candidates are offered to the model.
func (s *LinkerService) Link(ctx context.Context, item *entities.SavedItem, candidates []*entities.SavedItem) ports.LinkResult {
	empty := ports.LinkResult{Connections: []string{}, Reasons: map[string]string{}}
	if item == nil || len(candidates) == 0 {
		return empty
	}
	if len(candidates) > s.config.MaxCandidatePool {
		candidates = candidates[:s.config.MaxCandidatePool]
	}

	ctx, span := observability.StartSpan(ctx, "linker.link")
	start := time.Now()
	defer func() {
		s.metrics.ObserveStage("link", time.Since(start))
		observability.EndSpan(span, nil)
	}()

	pool := make(map[string]bool, len(candidates))
	var sb strings.Builder
	for _, c := range candidates {
		if c == nil || c.ID == item.ID {
			continue
		}
		pool[c.ID] = true
		fmt.Fprintf(&sb, "<candidate id=%q>%s</candidate>\n", c.ID, describeItem(c))
	}
	if len(pool) == 0 {
		return empty
	}

	prompt := fmt.Sprintf(linkPromptTemplate, s.config.MaxConnections, describeItem(item), sb.String())
	reply, err := s.provider.Complete(ctx, prompt, ports.CompletionOptions{
		Task:        ports.LLMTaskLink,
		System:      linkSystemPrompt,
		Temperature: 0.2,
		MaxTokens:   512,
		Format:      "json",
	})
	if err != nil {
		s.logger.Warn("Linking failed", zap.String("itemID", item.ID), zap.Error(err))
		return empty
	}

	raw, ok := ExtractJSONObject(reply)
	if !ok {
		s.logger.Warn("Linking reply had no JSON object", zap.String("itemID", item.ID))
		return empty
	}
	var parsed struct {
		Connections []string          `json:"connections"`
		Reasons     map[string]string `json:"reasons"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		s.logger.Warn("Linking reply was not valid JSON", zap.String("itemID", item.ID), zap.Error(err))
		return empty
	}

	result := empty
	for _, id := range parsed.Connections {
		id = strings.TrimSpace(id)
		if !pool[id] {
			continue
		}
		delete(pool, id)
		result.Connections = append(result.Connections, id)
		if reason := strings.TrimSpace(parsed.Reasons[id]); reason != "" {
			result.Reasons[id] = reason
		}
		if len(result.Connections) == s.config.MaxConnections {
			break
		}
	}

	s.logger.Debug("Linked item",
		zap.String("itemID", item.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("connections", len(result.Connections)),
	)
	return result
}

func describeItem(item *entities.SavedItem) string {
	summary := item.Summary
	if summary == "" || summary == FallbackSummary {
		summary = valueobjects.Truncate(item.Content, 300)
	}
	return fmt.Sprintf("<title>%s</title><summary>%s</summary><tags>%s</tags>",
		html.EscapeString(item.Title),
		html.EscapeString(summary),
		html.EscapeString(strings.Join(item.Tags, ", ")),
	)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
	"eden-backend/domain/core/valueobjects"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

const maxChatSources = 5

const chatSystemPrompt = "You are a helpful assistant answering questions about the user's saved reading. " +
	"Ground every answer in the provided sources and cite them by title."

// ChatReply is the assistant's answer and the ids of the items it used.
type ChatReply struct {
	Reply   string   `json:"reply"`
	Sources []string `json:"sources"`
}

// ChatService answers questions over a user's saved items.
type ChatService struct {
	provider ports.LLMProvider
	store    ports.ItemStore
	logger   *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(provider ports.LLMProvider, store ports.ItemStore, logger *zap.Logger) *ChatService {
	return &ChatService{provider: provider, store: store, logger: logger}
}

// Ask answers message using up to five matching items, or the most recent
// items when nothing matches. Provider failures are returned as external errors.
func (s *ChatService) Ask(ctx context.Context, userID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, pkgerrors.NewValidationError("message is required")
	}

	if !s.provider.IsAvailable() {
		return nil, pkgerrors.NewUnavailableError(s.provider.Name())
	}

	ctx, span := observability.StartSpan(ctx, "chat.ask")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	sources, err := s.contextItems(ctx, userID, message)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<question>%s</question>\n\n<sources>\n", html.EscapeString(message))
	ids := make([]string, 0, len(sources))
	for _, item := range sources {
		body := item.Summary
		if body == "" || body == FallbackSummary {
			body = valueobjects.Truncate(item.Content, 500)
		}
		fmt.Fprintf(&sb, "<source id=%q title=%q>%s</source>\n",
			item.ID, html.EscapeString(item.Title), html.EscapeString(body))
		ids = append(ids, item.ID)
	}
	sb.WriteString("</sources>\n\nAnswer the question using the sources above.")

	reply, err := s.provider.Complete(ctx, sb.String(), ports.CompletionOptions{
		Task:        ports.LLMTaskChat,
		System:      chatSystemPrompt,
		Temperature: 0.5,
		MaxTokens:   1024,
		Format:      "text",
	})
	if err != nil {
		s.logger.Warn("Chat completion failed", zap.String("userID", userID), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.NewTimeoutError("chat").WithCause(err)
		}
		return nil, pkgerrors.NewExternalError(s.provider.Name(), err)
	}

	return &ChatReply{Reply: strings.TrimSpace(reply), Sources: ids}, nil
}

func (s *ChatService) contextItems(ctx context.Context, userID, message string) ([]*entities.SavedItem, error) {
	hits, err := s.store.SearchItems(ctx, userID, message)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to search items")
	}
	if len(hits) > 0 {
		if len(hits) > maxChatSources {
			hits = hits[:maxChatSources]
		}
		return hits, nil
	}

	items, err := s.store.GetItemsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load items")
	}
	recent := make([]*entities.SavedItem, 0, maxChatSources)
	for i := len(items) - 1; i >= 0 && len(recent) < maxChatSources; i-- {
		recent = append(recent, items[i])
	}
	return recent, nil
}

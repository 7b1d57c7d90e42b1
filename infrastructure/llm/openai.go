package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"eden-backend/application/ports"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAIProvider uses the OpenAI chat completions API, or any compatible
// server when baseURL is set.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	available bool
}

// NewOpenAIProvider creates a provider. Empty model uses the default.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if model == "" {
		model = openAIDefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		available: apiKey != "" || baseURL != "",
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) IsAvailable() bool { return p.available }

// Complete runs one chat completion and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, options ports.CompletionOptions) (string, error) {
	if !p.available {
		return "", ErrUnavailable
	}

	var messages []openai.ChatCompletionMessage
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: options.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}
	if options.Format == "json" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

package ports

import "context"

// LLMTask names the kind of completion being requested.
type LLMTask string

const (
	LLMTaskAnalyze LLMTask = "analyze"
	LLMTaskLink    LLMTask = "link"
	LLMTaskChat    LLMTask = "chat"
)

// LLMProvider defines the interface for LLM providers (OpenAI, Anthropic, local)
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}

// CompletionOptions configures LLM completion requests
type CompletionOptions struct {
	Task        LLMTask `json:"task"`
	System      string  `json:"system,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Format      string  `json:"format"` // "json" or "text"
}

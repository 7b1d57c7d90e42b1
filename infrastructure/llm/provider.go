// Package llm provides the text completion providers used to enrich saved items.
package llm

import (
	"errors"

	"eden-backend/application/ports"
)

// ErrUnavailable is returned when a provider cannot serve requests.
var ErrUnavailable = errors.New("llm provider unavailable")

var (
	_ ports.LLMProvider = (*AnthropicProvider)(nil)
	_ ports.LLMProvider = (*OpenAIProvider)(nil)
	_ ports.LLMProvider = (*LocalProvider)(nil)
	_ ports.LLMProvider = (*ResilientProvider)(nil)
)

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/pkg/observability"
)

func TestAnthropicProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be brief", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hi "},{"type":"text","text":"there"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", "", srv.URL, time.Second)
	out, err := p.Complete(context.Background(), "hello", ports.CompletionOptions{System: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestAnthropicProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "", srv.URL, time.Second)
	_, err := p.Complete(context.Background(), "x", ports.CompletionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")

	_, err = NewAnthropicProvider("", "", srv.URL, time.Second).Complete(context.Background(), "x", ports.CompletionOptions{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", "", srv.URL+"/v1")
	out, err := p.Complete(context.Background(), "prompt", ports.CompletionOptions{Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestLocalProviderAnalyze(t *testing.T) {
	p := NewLocalProvider()
	prompt := "<title>Go Concurrency Patterns</title>\n<content>Goroutines and channels make concurrency simple. " +
		"Rob Pike explains goroutines, channels and pipelines. Channels carry values between goroutines.</content>"

	out, err := p.Complete(context.Background(), prompt, ports.CompletionOptions{Task: ports.LLMTaskAnalyze})
	require.NoError(t, err)

	var parsed struct {
		Summary  string   `json:"summary"`
		Tags     []string `json:"tags"`
		Concepts []string `json:"concepts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "Goroutines and channels make concurrency simple. Rob Pike explains goroutines, channels and pipelines.", parsed.Summary)
	assert.LessOrEqual(t, len(parsed.Tags), localMaxKeywords)
	assert.Contains(t, parsed.Tags, "goroutines")
	assert.Contains(t, parsed.Tags, "channels")
	assert.Contains(t, parsed.Concepts, "Rob Pike")
}

func TestLocalProviderLink(t *testing.T) {
	p := NewLocalProvider()
	prompt := `<item>espresso brewing grinder coffee beans extraction</item>
<candidate id="a">coffee beans roasting espresso grinder</candidate>
<candidate id="b">kubernetes cluster deployment</candidate>`

	out, err := p.Complete(context.Background(), prompt, ports.CompletionOptions{Task: ports.LLMTaskLink})
	require.NoError(t, err)

	var parsed struct {
		Connections []string          `json:"connections"`
		Reasons     map[string]string `json:"reasons"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, []string{"a"}, parsed.Connections)
	assert.Contains(t, parsed.Reasons["a"], "espresso")
}

func TestLocalProviderRejectsUnknownTask(t *testing.T) {
	_, err := NewLocalProvider().Complete(context.Background(), "x", ports.CompletionOptions{})
	assert.Error(t, err)
}

type flakyProvider struct {
	calls atomic.Int32
	err   error
}

func (f *flakyProvider) Name() string      { return "flaky" }
func (f *flakyProvider) IsAvailable() bool { return true }
func (f *flakyProvider) Complete(ctx context.Context, prompt string, _ ports.CompletionOptions) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

func TestResilientProviderTripsBreaker(t *testing.T) {
	inner := &flakyProvider{err: errors.New("upstream down")}
	cfg := DefaultResilienceConfig()
	cfg.RequestsPerSecond = 0
	cfg.MinRequests = 3
	cfg.OpenTimeout = time.Minute

	p := NewResilientProvider(inner, cfg, observability.NewCollector("test"), zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := p.Complete(context.Background(), "x", ports.CompletionOptions{Task: ports.LLMTaskAnalyze})
		require.Error(t, err)
	}

	_, err := p.Complete(context.Background(), "x", ports.CompletionOptions{Task: ports.LLMTaskAnalyze})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), inner.calls.Load(), "open breaker must not reach the provider")
	assert.False(t, p.IsAvailable())
}

func TestResilientProviderPassesThrough(t *testing.T) {
	p := NewResilientProvider(&flakyProvider{}, DefaultResilienceConfig(), nil, nil)
	out, err := p.Complete(context.Background(), "x", ports.CompletionOptions{Task: ports.LLMTaskChat})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "flaky", p.Name())
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"eden-backend/application/ports"
	domainconfig "eden-backend/domain/config"
)

func newTestAnalyzer(p *scriptedProvider) *AnalyzerService {
	return NewAnalyzerService(p, domainconfig.DefaultDomainConfig(), nil, zap.NewNop())
}

func TestAnalyzeFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"provider error", "", errors.New("timeout")},
		{"no JSON object", "I cannot help with that.", nil},
		{"unbalanced object", `{"summary": "half`, nil},
		{"invalid JSON", `{"summary": "x", "tags": [1, 2]}`, nil},
		{"empty summary", `{"summary": "   ", "tags": ["a"]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestAnalyzer(&scriptedProvider{reply: tt.reply, err: tt.err}).
				Analyze(context.Background(), "content", "title")
			assert.Equal(t, ports.Analysis{
				Summary:  "Content saved for later review.",
				Tags:     []string{"Uncategorized"},
				Concepts: []string{},
			}, got)
		})
	}
}

func TestAnalyzeParsesObjectInProse(t *testing.T) {
	reply := "Sure! Here you go:\n```json\n" +
		`{"summary": "A guide to {braces} and \"quotes\".", "tags": ["Go", " go ", "", "testing", "tdd", "ci", "lint", "extra"], "concepts": ["Rob Pike"]}` +
		"\n```\nLet me know {if} you need more."
	got := newTestAnalyzer(&scriptedProvider{reply: reply}).Analyze(context.Background(), "content", "title")

	assert.Equal(t, `A guide to {braces} and "quotes".`, got.Summary)
	assert.Equal(t, []string{"Go", "testing", "tdd", "ci", "lint"}, got.Tags)
	assert.Equal(t, []string{"Rob Pike"}, got.Concepts)
}

func TestAnalyzeSendsBoundedContent(t *testing.T) {
	p := &scriptedProvider{reply: `{"summary":"ok","tags":["x"],"concepts":[]}`}
	content := strings.Repeat("a", 1500) + strings.Repeat("b", 500)

	newTestAnalyzer(p).Analyze(context.Background(), content, "Long read")

	prompt := p.lastPrompt()
	assert.Contains(t, prompt, "<title>Long read</title>")
	assert.Contains(t, prompt, strings.Repeat("a", 1500)+"</content>")
	assert.NotContains(t, prompt, "bbb")
}

func TestAnalyzeEmptyTagsGetDefault(t *testing.T) {
	got := newTestAnalyzer(&scriptedProvider{reply: `{"summary":"ok","tags":[],"concepts":null}`}).
		Analyze(context.Background(), "c", "t")
	assert.Equal(t, []string{"Uncategorized"}, got.Tags)
	assert.Equal(t, []string{}, got.Concepts)
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`text {"a":{"b":2}} trailing {"c":3}`, `{"a":{"b":2}}`, true},
		{`{"s":"}"}`, `{"s":"}"}`, true},
		{`{"s":"\"}"}`, `{"s":"\"}"}`, true},
		{`no object`, ``, false},
		{`{"open":`, ``, false},
	}
	for _, tt := range tests {
		got, ok := ExtractJSONObject(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

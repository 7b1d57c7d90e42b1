package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	domainconfig "eden-backend/domain/config"
	"eden-backend/domain/core/valueobjects"
	"eden-backend/pkg/observability"
)

// FallbackSummary is stored when analysis fails.
const FallbackSummary = "Content saved for later review."

const fallbackTag = "Uncategorized"

const analyzeSystemPrompt = "You organize a personal knowledge base. " +
	"Reply with a single JSON object and no other text."

const analyzePromptTemplate = `Analyze the saved content below and respond with JSON of the form
{"summary": "<at most two sentences>", "tags": ["<3 to 5 short labels>"], "concepts": ["<3 to 5 key ideas or named entities>"]}

<title>%s</title>
<content>%s</content>`

// FallbackAnalysis returns the fixed result used whenever analysis fails.
func FallbackAnalysis() ports.Analysis {
	return ports.Analysis{
		Summary:  FallbackSummary,
		Tags:     []string{fallbackTag},
		Concepts: []string{},
	}
}

// AnalyzerService summarizes and tags content with an LLM. It never fails:
// any provider or parsing problem yields FallbackAnalysis.
type AnalyzerService struct {
	provider ports.LLMProvider
	config   *domainconfig.DomainConfig
	metrics  *observability.Collector
	logger   *zap.Logger
}

var _ ports.Analyzer = (*AnalyzerService)(nil)

// NewAnalyzerService creates a new analyzer
func NewAnalyzerService(
	provider ports.LLMProvider,
	config *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *AnalyzerService {
	return &AnalyzerService{
		provider: provider,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// Analyze produces a summary, tags and concepts for content.
func (s *AnalyzerService) Analyze(ctx context.Context, content, title string) ports.Analysis {
	ctx, span := observability.StartSpan(ctx, "analyzer.analyze")
	start := time.Now()
	defer func() {
		s.metrics.ObserveStage("analyze", time.Since(start))
		observability.EndSpan(span, nil)
	}()

	prompt := fmt.Sprintf(analyzePromptTemplate,
		strings.TrimSpace(title),
		valueobjects.Truncate(content, s.config.AnalysisInputChars),
	)
	reply, err := s.provider.Complete(ctx, prompt, ports.CompletionOptions{
		Task:        ports.LLMTaskAnalyze,
		System:      analyzeSystemPrompt,
		Temperature: 0.2,
		MaxTokens:   512,
		Format:      "json",
	})
	if err != nil {
		return s.fallback("provider error", err)
	}

	raw, ok := ExtractJSONObject(reply)
	if !ok {
		return s.fallback("no JSON object in reply", nil)
	}

	var parsed struct {
		Summary  string   `json:"summary"`
		Tags     []string `json:"tags"`
		Concepts []string `json:"concepts"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return s.fallback("invalid JSON in reply", err)
	}

	analysis := ports.Analysis{
		Summary:  strings.TrimSpace(parsed.Summary),
		Tags:     normalizeLabels(parsed.Tags, s.config.MaxTags),
		Concepts: normalizeLabels(parsed.Concepts, s.config.MaxConcepts),
	}
	if analysis.Summary == "" {
		return s.fallback("empty summary", nil)
	}
	if len(analysis.Tags) == 0 {
		analysis.Tags = []string{fallbackTag}
	}
	return analysis
}

func (s *AnalyzerService) fallback(reason string, err error) ports.Analysis {
	s.metrics.RecordAnalysisFallback()
	s.logger.Warn("Analysis fell back to default",
		zap.String("reason", reason),
		zap.String("provider", s.provider.Name()),
		zap.Error(err),
	)
	return FallbackAnalysis()
}

// ExtractJSONObject returns the first balanced {...} object in s. Braces
// inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// normalizeLabels trims, drops empties, removes case-insensitive duplicates
// and caps the list at max.
func normalizeLabels(labels []string, max int) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = strings.Join(strings.Fields(l), " ")
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

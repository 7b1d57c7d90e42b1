package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"

	"eden-backend/application/ports"
)

// Prompt sections understood by LocalProvider. The application prompts wrap
// their inputs in these tags so a keyword model can read them back.
var (
	titleTagRe     = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	contentTagRe   = regexp.MustCompile(`(?s)<content>(.*?)</content>`)
	itemTagRe      = regexp.MustCompile(`(?s)<item>(.*?)</item>`)
	candidateTagRe = regexp.MustCompile(`(?s)<candidate id="([^"]*)">(.*?)</candidate>`)
	sourceTagRe    = regexp.MustCompile(`(?s)<source id="([^"]*)" title="([^"]*)">(.*?)</source>`)
	questionTagRe  = regexp.MustCompile(`(?s)<question>(.*?)</question>`)
	sentenceEndRe  = regexp.MustCompile(`[.!?](\s|$)`)
	markupRe       = regexp.MustCompile(`<[^>]*>`)
	properNounRe   = regexp.MustCompile(`\b([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)\b`)
)

const (
	localLinkThreshold = 0.08
	localMaxLinks      = 3
	localMaxKeywords   = 5
)

// LocalProvider is an offline, deterministic keyword model. It answers the
// same prompts as the hosted providers so the service runs without API keys.
type LocalProvider struct {
	stop *stopwords.Stopwords
}

// NewLocalProvider creates the offline provider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{stop: stopwords.MustGet("en")}
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) IsAvailable() bool { return true }

// Complete dispatches on the task named in options.
func (p *LocalProvider) Complete(ctx context.Context, prompt string, options ports.CompletionOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch options.Task {
	case ports.LLMTaskAnalyze:
		return p.analyze(prompt)
	case ports.LLMTaskLink:
		return p.link(prompt)
	case ports.LLMTaskChat:
		return p.chat(prompt), nil
	default:
		return "", fmt.Errorf("local provider does not support task %q", options.Task)
	}
}

func (p *LocalProvider) analyze(prompt string) (string, error) {
	title := html.UnescapeString(firstGroup(titleTagRe, prompt))
	content := firstGroup(contentTagRe, prompt)
	text := strings.TrimSpace(title + "\n" + content)
	if text == "" {
		return "", fmt.Errorf("nothing to analyze")
	}

	out := struct {
		Summary  string   `json:"summary"`
		Tags     []string `json:"tags"`
		Concepts []string `json:"concepts"`
	}{
		Summary:  summarize(content, title),
		Tags:     p.topKeywords(text, localMaxKeywords),
		Concepts: properNouns(text, localMaxKeywords),
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func (p *LocalProvider) link(prompt string) (string, error) {
	source := p.keywordSet(firstGroup(itemTagRe, prompt))

	type scored struct {
		id     string
		score  float64
		shared []string
	}
	var matches []scored
	for _, m := range candidateTagRe.FindAllStringSubmatch(prompt, -1) {
		target := p.keywordSet(m[2])
		score, shared := jaccard(source, target)
		if score >= localLinkThreshold && len(shared) > 0 {
			matches = append(matches, scored{id: m[1], score: score, shared: shared})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > localMaxLinks {
		matches = matches[:localMaxLinks]
	}

	out := struct {
		Connections []string          `json:"connections"`
		Reasons     map[string]string `json:"reasons"`
	}{Connections: []string{}, Reasons: map[string]string{}}
	for _, m := range matches {
		if len(m.shared) > 3 {
			m.shared = m.shared[:3]
		}
		out.Connections = append(out.Connections, m.id)
		out.Reasons[m.id] = "Both discuss " + strings.Join(m.shared, ", ")
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func (p *LocalProvider) chat(prompt string) string {
	question := strings.TrimSpace(firstGroup(questionTagRe, prompt))
	sources := sourceTagRe.FindAllStringSubmatch(prompt, -1)
	if len(sources) == 0 {
		return "I couldn't find anything in your saved items about that yet."
	}

	qWords := p.keywordSet(question)
	var sb strings.Builder
	sb.WriteString("Here is what your saved items say")
	if question != "" {
		sb.WriteString(" about \"" + question + "\"")
	}
	sb.WriteString(":\n")
	for _, s := range sources {
		line := summarize(html.UnescapeString(s[3]), s[2])
		if _, shared := jaccard(qWords, p.keywordSet(s[3])); len(shared) > 0 {
			line = fmt.Sprintf("%s (mentions %s)", line, strings.Join(shared, ", "))
		}
		fmt.Fprintf(&sb, "- %s [%s]: %s\n", s[2], s[1], line)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// keywordSet extracts lowercase non-stopword tokens.
func (p *LocalProvider) keywordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range p.tokens(text) {
		set[w] = true
	}
	return set
}

func (p *LocalProvider) tokens(text string) []string {
	text = html.UnescapeString(markupRe.ReplaceAllString(text, " "))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 3 || p.stop.Contains(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// topKeywords returns the n most frequent keywords, ties broken by first use.
func (p *LocalProvider) topKeywords(text string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range p.tokens(text) {
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func jaccard(a, b map[string]bool) (float64, []string) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	var shared []string
	for w := range a {
		if b[w] {
			shared = append(shared, w)
		}
	}
	sort.Strings(shared)
	union := len(a) + len(b) - len(shared)
	return float64(len(shared)) / float64(union), shared
}

// summarize returns the first two sentences of text, or the title.
func summarize(text, title string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return strings.TrimSpace(title)
	}
	end := 0
	for i, loc := range sentenceEndRe.FindAllStringIndex(text, 2) {
		end = loc[0] + 1
		if i == 1 {
			break
		}
	}
	if end == 0 {
		end = len(text)
	}
	summary := text[:end]
	if r := []rune(summary); len(r) > 300 {
		summary = string(r[:300]) + "..."
	}
	return summary
}

func properNouns(text string, n int) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range properNounRe.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
		if len(out) == n {
			break
		}
	}
	return out
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

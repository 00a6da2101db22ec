// Package prompt renders the provider-agnostic prompt for each content action.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pario-ai/quill/pkg/models"
)

// Request is a rendered prompt with its sampling parameters.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type actionPrompt struct {
	tmpl        *template.Template
	maxTokens   int
	temperature float64
}

var prompts = map[models.Action]actionPrompt{
	models.ActionSummarize: {
		tmpl: template.Must(template.New("summarize").Parse(
			`Summarize the following text{{if .Length}} in a {{.Length}} form{{end}}.
Start with a one-paragraph summary, then list the key points, one per line, each starting with "- ".

Text:
{{.Text}}`)),
		maxTokens:   500,
		temperature: 0.3,
	},
	models.ActionRewrite: {
		tmpl: template.Must(template.New("rewrite").Parse(
			`Rewrite the following text in a {{.Style}} style. Keep the meaning. Reply with the rewritten text only.

Text:
{{.Text}}`)),
		maxTokens:   1000,
		temperature: 0.7,
	},
	models.ActionIdeate: {
		tmpl: template.Must(template.New("ideate").Parse(
			`Suggest {{.Count}} distinct ideas based on the following text. Reply with a numbered list, one idea per line.

Text:
{{.Text}}`)),
		maxTokens:   800,
		temperature: 0.9,
	},
	models.ActionTranslate: {
		tmpl: template.Must(template.New("translate").Parse(
			`Translate the following text into {{.TargetLanguage}}. Reply with the translation only.

Text:
{{.Text}}`)),
		maxTokens:   1000,
		temperature: 0.2,
	},
	models.ActionExplain: {
		tmpl: template.Must(template.New("explain").Parse(
			`Explain the following text in plain language{{if .Audience}} for {{.Audience}}{{end}}.

Text:
{{.Text}}`)),
		maxTokens:   700,
		temperature: 0.5,
	},
	models.ActionProofread: {
		tmpl: template.Must(template.New("proofread").Parse(
			`Proofread the following text. Reply with the corrected text, then a line containing only "Changes:", then each change on its own line starting with "- ".

Text:
{{.Text}}`)),
		maxTokens:   1000,
		temperature: 0.1,
	},
}

// Defaults for options that callers may omit.
const (
	DefaultStyle          = "clear and concise"
	DefaultTargetLanguage = "English"
	DefaultIdeaCount      = 5
	maxIdeaCount          = 20
)

type data struct {
	Text           string
	Length         string
	Style          string
	TargetLanguage string
	Count          int
	Audience       string
}

// Build renders the prompt for action. Options may override maxTokens and temperature.
func Build(action models.Action, text string, options map[string]any) (Request, error) {
	s, ok := prompts[action]
	if !ok {
		return Request{}, fmt.Errorf("no prompt template for action %q", action)
	}

	d := data{
		Text:           text,
		Length:         stringOpt(options, "length", ""),
		Style:          Style(options),
		TargetLanguage: TargetLanguage(options),
		Count:          IdeaCount(options),
		Audience:       stringOpt(options, "audience", ""),
	}

	var sb strings.Builder
	if err := s.tmpl.Execute(&sb, d); err != nil {
		return Request{}, fmt.Errorf("render %s prompt: %w", action, err)
	}

	req := Request{Prompt: sb.String(), MaxTokens: s.maxTokens, Temperature: s.temperature}
	if n, ok := intOpt(options, "maxTokens"); ok && n > 0 {
		req.MaxTokens = n
	}
	if f, ok := floatOpt(options, "temperature"); ok && f >= 0 && f <= 2 {
		req.Temperature = f
	}
	return req, nil
}

// Style returns the rewrite style requested in options.
func Style(options map[string]any) string {
	return stringOpt(options, "style", stringOpt(options, "tone", DefaultStyle))
}

// TargetLanguage returns the translation target requested in options.
func TargetLanguage(options map[string]any) string {
	return stringOpt(options, "targetLanguage", DefaultTargetLanguage)
}

// IdeaCount returns the number of ideas requested in options, clamped to [1, 20].
func IdeaCount(options map[string]any) int {
	n, ok := intOpt(options, "count")
	if !ok || n < 1 {
		return DefaultIdeaCount
	}
	return min(n, maxIdeaCount)
}

func stringOpt(options map[string]any, key, fallback string) string {
	if s, ok := options[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}

func intOpt(options map[string]any, key string) (int, bool) {
	f, ok := floatOpt(options, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// floatOpt accepts JSON numbers, Go numeric types and numeric strings.
func floatOpt(options map[string]any, key string) (float64, bool) {
	switch v := options[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

package action

import (
	"strings"
	"unicode"

	"github.com/pario-ai/quill/pkg/models"
	"github.com/pario-ai/quill/pkg/prompt"
)

// SummarizeResult is the summarize data: a summary paragraph and its key points.
type SummarizeResult struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
	ResultMeta
}

// RewriteResult is the rewrite data and the style it was written in.
type RewriteResult struct {
	Rewritten string `json:"rewritten"`
	Style     string `json:"style"`
	ResultMeta
}

// IdeateResult is the ideate data, one entry per idea.
type IdeateResult struct {
	Ideas []string `json:"ideas"`
	ResultMeta
}

// TranslateResult is the translate data and its target language.
type TranslateResult struct {
	Translated     string `json:"translated"`
	TargetLanguage string `json:"targetLanguage"`
	ResultMeta
}

// ExplainResult is the explain data.
type ExplainResult struct {
	Explanation string `json:"explanation"`
	ResultMeta
}

// ProofreadResult is the corrected text and the list of changes made.
type ProofreadResult struct {
	Corrected string   `json:"corrected"`
	Changes   []string `json:"changes"`
	ResultMeta
}

// postProcess shapes raw provider text into the action's structured result.
func postProcess(act models.Action, text string, options map[string]any, meta ResultMeta) any {
	text = strings.TrimSpace(text)

	switch act {
	case models.ActionSummarize:
		var summary []string
		points := []string{}
		for _, line := range strings.Split(text, "\n") {
			if item, ok := listItem(line); ok {
				points = append(points, item)
			} else if l := strings.TrimSpace(line); l != "" && !isHeading(l) {
				summary = append(summary, l)
			}
		}
		s := strings.Join(summary, " ")
		if s == "" {
			s = text
		}
		return SummarizeResult{Summary: s, KeyPoints: points, ResultMeta: meta}

	case models.ActionRewrite:
		return RewriteResult{Rewritten: text, Style: prompt.Style(options), ResultMeta: meta}

	case models.ActionIdeate:
		ideas := []string{}
		var plain []string
		for _, line := range strings.Split(text, "\n") {
			if item, ok := listItem(line); ok {
				ideas = append(ideas, item)
			} else if l := strings.TrimSpace(line); l != "" && !isHeading(l) {
				plain = append(plain, l)
			}
		}
		if len(ideas) == 0 {
			ideas = append(ideas, plain...)
		}
		return IdeateResult{Ideas: ideas, ResultMeta: meta}

	case models.ActionTranslate:
		return TranslateResult{Translated: text, TargetLanguage: prompt.TargetLanguage(options), ResultMeta: meta}

	case models.ActionProofread:
		corrected, rest := text, ""
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if strings.EqualFold(strings.TrimSpace(line), "changes:") {
				corrected = strings.TrimSpace(strings.Join(lines[:i], "\n"))
				rest = strings.Join(lines[i+1:], "\n")
				break
			}
		}
		changes := []string{}
		for _, line := range strings.Split(rest, "\n") {
			if item, ok := listItem(line); ok {
				changes = append(changes, item)
			}
		}
		return ProofreadResult{Corrected: corrected, Changes: changes, ResultMeta: meta}

	default:
		return ExplainResult{Explanation: text, ResultMeta: meta}
	}
}

// listItem strips a bullet ("- ", "* ", "• ") or number ("1. ", "2) ") prefix.
func listItem(line string) (string, bool) {
	l := strings.TrimSpace(line)
	for _, bullet := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(l, bullet) {
			return strings.TrimSpace(l[len(bullet):]), true
		}
	}

	i := 0
	for i < len(l) && unicode.IsDigit(rune(l[i])) {
		i++
	}
	if i > 0 && i+1 < len(l) && (l[i] == '.' || l[i] == ')') && l[i+1] == ' ' {
		return strings.TrimSpace(l[i+2:]), true
	}
	return "", false
}

// isHeading matches lines like "Key points:" that introduce a list.
func isHeading(line string) bool {
	return strings.HasSuffix(line, ":") && len(strings.Fields(line)) <= 3
}

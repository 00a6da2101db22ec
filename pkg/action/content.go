package action

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pario-ai/quill/pkg/apperr"
	"github.com/pario-ai/quill/pkg/models"
	"github.com/pario-ai/quill/pkg/prompt"
	"github.com/pario-ai/quill/pkg/provider"
)

// TruncationMarker is appended to input cut at MaxInputLength.
const TruncationMarker = "\n\n[... text truncated]"

// ResultMeta is carried by every content result.
type ResultMeta struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Cached    bool   `json:"cached"`
	Truncated bool   `json:"truncated"`
}

// contentHandler runs one content action: validate, truncate, prompt,
// cache or provider, post-process.
type contentHandler struct {
	action models.Action
	svc    *Services
}

func (h *contentHandler) Handle(ctx context.Context, req models.ActionRequest) (any, error) {
	limits := h.svc.Limits

	if strings.TrimSpace(req.Text) == "" {
		return nil, apperr.Validationf("text is required for %s", h.action)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Text)); n < limits.MinInputLength {
		return nil, apperr.InsufficientInputf("text must be at least %d characters, got %d", limits.MinInputLength, n)
	}

	text, truncated := truncate(req.Text, limits.MaxInputLength)

	p, err := prompt.Build(h.action, text, req.Options)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unknown, "build prompt", err)
	}

	res, cached, err := h.svc.complete(ctx, req.RequestID, h.action, text, req.Options, provider.Request{
		Prompt:      p.Prompt,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		return nil, err
	}

	meta := ResultMeta{
		Provider:  res.ProviderName,
		Model:     res.Model,
		Cached:    cached,
		Truncated: truncated,
	}
	return postProcess(h.action, res.Text, req.Options, meta), nil
}

// truncate cuts text to max characters on a rune boundary and appends
// TruncationMarker. max <= 0 disables truncation.
func truncate(text string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:max]) + TruncationMarker, true
}

package provider

import (
	"context"
	"net/http"
	"strings"
)

const (
	// DefaultAnthropicURL is used when a provider of type anthropic has no url.
	DefaultAnthropicURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
	// max_tokens is mandatory on the messages API.
	anthropicDefaultMaxTokens = 1024
)

type anthropicRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

// Anthropic calls the Anthropic messages API.
type Anthropic struct {
	name   string
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropic creates an Anthropic provider. A nil client uses http.DefaultClient.
func NewAnthropic(name, baseURL, apiKey, model string, client *http.Client) *Anthropic {
	if baseURL == "" {
		baseURL = DefaultAnthropicURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Anthropic{name: name, url: baseURL, apiKey: apiKey, model: model, client: client}
}

// Name implements Provider.
func (a *Anthropic) Name() string { return a.name }

// Call implements Provider.
func (a *Anthropic) Call(ctx context.Context, prompt string, p Params) (*Completion, error) {
	req := anthropicRequest{
		Model:     a.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: p.MaxTokens,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = anthropicDefaultMaxTokens
	}
	if p.Temperature > 0 {
		req.Temperature = &p.Temperature
	}

	headers := map[string]string{"anthropic-version": anthropicVersion}
	if a.apiKey != "" {
		headers["x-api-key"] = a.apiKey
	}

	var resp anthropicResponse
	if err := postJSON(ctx, a.client, a.name, a.url, "/v1/messages", headers, req, &resp); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	c := &Completion{Text: sb.String(), Model: resp.Model}
	if c.Model == "" {
		c.Model = a.model
	}
	if resp.Usage != nil {
		c.TokensUsed = resp.Usage.InputTokens + resp.Usage.OutputTokens
	}
	return c, nil
}

package provider

import (
	"context"
	"net/http"
)

// DefaultOpenAIURL is used when a provider of type openai has no url.
const DefaultOpenAIURL = "https://api.openai.com"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	name   string
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAI creates an OpenAI provider. A nil client uses http.DefaultClient.
func NewOpenAI(name, baseURL, apiKey, model string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{name: name, url: baseURL, apiKey: apiKey, model: model, client: client}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return o.name }

// Call implements Provider.
func (o *OpenAI) Call(ctx context.Context, prompt string, p Params) (*Completion, error) {
	req := chatCompletionRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	if p.Temperature > 0 {
		req.Temperature = &p.Temperature
	}
	if p.MaxTokens > 0 {
		req.MaxTokens = &p.MaxTokens
	}

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	var resp chatCompletionResponse
	if err := postJSON(ctx, o.client, o.name, o.url, "/v1/chat/completions", headers, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	c := &Completion{Text: resp.Choices[0].Message.Content, Model: resp.Model}
	if c.Model == "" {
		c.Model = o.model
	}
	if resp.Usage != nil {
		c.TokensUsed = resp.Usage.TotalTokens
	}
	return c, nil
}

package mcp

import (
	"context"
	"encoding/json"

	"github.com/pario-ai/quill/pkg/models"
)

const usageTool = ToolPrefix + "usage"

var toolDescriptions = map[models.Action]string{
	models.ActionSummarize:  "Summarize text into a short summary and key points. Options: length (short|medium|long).",
	models.ActionRewrite:    "Rewrite text in another style. Options: style or tone.",
	models.ActionIdeate:     "Generate ideas from text. Options: count (1-20).",
	models.ActionTranslate:  "Translate text. Options: targetLanguage (default English).",
	models.ActionExplain:    "Explain text in plain language. Options: audience.",
	models.ActionProofread:  "Proofread text and list the corrections made.",
	models.ActionCacheStats: "Show result cache statistics (entries, hits, misses, hit rate).",
	models.ActionClearCache: "Remove every cached result and reset cache statistics.",
	models.ActionHealth:     "Show configured providers and whether caching and fallback are enabled.",
}

var contentSchema = InputSchema{
	Type:     "object",
	Required: []string{"text"},
	Properties: map[string]Property{
		"text":      {Type: "string", Description: "The input text"},
		"options":   {Type: "object", Description: "Action-specific options"},
		"requestId": {Type: "string", Description: "Correlation id echoed in the response (optional)"},
	},
}

var emptySchema = InputSchema{Type: "object", Properties: map[string]Property{}}

var usageSchema = InputSchema{
	Type: "object",
	Properties: map[string]Property{
		"action": {Type: "string", Description: "Filter by action (optional, omit for all actions)"},
	},
}

// tools lists one tool per router action, plus quill_usage when a ledger is configured.
func (s *Server) tools() []ToolDefinition {
	var defs []ToolDefinition
	for _, a := range s.router.Actions() {
		schema := emptySchema
		if a.IsContent() {
			schema = contentSchema
		}
		desc, ok := toolDescriptions[a]
		if !ok {
			desc = "Run the " + string(a) + " action."
		}
		defs = append(defs, ToolDefinition{Name: ToolPrefix + string(a), Description: desc, InputSchema: schema})
	}

	if s.usage != nil {
		defs = append(defs, ToolDefinition{
			Name:        usageTool,
			Description: "Show provider usage (requests, tokens, latency) per action and provider.",
			InputSchema: usageSchema,
		})
	}
	return defs
}

type actionArgs struct {
	Text      string         `json:"text"`
	Options   map[string]any `json:"options"`
	RequestID string         `json:"requestId"`
}

// callAction runs an action through the router. The tool result text is the
// JSON response envelope; isError mirrors success=false.
func (s *Server) callAction(ctx context.Context, a models.Action, rawArgs json.RawMessage) ToolCallResult {
	var args actionArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}

	resp := s.router.Handle(ctx, models.ActionRequest{
		Action:    a,
		Text:      args.Text,
		Options:   args.Options,
		RequestID: args.RequestID,
		Source:    models.SourceMCP,
	})

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errorResult("encode response: " + err.Error())
	}
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: string(data)}},
		IsError: !resp.Success,
	}
}

type usageArgs struct {
	Action string `json:"action"`
}

func (s *Server) callUsage(ctx context.Context, rawArgs json.RawMessage) ToolCallResult {
	if s.usage == nil {
		return textResult("Usage tracking is not configured.")
	}
	var args usageArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	rows, err := s.usage.Summary(ctx, models.Action(args.Action))
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	return textResult(formatUsage(rows))
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

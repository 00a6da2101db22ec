package models

// Action identifies one of the assistant's operations.
type Action string

// Content actions transform caller-supplied text.
const (
	ActionSummarize Action = "summarize"
	ActionRewrite   Action = "rewrite"
	ActionIdeate    Action = "ideate"
	ActionTranslate Action = "translate"
	ActionExplain   Action = "explain"
	ActionProofread Action = "proofread"
)

// Admin actions operate on the layer itself and take no text.
const (
	ActionCacheStats Action = "cache_stats"
	ActionClearCache Action = "clear_cache"
	ActionHealth     Action = "health"
)

// ContentActions lists every action that requires input text.
var ContentActions = []Action{
	ActionSummarize,
	ActionRewrite,
	ActionIdeate,
	ActionTranslate,
	ActionExplain,
	ActionProofread,
}

// IsContent reports whether a requires input text.
func (a Action) IsContent() bool {
	for _, c := range ContentActions {
		if a == c {
			return true
		}
	}
	return false
}

// Source identifies where in the host a request originated.
type Source string

const (
	SourcePopup       Source = "popup"
	SourceContextMenu Source = "context_menu"
	SourceOverlay     Source = "overlay"
	SourceAPI         Source = "api"
	SourceCLI         Source = "cli"
	SourceMCP         Source = "mcp"
)

// ActionRequest is a caller's request for an action.
type ActionRequest struct {
	Action    Action         `json:"action"`
	Text      string         `json:"text,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Source    Source         `json:"source,omitempty"`
}

// Metadata describes how a request was processed.
type Metadata struct {
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Timestamp        string `json:"timestampIso"`
	Action           Action `json:"action"`
}

// ActionResponse is the single envelope returned for every request.
// Data is set when Success is true, Error when it is false.
type ActionResponse struct {
	Success   bool     `json:"success"`
	Data      any      `json:"data,omitempty"`
	Error     string   `json:"error,omitempty"`
	RequestID string   `json:"requestId"`
	Metadata  Metadata `json:"metadata"`
}

package models

// ProviderResult is a provider's completion normalized into one shape.
type ProviderResult struct {
	Text         string `json:"text"`
	ProviderName string `json:"providerName"`
	Model        string `json:"model,omitempty"`
	Timestamp    string `json:"timestampIso"`
	TokensUsed   int    `json:"tokensUsed,omitempty"`
}

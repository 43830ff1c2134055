package llm

// ChatRequest is the body of a /chat/completions call.
type ChatRequest struct {
	// Model name (e.g., "local-model", "gpt-4o-mini", "gemma3:latest")
	Model string `json:"model"`

	// Conversation messages, system prompt first
	Messages []Message `json:"messages"`

	Stream bool `json:"stream"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

package llm

// ChatResponse is the assembled result of a streamed completion.
type ChatResponse struct {
	// Model that generated the response
	Model string `json:"model"`

	// Content is the concatenation of every streamed delta.
	Content string `json:"content"`

	// Finish reason reported on the last choice (e.g., "stop", "length")
	FinishReason string `json:"finish_reason,omitempty"`

	// Token usage, when the server reports it
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

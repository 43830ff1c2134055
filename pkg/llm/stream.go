package llm

// StreamChunk is the JSON payload of one server-sent event of a streamed
// chat completion.
type StreamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`

	// Usage is only present on the final chunk, and only on servers that
	// report it.
	Usage *Usage `json:"usage,omitempty"`
}

// StreamChoice carries the content delta of one choice.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// doneData is the sentinel payload that terminates an OpenAI stream.
const doneData = "[DONE]"

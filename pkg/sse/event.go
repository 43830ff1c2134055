// Package sse reads server-sent events, the framing OpenAI-compatible
// servers use for streamed chat completions. A Reader can also copy the raw
// stream verbatim to a second writer, which "memoria chat --transcript"
// uses to keep what the backend actually sent.
//
// Only reading is supported. See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is one parsed event, delimited by a blank line in the stream.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is every "data:" line of the event joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}

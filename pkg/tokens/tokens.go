// Package tokens counts tokens the way OpenAI-compatible models do, falling
// back to whitespace words when the encoding cannot be loaded.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when none is given.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens in text.
type Counter struct {
	enc *tiktoken.Tiktoken
}

var (
	defaultOnce    sync.Once
	defaultCounter *Counter
)

// NewCounter loads encoding. When it cannot be loaded (tiktoken fetches
// encodings on first use) the counter counts words instead.
func NewCounter(encoding string) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// Default returns a shared counter for DefaultEncoding.
func Default() *Counter {
	defaultOnce.Do(func() {
		defaultCounter = NewCounter(DefaultEncoding)
	})
	return defaultCounter
}

// Count returns the token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc == nil {
		return len(strings.Fields(text))
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Exact reports whether counts come from a real encoding.
func (c *Counter) Exact() bool {
	return c.enc != nil
}

// Package chunker splits message content into sentence bounded chunks, the
// unit of semantic indexing for raw messages.
package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DefaultMaxTokens is the word budget of a chunk.
const DefaultMaxTokens = 64

// Chunk packs whole sentences into chunks of at most maxTokens words. A
// sentence longer than the budget becomes a chunk of its own, untruncated.
// maxTokens <= 0 selects DefaultMaxTokens.
func Chunk(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var (
		chunks []string
		cur    []string
		words  int
	)

	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, " "))
			cur = cur[:0]
			words = 0
		}
	}

	for _, sentence := range Sentences(text) {
		n := len(strings.Fields(sentence))
		if words+n > maxTokens {
			flush()
		}
		cur = append(cur, sentence)
		words += n
	}
	flush()

	return chunks
}

// Sentences splits text after every '.', '!' or '?' that is followed by
// whitespace. Sentences are trimmed; empty ones are dropped.
func Sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}

	return out
}

// ID names the chunk at position pos of raw message rawID.
func ID(rawID uint64, pos int) string {
	return fmt.Sprintf("%d_%d", rawID, pos)
}

// ParseID returns the raw message id a chunk id belongs to.
func ParseID(id string) (uint64, int, error) {
	raw, pos, ok := strings.Cut(id, "_")
	if !ok {
		return 0, 0, fmt.Errorf("malformed chunk id %q", id)
	}

	rawID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed chunk id %q: %w", id, err)
	}
	p, err := strconv.Atoi(pos)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed chunk id %q: %w", id, err)
	}

	return rawID, p, nil
}

// Package summarizer defines the text-generation capability the rollup tiers
// use to condense a batch of excerpts into one summary.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable wraps every transport or backend failure of a Summarizer.
// Callers treat it as "no summary this round", never as fatal.
var ErrUnavailable = errors.New("summarizer unavailable")

// Kind selects the tier specific instruction.
type Kind string

const (
	KindEpisodic Kind = "episodic"
	KindBranch   Kind = "branch"
	KindGlobal   Kind = "global"
)

// EpisodicTopics is the number of topics an episodic summary lists.
const EpisodicTopics = 3

// Summarizer turns excerpts into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, excerpts []string, kind Kind) (string, error)
}

// Instruction returns the prompt preamble for kind.
func Instruction(kind Kind) string {
	switch kind {
	case KindBranch:
		return "Summarize the following episode summaries as one short paragraph " +
			"followed by a bulleted list of the key facts, decisions and open threads."
	case KindGlobal:
		return "Write a brief narrative overview of the whole conversation so far " +
			"from the following period summaries. Keep names, preferences and commitments."
	default:
		return fmt.Sprintf("Briefly summarize the %d main topics of the following conversation.", EpisodicTopics)
	}
}

// Prompt joins the instruction for kind with the excerpts, one per line.
func Prompt(excerpts []string, kind Kind) string {
	return Instruction(kind) + "\n\n" + strings.Join(excerpts, "\n")
}

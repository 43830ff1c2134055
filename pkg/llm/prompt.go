package llm

import "strings"

// MaxPromptSummaries bounds how many summaries of each tier are quoted in
// the system prompt.
const MaxPromptSummaries = 5

// Prompt is the material a chat turn is built from.
type Prompt struct {
	// Persona is the character description that opens the system prompt.
	Persona string

	// Recent and Older are the newest episodic and branch summaries.
	Recent []string
	Older  []string

	// Excerpts are the retrieved "role: content" messages.
	Excerpts []string

	// History is the working memory, oldest first.
	History []Message

	Question string
}

// Messages assembles the request: one system message holding the persona,
// the summaries and the excerpts, then the history, then the question.
func (p Prompt) Messages() []Message {
	var sys strings.Builder
	sys.WriteString(p.Persona)

	var ctx []string
	if recent := lastN(p.Recent, MaxPromptSummaries); len(recent) > 0 {
		ctx = append(ctx, "Recent summary: "+strings.Join(recent, ", ")+".")
	}
	if older := lastN(p.Older, MaxPromptSummaries); len(older) > 0 {
		ctx = append(ctx, "Older summary: "+strings.Join(older, ", ")+".")
	}
	if len(ctx) > 0 {
		if sys.Len() > 0 {
			sys.WriteString("\n\n")
		}
		sys.WriteString(strings.Join(ctx, "\n"))
	}
	if len(p.Excerpts) > 0 {
		if sys.Len() > 0 {
			sys.WriteString("\n")
		}
		sys.WriteString("Relevant excerpts:\n")
		sys.WriteString(strings.Join(p.Excerpts, "\n----\n"))
	}

	msgs := make([]Message, 0, len(p.History)+2)
	if sys.Len() > 0 {
		msgs = append(msgs, NewTextMessage(RoleSystem, sys.String()))
	}
	msgs = append(msgs, p.History...)
	msgs = append(msgs, NewTextMessage(RoleUser, p.Question))
	return msgs
}

func lastN(s []string, n int) []string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

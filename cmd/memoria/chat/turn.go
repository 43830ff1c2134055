package chatcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/papercomputeco/memoria/pkg/llm"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

// turn answers one user message and records the exchange.
type turn struct {
	store   *memoria.Store
	client  *llm.Client
	persona string
	topN    int
	recent  int
	out     io.Writer
	logger  *slog.Logger
}

func (t *turn) run(ctx context.Context, question string) error {
	prompt, err := t.prompt(ctx, question)
	if err != nil {
		return err
	}

	fmt.Fprint(t.out, assistantPrompt)
	resp, err := t.client.Stream(ctx, prompt.Messages(), func(token string) {
		fmt.Fprint(t.out, token)
	})
	fmt.Fprintln(t.out)
	if err != nil {
		t.logger.Debug("chat completion failed", "error", err)
		fmt.Fprintln(t.out, errorStyle.Render(generationFailed))
		return nil
	}

	if _, err := t.store.Append(ctx, rawlog.RoleUser, question); err != nil {
		return fmt.Errorf("recording message: %w", err)
	}
	if _, err := t.store.Append(ctx, rawlog.RoleAssistant, resp.Content); err != nil {
		return fmt.Errorf("recording reply: %w", err)
	}
	return nil
}

// prompt gathers the context of a turn. History is read before the
// question is recorded, so it never contains the question itself.
func (t *turn) prompt(ctx context.Context, question string) (llm.Prompt, error) {
	excerpts, err := t.store.Retrieve(ctx, question, t.topN)
	if err != nil {
		return llm.Prompt{}, err
	}

	recent, err := t.store.Recent(t.recent)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("reading recent messages: %w", err)
	}
	history := make([]llm.Message, 0, len(recent))
	for _, m := range recent {
		history = append(history, llm.NewTextMessage(string(m.Role), m.Content))
	}

	eps, brs, _ := t.store.Summaries()
	p := llm.Prompt{
		Persona:  t.persona,
		Excerpts: excerpts,
		History:  history,
		Question: question,
	}
	for _, ep := range eps {
		p.Recent = append(p.Recent, ep.Summary)
	}
	for _, b := range brs {
		p.Older = append(p.Older, b.Summary)
	}
	return p, nil
}

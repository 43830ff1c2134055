// Package chatcmder provides the chat command for an interactive chat with
// long-term memory.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/config"
	"github.com/papercomputeco/memoria/pkg/llm"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/memoria"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// generationFailed is printed in place of a reply that could not be
// generated. Nothing is recorded for that turn.
const generationFailed = "[error: could not generate response]"

const defaultPersona = "You are a warm, attentive companion with a long memory. " +
	"Use the summaries and excerpts below to stay consistent with what was said before."

type chatCommander struct {
	flags storeopen.Flags

	chatTarget string
	chatModel  string
	recent     uint

	persona     string
	personaFile string
	topN        int
	transcript  string
	question    string

	debug bool
	in    io.Reader
	out   io.Writer
}

const chatLongDesc string = `Start an interactive chat with long-term memory.

Every turn builds a prompt from the persona, the newest episodic and branch
summaries, the excerpts most relevant to your message and the most recent
messages, then streams the reply from an OpenAI-compatible chat endpoint
(LM Studio, Ollama, vLLM, OpenAI). Both your message and the reply are then
appended to the namespace, which rolls up summaries as the conversation grows.

When the reply cannot be generated, "` + generationFailed + `" is printed
and the turn is not recorded.

Pass a message as arguments to run a single turn and exit.

Examples:
  memoria chat
  memoria chat --namespace luna --persona-file luna.txt
  memoria chat --chat-target http://localhost:11434/v1 --model gemma3:latest
  memoria chat "what did I tell you about the sea?"`

const chatShortDesc string = "Chat with memory"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = strings.TrimSpace(strings.Join(args, " "))

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			env, err := storeopen.Load(cmd, logger.NewCLI(cmder.debug),
				config.FlagChatTarget,
				config.FlagChatModel,
				config.FlagChatRecent,
			)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), env)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagChatTarget, &cmder.chatTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagChatModel, &cmder.chatModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagChatRecent, &cmder.recent)
	cmd.Flags().StringVar(&cmder.persona, "persona", "", "Persona that opens the system prompt")
	cmd.Flags().StringVar(&cmder.personaFile, "persona-file", "", "Read the persona from a file")
	cmd.Flags().IntVarP(&cmder.topN, "top", "k", memoria.DefaultTopN, "Excerpts retrieved per turn")
	cmd.Flags().StringVar(&cmder.transcript, "transcript", "", "Append the raw response stream to a file")
	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *chatCommander) run(ctx context.Context, env *storeopen.Env) error {
	persona, err := c.loadPersona()
	if err != nil {
		return err
	}

	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	clientConfig := llm.Config{
		BaseURL: env.Config.Chat.Target,
		APIKey:  env.Config.Summarizer.APIKey,
		Model:   env.Config.Chat.Model,
		Logger:  env.Logger,
	}
	if c.transcript != "" {
		f, err := os.OpenFile(c.transcript, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening transcript: %w", err)
		}
		defer f.Close()
		clientConfig.Transcript = f
	}
	client := llm.NewClient(clientConfig)

	t := &turn{
		store:   store,
		client:  client,
		persona: persona,
		topN:    c.topN,
		recent:  int(env.Config.Chat.Recent),
		out:     c.out,
		logger:  env.Logger,
	}

	if c.question != "" {
		return t.run(ctx, c.question)
	}

	fmt.Fprintf(c.out, "\n  %s %s %s\n",
		cliui.KeyStyle.Render("Namespace:"),
		cliui.NameStyle.Render(store.Namespace()),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", store.LastID())),
	)
	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.ValueStyle.Render(client.Model()),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		if err := t.run(ctx, line); err != nil {
			return err
		}
		fmt.Fprintln(c.out)
	}
	fmt.Fprintln(c.out)

	return scanner.Err()
}

func (c *chatCommander) loadPersona() (string, error) {
	switch {
	case c.persona != "" && c.personaFile != "":
		return "", errors.New("--persona and --persona-file are mutually exclusive")
	case c.persona != "":
		return c.persona, nil
	case c.personaFile != "":
		data, err := os.ReadFile(c.personaFile)
		if err != nil {
			return "", fmt.Errorf("reading persona: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return defaultPersona, nil
	}
}

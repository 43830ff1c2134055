// Package statscmder provides the stats command for inspecting a namespace.
package statscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/vector"
)

type statsCommander struct {
	flags storeopen.Flags
	json  bool

	debug bool
	out   io.Writer
}

const statsLongDesc string = `Show message, token, summary and vector counts of a namespace.

Token totals use the cl100k_base encoding when it is available and a word
count otherwise. Collections whose dimension differs from the configured
embedder are reported as stale; "memoria rebuild" fixes them.

Examples:
  memoria stats
  memoria stats --namespace luna --json`

const statsShortDesc string = "Show namespace statistics"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.out = cmd.OutOrStdout()

			env, err := storeopen.Load(cmd, logger.NewCLI(cmder.debug))
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), env)
		},
	}

	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print statistics as JSON")
	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *statsCommander) run(ctx context.Context, env *storeopen.Env) error {
	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	if c.json {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	c.print(st, store.Dir())
	return nil
}

func (c *statsCommander) print(st *memoria.Stats, dir string) {
	tokenNote := "cl100k_base"
	if !st.TokensExact {
		tokenNote = "word estimate"
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.NameStyle.Render(st.Namespace), cliui.DimStyle.Render(dir))

	row := func(key, value string) {
		fmt.Fprintf(c.out, "  %-20s %s\n", cliui.KeyStyle.Render(key), value)
	}
	row("messages", fmt.Sprintf("%d (%d user, %d assistant, %d empty)",
		st.Messages, st.UserMessages, st.AssistantMessages, st.EmptyMessages))
	row("segments", fmt.Sprint(st.Segments))
	row("tokens", fmt.Sprintf("%d %s", st.Tokens, cliui.DimStyle.Render("("+tokenNote+")")))
	row("summaries", fmt.Sprintf("%d episodic, %d branch, %d global", st.Episodic, st.Branch, st.Global))
	row("pending", fmt.Sprintf("%d message(s) until the next episode", st.Pending))
	row("embedding", fmt.Sprintf("%d dimensions", st.EmbeddingDimension))

	fmt.Fprintln(c.out)
	for _, name := range vector.Names {
		cs := st.Collections[name]
		fmt.Fprintf(c.out, "  %-20s %d record(s), dimension %d\n", cliui.KeyStyle.Render(name), cs.Records, cs.Dimension)
	}

	if len(st.StaleCollections) > 0 {
		fmt.Fprintf(c.out, "\n  %s stale: %s %s\n",
			cliui.FailMark,
			strings.Join(st.StaleCollections, ", "),
			cliui.DimStyle.Render("(run memoria rebuild)"),
		)
	}
	fmt.Fprintln(c.out)
}

// Package searchcmder provides the search command for retrieving the
// messages and episodes most relevant to a query.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/memoria"
	"github.com/papercomputeco/memoria/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

const previewLen = 160

type searchCommander struct {
	flags storeopen.Flags

	query    string
	topN     int
	episodes bool
	json     bool

	debug bool
	out   io.Writer
}

const searchLongDesc string = `Retrieve the messages most relevant to a query.

Messages are split into sentence chunks when appended; search ranks the
chunks by cosine similarity to the query and prints each matching message
once, at the rank of its best chunk.

Use --episodes to search the episodic summaries instead. Each hit prints the
summary followed by the raw messages it covers.

Examples:
  memoria search "where did I grow up"
  memoria search "the sea" --top 10 --namespace luna
  memoria search "the sea" --episodes
  memoria search "the sea" --json`

const searchShortDesc string = "Retrieve relevant messages"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = strings.Join(args, " ")

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

	cmd.Flags().IntVarP(&cmder.topN, "top", "k", memoria.DefaultTopN, "Number of results to return")
	cmd.Flags().BoolVar(&cmder.episodes, "episodes", false, "Search episodic summaries")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print results as JSON")
	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, env *storeopen.Env) error {
	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	if c.episodes {
		hits, err := store.RetrieveEpisodes(ctx, c.query, c.topN)
		if err != nil {
			return err
		}
		if c.json {
			return c.writeJSON(hits)
		}
		c.printEpisodes(hits)
		return nil
	}

	msgs, err := store.RetrieveMessages(ctx, c.query, c.topN)
	if err != nil {
		return err
	}
	if c.json {
		return c.writeJSON(msgs)
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		headerStyle.Render(fmt.Sprintf("%d result(s) for", len(msgs))),
		previewStyle.Render(fmt.Sprintf("%q", c.query)),
	)
	for i, m := range msgs {
		fmt.Fprintf(c.out, "  %s %s %s\n",
			rankStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.RoleStyle.Render(fmt.Sprintf("[#%d %s]", m.ID, m.Role)),
			previewStyle.Render(utils.Truncate(m.Content, previewLen)),
		)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *searchCommander) printEpisodes(hits []memoria.EpisodeHit) {
	fmt.Fprintf(c.out, "\n%s %s\n\n",
		headerStyle.Render(fmt.Sprintf("%d episode(s) for", len(hits))),
		previewStyle.Render(fmt.Sprintf("%q", c.query)),
	)
	for i, h := range hits {
		fmt.Fprintf(c.out, "  %s %s %s\n",
			rankStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.ScoreStyle.Render(fmt.Sprintf("[episode %d, score %.3f]", h.EpisodeID, h.Score)),
			previewStyle.Render(h.Summary),
		)
		for _, m := range h.Messages {
			fmt.Fprintf(c.out, "       %s %s\n",
				cliui.RoleStyle.Render(fmt.Sprintf("#%d %s:", m.ID, m.Role)),
				cliui.DimStyle.Render(utils.Truncate(m.Content, previewLen)),
			)
		}
	}
	fmt.Fprintln(c.out)
}

func (c *searchCommander) writeJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package summariescmder provides the summaries command for reading the
// rollup tiers of a namespace.
package summariescmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/rollup"
)

const (
	tierAll      = "all"
	tierEpisodic = "episodic"
	tierBranch   = "branch"
	tierGlobal   = "global"
)

type summariesCommander struct {
	flags storeopen.Flags
	tier  string
	plain bool

	debug bool
	out   io.Writer
}

const summariesLongDesc string = `Print the summaries of a namespace.

Global summaries come first, then branch, then episodic, each tier oldest
first. Output is rendered as markdown; use --plain for unstyled text.

Examples:
  memoria summaries
  memoria summaries --tier episodic
  memoria summaries --namespace luna --plain`

const summariesShortDesc string = "Print rollup summaries"

func NewSummariesCmd() *cobra.Command {
	cmder := &summariesCommander{}

	cmd := &cobra.Command{
		Use:   "summaries",
		Short: summariesShortDesc,
		Long:  summariesLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch cmder.tier {
			case tierAll, tierEpisodic, tierBranch, tierGlobal:
			default:
				return fmt.Errorf("unknown tier %q (available: all, episodic, branch, global)", cmder.tier)
			}

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
			return cmder.run(env)
		},
	}

	cmd.Flags().StringVar(&cmder.tier, "tier", tierAll, "Tier to print (all, episodic, branch, global)")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print markdown without rendering")
	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *summariesCommander) run(env *storeopen.Env) error {
	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	eps, brs, gls := store.Summaries()
	doc := c.markdown(store.Namespace(), eps, brs, gls)

	if c.plain {
		fmt.Fprint(c.out, doc)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(doc)
	if err != nil {
		env.Logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprint(c.out, rendered)
	return nil
}

func (c *summariesCommander) markdown(namespace string, eps []rollup.EpisodicSummary, brs []rollup.BranchSummary, gls []rollup.GlobalSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", namespace)

	if c.tier == tierAll || c.tier == tierGlobal {
		section(&b, "Global", len(gls))
		for _, g := range gls {
			fmt.Fprintf(&b, "- **#%d** (branches %s) %s\n", g.ID, joinIDs(g.BranchIDs), g.Summary)
		}
		b.WriteString("\n")
	}

	if c.tier == tierAll || c.tier == tierBranch {
		section(&b, "Branch", len(brs))
		for _, br := range brs {
			fmt.Fprintf(&b, "- **#%d** (episodes %s) %s\n", br.ID, joinIDs(br.EpisodicIDs), br.Summary)
		}
		b.WriteString("\n")
	}

	if c.tier == tierAll || c.tier == tierEpisodic {
		section(&b, "Episodic", len(eps))
		for _, ep := range eps {
			fmt.Fprintf(&b, "- **#%d** (messages %d-%d) %s\n", ep.ID, ep.StartID, ep.EndID, ep.Summary)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func section(b *strings.Builder, title string, n int) {
	fmt.Fprintf(b, "## %s (%d)\n\n", title, n)
	if n == 0 {
		b.WriteString("_none yet_\n")
	}
}

func joinIDs(ids []uint32) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = fmt.Sprint(id)
	}
	return strings.Join(s, ", ")
}

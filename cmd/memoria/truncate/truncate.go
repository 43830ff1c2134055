// Package truncatecmder provides the truncate command for removing the most
// recent messages of a namespace.
package truncatecmder

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/logger"
)

type truncateCommander struct {
	flags storeopen.Flags
	n     int

	debug bool
	out   io.Writer
}

const truncateLongDesc string = `Remove the last n messages (default 1) from a namespace.

Removed messages also leave the raw vector collection. Summaries that
already cover them are kept: the summary tiers are never rewritten.

Examples:
  memoria truncate
  memoria truncate 4 --namespace luna`

const truncateShortDesc string = "Remove the most recent messages"

func NewTruncateCmd() *cobra.Command {
	cmder := &truncateCommander{}

	cmd := &cobra.Command{
		Use:   "truncate [n]",
		Short: truncateShortDesc,
		Long:  truncateLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.n = 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("invalid message count: %q", args[0])
				}
				cmder.n = n
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
			return cmder.run(cmd.Context(), env)
		},
	}

	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *truncateCommander) run(ctx context.Context, env *storeopen.Env) error {
	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.TruncateLast(ctx, c.n)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s Removed %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(fmt.Sprintf("%d message(s)", removed)),
		cliui.DimStyle.Render(fmt.Sprintf("(last id %d)", store.LastID())),
	)
	return nil
}

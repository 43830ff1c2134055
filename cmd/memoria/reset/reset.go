// Package resetcmder provides the reset command for erasing a namespace.
package resetcmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/logger"
)

type resetCommander struct {
	flags storeopen.Flags
	yes   bool

	debug bool
	out   io.Writer
}

const resetLongDesc string = `Erase every message, summary and vector of a namespace.

The namespace is left initialized and empty, as after "memoria init".
Other namespaces are untouched. Pass --yes to confirm.

Examples:
  memoria reset --yes
  memoria reset --namespace luna --yes`

const resetShortDesc string = "Erase a namespace"

func NewResetCmd() *cobra.Command {
	cmder := &resetCommander{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: resetShortDesc,
		Long:  resetLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmder.yes {
				return errors.New("reset erases the namespace; pass --yes to confirm")
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

	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Confirm the reset")
	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *resetCommander) run(ctx context.Context, env *storeopen.Env) error {
	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Reset(ctx); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s Reset namespace %s\n", cliui.SuccessMark, cliui.NameStyle.Render(store.Namespace()))
	return nil
}

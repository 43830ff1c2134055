// Package appendcmder provides the append command for recording a message.
package appendcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/rawlog"
)

type appendCommander struct {
	flags storeopen.Flags

	role    rawlog.Role
	content string

	debug bool
	out   io.Writer
}

const appendLongDesc string = `Append a message to the raw log of a namespace.

The role is "user" or "assistant". Content is the remaining arguments joined
by spaces, or standard input when it is "-". Appending may roll up episodic,
branch and global summaries; each summary produced is printed.

Examples:
  memoria append user "I grew up by the sea"
  memoria append assistant "Tell me about the sea" --namespace luna
  echo "hello" | memoria append user -`

const appendShortDesc string = "Append a message"

func NewAppendCmd() *cobra.Command {
	cmder := &appendCommander{}

	cmd := &cobra.Command{
		Use:   "append <role> <content...>",
		Short: appendShortDesc,
		Long:  appendLongDesc,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := rawlog.ParseRole(args[0])
			if err != nil {
				return err
			}
			cmder.role = role

			cmder.content = strings.Join(args[1:], " ")
			if len(args) == 2 && args[1] == "-" {
				cmder.content, err = readAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

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

func (c *appendCommander) run(ctx context.Context, env *storeopen.Env) error {
	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := store.Append(ctx, c.role, c.content)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s Appended %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(fmt.Sprintf("#%d", res.ID)),
		cliui.DimStyle.Render(fmt.Sprintf("(%s, %s)", c.role, store.Namespace())),
	)
	for _, ep := range res.Episodic {
		fmt.Fprintf(c.out, "  %s episodic #%d [%d-%d] %s\n", cliui.SuccessMark, ep.ID, ep.StartID, ep.EndID, ep.Summary)
	}
	for _, b := range res.Branch {
		fmt.Fprintf(c.out, "  %s branch #%d %s\n", cliui.SuccessMark, b.ID, b.Summary)
	}
	for _, g := range res.Global {
		fmt.Fprintf(c.out, "  %s global #%d %s\n", cliui.SuccessMark, g.ID, g.Summary)
	}

	return nil
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// Package usecmder provides the use command for selecting the namespace
// other commands default to.
package usecmder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/dotdir"
	"github.com/papercomputeco/memoria/pkg/memoria"
)

type useCommander struct {
	namespace string
	clear     bool

	configDir string
	out       io.Writer
}

const useLongDesc string = `Select the namespace commands use when --namespace is not given.

The selection is stored as active.json in the .memoria/ directory and takes
precedence over store.namespace from config.toml. Without arguments, prints
the current selection.

Examples:
  memoria use luna
  memoria use
  memoria use --clear`

const useShortDesc string = "Select the active namespace"

func NewUseCmd() *cobra.Command {
	cmder := &useCommander{}

	cmd := &cobra.Command{
		Use:   "use [namespace]",
		Short: useShortDesc,
		Long:  useLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cmder.namespace = args[0]
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.clear, "clear", false, "Clear the selection")

	return cmd
}

func (c *useCommander) run() error {
	ddm := dotdir.NewManager()

	switch {
	case c.clear && c.namespace != "":
		return errors.New("--clear takes no namespace")

	case c.clear:
		if err := ddm.ClearActive(c.configDir); err != nil {
			return fmt.Errorf("clearing active namespace: %w", err)
		}
		fmt.Fprintf(c.out, "%s Cleared active namespace\n", cliui.SuccessMark)
		return nil

	case c.namespace == "":
		active, err := ddm.LoadActive(c.configDir)
		if err != nil {
			return fmt.Errorf("loading active namespace: %w", err)
		}
		if active == nil {
			fmt.Fprintln(c.out, cliui.DimStyle.Render("No namespace selected"))
			return nil
		}
		fmt.Fprintf(c.out, "%s %s\n",
			cliui.NameStyle.Render(active.Namespace),
			cliui.DimStyle.Render("selected "+active.SelectedAt.Format(time.RFC3339)),
		)
		return nil
	}

	if err := memoria.ValidateNamespace(c.namespace); err != nil {
		return err
	}

	state := &dotdir.ActiveState{
		Namespace:  c.namespace,
		SelectedAt: time.Now().UTC(),
	}
	if err := ddm.SaveActive(state, c.configDir); err != nil {
		return fmt.Errorf("saving active namespace: %w", err)
	}

	fmt.Fprintf(c.out, "%s Using namespace %s\n", cliui.SuccessMark, cliui.NameStyle.Render(c.namespace))
	return nil
}

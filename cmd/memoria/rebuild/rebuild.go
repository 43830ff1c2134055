// Package rebuildcmder provides the rebuild command for regenerating the
// vector collections of a namespace from its raw log and summaries.
package rebuildcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/vector"
)

type rebuildCommander struct {
	flags       storeopen.Flags
	collections []string

	debug bool
	out   io.Writer
}

const rebuildLongDesc string = `Regenerate vector collections from the raw log and the summaries.

Rebuild is idempotent. It repairs collections left behind by a crash or a
failed embedding, and re-embeds everything after an embedding provider or
dimension change. Without arguments every collection is rebuilt; name
collections (raw, raw_chunk, episodic, branch) to rebuild only those.

Examples:
  memoria rebuild
  memoria rebuild raw_chunk
  memoria rebuild --embedding-provider ollama --embedding-dimensions 768`

const rebuildShortDesc string = "Rebuild vector collections"

func NewRebuildCmd() *cobra.Command {
	cmder := &rebuildCommander{}

	cmd := &cobra.Command{
		Use:   "rebuild [collection...]",
		Short: rebuildShortDesc,
		Long:  rebuildLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.collections = args

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

func (c *rebuildCommander) run(ctx context.Context, env *storeopen.Env) error {
	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	names := c.collections
	if len(names) == 0 {
		names = vector.Names
	}

	fmt.Fprintf(c.out, "\n  Rebuilding %s\n\n", cliui.NameStyle.Render(store.Namespace()))

	// A failed collection does not stop the others.
	start := time.Now()
	var errs []error
	for _, name := range names {
		if err := cliui.Step(c.out, name, func() error {
			return store.Rebuild(ctx, name)
		}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	err = errors.Join(errs...)

	fmt.Fprintf(c.out, "\n  %s %d of %d collection(s) rebuilt %s\n\n",
		cliui.Mark(err),
		len(names)-len(errs),
		len(names),
		cliui.StepStyle.Render("in "+cliui.FormatDuration(time.Since(start))),
	)
	return err
}

// Package initcmder provides the init command for initializing a local
// .memoria directory and a namespace in it.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/cliui"
	"github.com/papercomputeco/memoria/pkg/config"
	"github.com/papercomputeco/memoria/pkg/dotdir"
	"github.com/papercomputeco/memoria/pkg/logger"
)

type initCommander struct {
	flags  storeopen.Flags
	preset string

	configDir string
	debug     bool
	out       io.Writer
}

const initLongDesc string = `Initialize a new .memoria/ directory in the current working directory.

Creates a local .memoria/ directory that takes precedence over the default
~/.memoria/ directory, then initializes the namespace in it: the raw log
metadata, the empty summary files and the vector collections. Running init
on an initialized namespace leaves its data untouched.

Use --preset to write a config.toml for a local backend:
  lmstudio   LM Studio on localhost:1234 (the default)
  ollama     Ollama on localhost:11434 with nomic-embed-text embeddings
  openai     OpenAI chat, summaries and embeddings

Examples:
  memoria init
  memoria init --preset ollama
  memoria init --namespace luna`

const initShortDesc string = "Initialize .memoria/ and a namespace"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Write a config.toml for a backend preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))
	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *initCommander) run(cmd *cobra.Command) error {
	dir := c.configDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dotdir.DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .memoria directory: %w", err)
	}
	fmt.Fprintf(c.out, "\n  %s %s\n", cliui.KeyStyle.Render("Directory:"), cliui.DimStyle.Render(dir))

	if c.preset != "" {
		if err := c.writePreset(dir); err != nil {
			return err
		}
	}

	// Resolve against the directory just created so an existing ~/.memoria
	// does not win.
	log := logger.NewCLI(c.debug)
	env, err := storeopen.LoadDir(cmd, dir, log)
	if err != nil {
		return err
	}

	store, err := env.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(c.out, "  %s Initialized namespace %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(store.Namespace()),
	)
	return nil
}

func (c *initCommander) writePreset(dir string) error {
	cfg, err := config.PresetConfig(c.preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("config.toml already exists, preset not applied"))
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(c.preset),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}

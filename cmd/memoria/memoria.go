// Package memoriacmder is the root memoria command.
package memoriacmder

import (
	"github.com/spf13/cobra"

	appendcmder "github.com/papercomputeco/memoria/cmd/memoria/append"
	chatcmder "github.com/papercomputeco/memoria/cmd/memoria/chat"
	configcmder "github.com/papercomputeco/memoria/cmd/memoria/config"
	initcmder "github.com/papercomputeco/memoria/cmd/memoria/init"
	rebuildcmder "github.com/papercomputeco/memoria/cmd/memoria/rebuild"
	resetcmder "github.com/papercomputeco/memoria/cmd/memoria/reset"
	searchcmder "github.com/papercomputeco/memoria/cmd/memoria/search"
	servecmder "github.com/papercomputeco/memoria/cmd/memoria/serve"
	statscmder "github.com/papercomputeco/memoria/cmd/memoria/stats"
	summariescmder "github.com/papercomputeco/memoria/cmd/memoria/summaries"
	truncatecmder "github.com/papercomputeco/memoria/cmd/memoria/truncate"
	usecmder "github.com/papercomputeco/memoria/cmd/memoria/use"
	versioncmder "github.com/papercomputeco/memoria/cmd/version"
)

const memoriaLongDesc string = `memoria is long-term conversational memory for chat agents.

Every message is kept verbatim in an append-only log, rolled up into
episodic, branch and global summaries, and indexed for similarity retrieval.
Each character gets its own namespace.

Get started:
  memoria init                 Initialize .memoria/ and the default namespace
  memoria chat                 Chat with memory
  memoria search "the sea"     Retrieve relevant excerpts
  memoria serve                Run the API and MCP server`

const memoriaShortDesc string = "memoria - hierarchical conversational memory"

func NewMemoriaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "memoria",
		Short:        memoriaShortDesc,
		Long:         memoriaLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .memoria directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(usecmder.NewUseCmd())
	cmd.AddCommand(appendcmder.NewAppendCmd())
	cmd.AddCommand(truncatecmder.NewTruncateCmd())
	cmd.AddCommand(resetcmder.NewResetCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(summariescmder.NewSummariesCmd())
	cmd.AddCommand(rebuildcmder.NewRebuildCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

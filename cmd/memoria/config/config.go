// Package configcmder provides the config command for managing persistent
// memoria configuration stored in the .memoria/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent memoria configuration.

Configuration is stored as config.toml in the .memoria/ directory and provides
default values for command flags. CLI flags and MEMORIA_ environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  store.root, store.namespace, store.chunk_tokens,
  summarizer.provider, summarizer.target, summarizer.model, summarizer.api_key,
  summarizer.temperature, summarizer.max_tokens,
  chat.target, chat.model, chat.recent,
  api.listen, client.api_target,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  embedding.cache_size,
  events.provider, events.brokers, events.topic,
  maintenance.rebuild_schedule

Use subcommands to get, set, or list configuration values:
  memoria config set <key> <value>    Set a configuration value
  memoria config get <key>            Get a configuration value
  memoria config list                 List all configuration values

Examples:
  memoria config set summarizer.model gemma3:latest
  memoria config set embedding.provider ollama
  memoria config get chat.target
  memoria config list`

const configShortDesc string = "Manage persistent memoria configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

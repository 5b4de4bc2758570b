// Package configcmder provides the config command for managing persistent
// stacks configuration stored in the .stacks/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent stacks configuration.

Configuration is stored as config.toml in the .stacks/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, client.api_target,
  index.provider, index.target, index.collection,
  blob_store.provider, blob_store.target, blob_store.prefix,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  ingest.partition_key, ingest.chunk_size, ingest.chunk_overlap, ingest.concurrency,
  events.provider, events.topic

Use subcommands to get, set, or list configuration values:
  stacks config set <key> <value>    Set a configuration value
  stacks config get <key>            Get a configuration value
  stacks config list                 List all configuration values

Examples:
  stacks config set index.provider qdrant
  stacks config set embedding.model nomic-embed-text
  stacks config get index.provider
  stacks config list`

const configShortDesc string = "Manage persistent stacks configuration"

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

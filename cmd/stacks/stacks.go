// Package stackscmder
package stackscmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/stacks/cmd/stacks/config"
	ingestcmder "github.com/papercomputeco/stacks/cmd/stacks/ingest"
	initcmder "github.com/papercomputeco/stacks/cmd/stacks/init"
	purgecmder "github.com/papercomputeco/stacks/cmd/stacks/purge"
	searchcmder "github.com/papercomputeco/stacks/cmd/stacks/search"
	servecmder "github.com/papercomputeco/stacks/cmd/stacks/serve"
	versioncmder "github.com/papercomputeco/stacks/cmd/version"
)

const stacksLongDesc string = `Stacks indexes your documents for semantic search.

Point it at a document store, and it chunks, embeds, and indexes every
document so you can search them by meaning:
  stacks serve         Run the API server
  stacks ingest        Chunk, embed and index documents
  stacks search        Search indexed documents`

const stacksShortDesc string = "Stacks - Document Search"

func NewStacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacks",
		Short: stacksShortDesc,
		Long:  stacksLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .stacks/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(purgecmder.NewPurgeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// Package ingestcmder provides the ingest command for chunking, embedding
// and indexing documents from the configured blob store.
package ingestcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	blobstoreutils "github.com/papercomputeco/stacks/pkg/blobstore/utils"
	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/stacks/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/stacks/pkg/eventstream/utils"
	indexutils "github.com/papercomputeco/stacks/pkg/index/utils"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/logger"
)

type ingestCommander struct {
	indexProvider   string
	indexTarget     string
	indexCollection string

	storeProvider string
	storeTarget   string
	storePrefix   string

	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint

	partitionKey string
	chunkSize    uint
	chunkOverlap uint
	concurrency  uint

	debug     bool
	configDir string
	v         *viper.Viper
	logger    *zap.Logger
}

const ingestLongDesc string = `Chunk, embed and index documents from the configured blob store.

Without arguments, every supported document in the store is ingested.
With a document name, only that document is ingested. Documents that
were previously indexed keep their old records; delete them first with
stacks purge <name> to re-index from scratch.

Examples:
  stacks ingest
  stacks ingest handbook.docx
  stacks ingest --store-target ./docs --index-provider qdrant --index-target localhost`

const ingestShortDesc string = "Chunk, embed and index documents"

var ingestFlags = []string{
	config.FlagIndexProv,
	config.FlagIndexTgt,
	config.FlagIndexColl,
	config.FlagStoreProv,
	config.FlagStoreTgt,
	config.FlagStorePrefix,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagPartitionKey,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagConcurrency,
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "ingest [document]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, fs, ingestFlags)
			cmder.v = v

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			document := ""
			if len(args) == 1 {
				document = args[0]
			}
			return cmder.run(cmd.Context(), document)
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagIndexProv, &cmder.indexProvider)
	config.AddStringFlag(cmd, fs, config.FlagIndexTgt, &cmder.indexTarget)
	config.AddStringFlag(cmd, fs, config.FlagIndexColl, &cmder.indexCollection)
	config.AddStringFlag(cmd, fs, config.FlagStoreProv, &cmder.storeProvider)
	config.AddStringFlag(cmd, fs, config.FlagStoreTgt, &cmder.storeTarget)
	config.AddStringFlag(cmd, fs, config.FlagStorePrefix, &cmder.storePrefix)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, fs, config.FlagPartitionKey, &cmder.partitionKey)
	config.AddUintFlag(cmd, fs, config.FlagChunkSize, &cmder.chunkSize)
	config.AddUintFlag(cmd, fs, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddUintFlag(cmd, fs, config.FlagConcurrency, &cmder.concurrency)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, document string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	pipeline, cleanup, err := c.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var reports []ingest.Report
	err = cliui.Step(os.Stdout, "Ingesting documents", func() error {
		if document != "" {
			report, err := pipeline.IngestByName(ctx, document)
			if err != nil {
				return err
			}
			reports = []ingest.Report{report}
			return nil
		}

		var err error
		reports, err = pipeline.IngestAll(ctx)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println()
	for _, report := range reports {
		printReport(report)
	}
	fmt.Printf("\n  %s Indexed %d document(s)\n\n", cliui.SuccessMark, len(reports))

	return nil
}

func printReport(report ingest.Report) {
	fmt.Printf("  %s  %s\n",
		cliui.KeyStyle.Render(report.Document),
		cliui.ValueStyle.Render(fmt.Sprintf("%d/%d chunks indexed", report.SucceededChunks, report.TotalChunks)),
	)
	for _, failure := range report.FailedChunks {
		fmt.Printf("    %s chunk %d: %v\n", cliui.FailMark, failure.Ordinal, failure.Cause)
	}
}

func (c *ingestCommander) buildPipeline(ctx context.Context) (*ingest.Pipeline, func(), error) {
	driver, err := indexutils.NewDriver(ctx, &indexutils.NewDriverOpts{
		ProviderType: c.v.GetString("index.provider"),
		TargetURL:    c.v.GetString("index.target"),
		Collection:   c.v.GetString("index.collection"),
		Dimensions:   c.v.GetInt("embedding.dimensions"),
		Logger:       c.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating index driver: %w", err)
	}

	inner, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.v.GetString("embedding.provider"),
		TargetURL:    c.v.GetString("embedding.target"),
		Model:        c.v.GetString("embedding.model"),
		APIKey:       c.v.GetString("embedding.api_key"),
	})
	if err != nil {
		driver.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}
	embedder := embeddings.NewRetrying(inner, embeddings.RetryConfig{}, c.logger)

	store, err := blobstoreutils.NewStore(ctx, &blobstoreutils.NewStoreOpts{
		ProviderType: c.v.GetString("blob_store.provider"),
		Target:       c.v.GetString("blob_store.target"),
		Prefix:       c.v.GetString("blob_store.prefix"),
		Logger:       c.logger,
	})
	if err != nil {
		embedder.Close()
		driver.Close()
		return nil, nil, fmt.Errorf("creating blob store: %w", err)
	}

	events, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.v.GetString("events.provider"),
		Brokers:      c.v.GetStringSlice("events.brokers"),
		Topic:        c.v.GetString("events.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		store.Close()
		embedder.Close()
		driver.Close()
		return nil, nil, fmt.Errorf("creating event publisher: %w", err)
	}

	splitter, err := chunker.NewSplitter(chunker.Config{
		ChunkSize:    c.v.GetInt("ingest.chunk_size"),
		ChunkOverlap: c.v.GetInt("ingest.chunk_overlap"),
	})
	if err != nil {
		events.Close()
		store.Close()
		embedder.Close()
		driver.Close()
		return nil, nil, fmt.Errorf("creating splitter: %w", err)
	}

	pipeline := ingest.NewPipeline(store, splitter, embedder, driver, events, ingest.Config{
		PartitionKey: c.v.GetString("ingest.partition_key"),
		Concurrency:  c.v.GetInt("ingest.concurrency"),
		Dimensions:   c.v.GetInt("embedding.dimensions"),
	}, c.logger)

	cleanup := func() {
		events.Close()
		store.Close()
		embedder.Close()
		driver.Close()
	}

	return pipeline, cleanup, nil
}

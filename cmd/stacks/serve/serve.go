// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/api/mcp"
	blobstoreutils "github.com/papercomputeco/stacks/pkg/blobstore/utils"
	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/stacks/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/stacks/pkg/eventstream/utils"
	indexutils "github.com/papercomputeco/stacks/pkg/index/utils"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/logger"
)

type serveCommander struct {
	listen string

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

	eventsProvider string
	eventsTopic    string

	watch bool
	noMCP bool

	debug     bool
	configDir string
	v         *viper.Viper
	logger    *zap.Logger
}

const serveLongDesc string = `Run the Stacks API server.

Serves search, ingestion and document management endpoints, plus an MCP
endpoint at /mcp for agent integrations. Configuration is resolved from
CLI flags, STACKS_* environment variables, and the .stacks/config.toml
file, in that order of precedence.

Examples:
  stacks serve
  stacks serve --listen :9090 --index-provider qdrant --index-target localhost
  stacks serve --watch
  STACKS_EMBEDDING_MODEL=nomic-embed-text stacks serve`

const serveShortDesc string = "Run the Stacks API server"

// serveFlags lists the registry keys for every flag the serve command binds.
var serveFlags = []string{
	config.FlagAPIListen,
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
	config.FlagEventsProv,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, fs, serveFlags)
			cmder.v = v

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
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
	config.AddStringFlag(cmd, fs, config.FlagEventsProv, &cmder.eventsProvider)
	config.AddStringFlag(cmd, fs, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Watch the local document directory and re-index on change")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP endpoint")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	driver, err := indexutils.NewDriver(ctx, &indexutils.NewDriverOpts{
		ProviderType: c.v.GetString("index.provider"),
		TargetURL:    c.v.GetString("index.target"),
		Collection:   c.v.GetString("index.collection"),
		Dimensions:   c.v.GetInt("embedding.dimensions"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating index driver: %w", err)
	}
	defer driver.Close()

	inner, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.v.GetString("embedding.provider"),
		TargetURL:    c.v.GetString("embedding.target"),
		Model:        c.v.GetString("embedding.model"),
		APIKey:       c.v.GetString("embedding.api_key"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	embedder := embeddings.NewRetrying(inner, embeddings.RetryConfig{}, c.logger)
	defer embedder.Close()

	store, err := blobstoreutils.NewStore(ctx, &blobstoreutils.NewStoreOpts{
		ProviderType: c.v.GetString("blob_store.provider"),
		Target:       c.v.GetString("blob_store.target"),
		Prefix:       c.v.GetString("blob_store.prefix"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}
	defer store.Close()

	events, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.v.GetString("events.provider"),
		Brokers:      c.v.GetStringSlice("events.brokers"),
		Topic:        c.v.GetString("events.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer events.Close()

	splitter, err := chunker.NewSplitter(chunker.Config{
		ChunkSize:    c.v.GetInt("ingest.chunk_size"),
		ChunkOverlap: c.v.GetInt("ingest.chunk_overlap"),
	})
	if err != nil {
		return fmt.Errorf("creating splitter: %w", err)
	}

	pipeline := ingest.NewPipeline(store, splitter, embedder, driver, events, ingest.Config{
		PartitionKey: c.v.GetString("ingest.partition_key"),
		Concurrency:  c.v.GetInt("ingest.concurrency"),
		Dimensions:   c.v.GetInt("embedding.dimensions"),
	}, c.logger)

	mcpServer, err := mcp.NewServer(mcp.Config{
		IndexDriver: driver,
		Embedder:    embedder,
		Noop:        c.noMCP,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer := api.NewServer(api.Config{
		ListenAddr:  c.v.GetString("api.listen"),
		IndexDriver: driver,
		Embedder:    embedder,
		Store:       store,
	}, pipeline, mcpServer, c.logger)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	if c.watch {
		if c.v.GetString("blob_store.provider") != "local" {
			return fmt.Errorf("--watch requires the local blob store provider")
		}

		watcher, err := ingest.NewWatcher(pipeline, c.v.GetString("blob_store.target"), c.logger)
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}

		go func() {
			if err := watcher.Run(watchCtx); err != nil {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancelWatch()
		return apiServer.Shutdown()
	}
}

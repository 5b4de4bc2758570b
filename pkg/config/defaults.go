package config

const (
	defaultAPIListen       = ":8080"
	defaultClientAPITarget = "http://localhost:8080"

	defaultIndexProvider = "sqlitevec"

	defaultBlobStoreProvider = "local"
	defaultBlobStoreTarget   = "./documents"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultPartitionKey = "stacks"
	defaultChunkSize    = 500
	defaultChunkOverlap = 5
	defaultConcurrency  = 4

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "stacks.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Index: IndexConfig{
			Provider: defaultIndexProvider,
		},
		BlobStore: BlobStoreConfig{
			Provider: defaultBlobStoreProvider,
			Target:   defaultBlobStoreTarget,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Ingest: IngestConfig{
			PartitionKey: defaultPartitionKey,
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			Concurrency:  defaultConcurrency,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}

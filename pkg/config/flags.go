package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --index-target
// on both "stacks serve" and "stacks ingest").
type Flag struct {
	// Name is the long flag name (e.g. "index-target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "index.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen      = "api-listen"
	FlagIndexProv      = "index-provider"
	FlagIndexTgt       = "index-target"
	FlagIndexColl      = "index-collection"
	FlagStoreProv      = "store-provider"
	FlagStoreTgt       = "store-target"
	FlagStorePrefix    = "store-prefix"
	FlagEmbeddingProv  = "embedding-provider"
	FlagEmbeddingTgt   = "embedding-target"
	FlagEmbeddingModel = "embedding-model"
	FlagEmbeddingDims  = "embedding-dimensions"
	FlagPartitionKey   = "partition-key"
	FlagChunkSize      = "chunk-size"
	FlagChunkOverlap   = "chunk-overlap"
	FlagConcurrency    = "concurrency"
	FlagEventsProv     = "events-provider"
	FlagEventsTopic    = "events-topic"
)

// DefaultFlagSet returns the shared flag registry used by the stacks commands.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagAPIListen: {
			Name: "listen", Shorthand: "l", ViperKey: "api.listen",
			Description: "Address for the API server to listen on",
		},
		FlagIndexProv: {
			Name: "index-provider", ViperKey: "index.provider",
			Description: "Index driver (memory, chroma, qdrant, pgvector, sqlitevec)",
		},
		FlagIndexTgt: {
			Name: "index-target", ViperKey: "index.target",
			Description: "Index target (URL, host, DSN or database path, by provider)",
		},
		FlagIndexColl: {
			Name: "index-collection", ViperKey: "index.collection",
			Description: "Index collection or table name",
		},
		FlagStoreProv: {
			Name: "store-provider", ViperKey: "blob_store.provider",
			Description: "Blob store provider (local, gcs)",
		},
		FlagStoreTgt: {
			Name: "store-target", ViperKey: "blob_store.target",
			Description: "Blob store target (directory path or bucket name)",
		},
		FlagStorePrefix: {
			Name: "store-prefix", ViperKey: "blob_store.prefix",
			Description: "Object name prefix to restrict bucket listing",
		},
		FlagEmbeddingProv: {
			Name: "embedding-provider", ViperKey: "embedding.provider",
			Description: "Embedding provider (ollama, openai)",
		},
		FlagEmbeddingTgt: {
			Name: "embedding-target", ViperKey: "embedding.target",
			Description: "Embedding provider URL",
		},
		FlagEmbeddingModel: {
			Name: "embedding-model", ViperKey: "embedding.model",
			Description: "Embedding model name",
		},
		FlagEmbeddingDims: {
			Name: "embedding-dimensions", ViperKey: "embedding.dimensions",
			Description: "Embedding vector dimensions",
		},
		FlagPartitionKey: {
			Name: "partition-key", ViperKey: "ingest.partition_key",
			Description: "Partition key stamped on every record",
		},
		FlagChunkSize: {
			Name: "chunk-size", ViperKey: "ingest.chunk_size",
			Description: "Maximum chunk size in characters",
		},
		FlagChunkOverlap: {
			Name: "chunk-overlap", ViperKey: "ingest.chunk_overlap",
			Description: "Characters shared between adjacent chunks",
		},
		FlagConcurrency: {
			Name: "concurrency", ViperKey: "ingest.concurrency",
			Description: "Concurrent chunk embeddings per document",
		},
		FlagEventsProv: {
			Name: "events-provider", ViperKey: "events.provider",
			Description: "Event stream provider (nop, kafka)",
		},
		FlagEventsTopic: {
			Name: "events-topic", ViperKey: "events.topic",
			Description: "Event stream topic",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

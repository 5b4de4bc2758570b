package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent stacks configuration stored as config.toml
// in the .stacks/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	API       APIConfig       `toml:"api"`
	Client    ClientConfig    `toml:"client"`
	Index     IndexConfig     `toml:"index"`
	BlobStore BlobStoreConfig `toml:"blob_store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Ingest    IngestConfig    `toml:"ingest"`
	Events    EventsConfig    `toml:"events"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. stacks search). The value is a full URL.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// IndexConfig holds index driver settings. Target is the server URL for
// chroma, the host for qdrant, the DSN for pgvector and the database path
// for sqlitevec.
type IndexConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// BlobStoreConfig holds document store settings. Target is the directory
// path for local and the bucket name for gcs.
type BlobStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Prefix   string `toml:"prefix,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// IngestConfig holds chunking and pipeline settings.
type IngestConfig struct {
	PartitionKey string `toml:"partition_key,omitempty"`
	ChunkSize    uint   `toml:"chunk_size,omitempty"`
	ChunkOverlap uint   `toml:"chunk_overlap,omitempty"`
	Concurrency  uint   `toml:"concurrency,omitempty"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(get func(c *Config) uint, set func(c *Config, n uint)) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid numeric value %q: %w", v, err)
			}
			set(c, uint(n))
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"index.provider": {
		get: func(c *Config) string { return c.Index.Provider },
		set: func(c *Config, v string) error { c.Index.Provider = v; return nil },
	},
	"index.target": {
		get: func(c *Config) string { return c.Index.Target },
		set: func(c *Config, v string) error { c.Index.Target = v; return nil },
	},
	"index.collection": {
		get: func(c *Config) string { return c.Index.Collection },
		set: func(c *Config, v string) error { c.Index.Collection = v; return nil },
	},
	"blob_store.provider": {
		get: func(c *Config) string { return c.BlobStore.Provider },
		set: func(c *Config, v string) error { c.BlobStore.Provider = v; return nil },
	},
	"blob_store.target": {
		get: func(c *Config) string { return c.BlobStore.Target },
		set: func(c *Config, v string) error { c.BlobStore.Target = v; return nil },
	},
	"blob_store.prefix": {
		get: func(c *Config) string { return c.BlobStore.Prefix },
		set: func(c *Config, v string) error { c.BlobStore.Prefix = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": uintKey(
		func(c *Config) uint { return c.Embedding.Dimensions },
		func(c *Config, n uint) { c.Embedding.Dimensions = n },
	),
	"ingest.partition_key": {
		get: func(c *Config) string { return c.Ingest.PartitionKey },
		set: func(c *Config, v string) error { c.Ingest.PartitionKey = v; return nil },
	},
	"ingest.chunk_size": uintKey(
		func(c *Config) uint { return c.Ingest.ChunkSize },
		func(c *Config, n uint) { c.Ingest.ChunkSize = n },
	),
	"ingest.chunk_overlap": uintKey(
		func(c *Config) uint { return c.Ingest.ChunkOverlap },
		func(c *Config, n uint) { c.Ingest.ChunkOverlap = n },
	),
	"ingest.concurrency": uintKey(
		func(c *Config) uint { return c.Ingest.Concurrency },
		func(c *Config, n uint) { c.Ingest.Concurrency = n },
	),
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

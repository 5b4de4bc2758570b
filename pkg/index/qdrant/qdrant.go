// Package qdrant provides a Qdrant-backed index driver implementation over
// the official gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/index"
)

const (
	// DefaultCollectionName is the default collection name for storing
	// document chunk records.
	DefaultCollectionName = "stacks"

	// DefaultPort is the Qdrant gRPC port.
	DefaultPort = 6334
)

// Driver implements index.Driver using Qdrant.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant server host (e.g., "localhost").
	Host string

	// Port is the Qdrant gRPC port. Defaults to DefaultPort if zero.
	Port int

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding vector size, required to create the
	// collection on first use.
	Dimensions uint64
}

// NewDriver creates a new Qdrant index driver, creating the collection with
// cosine distance if it does not exist yet.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("%w: qdrant host is required", index.ErrConnection)
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: qdrant embedding dimensions cannot be 0, must be configured", index.ErrConnection)
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: c.Host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", index.ErrConnection, err)
	}

	d := &Driver{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}

	if err := d.ensureCollection(context.Background(), c.Dimensions); err != nil {
		return nil, err
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collectionName),
	)

	return d, nil
}

// ensureCollection creates the collection when missing. Cosine distance is
// used so scores arrive higher-is-better.
func (d *Driver) ensureCollection(ctx context.Context, dimensions uint64) error {
	exists, err := d.client.CollectionExists(ctx, d.collectionName)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", index.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", index.ErrConnection, d.collectionName, err)
	}

	return nil
}

// Add stores records with their embeddings.
func (d *Driver) Add(ctx context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, record := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(record.ID),
			Vectors: qdrant.NewVectors(record.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"partition_key": record.PartitionKey,
				"contents":      record.Contents,
				"file_name":     record.FileName,
				"url":           record.URL,
				"created_at":    record.CreatedAt.UTC().Format(time.RFC3339Nano),
			}),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", index.ErrWrite, len(points), err)
	}

	d.logger.Debug("added records to qdrant",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK records most similar to the given embedding with
// score strictly above minScore.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]index.ScoredRecord, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		ScoreThreshold: qdrant.PtrOf(minScore),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrQuery, err)
	}

	results := make([]index.ScoredRecord, 0, len(points))
	for _, point := range points {
		// The server threshold is inclusive; the contract is strict.
		if point.Score <= minScore {
			continue
		}

		result := index.ScoredRecord{Score: point.Score}
		result.ID = point.Id.GetUuid()

		payload := point.Payload
		if v, ok := payload["partition_key"]; ok {
			result.PartitionKey = v.GetStringValue()
		}
		if v, ok := payload["contents"]; ok {
			result.Contents = v.GetStringValue()
		}
		if v, ok := payload["file_name"]; ok {
			result.FileName = v.GetStringValue()
		}
		if v, ok := payload["url"]; ok {
			result.URL = v.GetStringValue()
		}
		if v, ok := payload["created_at"]; ok {
			if ts, err := time.Parse(time.RFC3339Nano, v.GetStringValue()); err == nil {
				result.CreatedAt = ts
			}
		}

		results = append(results, result)
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteBySource removes all records whose file_name payload matches.
func (d *Driver) DeleteBySource(ctx context.Context, fileName string) (int, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("file_name", fileName),
		},
	}

	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collectionName,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", index.ErrWrite, err)
	}

	if count == 0 {
		return 0, nil
	}

	_, err = d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collectionName,
		Points:         qdrant.NewPointsSelectorFilter(filter),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: deleting points: %v", index.ErrWrite, err)
	}

	d.logger.Debug("deleted records from qdrant",
		zap.String("file_name", fileName),
		zap.Uint64("count", count),
	)

	return int(count), nil
}

// DeleteAll removes every record in the collection.
func (d *Driver) DeleteAll(ctx context.Context) (int, error) {
	all := &qdrant.Filter{}

	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collectionName,
		Filter:         all,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", index.ErrWrite, err)
	}

	if count == 0 {
		return 0, nil
	}

	_, err = d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collectionName,
		Points:         qdrant.NewPointsSelectorFilter(all),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: deleting points: %v", index.ErrWrite, err)
	}

	return int(count), nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ensure Driver implements index.Driver
var _ index.Driver = (*Driver)(nil)

// Package pgvector provides a PostgreSQL-backed index driver using the
// pgvector extension for similarity search.
package pgvector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/index"
)

// DefaultTableName is the default table for storing document chunk records.
const DefaultTableName = "stacks_records"

// Driver implements index.Driver on top of PostgreSQL with pgvector.
type Driver struct {
	pool      *pgxpool.Pool
	tableName string
	logger    *zap.Logger
}

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// TableName is the table to store records in. Defaults to
	// DefaultTableName if empty.
	TableName string

	// Dimensions is the embedding vector size, required to create the
	// table on first use.
	Dimensions int
}

// NewDriver connects to PostgreSQL, ensures the pgvector extension and the
// records table exist, and returns a ready driver.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.DSN == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", index.ErrConnection)
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: pgvector embedding dimensions cannot be 0, must be configured", index.ErrConnection)
	}

	tableName := c.TableName
	if tableName == "" {
		tableName = DefaultTableName
	}

	pool, err := pgxpool.New(ctx, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %v", index.ErrConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging postgres: %v", index.ErrConnection, err)
	}

	d := &Driver{
		pool:      pool,
		tableName: tableName,
		logger:    logger,
	}

	if err := d.ensureSchema(ctx, c.Dimensions); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres with pgvector",
		zap.String("table", tableName),
	)

	return d, nil
}

func (d *Driver) ensureSchema(ctx context.Context, dimensions int) error {
	if _, err := d.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("%w: creating vector extension: %v", index.ErrConnection, err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			partition_key TEXT NOT NULL,
			contents TEXT NOT NULL,
			file_name TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			embedding vector(%d) NOT NULL
		)`, d.tableName, dimensions)
	if _, err := d.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: creating table %s: %v", index.ErrConnection, d.tableName, err)
	}

	idx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_file_name_idx ON %s (file_name)`,
		d.tableName, d.tableName,
	)
	if _, err := d.pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("%w: creating file_name index: %v", index.ErrConnection, err)
	}

	return nil
}

// Add stores records with their embeddings.
func (d *Driver) Add(ctx context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s (id, partition_key, contents, file_name, url, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		ON CONFLICT (id) DO UPDATE SET
			partition_key = EXCLUDED.partition_key,
			contents = EXCLUDED.contents,
			file_name = EXCLUDED.file_name,
			url = EXCLUDED.url,
			created_at = EXCLUDED.created_at,
			embedding = EXCLUDED.embedding`, d.tableName)

	for _, record := range records {
		_, err := d.pool.Exec(ctx, sql,
			record.ID,
			record.PartitionKey,
			record.Contents,
			record.FileName,
			record.URL,
			record.CreatedAt,
			vectorLiteral(record.Embedding),
		)
		if err != nil {
			return fmt.Errorf("%w: inserting record %s: %v", index.ErrWrite, record.ID, err)
		}
	}

	d.logger.Debug("added records to pgvector",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK records most similar to the given embedding with
// score strictly above minScore. Cosine distance from the <=> operator is
// converted to similarity as 1 - distance.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]index.ScoredRecord, error) {
	if topK <= 0 {
		topK = 10
	}

	sql := fmt.Sprintf(`
		SELECT id, partition_key, contents, file_name, url, created_at,
			1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		WHERE 1 - (embedding <=> $1::vector) > $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`, d.tableName)

	rows, err := d.pool.Query(ctx, sql, vectorLiteral(embedding), minScore, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrQuery, err)
	}
	defer rows.Close()

	var results []index.ScoredRecord
	for rows.Next() {
		var r index.ScoredRecord
		var similarity float64
		err := rows.Scan(&r.ID, &r.PartitionKey, &r.Contents, &r.FileName, &r.URL, &r.CreatedAt, &similarity)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", index.ErrQuery, err)
		}
		r.Score = float32(similarity)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrQuery, err)
	}

	d.logger.Debug("queried pgvector",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteBySource removes all records with the given file name.
func (d *Driver) DeleteBySource(ctx context.Context, fileName string) (int, error) {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE file_name = $1`, d.tableName)

	tag, err := d.pool.Exec(ctx, sql, fileName)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting records for %s: %v", index.ErrWrite, fileName, err)
	}

	deleted := int(tag.RowsAffected())

	d.logger.Debug("deleted records from pgvector",
		zap.String("file_name", fileName),
		zap.Int("count", deleted),
	)

	return deleted, nil
}

// DeleteAll removes every record in the table.
func (d *Driver) DeleteAll(ctx context.Context) (int, error) {
	sql := fmt.Sprintf(`DELETE FROM %s`, d.tableName)

	tag, err := d.pool.Exec(ctx, sql)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting all records: %v", index.ErrWrite, err)
	}

	return int(tag.RowsAffected()), nil
}

// Close releases the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// vectorLiteral renders an embedding in pgvector's text input format,
// e.g. "[0.1,0.2,0.3]".
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Ensure Driver implements index.Driver
var _ index.Driver = (*Driver)(nil)

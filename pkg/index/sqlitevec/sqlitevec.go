// Package sqlitevec provides a SQLite-backed index driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/index"
)

// Driver implements index.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite index driver backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("%w: database path is required", index.ErrConnection)
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, fmt.Errorf("%w: sqlite-vec embedding dimensions cannot be 0, must be configured", index.ErrConnection)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", index.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", index.ErrConnection, err)
	}

	// Record metadata lives in a regular table; vec0 virtual tables use
	// integer rowids, so the records table provides the mapping from
	// string record IDs to rowids.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL UNIQUE,
			partition_key TEXT NOT NULL,
			contents TEXT NOT NULL,
			file_name TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating records table: %v", index.ErrConnection, err)
	}

	// Create the vec0 virtual table for vector storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating vec0 table: %v", index.ErrConnection, err)
	}

	logger.Info("sqlite-vec index driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add stores records with their embeddings.
// If a record with the same ID already exists, it is updated.
func (d *Driver) Add(ctx context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", index.ErrWrite, err)
	}
	defer tx.Rollback()

	for _, record := range records {
		embBlob := serializeFloat32(record.Embedding)
		createdAt := record.CreatedAt.UTC().Format(time.RFC3339Nano)

		// Check if record already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM records WHERE record_id = ?`, record.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			// Record exists — update metadata and embedding
			if _, err := tx.ExecContext(ctx,
				`UPDATE records SET partition_key = ?, contents = ?, file_name = ?, url = ?, created_at = ? WHERE rowid = ?`,
				record.PartitionKey, record.Contents, record.FileName, record.URL, createdAt, existingRowID,
			); err != nil {
				return fmt.Errorf("%w: updating record %s: %v", index.ErrWrite, record.ID, err)
			}

			// Update embedding in vec0 table via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("%w: deleting old embedding for record %s: %v", index.ErrWrite, record.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: re-inserting embedding for record %s: %v", index.ErrWrite, record.ID, err)
			}
		case sql.ErrNoRows:
			// New record — insert into records table first to get the rowid
			result, err := tx.ExecContext(ctx,
				`INSERT INTO records(record_id, partition_key, contents, file_name, url, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				record.ID, record.PartitionKey, record.Contents, record.FileName, record.URL, createdAt,
			)
			if err != nil {
				return fmt.Errorf("%w: inserting record %s: %v", index.ErrWrite, record.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("%w: getting rowid for record %s: %v", index.ErrWrite, record.ID, err)
			}

			// Insert embedding into vec0 table with matching rowid
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: inserting embedding for record %s: %v", index.ErrWrite, record.ID, err)
			}
		default:
			return fmt.Errorf("%w: checking for existing record %s: %v", index.ErrWrite, record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", index.ErrWrite, err)
	}

	d.logger.Debug("added records to sqlite-vec",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK records most similar to the given embedding with
// score strictly above minScore. The L2 distance from vec0 is converted to
// similarity as 1 / (1 + distance) so higher is better.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]index.ScoredRecord, error) {
	if topK <= 0 {
		topK = 10
	}

	queryBlob := serializeFloat32(embedding)

	// KNN query via vec0 MATCH, then JOIN back to record metadata.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			r.record_id,
			r.partition_key,
			r.contents,
			r.file_name,
			r.url,
			r.created_at,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN records r ON r.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrQuery, err)
	}
	defer rows.Close()

	var results []index.ScoredRecord
	for rows.Next() {
		var r index.ScoredRecord
		var createdAt string
		var distance float64
		if err := rows.Scan(&r.ID, &r.PartitionKey, &r.Contents, &r.FileName, &r.URL, &createdAt, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning query result: %v", index.ErrQuery, err)
		}

		// Convert distance to similarity score: lower distance = higher similarity
		r.Score = float32(1.0 / (1.0 + distance))
		if r.Score <= minScore {
			continue
		}

		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = ts
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query results: %v", index.ErrQuery, err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteBySource removes all records with the given file name.
func (d *Driver) DeleteBySource(ctx context.Context, fileName string) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %v", index.ErrWrite, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid FROM records WHERE file_name = ?`, fileName,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: querying rowids for deletion: %v", index.ErrWrite, err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("%w: scanning rowid: %v", index.ErrWrite, err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%w: iterating rowids: %v", index.ErrWrite, err)
	}

	if err := deleteRows(ctx, tx, rowIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing transaction: %v", index.ErrWrite, err)
	}

	d.logger.Debug("deleted records from sqlite-vec",
		zap.String("file_name", fileName),
		zap.Int("count", len(rowIDs)),
	)

	return len(rowIDs), nil
}

// DeleteAll removes every record from the index.
func (d *Driver) DeleteAll(ctx context.Context) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %v", index.ErrWrite, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT rowid FROM records`)
	if err != nil {
		return 0, fmt.Errorf("%w: querying rowids for deletion: %v", index.ErrWrite, err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("%w: scanning rowid: %v", index.ErrWrite, err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%w: iterating rowids: %v", index.ErrWrite, err)
	}

	if err := deleteRows(ctx, tx, rowIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing transaction: %v", index.ErrWrite, err)
	}

	return len(rowIDs), nil
}

// deleteRows removes the given rowids from both the vec0 table and the
// records table inside an open transaction.
func deleteRows(ctx context.Context, tx *sql.Tx, rowIDs []int64) error {
	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("%w: deleting embedding rowid %d: %v", index.ErrWrite, rowID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM records WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("%w: deleting record rowid %d: %v", index.ErrWrite, rowID, err)
		}
	}
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements index.Driver
var _ index.Driver = (*Driver)(nil)

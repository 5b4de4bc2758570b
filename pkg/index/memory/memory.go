// Package memory provides an in-process index.Driver backed by a cosine
// similarity scan. It exists for tests and local development; it holds
// everything in RAM and never persists.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/stacks/pkg/index"
)

// Driver implements index.Driver using in-process data structures.
// Safe for concurrent use.
type Driver struct {
	mu      sync.RWMutex
	records []index.Record
}

// NewDriver creates an empty in-memory index driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Add stores records with their embeddings.
func (d *Driver) Add(_ context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, records...)
	return nil
}

// Query scans all records and returns those with cosine similarity strictly
// greater than minScore, best first, at most topK.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int, minScore float32) ([]index.ScoredRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	results := make([]index.ScoredRecord, 0, len(d.records))
	for _, record := range d.records {
		score := cosine(embedding, record.Embedding)
		if score > minScore {
			results = append(results, index.ScoredRecord{Record: record, Score: score})
		}
	}

	// Stable keeps insertion order for tied scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// DeleteBySource removes all records originating from the named document.
func (d *Driver) DeleteBySource(_ context.Context, fileName string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.records[:0]
	removed := 0
	for _, record := range d.records {
		if record.FileName == fileName {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	d.records = kept

	return removed, nil
}

// DeleteAll removes every record.
func (d *Driver) DeleteAll(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := len(d.records)
	d.records = nil
	return removed, nil
}

// Close releases driver resources.
func (d *Driver) Close() error {
	return nil
}

// Len reports the number of stored records. Test helper.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Ensure Driver implements index.Driver
var _ index.Driver = (*Driver)(nil)

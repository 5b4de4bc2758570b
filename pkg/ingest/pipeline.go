// Package ingest runs the chunk, embed and index pipeline over documents
// from a blob store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/stacks/pkg/blobstore"
	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/extract"
	"github.com/papercomputeco/stacks/pkg/index"
	"github.com/papercomputeco/stacks/pkg/record"
)

// ErrAllChunksFailed indicates no chunk of a non-empty document could be
// embedded and indexed.
var ErrAllChunksFailed = errors.New("all chunks failed")

// DefaultConcurrency bounds how many chunks are embedded at once.
const DefaultConcurrency = 4

// ChunkFailure records one chunk that could not be indexed.
type ChunkFailure struct {
	// Ordinal is the chunk's position within the document.
	Ordinal int

	// Cause is the error that failed the chunk.
	Cause error
}

// Report summarizes the outcome of ingesting one document.
type Report struct {
	// Document is the source file name.
	Document string

	// URL is the stable address recorded on the document's records.
	URL string

	TotalChunks     int
	SucceededChunks int

	// FailedChunks lists failures in ordinal order.
	FailedChunks []ChunkFailure
}

// Config holds pipeline settings.
type Config struct {
	// PartitionKey is stamped on every record.
	PartitionKey string

	// Concurrency bounds concurrent chunk embedding.
	// Defaults to DefaultConcurrency if zero.
	Concurrency int

	// Dimensions, when non-zero, is enforced against every embedding.
	Dimensions int
}

// Pipeline ties the store, splitter, embedder, index and event stream into
// one ingestion flow.
type Pipeline struct {
	store    blobstore.Store
	splitter *chunker.Splitter
	embedder embeddings.Embedder
	index    index.Driver
	events   eventstream.Publisher
	config   Config
	logger   *zap.Logger
}

// NewPipeline creates an ingestion pipeline from its collaborators.
func NewPipeline(
	store blobstore.Store,
	splitter *chunker.Splitter,
	embedder embeddings.Embedder,
	driver index.Driver,
	events eventstream.Publisher,
	config Config,
	logger *zap.Logger,
) *Pipeline {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	return &Pipeline{
		store:    store,
		splitter: splitter,
		embedder: embedder,
		index:    driver,
		events:   events,
		config:   config,
		logger:   logger,
	}
}

// Ingest processes one document end to end: fetch, extract, chunk, embed and
// index. A chunk that fails to embed or to write does not abort the document;
// failures are reported per chunk. The document as a whole fails only on
// fetch or extract errors, or when it produced chunks and none were indexed.
func (p *Pipeline) Ingest(ctx context.Context, obj blobstore.Object) (Report, error) {
	report := Report{
		Document: obj.Name,
		URL:      obj.URL,
	}

	// Reject unsupported formats before paying for the fetch.
	if !extract.Supported(filepath.Ext(obj.Name)) {
		return report, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, obj.Name)
	}

	path, cleanup, err := p.store.Fetch(ctx, obj.Name)
	if err != nil {
		return report, fmt.Errorf("fetching %s: %w", obj.Name, err)
	}
	defer cleanup()

	text, err := extract.Extract(path)
	if err != nil {
		return report, fmt.Errorf("extracting %s: %w", obj.Name, err)
	}

	chunks := p.splitter.Split(text)
	report.TotalChunks = len(chunks)
	if len(chunks) == 0 {
		p.logger.Info("document produced no chunks",
			zap.String("document", obj.Name),
		)
		return report, nil
	}

	records := make([]*index.Record, len(chunks))
	failures := make([]error, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.config.Concurrency)

	meta := record.DocumentMeta{
		FileName: obj.Name,
		URL:      obj.URL,
	}

	for i, chunk := range chunks {
		group.Go(func() error {
			embedding, err := p.embedder.Embed(groupCtx, chunk.Text)
			if err != nil {
				// Cancellation aborts the document; anything else
				// fails only this chunk.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures[i] = err
				return nil
			}

			if p.config.Dimensions > 0 && len(embedding) != p.config.Dimensions {
				failures[i] = fmt.Errorf("embedding has %d dimensions, want %d", len(embedding), p.config.Dimensions)
				return nil
			}

			r, err := record.Build(chunk.Text, embedding, meta, p.config.PartitionKey)
			if err != nil {
				failures[i] = err
				return nil
			}

			records[i] = &r
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return report, err
	}

	// Write records one at a time so a store failure costs only that
	// chunk, not the document.
	for i, r := range records {
		if r == nil {
			continue
		}
		if err := p.index.Add(ctx, []index.Record{*r}); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			failures[i] = fmt.Errorf("indexing %s: %w", obj.Name, err)
			records[i] = nil
			continue
		}
		report.SucceededChunks++
	}

	for i, r := range records {
		if r != nil {
			continue
		}
		report.FailedChunks = append(report.FailedChunks, ChunkFailure{
			Ordinal: chunks[i].Ordinal,
			Cause:   failures[i],
		})
	}
	sort.Slice(report.FailedChunks, func(a, b int) bool {
		return report.FailedChunks[a].Ordinal < report.FailedChunks[b].Ordinal
	})

	if report.SucceededChunks == 0 && len(chunks) > 0 {
		return report, fmt.Errorf("%w: %s", ErrAllChunksFailed, obj.Name)
	}

	if err := p.publishIndexed(ctx, report); err != nil {
		// The document is indexed; a stream failure is not fatal.
		p.logger.Warn("failed to publish indexed event",
			zap.String("document", obj.Name),
			zap.Error(err),
		)
	}

	p.logger.Info("ingested document",
		zap.String("document", obj.Name),
		zap.Int("total_chunks", report.TotalChunks),
		zap.Int("succeeded_chunks", report.SucceededChunks),
		zap.Int("failed_chunks", len(report.FailedChunks)),
	)

	return report, nil
}

// IngestByName fetches the named object's listing entry and ingests it.
func (p *Pipeline) IngestByName(ctx context.Context, name string) (Report, error) {
	objects, err := p.store.List(ctx)
	if err != nil {
		return Report{Document: name}, fmt.Errorf("listing store: %w", err)
	}

	for _, obj := range objects {
		if obj.Name == name {
			return p.Ingest(ctx, obj)
		}
	}

	return Report{Document: name}, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
}

// IngestAll ingests every supported document in the store. Unsupported
// formats are skipped. A failing document does not stop the run; its error
// is logged and reflected in the returned reports.
func (p *Pipeline) IngestAll(ctx context.Context) ([]Report, error) {
	objects, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing store: %w", err)
	}

	reports := make([]Report, 0, len(objects))
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		if !extract.Supported(filepath.Ext(obj.Name)) {
			p.logger.Debug("skipping unsupported document",
				zap.String("document", obj.Name),
			)
			continue
		}

		report, err := p.Ingest(ctx, obj)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return reports, err
			}
			p.logger.Error("failed to ingest document",
				zap.String("document", obj.Name),
				zap.Error(err),
			)
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// Delete removes the named document's records from the index and publishes
// a deletion event.
func (p *Pipeline) Delete(ctx context.Context, fileName string) (int, error) {
	removed, err := p.index.DeleteBySource(ctx, fileName)
	if err != nil {
		return 0, fmt.Errorf("deleting records for %s: %w", fileName, err)
	}

	p.publishDeleted(ctx, fileName, removed)
	return removed, nil
}

// Purge removes every record from the index and publishes a deletion event.
func (p *Pipeline) Purge(ctx context.Context) (int, error) {
	removed, err := p.index.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("purging index: %w", err)
	}

	p.publishDeleted(ctx, "", removed)
	return removed, nil
}

func (p *Pipeline) publishIndexed(ctx context.Context, report Report) error {
	return p.events.Publish(ctx, eventstream.NewDocumentIndexed(eventstream.DocumentIndexedEvent{
		FileName:        report.Document,
		URL:             report.URL,
		TotalChunks:     report.TotalChunks,
		SucceededChunks: report.SucceededChunks,
		FailedChunks:    len(report.FailedChunks),
	}))
}

func (p *Pipeline) publishDeleted(ctx context.Context, fileName string, removed int) {
	err := p.events.Publish(ctx, eventstream.NewDocumentDeleted(eventstream.DocumentDeletedEvent{
		FileName:       fileName,
		RecordsDeleted: removed,
	}))
	if err != nil {
		p.logger.Warn("failed to publish deleted event",
			zap.String("document", fileName),
			zap.Error(err),
		)
	}
}

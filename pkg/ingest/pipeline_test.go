package ingest_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/blobstore"
	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/extract"
	"github.com/papercomputeco/stacks/pkg/ingest"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
)

var _ = Describe("Pipeline", func() {
	var (
		store    *testutils.MockStore
		embedder *testutils.MockEmbedder
		driver   *testutils.MockIndexDriver
		events   *testutils.MockPublisher
		pipeline *ingest.Pipeline
		ctx      context.Context
	)

	// Three paragraphs of at most ten characters each; with ChunkSize 10
	// and no overlap the splitter emits one chunk per paragraph.
	const threeParagraphs = "alpha\n\nbravo\n\ncharlie"

	newPipeline := func(cfg ingest.Config) *ingest.Pipeline {
		splitter, err := chunker.NewSplitter(chunker.Config{
			ChunkSize:    10,
			ChunkOverlap: 0,
		})
		Expect(err).NotTo(HaveOccurred())

		return ingest.NewPipeline(store, splitter, embedder, driver, events, cfg, zap.NewNop())
	}

	object := func(name string) blobstore.Object {
		return blobstore.Object{Name: name, URL: "mock://" + name}
	}

	BeforeEach(func() {
		store = testutils.NewMockStore(GinkgoT().TempDir())
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockIndexDriver()
		events = testutils.NewMockPublisher()
		ctx = context.Background()

		pipeline = newPipeline(ingest.Config{
			PartitionKey: "stacks",
			Dimensions:   3,
		})
	})

	Describe("Ingest", func() {
		It("chunks, embeds and indexes a document", func() {
			store.Contents["doc.txt"] = threeParagraphs

			report, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalChunks).To(Equal(3))
			Expect(report.SucceededChunks).To(Equal(3))
			Expect(report.FailedChunks).To(BeEmpty())

			Expect(driver.Records).To(HaveLen(3))
			for _, r := range driver.Records {
				Expect(r.ID).NotTo(BeEmpty())
				Expect(r.PartitionKey).To(Equal("stacks"))
				Expect(r.FileName).To(Equal("doc.txt"))
				Expect(r.URL).To(Equal("mock://doc.txt"))
				Expect(r.Embedding).To(HaveLen(3))
			}
		})

		It("publishes a document indexed event", func() {
			store.Contents["doc.txt"] = threeParagraphs

			_, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).NotTo(HaveOccurred())

			Expect(events.Events).To(HaveLen(1))
			Expect(events.Events[0].Type).To(Equal(eventstream.TypeDocumentIndexed))
			payload, ok := events.Events[0].Payload.(eventstream.DocumentIndexedEvent)
			Expect(ok).To(BeTrue())
			Expect(payload.FileName).To(Equal("doc.txt"))
			Expect(payload.SucceededChunks).To(Equal(3))
		})

		It("ingests a document fetched under a generated temp name", func() {
			// Bucket-backed stores download objects into temp files;
			// format detection must still see the extension.
			store.TempNames = true
			store.Contents["doc.txt"] = threeParagraphs

			report, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.SucceededChunks).To(Equal(3))
			Expect(driver.Records).To(HaveLen(3))
		})

		It("keeps going when a single chunk fails", func() {
			store.Contents["doc.txt"] = threeParagraphs
			embedder.FailOn = "bravo"

			report, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalChunks).To(Equal(3))
			Expect(report.SucceededChunks).To(Equal(2))
			Expect(report.FailedChunks).To(HaveLen(1))
			Expect(report.FailedChunks[0].Ordinal).To(Equal(1))
			Expect(report.FailedChunks[0].Cause).To(HaveOccurred())

			Expect(driver.Records).To(HaveLen(2))
		})

		It("fails the document when every chunk fails", func() {
			store.Contents["doc.txt"] = threeParagraphs
			// Every paragraph contains the letter a.
			embedder.FailOn = "a"

			report, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).To(MatchError(ingest.ErrAllChunksFailed))
			Expect(report.FailedChunks).To(HaveLen(3))
			Expect(driver.Records).To(BeEmpty())
			Expect(events.Events).To(BeEmpty())
		})

		It("keeps going when a single record fails to write", func() {
			store.Contents["doc.txt"] = threeParagraphs
			driver.AddFailOn = "bravo"

			report, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalChunks).To(Equal(3))
			Expect(report.SucceededChunks).To(Equal(2))
			Expect(report.FailedChunks).To(HaveLen(1))
			Expect(report.FailedChunks[0].Ordinal).To(Equal(1))
			Expect(report.FailedChunks[0].Cause).To(HaveOccurred())

			Expect(driver.Records).To(HaveLen(2))
		})

		It("fails the document when every record fails to write", func() {
			store.Contents["doc.txt"] = threeParagraphs
			driver.AddErr = errors.New("store unavailable")

			report, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).To(MatchError(ingest.ErrAllChunksFailed))
			Expect(report.SucceededChunks).To(Equal(0))
			Expect(report.FailedChunks).To(HaveLen(3))
			for _, f := range report.FailedChunks {
				Expect(f.Cause).To(MatchError(driver.AddErr))
			}
			Expect(events.Events).To(BeEmpty())
		})

		It("rejects an unsupported format before fetching", func() {
			// Nothing named doc.png exists in the store; a fetch
			// attempt would fail with ErrNotFound instead.
			_, err := pipeline.Ingest(ctx, object("doc.png"))
			Expect(err).To(MatchError(extract.ErrUnsupportedFormat))
		})

		It("treats a dimension mismatch as a chunk failure", func() {
			store.Contents["doc.txt"] = threeParagraphs
			embedder.Embeddings["bravo\n\n"] = []float32{0.1, 0.2}

			report, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.SucceededChunks).To(Equal(2))
			Expect(report.FailedChunks).To(HaveLen(1))
			Expect(report.FailedChunks[0].Ordinal).To(Equal(1))
		})

		It("succeeds with no records for an empty document", func() {
			store.Contents["empty.txt"] = ""

			report, err := pipeline.Ingest(ctx, object("empty.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalChunks).To(Equal(0))
			Expect(driver.Records).To(BeEmpty())
		})

		It("fails when the document cannot be fetched", func() {
			_, err := pipeline.Ingest(ctx, object("missing.txt"))
			Expect(err).To(MatchError(blobstore.ErrNotFound))
		})

		It("stops when the context is canceled", func() {
			store.Contents["doc.txt"] = threeParagraphs

			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := pipeline.Ingest(canceled, object("doc.txt"))
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("IngestAll", func() {
		It("ingests supported documents and skips the rest", func() {
			store.Contents["a.txt"] = "alpha"
			store.Contents["b.md"] = "bravo"
			store.Contents["c.png"] = "not text"

			reports, err := pipeline.IngestAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(2))
			Expect(driver.Records).To(HaveLen(2))
		})

		It("continues past a failing document", func() {
			store.Contents["bad.txt"] = "bravo"
			store.Contents["good.txt"] = "alpha"
			embedder.FailOn = "bravo"

			reports, err := pipeline.IngestAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(2))
			Expect(driver.Records).To(HaveLen(1))
			Expect(driver.Records[0].FileName).To(Equal("good.txt"))
		})
	})

	Describe("IngestByName", func() {
		It("ingests the named document", func() {
			store.Contents["doc.txt"] = "alpha"

			report, err := pipeline.IngestByName(ctx, "doc.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.SucceededChunks).To(Equal(1))
		})

		It("fails for an unknown document", func() {
			_, err := pipeline.IngestByName(ctx, "missing.txt")
			Expect(err).To(MatchError(blobstore.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes the document's records and publishes an event", func() {
			store.Contents["doc.txt"] = threeParagraphs
			_, err := pipeline.Ingest(ctx, object("doc.txt"))
			Expect(err).NotTo(HaveOccurred())

			removed, err := pipeline.Delete(ctx, "doc.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(3))
			Expect(driver.Records).To(BeEmpty())

			last := events.Events[len(events.Events)-1]
			Expect(last.Type).To(Equal(eventstream.TypeDocumentDeleted))
		})
	})

	Describe("Purge", func() {
		It("removes every record", func() {
			store.Contents["a.txt"] = "alpha"
			store.Contents["b.txt"] = "bravo"
			_, err := pipeline.IngestAll(ctx)
			Expect(err).NotTo(HaveOccurred())

			removed, err := pipeline.Purge(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(2))
			Expect(driver.Records).To(BeEmpty())
		})
	})
})

package record_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"

	"github.com/papercomputeco/stacks/pkg/record"
)

var _ = Describe("Build", func() {
	meta := record.DocumentMeta{
		FileName: "guide.md",
		URL:      "https://storage.googleapis.com/docs/guide.md",
	}

	It("builds a record carrying the chunk, document and partition fields", func() {
		r, err := record.Build("chunk text", []float32{0.1, 0.2}, meta, "stacks")
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Contents).To(Equal("chunk text"))
		Expect(r.FileName).To(Equal("guide.md"))
		Expect(r.URL).To(Equal(meta.URL))
		Expect(r.PartitionKey).To(Equal("stacks"))
		Expect(r.Embedding).To(Equal([]float32{0.1, 0.2}))
		Expect(r.CreatedAt).NotTo(BeZero())
	})

	It("assigns a unique valid UUID per record", func() {
		a, err := record.Build("one", []float32{1}, meta, "stacks")
		Expect(err).NotTo(HaveOccurred())
		b, err := record.Build("one", []float32{1}, meta, "stacks")
		Expect(err).NotTo(HaveOccurred())

		Expect(a.ID).NotTo(Equal(b.ID))
		_, err = uuid.Parse(a.ID)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects empty contents", func() {
		_, err := record.Build("   ", []float32{1}, meta, "stacks")
		Expect(err).To(MatchError(record.ErrEmptyContents))
	})

	It("rejects an empty embedding", func() {
		_, err := record.Build("chunk text", nil, meta, "stacks")
		Expect(err).To(MatchError(record.ErrEmptyEmbedding))
	})
})

package chunker

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// reassemble rebuilds the original text from chunks by stripping the shared
// overlap prefix from each chunk after the first.
func reassemble(chunks []Chunk, overlap int) string {
	var sb strings.Builder
	for i, chunk := range chunks {
		text := chunk.Text
		if i > 0 && overlap > 0 && len(text) > overlap &&
			strings.HasSuffix(sb.String(), text[:overlap]) {
			text = text[overlap:]
		}
		sb.WriteString(text)
	}
	return sb.String()
}

var _ = Describe("Splitter", func() {
	Describe("NewSplitter", func() {
		It("rejects a non-positive chunk size", func() {
			_, err := NewSplitter(Config{ChunkSize: 0})
			Expect(err).To(MatchError(ErrConfig))

			_, err = NewSplitter(Config{ChunkSize: -5})
			Expect(err).To(MatchError(ErrConfig))
		})

		It("rejects overlap outside [0, chunk size)", func() {
			_, err := NewSplitter(Config{ChunkSize: 10, ChunkOverlap: 10})
			Expect(err).To(MatchError(ErrConfig))

			_, err = NewSplitter(Config{ChunkSize: 10, ChunkOverlap: -1})
			Expect(err).To(MatchError(ErrConfig))
		})

		It("applies the default separator priority", func() {
			s, err := NewSplitter(Config{ChunkSize: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.config.Separators).To(Equal(DefaultSeparators))
		})

		It("appends the hard-slicing fallback when missing", func() {
			s, err := NewSplitter(Config{ChunkSize: 10, Separators: []string{"\n"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.config.Separators).To(Equal([]string{"\n", ""}))
		})
	})

	Describe("Split", func() {
		It("returns an empty sequence for empty input", func() {
			s, err := NewSplitter(Config{ChunkSize: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Split("")).To(BeEmpty())
		})

		It("returns a single chunk when the input is exactly chunk size", func() {
			s, err := NewSplitter(Config{ChunkSize: 10, ChunkOverlap: 2})
			Expect(err).NotTo(HaveOccurred())

			chunks := s.Split("abcdefghij")
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal("abcdefghij"))
			Expect(chunks[0].Ordinal).To(Equal(0))
		})

		It("never emits a chunk larger than chunk size", func() {
			s, err := NewSplitter(Config{ChunkSize: 24, ChunkOverlap: 4})
			Expect(err).NotTo(HaveOccurred())

			text := "The quick brown fox jumps over the lazy dog.\n\n" +
				"Pack my box with five dozen liquor jugs.\n" +
				"Sphinx of black quartz, judge my vow. " +
				strings.Repeat("x", 100)

			for _, chunk := range s.Split(text) {
				Expect(len(chunk.Text)).To(BeNumerically("<=", 24))
				Expect(chunk.Text).NotTo(BeEmpty())
			}
		})

		It("drops no characters", func() {
			s, err := NewSplitter(Config{ChunkSize: 16, ChunkOverlap: 5})
			Expect(err).NotTo(HaveOccurred())

			text := "alpha beta gamma delta\n\nepsilon zeta eta theta\n" +
				"iota kappa lambda mu nu xi omicron pi rho sigma tau " +
				"upsilon phi chi psi omega"

			chunks := s.Split(text)
			Expect(reassemble(chunks, 5)).To(Equal(text))
		})

		It("numbers chunks by ordinal in document order", func() {
			s, err := NewSplitter(Config{ChunkSize: 8, ChunkOverlap: 0})
			Expect(err).NotTo(HaveOccurred())

			chunks := s.Split(strings.Repeat("a", 30))
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for i, chunk := range chunks {
				Expect(chunk.Ordinal).To(Equal(i))
			}
		})

		It("shares the configured overlap between adjacent chunks", func() {
			s, err := NewSplitter(Config{ChunkSize: 10, ChunkOverlap: 3})
			Expect(err).NotTo(HaveOccurred())

			// No separators present, so every cut is a hard slice.
			text := "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMN"
			chunks := s.Split(text)
			Expect(len(chunks)).To(BeNumerically(">", 2))

			for i := 0; i < len(chunks)-1; i++ {
				prev, next := chunks[i], chunks[i+1]
				if len(prev.Text) <= 3 || len(next.Text) < 3 {
					continue
				}
				tail := prev.Text[len(prev.Text)-3:]
				Expect(next.Text[:3]).To(Equal(tail))
			}

			Expect(reassemble(chunks, 3)).To(Equal(text))
		})

		It("prefers paragraph boundaries over hard cuts", func() {
			s, err := NewSplitter(Config{ChunkSize: 20, ChunkOverlap: 0})
			Expect(err).NotTo(HaveOccurred())

			text := "aaaaaaaa\n\nbbbbbbbb\n\ncccccccc"
			chunks := s.Split(text)
			Expect(chunks).To(HaveLen(2))
			Expect(chunks[0].Text).To(Equal("aaaaaaaa\n\nbbbbbbbb\n\n"))
			Expect(chunks[1].Text).To(Equal("cccccccc"))
		})

		It("falls through to lower priority separators for oversized runs", func() {
			s, err := NewSplitter(Config{ChunkSize: 12, ChunkOverlap: 0})
			Expect(err).NotTo(HaveOccurred())

			// The single paragraph exceeds the chunk size, so word
			// boundaries must be used inside it.
			text := "lorem ipsum dolor sit amet"
			chunks := s.Split(text)
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for _, chunk := range chunks {
				Expect(len(chunk.Text)).To(BeNumerically("<=", 12))
			}
			Expect(reassemble(chunks, 0)).To(Equal(text))
		})

		It("is reproducible for the same input", func() {
			s, err := NewSplitter(Config{ChunkSize: 15, ChunkOverlap: 4})
			Expect(err).NotTo(HaveOccurred())

			text := "one two three four five six seven eight nine ten"
			Expect(s.Split(text)).To(Equal(s.Split(text)))
		})
	})
})

// Package chunker splits extracted document text into overlapping, bounded
// segments suitable for embedding.
//
// Splitting walks an ordered list of separators, preferring to cut on the
// highest-priority separator that keeps segments under the configured size.
// Pieces that remain oversized fall through to the next separator; the empty
// separator is the terminal fallback and performs hard character slicing, so
// splitting always terminates. Emitted chunks are re-windowed to sit as close
// to the configured size as possible while sharing the configured overlap
// with the previous chunk's tail.
package chunker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultSeparators is the boundary priority used when none is configured:
// paragraph breaks, then line breaks, then word breaks, then hard slicing.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// ErrConfig is returned when the splitter configuration is invalid.
var ErrConfig = errors.New("invalid chunker configuration")

// Chunk is a bounded slice of a document's text, the unit of embedding.
type Chunk struct {
	// Text is the chunk content. Never empty.
	Text string

	// Ordinal is the zero-based position of the chunk within its document.
	Ordinal int
}

// Config holds splitter settings.
type Config struct {
	// ChunkSize is the maximum number of bytes per emitted chunk. Required.
	ChunkSize int

	// ChunkOverlap is the number of trailing bytes of one chunk repeated at
	// the start of the next. Must be smaller than ChunkSize.
	ChunkOverlap int

	// Separators is the boundary priority list, highest priority first.
	// Defaults to DefaultSeparators if empty. An empty-string entry is the
	// hard-slicing fallback and is appended if missing.
	Separators []string
}

// Splitter splits text into overlapping chunks. Splitting is pure: the same
// input and configuration always produce the same chunks.
type Splitter struct {
	config Config
}

// NewSplitter validates the configuration and returns a Splitter.
func NewSplitter(c Config) (*Splitter, error) {
	if c.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfig, c.ChunkSize)
	}

	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrConfig, c.ChunkOverlap, c.ChunkSize)
	}

	if len(c.Separators) == 0 {
		c.Separators = DefaultSeparators
	}

	if c.Separators[len(c.Separators)-1] != "" {
		c.Separators = append(c.Separators, "")
	}

	return &Splitter{config: c}, nil
}

// Split divides text into chunks of at most ChunkSize bytes. Empty input
// yields an empty slice, not an error.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return []Chunk{}
	}

	boundaries := s.collectBoundaries(text, 0, s.config.Separators)
	sort.Ints(boundaries)

	var chunks []Chunk
	start := 0

	for start < len(text) {
		end := s.cutpoint(text, start, boundaries)
		chunks = append(chunks, Chunk{
			Text:    text[start:end],
			Ordinal: len(chunks),
		})

		if end >= len(text) {
			break
		}

		// Re-window so the next chunk begins inside the tail of this one.
		// Short chunks advance without overlap to guarantee progress.
		next := end - s.config.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// cutpoint returns the end offset of the chunk beginning at start: the
// furthest preferred boundary within ChunkSize, or a hard character cut when
// no boundary is reachable.
func (s *Splitter) cutpoint(text string, start int, boundaries []int) int {
	limit := start + s.config.ChunkSize
	if limit >= len(text) {
		return len(text)
	}

	// boundaries is sorted; find the last boundary in (start, limit].
	idx := sort.SearchInts(boundaries, limit+1) - 1
	if idx >= 0 && boundaries[idx] > start {
		return boundaries[idx]
	}

	return limit
}

// collectBoundaries returns the offsets (relative to the whole document) at
// which cutting is preferred. Cuts land after each occurrence of the highest
// priority separator found; pieces still longer than ChunkSize recurse into
// the remaining separators. The empty separator contributes no boundaries,
// leaving oversized runs to the hard-cut fallback in cutpoint.
func (s *Splitter) collectBoundaries(text string, base int, separators []string) []int {
	if len(text) <= s.config.ChunkSize || len(separators) == 0 {
		return nil
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return nil
	}

	if !strings.Contains(text, sep) {
		return s.collectBoundaries(text, base, rest)
	}

	var offs []int
	pieces := strings.SplitAfter(text, sep)
	offset := 0

	for _, piece := range pieces {
		if len(piece) > s.config.ChunkSize {
			offs = append(offs, s.collectBoundaries(piece, base+offset, rest)...)
		}
		offset += len(piece)
		if offset < len(text) {
			offs = append(offs, base+offset)
		}
	}

	return offs
}

package embeddings_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/embeddings"
)

// scriptedEmbedder returns the errors in Errs one per call, then succeeds
// with Vector. It records how many calls it received.
type scriptedEmbedder struct {
	Errs   []error
	Vector []float32

	Calls int
}

func (s *scriptedEmbedder) next() error {
	if s.Calls <= len(s.Errs) {
		return s.Errs[s.Calls-1]
	}
	return nil
}

func (s *scriptedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.Calls++
	if err := s.next(); err != nil {
		return nil, err
	}
	return s.Vector, nil
}

func (s *scriptedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.Calls++
	if err := s.next(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.Vector
	}
	return out, nil
}

func (s *scriptedEmbedder) Close() error {
	return nil
}

var _ = Describe("Retrying", func() {
	var (
		inner *scriptedEmbedder
		ctx   context.Context
	)

	newRetrying := func(c embeddings.RetryConfig) *embeddings.Retrying {
		if c.InitialInterval == 0 {
			c.InitialInterval = time.Millisecond
		}
		return embeddings.NewRetrying(inner, c, zap.NewNop())
	}

	BeforeEach(func() {
		inner = &scriptedEmbedder{Vector: []float32{0.1, 0.2, 0.3}}
		ctx = context.Background()
	})

	Describe("Embed", func() {
		It("passes a success straight through", func() {
			r := newRetrying(embeddings.RetryConfig{})

			vec, err := r.Embed(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(Equal(inner.Vector))
			Expect(inner.Calls).To(Equal(1))
		})

		It("does not retry a fatal failure", func() {
			cause := errors.New("invalid api key")
			inner.Errs = []error{embeddings.Fatal(cause)}
			r := newRetrying(embeddings.RetryConfig{})

			_, err := r.Embed(ctx, "hello")
			Expect(err).To(MatchError(cause))
			Expect(embeddings.IsRetriable(err)).To(BeFalse())
			Expect(inner.Calls).To(Equal(1))
		})

		It("retries a transient failure until it succeeds", func() {
			inner.Errs = []error{
				embeddings.Transient(errors.New("rate limited")),
				embeddings.Transient(errors.New("rate limited")),
			}
			r := newRetrying(embeddings.RetryConfig{})

			vec, err := r.Embed(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(Equal(inner.Vector))
			Expect(inner.Calls).To(Equal(3))
		})

		It("gives up after the attempt budget with the last cause", func() {
			first := errors.New("timeout")
			last := errors.New("service unavailable")
			inner.Errs = []error{
				embeddings.Transient(first),
				embeddings.Transient(first),
				embeddings.Transient(last),
			}
			r := newRetrying(embeddings.RetryConfig{MaxAttempts: 3})

			_, err := r.Embed(ctx, "hello")
			Expect(err).To(MatchError(last))
			Expect(embeddings.IsRetriable(err)).To(BeTrue())
			Expect(inner.Calls).To(Equal(3))
		})

		It("wraps an unclassified failure as fatal", func() {
			cause := errors.New("wire torn")
			inner.Errs = []error{cause}
			r := newRetrying(embeddings.RetryConfig{})

			_, err := r.Embed(ctx, "hello")
			Expect(err).To(MatchError(cause))

			var se *embeddings.ServiceError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Retriable).To(BeFalse())
			Expect(inner.Calls).To(Equal(1))
		})

		It("passes a context cancellation through unwrapped", func() {
			inner.Errs = []error{context.Canceled}
			r := newRetrying(embeddings.RetryConfig{})

			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := r.Embed(canceled, "hello")
			Expect(err).To(MatchError(context.Canceled))

			var se *embeddings.ServiceError
			Expect(errors.As(err, &se)).To(BeFalse())
			Expect(inner.Calls).To(Equal(1))
		})

		It("stops retrying when the context is canceled mid-backoff", func() {
			canceled, cancel := context.WithCancel(ctx)
			inner.Errs = []error{
				embeddings.Transient(errors.New("rate limited")),
				embeddings.Transient(errors.New("rate limited")),
				embeddings.Transient(errors.New("rate limited")),
			}
			r := newRetrying(embeddings.RetryConfig{InitialInterval: time.Hour})

			cancel()
			_, err := r.Embed(canceled, "hello")
			Expect(err).To(MatchError(context.Canceled))
			Expect(inner.Calls).To(Equal(1))
		})
	})

	Describe("EmbedBatch", func() {
		It("retries a transient failure until it succeeds", func() {
			inner.Errs = []error{embeddings.Transient(errors.New("rate limited"))}
			r := newRetrying(embeddings.RetryConfig{})

			vecs, err := r.EmbedBatch(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vecs).To(HaveLen(2))
			Expect(inner.Calls).To(Equal(2))
		})

		It("does not retry a fatal failure", func() {
			cause := errors.New("model not found")
			inner.Errs = []error{embeddings.Fatal(cause)}
			r := newRetrying(embeddings.RetryConfig{})

			_, err := r.EmbedBatch(ctx, []string{"a"})
			Expect(err).To(MatchError(cause))
			Expect(inner.Calls).To(Equal(1))
		})
	})
})

var _ = Describe("ServiceError", func() {
	It("unwraps to its cause", func() {
		cause := errors.New("boom")
		Expect(embeddings.Transient(cause)).To(MatchError(cause))
		Expect(embeddings.Fatal(cause)).To(MatchError(cause))
	})

	It("classifies retriability", func() {
		Expect(embeddings.IsRetriable(embeddings.Transient(errors.New("x")))).To(BeTrue())
		Expect(embeddings.IsRetriable(embeddings.Fatal(errors.New("x")))).To(BeFalse())
		Expect(embeddings.IsRetriable(errors.New("x"))).To(BeFalse())
	})
})

package embeddings

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts is the total attempt budget per call (first try
	// plus retries).
	DefaultMaxAttempts = 4

	// DefaultInitialInterval is the starting backoff delay.
	DefaultInitialInterval = 500 * time.Millisecond
)

// RetryConfig holds settings for the Retrying decorator.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per call, including the
	// first. Defaults to DefaultMaxAttempts if zero.
	MaxAttempts uint

	// InitialInterval is the first backoff delay; subsequent delays grow
	// exponentially. Defaults to DefaultInitialInterval if zero.
	InitialInterval time.Duration
}

// Retrying wraps an Embedder with exponential backoff for retriable
// failures. Fatal failures pass through on the first attempt.
type Retrying struct {
	inner  Embedder
	config RetryConfig
	logger *zap.Logger
}

// NewRetrying decorates inner with retry behavior.
func NewRetrying(inner Embedder, c RetryConfig, logger *zap.Logger) *Retrying {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = DefaultInitialInterval
	}

	return &Retrying{
		inner:  inner,
		config: c,
		logger: logger,
	}
}

// Embed calls the inner embedder, retrying retriable failures with
// exponential backoff until the attempt budget is exhausted.
func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry(ctx, r, func(ctx context.Context) ([]float32, error) {
		return r.inner.Embed(ctx, text)
	})
}

// EmbedBatch behaves like Embed for whole batches.
func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return retry(ctx, r, func(ctx context.Context) ([][]float32, error) {
		return r.inner.EmbedBatch(ctx, texts)
	})
}

// Close releases the inner embedder's resources.
func (r *Retrying) Close() error {
	return r.inner.Close()
}

func retry[T any](ctx context.Context, r *Retrying, op func(context.Context) (T, error)) (T, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.config.InitialInterval

	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(r.config.MaxAttempts-1)),
		ctx,
	)

	attempt := 0
	result, err := backoff.RetryWithData(func() (T, error) {
		attempt++

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}

		if !IsRetriable(err) {
			return out, backoff.Permanent(err)
		}

		r.logger.Warn("retriable embedding failure",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return out, err
	}, policy)
	if err != nil {
		// Context cancellation is the caller's signal, not a service fault.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}

		var se *ServiceError
		if errors.As(err, &se) {
			return result, err
		}
		return result, Fatal(err)
	}

	return result, nil
}

// Ensure Retrying implements Embedder
var _ Embedder = (*Retrying)(nil)

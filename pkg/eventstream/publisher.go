// Package eventstream defines the interface for publishing pipeline events
// to downstream consumers.
package eventstream

import (
	"context"
	"errors"
)

// ErrPublish indicates an event could not be delivered to the stream.
var ErrPublish = errors.New("event publish failed")

// Publisher is the interface all event stream backends implement.
type Publisher interface {
	// Publish delivers one event to the stream.
	Publish(ctx context.Context, event Event) error

	// Close flushes pending events and releases resources.
	Close() error
}

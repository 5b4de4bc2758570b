// Package nop provides an eventstream.Publisher that discards every event.
// It is the default when no stream is configured.
package nop

import (
	"context"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

// Publisher implements eventstream.Publisher by doing nothing.
type Publisher struct{}

// NewPublisher creates a publisher that discards events.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish discards the event.
func (p *Publisher) Publish(_ context.Context, _ eventstream.Event) error {
	return nil
}

// Close releases nothing.
func (p *Publisher) Close() error {
	return nil
}

// Ensure Publisher implements eventstream.Publisher
var _ eventstream.Publisher = (*Publisher)(nil)

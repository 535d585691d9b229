package notify

import "context"

// NoopPublisher discards every event. It is the default when no notify
// provider is configured.
type NoopPublisher struct{}

// NewNoopPublisher constructs a NoopPublisher.
func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

// Publish does nothing.
func (*NoopPublisher) Publish(context.Context, any) error { return nil }

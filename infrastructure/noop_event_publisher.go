package infrastructure

import (
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"
)

// NoopEventPublisher is an event publisher that does nothing
// Useful for tests and admin commands where no audit sink is attached
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}

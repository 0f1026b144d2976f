package interfaces

import (
	"context"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the unit of work commits
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes every pending event
	Flush(ctx context.Context) error

	// Discard drops every pending event
	Discard()
}

// UnitOfWork stages the reads and writes of one logical operation
type UnitOfWork interface {
	// Begin starts a new unit of work
	Begin(ctx context.Context) error

	// Commit applies the staged batch, then flushes pending events
	Commit() error

	// Rollback discards the staged batch and pending events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	PromoCodeRepository() PromoCodeRepository
	TeamRepository() TeamRepository
	SettingsRepository() SettingsRepository
	HistoryRepository() HistoryRepository

	// EventBus returns the transactional event publisher
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

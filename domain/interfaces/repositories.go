package interfaces

import (
	"context"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
)

// KeyedStore is the persistent mapping from string key to versioned JSON document.
// It also owns the append-only history sequence so history lands in the same commit as the records.
type KeyedStore interface {
	// Get returns the record stored under key, or nil if the key is absent
	Get(ctx context.Context, key string) (*entities.Record, error)

	// List returns every record whose key starts with prefix, ordered by key
	List(ctx context.Context, prefix string) ([]*entities.Record, error)

	// Commit applies every mutation and history entry of the batch, or none of them.
	// It returns an error wrapping entities.ErrVersionMismatch when any staged version is stale.
	// On success each history entry of the batch carries its assigned sequence number.
	Commit(ctx context.Context, batch *entities.Batch) error

	// QueryHistory returns the history entries matching filter in insertion order
	QueryHistory(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error)

	// Close releases the store's connections
	Close() error
}

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByIdentity returns the stored account or the default record for an unseen identity
	GetByIdentity(ctx context.Context, identity string) (*entities.Account, error)

	// Save stages the account for the current unit of work
	Save(ctx context.Context, account *entities.Account) error
}

// PromoCodeRepository defines the interface for promo code data access
type PromoCodeRepository interface {
	// GetByCode returns the promo code, or nil if it does not exist
	GetByCode(ctx context.Context, code string) (*entities.PromoCode, error)

	// Save stages the promo code, creating it when its version is 0
	Save(ctx context.Context, promo *entities.PromoCode) error
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// GetByName returns the live team, or nil if it does not exist
	GetByName(ctx context.Context, name string) (*entities.Team, error)

	// ListOpen returns every live team
	ListOpen(ctx context.Context) ([]*entities.Team, error)

	// Save stages the team, creating it when its version is 0
	Save(ctx context.Context, team *entities.Team) error

	// Delete stages removal of the live team
	Delete(ctx context.Context, team *entities.Team) error

	// Archive stages the resolved team under its archive key and removes the live key
	Archive(ctx context.Context, team *entities.Team) error

	// GetRoster returns the live team index
	GetRoster(ctx context.Context) (*entities.TeamRoster, error)

	// SaveRoster stages the live team index
	SaveRoster(ctx context.Context, roster *entities.TeamRoster) error
}

// SettingsRepository defines the interface for per-scope settings
type SettingsRepository interface {
	// GetByScope returns the stored settings or the defaults for an unseen scope
	GetByScope(ctx context.Context, scope string) (*entities.Settings, error)

	// Save stages the settings for the current unit of work
	Save(ctx context.Context, settings *entities.Settings) error
}

// HistoryRepository defines the interface for the append-only history log
type HistoryRepository interface {
	// Append stages an entry, assigning its id and timestamp when missing
	Append(ctx context.Context, event *entities.HistoryEvent) error

	// Query returns the committed entries matching filter in insertion order
	Query(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error)
}

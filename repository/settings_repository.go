package repository

import (
	"context"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
)

// settingsRepository implements interfaces.SettingsRepository over the keyed store
type settingsRepository struct {
	reader stagedReader
}

func newSettingsRepository(store interfaces.KeyedStore, batch *entities.Batch) *settingsRepository {
	return &settingsRepository{reader: stagedReader{store: store, batch: batch}}
}

// GetByScope returns the stored settings merged over the defaults
func (r *settingsRepository) GetByScope(ctx context.Context, scope string) (*entities.Settings, error) {
	settings := entities.NewSettings(scope)
	version, _, err := r.reader.load(ctx, SettingsKey(scope), settings)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	settings.Scope = scope
	if settings.PrivilegedUsers == nil {
		settings.PrivilegedUsers = []string{}
	}
	if settings.PrivilegedRoles == nil {
		settings.PrivilegedRoles = []string{}
	}
	settings.Version = version
	return settings, nil
}

// Save stages the settings
func (r *settingsRepository) Save(ctx context.Context, settings *entities.Settings) error {
	return r.reader.stage(SettingsKey(settings.Scope), settings.Version, settings)
}

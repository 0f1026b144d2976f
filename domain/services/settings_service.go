package services

import (
	"context"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/utils"

	log "github.com/sirupsen/logrus"
)

// Settings history reasons
const (
	reasonSettingsPatched = "patched"
	reasonWageringOpened  = "wagering_opened"
	reasonWageringClosed  = "wagering_closed"
)

// settingsService implements the SettingsService interface
type settingsService struct {
	runner runner
}

// NewSettingsService creates a new settings service
func NewSettingsService(uowFactory interfaces.UnitOfWorkFactory) interfaces.SettingsService {
	return &settingsService{runner: newRunner(uowFactory)}
}

func validateScope(scope string) error {
	if scope == "" {
		return fmt.Errorf("%w: scope must not be empty", entities.ErrValidation)
	}
	return nil
}

// GetSettings returns the scope's settings or defaults
func (s *settingsService) GetSettings(ctx context.Context, scope string) (*entities.Settings, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	return readInUnitOfWork(ctx, s.runner, func(uow interfaces.UnitOfWork) (*entities.Settings, error) {
		return uow.SettingsRepository().GetByScope(ctx, scope)
	})
}

// PatchSettings merges patch into the stored settings
func (s *settingsService) PatchSettings(ctx context.Context, scope string, patch *entities.SettingsPatch) (*entities.Settings, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	if patch == nil {
		return nil, fmt.Errorf("%w: settings patch must not be nil", entities.ErrValidation)
	}

	return s.update(ctx, "patch_settings", scope, reasonSettingsPatched, func(settings *entities.Settings) {
		settings.Apply(patch)
	})
}

// OpenWageringWindow enables wagering in scope under a new window id
func (s *settingsService) OpenWageringWindow(ctx context.Context, scope string) (*entities.Settings, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	settings, err := s.update(ctx, "open_wagering", scope, reasonWageringOpened, func(settings *entities.Settings) {
		settings.OpenWageringWindow()
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"scope":    scope,
		"windowID": settings.WageringWindowID,
	}).Info("Opened wagering window")
	return settings, nil
}

// CloseWageringWindow disables wagering in scope
func (s *settingsService) CloseWageringWindow(ctx context.Context, scope string) (*entities.Settings, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	settings, err := s.update(ctx, "close_wagering", scope, reasonWageringClosed, func(settings *entities.Settings) {
		settings.CloseWageringWindow()
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"scope":    scope,
		"windowID": settings.WageringWindowID,
	}).Info("Closed wagering window")
	return settings, nil
}

// IsPrivileged checks identity and roles against the scope's privileged lists
func (s *settingsService) IsPrivileged(ctx context.Context, scope, identity string, roles []string) (bool, error) {
	settings, err := s.GetSettings(ctx, scope)
	if err != nil {
		return false, err
	}
	return settings.IsPrivileged(identity, roles), nil
}

func (s *settingsService) update(ctx context.Context, operation, scope, reason string, mutate func(*entities.Settings)) (*entities.Settings, error) {
	return runInUnitOfWork(ctx, s.runner, operation, func(uow interfaces.UnitOfWork) (*entities.Settings, error) {
		settings, err := uow.SettingsRepository().GetByScope(ctx, scope)
		if err != nil {
			return nil, err
		}

		mutate(settings)

		if err := uow.SettingsRepository().Save(ctx, settings); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:   entities.HistoryKindSettingsUpdated,
			Scope:  scope,
			Reason: reason,
		}); err != nil {
			return nil, err
		}

		return settings, nil
	})
}

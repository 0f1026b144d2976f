package repository

import (
	"context"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface on a keyed store batch
type unitOfWork struct {
	store                  interfaces.KeyedStore
	batch                  *entities.Batch
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	accountRepo            interfaces.AccountRepository
	promoCodeRepo          interfaces.PromoCodeRepository
	teamRepo               interfaces.TeamRepository
	settingsRepo           interfaces.SettingsRepository
	historyRepo            interfaces.HistoryRepository
}

// UnitOfWorkFactory creates store-backed units of work
type UnitOfWorkFactory struct {
	store interfaces.KeyedStore
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(store interfaces.KeyedStore) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		store: store,
	}
}

// CreateWithPublisher creates a new UnitOfWork that flushes transactionalPublisher on commit
func (f *UnitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork {
	return &unitOfWork{
		store:                  f.store,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new unit of work with an empty batch
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.batch != nil {
		return fmt.Errorf("unit of work already started")
	}

	u.batch = entities.NewBatch()
	u.ctx = ctx

	u.accountRepo = newAccountRepository(u.store, u.batch)
	u.promoCodeRepo = newPromoCodeRepository(u.store, u.batch)
	u.teamRepo = newTeamRepository(u.store, u.batch)
	u.settingsRepo = newSettingsRepository(u.store, u.batch)
	u.historyRepo = newHistoryRepository(u.store, u.batch)

	return nil
}

// Commit hands the batch to the store. A batch that only holds version checks
// writes nothing and skips the store.
func (u *unitOfWork) Commit() error {
	if u.batch == nil {
		return fmt.Errorf("no unit of work to commit")
	}

	batch := u.batch
	u.batch = nil

	if !batch.IsEmpty() {
		if err := u.store.Commit(u.ctx, batch); err != nil {
			if u.transactionalPublisher != nil {
				u.transactionalPublisher.Discard()
			}
			return fmt.Errorf("failed to commit unit of work: %w", err)
		}
	}

	// Flush pending events after successful commit
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback discards the batch and pending events
func (u *unitOfWork) Rollback() error {
	if u.batch == nil {
		return nil // Nothing to rollback
	}

	u.batch = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// PromoCodeRepository returns the promo code repository for this unit of work
func (u *unitOfWork) PromoCodeRepository() interfaces.PromoCodeRepository {
	if u.promoCodeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.promoCodeRepo
}

// TeamRepository returns the team repository for this unit of work
func (u *unitOfWork) TeamRepository() interfaces.TeamRepository {
	if u.teamRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.teamRepo
}

// SettingsRepository returns the settings repository for this unit of work
func (u *unitOfWork) SettingsRepository() interfaces.SettingsRepository {
	if u.settingsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.settingsRepo
}

// HistoryRepository returns the history repository for this unit of work
func (u *unitOfWork) HistoryRepository() interfaces.HistoryRepository {
	if u.historyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.historyRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}

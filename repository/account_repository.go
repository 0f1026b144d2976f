package repository

import (
	"context"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
)

// accountRepository implements interfaces.AccountRepository over the keyed store
type accountRepository struct {
	reader stagedReader
}

func newAccountRepository(store interfaces.KeyedStore, batch *entities.Batch) *accountRepository {
	return &accountRepository{reader: stagedReader{store: store, batch: batch}}
}

// GetByIdentity returns the stored account or a zeroed default. A default is never written here.
func (r *accountRepository) GetByIdentity(ctx context.Context, identity string) (*entities.Account, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity must not be empty", entities.ErrValidation)
	}

	account := entities.NewAccount(identity)
	version, _, err := r.reader.load(ctx, AccountKey(identity), account)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	account.Identity = identity
	account.Version = version
	return account, nil
}

// Save stages the account
func (r *accountRepository) Save(ctx context.Context, account *entities.Account) error {
	return r.reader.stage(AccountKey(account.Identity), account.Version, account)
}

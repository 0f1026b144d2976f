package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWorkFactory_CommitFlushesEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repository.NewMemoryStore()
	sink := &recordingPublisher{}
	factory := NewUnitOfWorkFactory(store, sink)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	account, err := uow.AccountRepository().GetByIdentity(ctx, "user-1")
	require.NoError(t, err)
	account.CreditTokens(25)
	require.NoError(t, uow.AccountRepository().Save(ctx, account))
	require.NoError(t, uow.EventBus().Publish(events.TokenBalanceChangedEvent{Identity: "user-1", NewBalance: 25, ChangeAmount: 25}))

	assert.Empty(t, sink.PublishedEvents)
	require.NoError(t, uow.Commit())
	assert.Len(t, sink.PublishedEvents, 1)

	rec, err := store.Get(ctx, repository.AccountKey("user-1"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1), rec.Version)
}

func TestUnitOfWorkFactory_FailedCommitDiscardsEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repository.NewMemoryStore()
	sink := &recordingPublisher{}
	factory := NewUnitOfWorkFactory(store, sink)

	stale := factory.Create()
	require.NoError(t, stale.Begin(ctx))
	account, err := stale.AccountRepository().GetByIdentity(ctx, "user-1")
	require.NoError(t, err)

	// Another unit of work writes the same account first
	winner := factory.Create()
	require.NoError(t, winner.Begin(ctx))
	other, err := winner.AccountRepository().GetByIdentity(ctx, "user-1")
	require.NoError(t, err)
	other.CreditTokens(5)
	require.NoError(t, winner.AccountRepository().Save(ctx, other))
	require.NoError(t, winner.Commit())

	account.CreditTokens(10)
	require.NoError(t, stale.AccountRepository().Save(ctx, account))
	require.NoError(t, stale.EventBus().Publish(events.TokenBalanceChangedEvent{Identity: "user-1", NewBalance: 10}))

	err = stale.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrVersionMismatch))
	assert.Empty(t, sink.PublishedEvents)
}

func TestUnitOfWorkFactory_RollbackDiscardsEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &recordingPublisher{}
	factory := NewUnitOfWorkFactory(repository.NewMemoryStore(), sink)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.EventBus().Publish(events.LevelUpEvent{Identity: "user-1", OldLevel: 1, NewLevel: 2}))
	require.NoError(t, uow.Rollback())

	assert.Empty(t, sink.PublishedEvents)
}

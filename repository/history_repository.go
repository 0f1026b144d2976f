package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"

	"github.com/google/uuid"
)

// historyRepository implements interfaces.HistoryRepository over the keyed store
type historyRepository struct {
	store interfaces.KeyedStore
	batch *entities.Batch
}

func newHistoryRepository(store interfaces.KeyedStore, batch *entities.Batch) *historyRepository {
	return &historyRepository{store: store, batch: batch}
}

// Append stages the entry. The store assigns its sequence number at commit.
func (r *historyRepository) Append(ctx context.Context, event *entities.HistoryEvent) error {
	if event.Kind == "" {
		return fmt.Errorf("%w: history event kind must not be empty", entities.ErrValidation)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	r.batch.Append(event)
	return nil
}

// Query returns the committed entries matching filter
func (r *historyRepository) Query(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error) {
	events, err := r.store.QueryHistory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return events, nil
}

package testhelpers

import (
	"context"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"

	"github.com/stretchr/testify/mock"
)

// MockKeyedStore is a mock implementation of KeyedStore
type MockKeyedStore struct {
	mock.Mock
}

func (m *MockKeyedStore) Get(ctx context.Context, key string) (*entities.Record, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Record), args.Error(1)
}

func (m *MockKeyedStore) List(ctx context.Context, prefix string) ([]*entities.Record, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Record), args.Error(1)
}

func (m *MockKeyedStore) Commit(ctx context.Context, batch *entities.Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockKeyedStore) QueryHistory(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HistoryEvent), args.Error(1)
}

func (m *MockKeyedStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryRepository is a mock implementation of HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, event *entities.HistoryEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockHistoryRepository) Query(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HistoryEvent), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// MemoryStore is a KeyedStore held in process memory. One mutex guards every commit,
// which is enough for tests and single-process runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*entities.Record
	history []*entities.HistoryEvent
	nextSeq int64
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*entities.Record),
		now:     time.Now,
	}
}

// Get returns a copy of the record stored under key, or nil
func (s *MemoryStore) Get(ctx context.Context, key string) (*entities.Record, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendMemory, "get")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

// List returns copies of the records under prefix, ordered by key
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]*entities.Record, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendMemory, "list")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Record
	for key, rec := range s.records {
		if strings.HasPrefix(key, prefix) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Commit validates every staged version and then applies the whole batch
func (s *MemoryStore) Commit(ctx context.Context, batch *entities.Batch) error {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendMemory, "commit")()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range batch.Mutations() {
		var current int64
		if rec, ok := s.records[m.Key]; ok {
			current = rec.Version
		}
		if current != m.ExpectedVersion {
			return fmt.Errorf("%w: %s %s expected version %d, found %d",
				entities.ErrVersionMismatch, m.Op, m.Key, m.ExpectedVersion, current)
		}
	}

	now := s.now().UTC()
	for _, m := range batch.Mutations() {
		switch m.Op {
		case entities.MutationPut:
			s.records[m.Key] = &entities.Record{
				Key:       m.Key,
				Value:     slices.Clone(m.Value),
				Version:   m.ExpectedVersion + 1,
				UpdatedAt: now,
			}
		case entities.MutationDelete:
			delete(s.records, m.Key)
		}
	}

	for _, e := range batch.History() {
		s.nextSeq++
		e.Seq = s.nextSeq
		stored := *e
		stored.Members = slices.Clone(e.Members)
		s.history = append(s.history, &stored)
	}

	log.WithFields(log.Fields{
		"mutations": len(batch.Mutations()),
		"history":   len(batch.History()),
	}).Debug("Committed batch to memory store")

	return nil
}

// QueryHistory returns copies of the matching entries in insertion order
func (s *MemoryStore) QueryHistory(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendMemory, "query_history")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.HistoryEvent
	for _, e := range s.history {
		if filter.Matches(e) {
			c := *e
			c.Members = slices.Clone(e.Members)
			out = append(out, &c)
		}
	}
	return out, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

func cloneRecord(rec *entities.Record) *entities.Record {
	c := *rec
	c.Value = slices.Clone(rec.Value)
	return &c
}

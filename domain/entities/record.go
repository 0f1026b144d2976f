package entities

import (
	"encoding/json"
	"time"
)

// Record is a versioned JSON document in the keyed store
type Record struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MutationOp is the kind of staged change
type MutationOp int

const (
	// MutationPut writes Value. ExpectedVersion 0 requires the key to be absent.
	MutationPut MutationOp = iota
	// MutationDelete removes the key, which must be at ExpectedVersion
	MutationDelete
	// MutationCheck writes nothing but fails the batch unless the key is still at ExpectedVersion
	MutationCheck
)

// String names the operation for logs
func (op MutationOp) String() string {
	switch op {
	case MutationPut:
		return "put"
	case MutationDelete:
		return "delete"
	case MutationCheck:
		return "check"
	default:
		return "unknown"
	}
}

// Mutation is one staged change guarded by the version its value was derived from
type Mutation struct {
	Op              MutationOp
	Key             string
	ExpectedVersion int64
	Value           json.RawMessage
}

// Batch collects the mutations and history entries of one operation.
// A store applies a batch entirely or not at all.
type Batch struct {
	mutations []*Mutation
	index     map[string]*Mutation
	history   []*HistoryEvent
}

// NewBatch returns an empty batch
func NewBatch() *Batch {
	return &Batch{index: map[string]*Mutation{}}
}

// Put stages a write. A key staged twice keeps the version of its first staging,
// since that is the version the operation read.
func (b *Batch) Put(key string, expectedVersion int64, value json.RawMessage) {
	if m, ok := b.index[key]; ok {
		m.Op = MutationPut
		m.Value = value
		return
	}
	b.add(&Mutation{Op: MutationPut, Key: key, ExpectedVersion: expectedVersion, Value: value})
}

// Delete stages a removal
func (b *Batch) Delete(key string, expectedVersion int64) {
	if m, ok := b.index[key]; ok {
		if m.Op == MutationPut && m.ExpectedVersion == 0 {
			// created and dropped inside the same batch
			b.remove(key)
			b.Check(key, 0)
			return
		}
		m.Op = MutationDelete
		m.Value = nil
		return
	}
	b.add(&Mutation{Op: MutationDelete, Key: key, ExpectedVersion: expectedVersion})
}

// Check stages a version guard. It never downgrades a staged put or delete.
func (b *Batch) Check(key string, expectedVersion int64) {
	if _, ok := b.index[key]; ok {
		return
	}
	b.add(&Mutation{Op: MutationCheck, Key: key, ExpectedVersion: expectedVersion})
}

// Staged returns the mutation staged for key, if any
func (b *Batch) Staged(key string) (*Mutation, bool) {
	m, ok := b.index[key]
	return m, ok
}

// Append stages a history entry
func (b *Batch) Append(event *HistoryEvent) {
	b.history = append(b.history, event)
}

// Mutations returns the staged mutations in staging order
func (b *Batch) Mutations() []*Mutation {
	return b.mutations
}

// History returns the staged history entries in staging order
func (b *Batch) History() []*HistoryEvent {
	return b.history
}

// IsEmpty reports whether the batch would write nothing
func (b *Batch) IsEmpty() bool {
	if len(b.history) > 0 {
		return false
	}
	for _, m := range b.mutations {
		if m.Op != MutationCheck {
			return false
		}
	}
	return true
}

// Keys lists every key the batch touches, in staging order
func (b *Batch) Keys() []string {
	keys := make([]string, 0, len(b.mutations))
	for _, m := range b.mutations {
		keys = append(keys, m.Key)
	}
	return keys
}

func (b *Batch) add(m *Mutation) {
	b.mutations = append(b.mutations, m)
	b.index[m.Key] = m
}

func (b *Batch) remove(key string) {
	delete(b.index, key)
	for i, m := range b.mutations {
		if m.Key == key {
			b.mutations = append(b.mutations[:i], b.mutations[i+1:]...)
			return
		}
	}
}

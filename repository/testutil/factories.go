package testutil

import (
	"encoding/json"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
)

// CreateTestAccount creates an account with the given experience and tokens
func CreateTestAccount(identity string, experience, tokens int64) *entities.Account {
	return &entities.Account{
		Identity:     identity,
		Experience:   experience,
		DoubleTokens: tokens,
	}
}

// CreateTestTeam creates an open team named name with five generated members
func CreateTestTeam(name string) *entities.Team {
	return &entities.Team{
		Name:      name,
		Members:   []string{name + "-1", name + "-2", name + "-3", name + "-4", name + "-5"},
		Bets:      []*entities.Bet{},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// CreateTestHistoryEvent creates a history entry with the fields every query needs
func CreateTestHistoryEvent(id string, kind entities.HistoryKind, identity, team string) *entities.HistoryEvent {
	return &entities.HistoryEvent{
		ID:        id,
		Kind:      kind,
		Identity:  identity,
		Team:      team,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// MustJSON encodes v, panicking on failure
func MustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// PutBatch builds a batch holding one put
func PutBatch(key string, expectedVersion int64, v any) *entities.Batch {
	batch := entities.NewBatch()
	batch.Put(key, expectedVersion, MustJSON(v))
	return batch
}

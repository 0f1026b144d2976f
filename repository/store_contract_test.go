package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N int `json:"n"`
}

// runKeyedStoreContract checks the behaviour every KeyedStore backend shares.
// Subtests use disjoint keys and identities so they can share one store.
func runKeyedStoreContract(t *testing.T, store interfaces.KeyedStore) {
	ctx := context.Background()

	t.Run("insert requires absence", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, testutil.PutBatch("c1_key", 0, counter{N: 1})))

		rec, err := store.Get(ctx, "c1_key")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, int64(1), rec.Version)
		assert.JSONEq(t, `{"n":1}`, string(rec.Value))

		err = store.Commit(ctx, testutil.PutBatch("c1_key", 0, counter{N: 2}))
		require.ErrorIs(t, err, entities.ErrVersionMismatch)

		missing, err := store.Get(ctx, "c1_missing")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("update requires the read version", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, testutil.PutBatch("c2_key", 0, counter{N: 1})))
		require.NoError(t, store.Commit(ctx, testutil.PutBatch("c2_key", 1, counter{N: 2})))

		err := store.Commit(ctx, testutil.PutBatch("c2_key", 1, counter{N: 99}))
		require.ErrorIs(t, err, entities.ErrVersionMismatch)

		rec, err := store.Get(ctx, "c2_key")
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Version)
		assert.JSONEq(t, `{"n":2}`, string(rec.Value))
	})

	t.Run("delete requires the read version", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, testutil.PutBatch("c3_key", 0, counter{N: 1})))

		stale := entities.NewBatch()
		stale.Delete("c3_key", 7)
		require.ErrorIs(t, store.Commit(ctx, stale), entities.ErrVersionMismatch)

		batch := entities.NewBatch()
		batch.Delete("c3_key", 1)
		require.NoError(t, store.Commit(ctx, batch))

		rec, err := store.Get(ctx, "c3_key")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("a failed check aborts the whole batch", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, testutil.PutBatch("c4_guard", 0, counter{N: 1})))

		batch := testutil.PutBatch("c4_other", 0, counter{N: 1})
		batch.Check("c4_guard", 5)
		batch.Append(testutil.CreateTestHistoryEvent(uuid.NewString(), entities.HistoryKindPayout, "c4-user", ""))
		require.ErrorIs(t, store.Commit(ctx, batch), entities.ErrVersionMismatch)

		rec, err := store.Get(ctx, "c4_other")
		require.NoError(t, err)
		assert.Nil(t, rec)

		history, err := store.QueryHistory(ctx, entities.HistoryFilter{Identity: "c4-user"})
		require.NoError(t, err)
		assert.Empty(t, history)

		// An absence check passes while the key is missing
		ok := testutil.PutBatch("c4_other", 0, counter{N: 1})
		ok.Check("c4_absent", 0)
		ok.Check("c4_guard", 1)
		require.NoError(t, store.Commit(ctx, ok))
	})

	t.Run("list matches the literal prefix in key order", func(t *testing.T) {
		batch := entities.NewBatch()
		for _, key := range []string{"c5_b", "c5_a", "c5xa", "c5_%"} {
			batch.Put(key, 0, testutil.MustJSON(counter{N: 1}))
		}
		require.NoError(t, store.Commit(ctx, batch))

		records, err := store.List(ctx, "c5_")
		require.NoError(t, err)
		keys := make([]string, 0, len(records))
		for _, rec := range records {
			keys = append(keys, rec.Key)
		}
		assert.Equal(t, []string{"c5_%", "c5_a", "c5_b"}, keys)

		records, err = store.List(ctx, "c5_%")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("history keeps insertion order", func(t *testing.T) {
		first := entities.NewBatch()
		first.Append(testutil.CreateTestHistoryEvent(uuid.NewString(), entities.HistoryKindTeamCreated, "", "C6-Team"))
		first.Append(testutil.CreateTestHistoryEvent(uuid.NewString(), entities.HistoryKindBetPlaced, "c6-user", "c6-team"))
		require.NoError(t, store.Commit(ctx, first))

		second := entities.NewBatch()
		payout := testutil.CreateTestHistoryEvent(uuid.NewString(), entities.HistoryKindPayout, "c6-user", "C6-TEAM")
		payout.Members = []string{"a", "b"}
		payout.Amount = 200
		second.Append(payout)
		require.NoError(t, store.Commit(ctx, second))

		byTeam, err := store.QueryHistory(ctx, entities.HistoryFilter{Team: "c6-team"})
		require.NoError(t, err)
		require.Len(t, byTeam, 3)
		assert.Equal(t, entities.HistoryKindTeamCreated, byTeam[0].Kind)
		assert.Equal(t, entities.HistoryKindPayout, byTeam[2].Kind)
		assert.Less(t, byTeam[0].Seq, byTeam[1].Seq)
		assert.Less(t, byTeam[1].Seq, byTeam[2].Seq)
		assert.Equal(t, payout.Seq, byTeam[2].Seq, "the caller's entry receives its sequence number")
		assert.Equal(t, int64(200), byTeam[2].Amount)
		assert.Equal(t, []string{"a", "b"}, byTeam[2].Members)

		byIdentity, err := store.QueryHistory(ctx, entities.HistoryFilter{Identity: "c6-user"})
		require.NoError(t, err)
		require.Len(t, byIdentity, 2)
		assert.Equal(t, entities.HistoryKindBetPlaced, byIdentity[0].Kind)
	})

	t.Run("concurrent read-modify-write loses no update", func(t *testing.T) {
		const workers = 8
		const increments = 5

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < increments; i++ {
					for {
						rec, err := store.Get(ctx, "c7_counter")
						if !assert.NoError(t, err) {
							return
						}
						var c counter
						var version int64
						if rec != nil {
							version = rec.Version
							if !assert.NoError(t, json.Unmarshal(rec.Value, &c)) {
								return
							}
						}
						c.N++
						err = store.Commit(ctx, testutil.PutBatch("c7_counter", version, c))
						if err == nil {
							break
						}
						if !assert.ErrorIs(t, err, entities.ErrVersionMismatch) {
							return
						}
					}
				}
			}()
		}
		wg.Wait()

		rec, err := store.Get(ctx, "c7_counter")
		require.NoError(t, err)
		var c counter
		require.NoError(t, json.Unmarshal(rec.Value, &c))
		assert.Equal(t, workers*increments, c.N)
		assert.Equal(t, int64(workers*increments), rec.Version)
	})
}

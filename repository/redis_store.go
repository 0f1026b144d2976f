package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure/observability"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Redis key layout
const (
	redisRecordPrefix    = "ledger:kv:"
	redisKeyIndex        = "ledger:keys"
	redisHistorySeq      = "ledger:history:seq"
	redisHistoryEvents   = "ledger:history:events"
	redisHistoryAll      = "ledger:history:all"
	redisHistoryIdentity = "ledger:history:identity:"
	redisHistoryTeam     = "ledger:history:team:"
)

// RedisStore is a KeyedStore on Redis. Records are hashes holding value, version and
// updated_at; commits run as WATCH/MULTI optimistic transactions over every staged key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on a Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient connects to addr and selects db
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Get returns the record stored under key, or nil
func (s *RedisStore) Get(ctx context.Context, key string) (*entities.Record, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendRedis, "get")()

	return readRedisRecord(ctx, s.client, key)
}

// List returns the records under prefix, ordered by key
func (s *RedisStore) List(ctx context.Context, prefix string) ([]*entities.Record, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendRedis, "list")()

	keys, err := s.client.ZRangeByLex(ctx, redisKeyIndex, &redis.ZRangeBy{
		Min: "[" + prefix,
		Max: "[" + prefix + "\xff",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with prefix %s: %w", prefix, err)
	}

	records := make([]*entities.Record, 0, len(keys))
	for _, key := range keys {
		rec, err := readRedisRecord(ctx, s.client, key)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Commit applies the batch in one MULTI/EXEC, watching every staged key
func (s *RedisStore) Commit(ctx context.Context, batch *entities.Batch) error {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendRedis, "commit")()

	watched := make([]string, 0, len(batch.Mutations()))
	for _, key := range batch.Keys() {
		watched = append(watched, redisRecordPrefix+key)
	}

	txf := func(tx *redis.Tx) error {
		for _, m := range batch.Mutations() {
			current, err := tx.HGet(ctx, redisRecordPrefix+m.Key, "version").Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("failed to read version of %s: %w", m.Key, err)
			}
			if current != m.ExpectedVersion {
				return fmt.Errorf("%w: %s %s expected version %d, found %d",
					entities.ErrVersionMismatch, m.Op, m.Key, m.ExpectedVersion, current)
			}
		}

		history := batch.History()
		var lastSeq int64
		if len(history) > 0 {
			// Sequence numbers are reserved outside MULTI; a failed EXEC leaves a gap
			var err error
			lastSeq, err = tx.IncrBy(ctx, redisHistorySeq, int64(len(history))).Result()
			if err != nil {
				return fmt.Errorf("failed to reserve history sequence: %w", err)
			}
		}
		firstSeq := lastSeq - int64(len(history)) + 1

		payloads := make([][]byte, len(history))
		for i, e := range history {
			stored := *e
			stored.Seq = firstSeq + int64(i)
			payload, err := json.Marshal(&stored)
			if err != nil {
				return fmt.Errorf("failed to marshal history event: %w", err)
			}
			payloads[i] = payload
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, m := range batch.Mutations() {
				switch m.Op {
				case entities.MutationPut:
					pipe.HSet(ctx, redisRecordPrefix+m.Key,
						"value", string(m.Value),
						"version", m.ExpectedVersion+1,
						"updated_at", now,
					)
					pipe.ZAdd(ctx, redisKeyIndex, redis.Z{Member: m.Key})
				case entities.MutationDelete:
					pipe.Del(ctx, redisRecordPrefix+m.Key)
					pipe.ZRem(ctx, redisKeyIndex, m.Key)
				}
			}

			for i, e := range history {
				seq := firstSeq + int64(i)
				member := strconv.FormatInt(seq, 10)
				z := redis.Z{Score: float64(seq), Member: member}

				pipe.HSet(ctx, redisHistoryEvents, member, payloads[i])
				pipe.ZAdd(ctx, redisHistoryAll, z)
				if e.Identity != "" {
					pipe.ZAdd(ctx, redisHistoryIdentity+e.Identity, z)
				}
				if e.Team != "" {
					pipe.ZAdd(ctx, redisHistoryTeam+entities.NormalizeTeamName(e.Team), z)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		for i, e := range history {
			e.Seq = firstSeq + int64(i)
		}
		return nil
	}

	err := s.client.Watch(ctx, txf, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: watched key changed during commit", entities.ErrVersionMismatch)
	}
	if err != nil {
		if errors.Is(err, entities.ErrVersionMismatch) {
			return err
		}
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	log.WithFields(log.Fields{
		"mutations": len(batch.Mutations()),
		"history":   len(batch.History()),
	}).Debug("Committed batch to redis store")

	return nil
}

// QueryHistory returns the matching entries in insertion order
func (s *RedisStore) QueryHistory(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendRedis, "query_history")()

	index := redisHistoryAll
	switch {
	case filter.Identity != "":
		index = redisHistoryIdentity + filter.Identity
	case filter.Team != "":
		index = redisHistoryTeam + entities.NormalizeTeamName(filter.Team)
	}

	members, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history index %s: %w", index, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	payloads, err := s.client.HMGet(ctx, redisHistoryEvents, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history events: %w", err)
	}

	var out []*entities.HistoryEvent
	for i, raw := range payloads {
		payload, ok := raw.(string)
		if !ok {
			log.WithField("seq", members[i]).Warn("History index references a missing event")
			continue
		}
		var e entities.HistoryEvent
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history event %s: %w", members[i], err)
		}
		if filter.Matches(&e) {
			out = append(out, &e)
		}
	}
	return out, nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func readRedisRecord(ctx context.Context, client redis.Cmdable, key string) (*entities.Record, error) {
	fields, err := client.HGetAll(ctx, redisRecordPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("record %s has a malformed version: %w", key, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("record %s has a malformed timestamp: %w", key, err)
	}

	return &entities.Record{
		Key:       key,
		Value:     json.RawMessage(fields["value"]),
		Version:   version,
		UpdatedAt: updatedAt,
	}, nil
}

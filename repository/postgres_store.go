package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/database"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure/observability"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// PostgresStore is a KeyedStore on the kv_records and history_events tables.
// Each batch commits in one transaction. Transaction-scoped advisory locks on the
// batch's keys, taken in key order, serialize commits that touch the same keys.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store on an open connection pool
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the record stored under key, or nil
func (s *PostgresStore) Get(ctx context.Context, key string) (*entities.Record, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendPostgres, "get")()

	query := `
		SELECT key, value, version, updated_at
		FROM kv_records
		WHERE key = $1
	`

	var rec entities.Record
	err := s.db.QueryRow(ctx, query, key).Scan(&rec.Key, &rec.Value, &rec.Version, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", key, err)
	}

	return &rec, nil
}

// List returns the records under prefix, ordered by key
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]*entities.Record, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendPostgres, "list")()

	query := `
		SELECT key, value, version, updated_at
		FROM kv_records
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key COLLATE "C"
	`

	rows, err := s.db.Query(ctx, query, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list records with prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var records []*entities.Record
	for rows.Next() {
		var rec entities.Record
		if err := rows.Scan(&rec.Key, &rec.Value, &rec.Version, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// Commit applies the batch in one transaction
func (s *PostgresStore) Commit(ctx context.Context, batch *entities.Batch) error {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendPostgres, "commit")()

	err := s.db.WithTransaction(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		keys := batch.Keys()
		slices.Sort(keys)
		for _, key := range keys {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
				return fmt.Errorf("failed to lock key %s: %w", key, err)
			}
		}

		for _, m := range batch.Mutations() {
			if err := applyMutation(ctx, tx, m); err != nil {
				return err
			}
		}

		for _, e := range batch.History() {
			if err := insertHistory(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"mutations": len(batch.Mutations()),
		"history":   len(batch.History()),
	}).Debug("Committed batch to postgres store")

	return nil
}

func applyMutation(ctx context.Context, tx pgx.Tx, m *entities.Mutation) error {
	switch m.Op {
	case entities.MutationPut:
		if m.ExpectedVersion == 0 {
			tag, err := tx.Exec(ctx, `
				INSERT INTO kv_records (key, value, version)
				VALUES ($1, $2, 1)
				ON CONFLICT (key) DO NOTHING
			`, m.Key, m.Value)
			if err != nil {
				return fmt.Errorf("failed to insert record %s: %w", m.Key, err)
			}
			if tag.RowsAffected() == 0 {
				return versionMismatch(m)
			}
			return nil
		}

		tag, err := tx.Exec(ctx, `
			UPDATE kv_records
			SET value = $2, version = version + 1, updated_at = NOW()
			WHERE key = $1 AND version = $3
		`, m.Key, m.Value, m.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("failed to update record %s: %w", m.Key, err)
		}
		if tag.RowsAffected() == 0 {
			return versionMismatch(m)
		}
		return nil

	case entities.MutationDelete:
		tag, err := tx.Exec(ctx, `DELETE FROM kv_records WHERE key = $1 AND version = $2`, m.Key, m.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("failed to delete record %s: %w", m.Key, err)
		}
		if tag.RowsAffected() == 0 {
			return versionMismatch(m)
		}
		return nil

	case entities.MutationCheck:
		var current int64
		err := tx.QueryRow(ctx, `SELECT version FROM kv_records WHERE key = $1`, m.Key).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to check record %s: %w", m.Key, err)
		}
		if current != m.ExpectedVersion {
			return versionMismatch(m)
		}
		return nil

	default:
		return fmt.Errorf("unknown mutation %s on %s", m.Op, m.Key)
	}
}

func insertHistory(ctx context.Context, tx pgx.Tx, e *entities.HistoryEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal history event: %w", err)
	}

	query := `
		INSERT INTO history_events (event_id, kind, identity, team, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`

	if err := tx.QueryRow(ctx, query, e.ID, string(e.Kind), e.Identity, e.Team, payload, e.CreatedAt).Scan(&e.Seq); err != nil {
		return fmt.Errorf("failed to insert history event: %w", err)
	}
	return nil
}

// QueryHistory returns the matching entries in insertion order
func (s *PostgresStore) QueryHistory(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error) {
	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendPostgres, "query_history")()

	query := `SELECT seq, payload FROM history_events`
	var conditions []string
	var args []any
	if filter.Identity != "" {
		args = append(args, filter.Identity)
		conditions = append(conditions, fmt.Sprintf("identity = $%d", len(args)))
	}
	if filter.Team != "" {
		args = append(args, entities.NormalizeTeamName(filter.Team))
		conditions = append(conditions, fmt.Sprintf("LOWER(team) = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []*entities.HistoryEvent
	for rows.Next() {
		var seq int64
		var payload []byte
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan history event: %w", err)
		}
		var e entities.HistoryEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history event %d: %w", seq, err)
		}
		e.Seq = seq
		out = append(out, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history events: %w", err)
	}

	return out, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func versionMismatch(m *entities.Mutation) error {
	return fmt.Errorf("%w: %s %s expected version %d", entities.ErrVersionMismatch, m.Op, m.Key, m.ExpectedVersion)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

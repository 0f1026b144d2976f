package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
)

// stagedReader reads documents through the unit of work's batch: staged writes are
// visible to later reads, and every store read registers a version check so the
// commit fails if anything the operation looked at has moved.
type stagedReader struct {
	store interfaces.KeyedStore
	batch *entities.Batch
}

// load decodes the document at key into dst. It returns the version the document was
// read at and whether it exists.
func (r *stagedReader) load(ctx context.Context, key string, dst any) (int64, bool, error) {
	staged, isStaged := r.batch.Staged(key)
	if isStaged {
		switch staged.Op {
		case entities.MutationPut:
			if err := json.Unmarshal(staged.Value, dst); err != nil {
				return 0, false, fmt.Errorf("failed to decode staged %s: %w", key, err)
			}
			return staged.ExpectedVersion, true, nil
		case entities.MutationDelete:
			return staged.ExpectedVersion, false, nil
		}
	}

	rec, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}

	var version int64
	if rec != nil {
		version = rec.Version
	}
	if isStaged && staged.ExpectedVersion != version {
		return 0, false, fmt.Errorf("%w: %s moved from version %d to %d",
			entities.ErrVersionMismatch, key, staged.ExpectedVersion, version)
	}
	r.batch.Check(key, version)

	if rec == nil {
		return 0, false, nil
	}
	if err := json.Unmarshal(rec.Value, dst); err != nil {
		return 0, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return version, true, nil
}

// stage encodes value and stages it as a put guarded by version
func (r *stagedReader) stage(key string, version int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	r.batch.Put(key, version, data)
	return nil
}

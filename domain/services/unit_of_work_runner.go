package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// runner executes operation bodies inside units of work. A body whose commit hits a
// version mismatch is rerun from fresh reads, up to maxRetries times.
type runner struct {
	uowFactory  interfaces.UnitOfWorkFactory
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
}

func newRunner(uowFactory interfaces.UnitOfWorkFactory) runner {
	return runner{
		uowFactory:  uowFactory,
		maxRetries:  entities.MaxCASRetries,
		backoffBase: entities.CASBackoffBase,
		backoffMax:  entities.CASBackoffMax,
	}
}

// runInUnitOfWork runs fn and commits its batch. Business errors are returned as is and
// never retried; running out of retries yields entities.ErrConflict.
func runInUnitOfWork[T any](ctx context.Context, r runner, operation string, fn func(uow interfaces.UnitOfWork) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := attemptOnce(ctx, r, fn)
		if err == nil {
			observability.GetMetrics().RecordOperation(operation, observability.OutcomeSuccess)
			return result, nil
		}

		if !errors.Is(err, entities.ErrVersionMismatch) {
			observability.GetMetrics().RecordOperation(operation, outcomeOf(err))
			return zero, err
		}

		if attempt >= r.maxRetries {
			observability.GetMetrics().RecordCASConflict(operation)
			observability.GetMetrics().RecordOperation(operation, observability.OutcomeConflict)
			log.WithFields(log.Fields{
				"operation": operation,
				"attempts":  attempt + 1,
			}).Warn("Operation kept conflicting, giving up")
			return zero, fmt.Errorf("%w: %s gave up after %d attempts: %v", entities.ErrConflict, operation, attempt+1, err)
		}

		observability.GetMetrics().RecordCASRetry(operation)
		log.WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt + 1,
			"error":     err,
		}).Debug("Version mismatch, retrying operation")

		if err := sleepBackoff(ctx, r.backoff(attempt)); err != nil {
			observability.GetMetrics().RecordOperation(operation, observability.OutcomeError)
			return zero, fmt.Errorf("%s cancelled while retrying: %w", operation, err)
		}
	}
}

func attemptOnce[T any](ctx context.Context, r runner, fn func(uow interfaces.UnitOfWork) (T, error)) (T, error) {
	var zero T

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return zero, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Failed to rollback unit of work")
		}
	}()

	result, err := fn(uow)
	if err != nil {
		return zero, err
	}

	if err := uow.Commit(); err != nil {
		return zero, err
	}

	return result, nil
}

// readInUnitOfWork runs a read-only body. Nothing is committed.
func readInUnitOfWork[T any](ctx context.Context, r runner, fn func(uow interfaces.UnitOfWork) (T, error)) (T, error) {
	var zero T

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return zero, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Failed to rollback unit of work")
		}
	}()

	return fn(uow)
}

// backoff returns a jittered delay that doubles per attempt up to backoffMax
func (r runner) backoff(attempt int) time.Duration {
	if r.backoffBase <= 0 {
		return 0
	}
	ceiling := r.backoffBase << min(attempt, 16)
	if r.backoffMax > 0 && ceiling > r.backoffMax {
		ceiling = r.backoffMax
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceiling))) + 1
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var businessErrors = []error{
	entities.ErrNotFound,
	entities.ErrValidation,
	entities.ErrConflict,
	entities.ErrInvalidState,
	entities.ErrExhausted,
	entities.ErrAlreadyUsed,
	entities.ErrUnavailable,
	entities.ErrInsufficientBalance,
}

func outcomeOf(err error) string {
	for _, kind := range businessErrors {
		if errors.Is(err, kind) {
			return observability.OutcomeRejected
		}
	}
	return observability.OutcomeError
}

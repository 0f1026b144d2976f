package utils

import (
	"context"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"

	log "github.com/sirupsen/logrus"
)

// RecordHistory appends a history entry and queues it for the audit sink.
// This is the single entry point for history writes in the system.
func RecordHistory(ctx context.Context, historyRepo interfaces.HistoryRepository, eventPublisher interfaces.EventPublisher, entry *entities.HistoryEvent) error {
	if err := historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}

	log.WithFields(log.Fields{
		"kind":     entry.Kind,
		"identity": entry.Identity,
		"team":     entry.Team,
	}).Debug("Publishing HistoryAppendedEvent")
	if err := eventPublisher.Publish(events.HistoryAppendedEvent{Entry: entry}); err != nil {
		log.WithError(err).Error("Failed to publish history appended event")
	}

	return nil
}

// PublishTokenChange emits a TokenBalanceChangedEvent when the balance moved
func PublishTokenChange(eventPublisher interfaces.EventPublisher, identity string, oldBalance, newBalance int64, reason string) {
	if oldBalance == newBalance {
		return
	}

	event := events.TokenBalanceChangedEvent{
		Identity:     identity,
		OldBalance:   oldBalance,
		NewBalance:   newBalance,
		ChangeAmount: newBalance - oldBalance,
		Reason:       reason,
	}
	log.WithFields(log.Fields{
		"identity":     event.Identity,
		"oldBalance":   event.OldBalance,
		"newBalance":   event.NewBalance,
		"changeAmount": event.ChangeAmount,
		"reason":       event.Reason,
	}).Debug("Publishing TokenBalanceChangedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish token balance change event")
	}
}

// PublishLevelUp emits a LevelUpEvent when the grant crossed a level boundary
func PublishLevelUp(eventPublisher interfaces.EventPublisher, grant *entities.ExperienceGrant) {
	if !grant.LeveledUp() {
		return
	}

	event := events.LevelUpEvent{
		Identity: grant.Identity,
		OldLevel: grant.OldLevel,
		NewLevel: grant.NewLevel,
		Reason:   grant.Reason,
	}
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish level up event")
	}
}

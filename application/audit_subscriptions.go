package application

import (
	"context"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"

	log "github.com/sirupsen/logrus"
)

// EventSubscriber is the subscription side of the in-process bus
type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler)
}

// RegisterAuditSubscriptions logs every committed ledger event. It stands in for the
// audit channel when events stay in process.
func RegisterAuditSubscriptions(subscriber EventSubscriber) {
	subscriber.Subscribe(events.EventTypeHistoryAppended, handleHistoryAppended)
	subscriber.Subscribe(events.EventTypeTokenBalanceChanged, handleTokenBalanceChanged)
	subscriber.Subscribe(events.EventTypeLevelUp, handleLevelUp)
}

func handleHistoryAppended(ctx context.Context, event events.Event) {
	e, ok := event.(events.HistoryAppendedEvent)
	if !ok || e.Entry == nil {
		return
	}
	log.WithFields(log.Fields{
		"seq":      e.Entry.Seq,
		"kind":     e.Entry.Kind,
		"identity": e.Entry.Identity,
		"team":     e.Entry.Team,
		"tokens":   e.Entry.Tokens,
		"amount":   e.Entry.Amount,
		"result":   e.Entry.Result,
		"code":     e.Entry.Code,
	}).Info("Ledger history")
}

func handleTokenBalanceChanged(ctx context.Context, event events.Event) {
	e, ok := event.(events.TokenBalanceChangedEvent)
	if !ok {
		return
	}
	log.WithFields(log.Fields{
		"identity": e.Identity,
		"old":      e.OldBalance,
		"new":      e.NewBalance,
		"change":   e.ChangeAmount,
		"reason":   e.Reason,
	}).Info("Token balance changed")
}

func handleLevelUp(ctx context.Context, event events.Event) {
	e, ok := event.(events.LevelUpEvent)
	if !ok {
		return
	}
	log.WithFields(log.Fields{
		"identity": e.Identity,
		"oldLevel": e.OldLevel,
		"newLevel": e.NewLevel,
		"reason":   e.Reason,
	}).Info("Level up")
}

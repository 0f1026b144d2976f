package infrastructure

import (
	"testing"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"

	"github.com/stretchr/testify/assert"
)

func TestEventSubjectMapper_MapEventToSubject(t *testing.T) {
	t.Parallel()

	mapper := NewEventSubjectMapper()

	tests := []struct {
		name     string
		event    events.Event
		expected string
	}{
		{
			name:     "payout history entry",
			event:    events.HistoryAppendedEvent{Entry: &entities.HistoryEvent{Kind: entities.HistoryKindPayout}},
			expected: "ledger.history.payout",
		},
		{
			name:     "team resolved history entry",
			event:    events.HistoryAppendedEvent{Entry: &entities.HistoryEvent{Kind: entities.HistoryKindTeamResolved}},
			expected: "ledger.history.team_resolved",
		},
		{
			name:     "history event without entry",
			event:    events.HistoryAppendedEvent{},
			expected: "ledger.history.unknown",
		},
		{
			name:     "token balance change",
			event:    events.TokenBalanceChangedEvent{Identity: "user-1"},
			expected: "ledger.accounts.tokens_changed",
		},
		{
			name:     "level up",
			event:    events.LevelUpEvent{Identity: "user-1"},
			expected: "ledger.accounts.level_up",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, mapper.MapEventToSubject(tt.event))
		})
	}
}

func TestEventSubjectMapper_MapSubjectToEventType(t *testing.T) {
	t.Parallel()

	mapper := NewEventSubjectMapper()

	assert.Equal(t, events.EventTypeHistoryAppended, mapper.MapSubjectToEventType("ledger.history.bet_placed"))
	assert.Equal(t, events.EventTypeTokenBalanceChanged, mapper.MapSubjectToEventType("ledger.accounts.tokens_changed"))
	assert.Equal(t, events.EventTypeLevelUp, mapper.MapSubjectToEventType("ledger.accounts.level_up"))
	assert.Equal(t, events.EventType("other.subject"), mapper.MapSubjectToEventType("other.subject"))
}

func TestEventSubjectMapper_GetAllSubjectsCoversMappedSubjects(t *testing.T) {
	t.Parallel()

	mapper := NewEventSubjectMapper()
	subjects := mapper.GetAllSubjects()

	assert.Contains(t, subjects, "ledger.history.*")
	assert.Contains(t, subjects, mapper.MapEventToSubject(events.TokenBalanceChangedEvent{}))
	assert.Contains(t, subjects, mapper.MapEventToSubject(events.LevelUpEvent{}))
}

package infrastructure

import (
	"fmt"
	"strings"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"
)

// Subjects the ledger publishes to
const (
	SubjectPrefix              = "ledger"
	SubjectHistoryPrefix       = SubjectPrefix + ".history."
	SubjectTokenBalanceChanged = SubjectPrefix + ".accounts.tokens_changed"
	SubjectLevelUp             = SubjectPrefix + ".accounts.level_up"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject.
// History entries fan out by kind so the audit channel can subscribe selectively.
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch e := event.(type) {
	case events.HistoryAppendedEvent:
		if e.Entry == nil {
			return SubjectHistoryPrefix + "unknown"
		}
		return SubjectHistoryPrefix + string(e.Entry.Kind)
	case events.TokenBalanceChangedEvent:
		return SubjectTokenBalanceChanged
	case events.LevelUpEvent:
		return SubjectLevelUp
	default:
		// Fallback for unknown event types
		return fmt.Sprintf("%s.unknown.%s", SubjectPrefix, event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch {
	case strings.HasPrefix(subject, SubjectHistoryPrefix):
		return events.EventTypeHistoryAppended
	case subject == SubjectTokenBalanceChanged:
		return events.EventTypeTokenBalanceChanged
	case subject == SubjectLevelUp:
		return events.EventTypeLevelUp
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns the subject filters the ledger stream captures
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		SubjectHistoryPrefix + "*",
		SubjectTokenBalanceChanged,
		SubjectLevelUp,
	}
}

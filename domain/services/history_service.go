package services

import (
	"context"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/utils"
)

// historyService implements the HistoryService interface
type historyService struct {
	runner runner
}

// NewHistoryService creates a new history service
func NewHistoryService(uowFactory interfaces.UnitOfWorkFactory) interfaces.HistoryService {
	return &historyService{runner: newRunner(uowFactory)}
}

// Append stores event after every prior entry and returns it with its id, sequence number and timestamp
func (s *historyService) Append(ctx context.Context, event *entities.HistoryEvent) (*entities.HistoryEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: history event must not be nil", entities.ErrValidation)
	}

	return runInUnitOfWork(ctx, s.runner, "append_history", func(uow interfaces.UnitOfWork) (*entities.HistoryEvent, error) {
		entry := *event
		entry.ID = ""
		entry.Seq = 0
		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entry); err != nil {
			return nil, err
		}
		return &entry, nil
	})
}

// QueryByIdentity returns identity's entries in insertion order
func (s *historyService) QueryByIdentity(ctx context.Context, identity string) ([]*entities.HistoryEvent, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity must not be empty", entities.ErrValidation)
	}
	return s.query(ctx, entities.HistoryFilter{Identity: identity})
}

// QueryByTeam returns the team's entries in insertion order, matching the name case-insensitively
func (s *historyService) QueryByTeam(ctx context.Context, team string) ([]*entities.HistoryEvent, error) {
	if entities.NormalizeTeamName(team) == "" {
		return nil, fmt.Errorf("%w: team must not be empty", entities.ErrValidation)
	}
	return s.query(ctx, entities.HistoryFilter{Team: team})
}

func (s *historyService) query(ctx context.Context, filter entities.HistoryFilter) ([]*entities.HistoryEvent, error) {
	return readInUnitOfWork(ctx, s.runner, func(uow interfaces.UnitOfWork) ([]*entities.HistoryEvent, error) {
		return uow.HistoryRepository().Query(ctx, filter)
	})
}

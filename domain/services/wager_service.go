package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/utils"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// Token change reasons
const (
	reasonBet    = "bet"
	reasonRefund = "refund"
)

// wagerService implements the WagerService interface
type wagerService struct {
	runner runner
	now    func() time.Time
}

// NewWagerService creates a new wager service
func NewWagerService(uowFactory interfaces.UnitOfWorkFactory) interfaces.WagerService {
	return &wagerService{
		runner: newRunner(uowFactory),
		now:    time.Now,
	}
}

// CreateTeam creates an open team. The name must be unused among live teams, no member
// may play on another live team and no live team may have the same member set.
func (s *wagerService) CreateTeam(ctx context.Context, name string, members []string) (*entities.Team, error) {
	team, err := entities.NewTeam(name, members, s.now())
	if err != nil {
		return nil, err
	}

	var openTeams int64
	created, err := runInUnitOfWork(ctx, s.runner, "create_team", func(uow interfaces.UnitOfWork) (*entities.Team, error) {
		teams := uow.TeamRepository()

		roster, err := teams.GetRoster(ctx)
		if err != nil {
			return nil, err
		}
		existing, err := teams.GetByName(ctx, team.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil || roster.Contains(team.Name) {
			return nil, fmt.Errorf("%w: team %s already exists", entities.ErrConflict, team.Name)
		}
		if err := roster.CheckAvailable(team.Name, team.Members); err != nil {
			return nil, err
		}

		created := *team
		roster.Put(&created)
		openTeams = int64(len(roster.Teams))

		if err := teams.Save(ctx, &created); err != nil {
			return nil, err
		}
		if err := teams.SaveRoster(ctx, roster); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:    entities.HistoryKindTeamCreated,
			Team:    created.Name,
			Members: created.Members,
		}); err != nil {
			return nil, err
		}

		return &created, nil
	})
	if err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordOpenTeams(openTeams)
	return created, nil
}

// ReplaceMember swaps oldID for newID on an open team
func (s *wagerService) ReplaceMember(ctx context.Context, teamName, oldID, newID string) (*entities.Team, error) {
	return runInUnitOfWork(ctx, s.runner, "replace_member", func(uow interfaces.UnitOfWork) (*entities.Team, error) {
		teams := uow.TeamRepository()

		team, err := teams.GetByName(ctx, teamName)
		if err != nil {
			return nil, err
		}
		if team == nil {
			return nil, fmt.Errorf("%w: team %s", entities.ErrNotFound, teamName)
		}

		if err := team.ReplaceMember(oldID, newID); err != nil {
			return nil, err
		}

		roster, err := teams.GetRoster(ctx)
		if err != nil {
			return nil, err
		}
		if err := roster.CheckAvailable(team.Name, team.Members); err != nil {
			return nil, err
		}
		roster.Put(team)

		if err := teams.Save(ctx, team); err != nil {
			return nil, err
		}
		if err := teams.SaveRoster(ctx, roster); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindTeamMemberReplaced,
			Identity: newID,
			Team:     team.Name,
			Members:  team.Members,
			Reason:   "replaced " + oldID,
		}); err != nil {
			return nil, err
		}

		return team, nil
	})
}

// DeleteTeam removes an open team and refunds every open bet on it
func (s *wagerService) DeleteTeam(ctx context.Context, name string) error {
	var openTeams int64
	_, err := runInUnitOfWork(ctx, s.runner, "delete_team", func(uow interfaces.UnitOfWork) (struct{}, error) {
		teams := uow.TeamRepository()

		team, err := teams.GetByName(ctx, name)
		if err != nil {
			return struct{}{}, err
		}
		if team == nil {
			return struct{}{}, fmt.Errorf("%w: team %s", entities.ErrNotFound, name)
		}

		for _, bet := range team.ClearBets() {
			account, err := uow.AccountRepository().GetByIdentity(ctx, bet.Identity)
			if err != nil {
				return struct{}{}, err
			}
			oldTokens := account.DoubleTokens
			account.CreditTokens(bet.Tokens)
			if err := uow.AccountRepository().Save(ctx, account); err != nil {
				return struct{}{}, err
			}

			if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
				Kind:     entities.HistoryKindBetRefunded,
				Identity: bet.Identity,
				Team:     team.Name,
				Tokens:   bet.Tokens,
				WindowID: bet.WindowID,
			}); err != nil {
				return struct{}{}, err
			}
			utils.PublishTokenChange(uow.EventBus(), bet.Identity, oldTokens, account.DoubleTokens, reasonRefund)
		}

		roster, err := teams.GetRoster(ctx)
		if err != nil {
			return struct{}{}, err
		}
		roster.Remove(team.Name)
		openTeams = int64(len(roster.Teams))

		if err := teams.Delete(ctx, team); err != nil {
			return struct{}{}, err
		}
		if err := teams.SaveRoster(ctx, roster); err != nil {
			return struct{}{}, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:    entities.HistoryKindTeamDeleted,
			Team:    team.Name,
			Members: team.Members,
		}); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	observability.GetMetrics().RecordOpenTeams(openTeams)
	return nil
}

// PlaceBet stakes tokens on an open team. The checks run in order: stake range, the
// scope's wagering window, the team, then the balance. The commit is guarded by the
// version of the settings it read, so a window closed concurrently rejects the bet.
func (s *wagerService) PlaceBet(ctx context.Context, scope, identity, teamName string, tokens int64) (*entities.Bet, error) {
	if err := entities.ValidateBetTokens(tokens); err != nil {
		return nil, err
	}
	if identity == "" {
		return nil, fmt.Errorf("%w: identity must not be empty", entities.ErrValidation)
	}

	return runInUnitOfWork(ctx, s.runner, "place_bet", func(uow interfaces.UnitOfWork) (*entities.Bet, error) {
		settings, err := uow.SettingsRepository().GetByScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		if !settings.WageringEnabled {
			return nil, fmt.Errorf("%w: wagering is closed in %s", entities.ErrUnavailable, scope)
		}

		team, err := uow.TeamRepository().GetByName(ctx, teamName)
		if err != nil {
			return nil, err
		}
		if team == nil || !team.IsOpen() {
			return nil, fmt.Errorf("%w: no open team %s", entities.ErrNotFound, teamName)
		}

		account, err := uow.AccountRepository().GetByIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}
		oldTokens := account.DoubleTokens
		if err := account.DebitTokens(tokens); err != nil {
			return nil, err
		}

		bet := &entities.Bet{
			Identity: identity,
			Team:     team.Name,
			Tokens:   tokens,
			WindowID: settings.WageringWindowID,
			PlacedAt: s.now().UTC(),
		}
		if err := team.AddBet(bet); err != nil {
			return nil, err
		}

		if err := uow.AccountRepository().Save(ctx, account); err != nil {
			return nil, err
		}
		if err := uow.TeamRepository().Save(ctx, team); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindBetPlaced,
			Identity: identity,
			Team:     team.Name,
			Scope:    scope,
			Tokens:   tokens,
			WindowID: settings.WageringWindowID,
		}); err != nil {
			return nil, err
		}
		utils.PublishTokenChange(uow.EventBus(), identity, oldTokens, account.DoubleTokens, reasonBet)

		return bet, nil
	})
}

// ResolveTeam closes a team with result, credits every bettor rate*tokens experience
// through the grant rule and archives the team, all in one commit
func (s *wagerService) ResolveTeam(ctx context.Context, name string, result entities.TeamResult) (*entities.TeamResolution, error) {
	parsed, err := entities.ParseTeamResult(string(result))
	if err != nil {
		return nil, err
	}

	var openTeams int64
	resolution, err := runInUnitOfWork(ctx, s.runner, "resolve_team", func(uow interfaces.UnitOfWork) (*entities.TeamResolution, error) {
		teams := uow.TeamRepository()

		team, err := teams.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if team == nil {
			return nil, fmt.Errorf("%w: team %s", entities.ErrNotFound, name)
		}

		if err := team.Resolve(parsed, s.now()); err != nil {
			return nil, err
		}

		resolution := &entities.TeamResolution{
			Team:    team.Name,
			Members: team.Members,
			Result:  parsed,
			Rate:    parsed.PayoutRate(),
			Payouts: []*entities.Payout{},
		}

		for _, bet := range team.ClearBets() {
			account, err := uow.AccountRepository().GetByIdentity(ctx, bet.Identity)
			if err != nil {
				return nil, err
			}

			grant, err := grantExperience(uow, account, resolution.Rate*bet.Tokens, entities.ReasonPayout)
			if err != nil {
				return nil, err
			}
			if grant.Granted > 0 {
				if err := uow.AccountRepository().Save(ctx, account); err != nil {
					return nil, err
				}
			}

			resolution.Payouts = append(resolution.Payouts, &entities.Payout{
				Identity: bet.Identity,
				Tokens:   bet.Tokens,
				Granted:  grant.Granted,
				OldLevel: grant.OldLevel,
				NewLevel: grant.NewLevel,
			})

			if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
				Kind:     entities.HistoryKindPayout,
				Identity: bet.Identity,
				Team:     team.Name,
				Tokens:   bet.Tokens,
				WindowID: bet.WindowID,
				Amount:   grant.Granted,
				Result:   parsed,
			}); err != nil {
				return nil, err
			}
		}

		roster, err := teams.GetRoster(ctx)
		if err != nil {
			return nil, err
		}
		roster.Remove(team.Name)
		openTeams = int64(len(roster.Teams))

		if err := teams.Archive(ctx, team); err != nil {
			return nil, err
		}
		if err := teams.SaveRoster(ctx, roster); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:    entities.HistoryKindTeamResolved,
			Team:    team.Name,
			Members: team.Members,
			Result:  parsed,
			Amount:  resolution.TotalGranted(),
		}); err != nil {
			return nil, err
		}

		return resolution, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"team":    resolution.Team,
		"result":  resolution.Result,
		"payouts": len(resolution.Payouts),
		"granted": resolution.TotalGranted(),
	}).Info("Resolved team")

	observability.GetMetrics().RecordOpenTeams(openTeams)
	observability.GetMetrics().RecordExperienceGranted(entities.ReasonPayout, resolution.TotalGranted())
	return resolution, nil
}

// GetTeam looks up a live team
func (s *wagerService) GetTeam(ctx context.Context, name string) (*entities.Team, error) {
	return readInUnitOfWork(ctx, s.runner, func(uow interfaces.UnitOfWork) (*entities.Team, error) {
		team, err := uow.TeamRepository().GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if team == nil {
			return nil, fmt.Errorf("%w: team %s", entities.ErrNotFound, name)
		}
		return team, nil
	})
}

// ListTeams returns every live team ordered by normalized name
func (s *wagerService) ListTeams(ctx context.Context) ([]*entities.Team, error) {
	return readInUnitOfWork(ctx, s.runner, func(uow interfaces.UnitOfWork) ([]*entities.Team, error) {
		return uow.TeamRepository().ListOpen(ctx)
	})
}

// ListBets returns the open bets of identity across live teams
func (s *wagerService) ListBets(ctx context.Context, identity string) ([]*entities.Bet, error) {
	teams, err := s.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	bets := []*entities.Bet{}
	for _, team := range teams {
		bets = append(bets, team.BetsBy(identity)...)
	}
	return bets, nil
}

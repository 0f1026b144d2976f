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

// Account history reasons
const (
	reasonAdminUpdate = "admin_update"
	reasonPremiumOn   = "premium_on"
	reasonPremiumOff  = "premium_off"
	reasonReset       = "reset"
)

// accountService implements the AccountService interface
type accountService struct {
	runner runner
	now    func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory interfaces.UnitOfWorkFactory) interfaces.AccountService {
	return &accountService{
		runner: newRunner(uowFactory),
		now:    time.Now,
	}
}

// GetAccount returns the account or its defaults
func (s *accountService) GetAccount(ctx context.Context, identity string) (*entities.Account, error) {
	return readInUnitOfWork(ctx, s.runner, func(uow interfaces.UnitOfWork) (*entities.Account, error) {
		return uow.AccountRepository().GetByIdentity(ctx, identity)
	})
}

// SetAccount overwrites the fields present in patch. Experience set here bypasses the premium multiplier.
func (s *accountService) SetAccount(ctx context.Context, identity string, patch *entities.AccountPatch) (*entities.Account, error) {
	if patch == nil || patch.IsEmpty() {
		return nil, fmt.Errorf("%w: account patch must change at least one field", entities.ErrValidation)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	return runInUnitOfWork(ctx, s.runner, "set_account", func(uow interfaces.UnitOfWork) (*entities.Account, error) {
		account, err := uow.AccountRepository().GetByIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

		oldTokens := account.DoubleTokens
		account.Apply(patch, s.now())

		if err := uow.AccountRepository().Save(ctx, account); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindAccountUpdated,
			Identity: identity,
			Amount:   account.Experience,
			Tokens:   account.DoubleTokens,
			Reason:   reasonAdminUpdate,
		}); err != nil {
			return nil, err
		}
		utils.PublishTokenChange(uow.EventBus(), identity, oldTokens, account.DoubleTokens, reasonAdminUpdate)

		return account, nil
	})
}

// GrantExperience adds experience to an account, applying the premium multiplier
func (s *accountService) GrantExperience(ctx context.Context, identity string, baseAmount int64, reason string) (*entities.ExperienceGrant, error) {
	if baseAmount < 0 {
		return nil, fmt.Errorf("%w: experience amount must not be negative, got %d", entities.ErrValidation, baseAmount)
	}

	grant, err := runInUnitOfWork(ctx, s.runner, "grant_experience", func(uow interfaces.UnitOfWork) (*entities.ExperienceGrant, error) {
		account, err := uow.AccountRepository().GetByIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

		grant, err := grantExperience(uow, account, baseAmount, reason)
		if err != nil {
			return nil, err
		}

		if err := uow.AccountRepository().Save(ctx, account); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindExperienceGranted,
			Identity: identity,
			Amount:   grant.Granted,
			Reason:   reason,
		}); err != nil {
			return nil, err
		}

		return grant, nil
	})
	if err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordExperienceGranted(reason, grant.Granted)
	return grant, nil
}

// SetPremium switches premium on or off
func (s *accountService) SetPremium(ctx context.Context, identity string, on bool) (*entities.Account, error) {
	reason := reasonPremiumOff
	if on {
		reason = reasonPremiumOn
	}

	return runInUnitOfWork(ctx, s.runner, "set_premium", func(uow interfaces.UnitOfWork) (*entities.Account, error) {
		account, err := uow.AccountRepository().GetByIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

		account.SetPremium(on, s.now())

		if err := uow.AccountRepository().Save(ctx, account); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindAccountUpdated,
			Identity: identity,
			Reason:   reason,
		}); err != nil {
			return nil, err
		}

		return account, nil
	})
}

// GrantInvite records one invite and grants its experience reward
func (s *accountService) GrantInvite(ctx context.Context, identity string) (*entities.ExperienceGrant, error) {
	grant, err := runInUnitOfWork(ctx, s.runner, "grant_invite", func(uow interfaces.UnitOfWork) (*entities.ExperienceGrant, error) {
		account, err := uow.AccountRepository().GetByIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

		account.Invites++
		grant, err := grantExperience(uow, account, entities.InviteExperience, entities.ReasonInvite)
		if err != nil {
			return nil, err
		}

		if err := uow.AccountRepository().Save(ctx, account); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindExperienceGranted,
			Identity: identity,
			Amount:   grant.Granted,
			Reason:   entities.ReasonInvite,
		}); err != nil {
			return nil, err
		}

		return grant, nil
	})
	if err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordExperienceGranted(entities.ReasonInvite, grant.Granted)
	return grant, nil
}

// ResetAccount zeroes experience and every counter. Premium state is kept.
func (s *accountService) ResetAccount(ctx context.Context, identity string) (*entities.Account, error) {
	return runInUnitOfWork(ctx, s.runner, "reset_account", func(uow interfaces.UnitOfWork) (*entities.Account, error) {
		account, err := uow.AccountRepository().GetByIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

		oldTokens := account.DoubleTokens
		account.Reset()

		if err := uow.AccountRepository().Save(ctx, account); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindAccountUpdated,
			Identity: identity,
			Reason:   reasonReset,
		}); err != nil {
			return nil, err
		}
		utils.PublishTokenChange(uow.EventBus(), identity, oldTokens, account.DoubleTokens, reasonReset)

		return account, nil
	})
}

// Progress derives level progress from an experience total
func (s *accountService) Progress(experience int64) entities.Progress {
	return entities.ProgressForExperience(experience)
}

// grantExperience applies a grant to an account loaded in uow and queues the level-up event.
// Every experience increase in the ledger goes through here.
func grantExperience(uow interfaces.UnitOfWork, account *entities.Account, baseAmount int64, reason string) (*entities.ExperienceGrant, error) {
	grant, err := account.GrantExperience(baseAmount, reason)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"identity": grant.Identity,
		"base":     grant.Base,
		"granted":  grant.Granted,
		"reason":   reason,
		"oldLevel": grant.OldLevel,
		"newLevel": grant.NewLevel,
	}).Debug("Granted experience")

	utils.PublishLevelUp(uow.EventBus(), grant)
	return grant, nil
}

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

// promoService implements the PromoService interface
type promoService struct {
	runner runner
	now    func() time.Time
}

// NewPromoService creates a new promo service
func NewPromoService(uowFactory interfaces.UnitOfWorkFactory) interfaces.PromoService {
	return &promoService{
		runner: newRunner(uowFactory),
		now:    time.Now,
	}
}

// CreateCode creates a promo code. An existing code with the same identifier is
// replaced and its usage starts over.
func (s *promoService) CreateCode(ctx context.Context, code string, rewards entities.PromoRewards, expiresAt *time.Time, maxUses int) (*entities.PromoCode, error) {
	promo, err := entities.NewPromoCode(code, rewards, expiresAt, maxUses, s.now())
	if err != nil {
		return nil, err
	}

	return runInUnitOfWork(ctx, s.runner, "create_promo_code", func(uow interfaces.UnitOfWork) (*entities.PromoCode, error) {
		created := *promo
		created.UsedBy = []string{}

		existing, err := uow.PromoCodeRepository().GetByCode(ctx, created.Code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.WithFields(log.Fields{
				"code":      existing.Code,
				"usedCount": existing.UsedCount,
			}).Info("Replacing existing promo code")
			created.Version = existing.Version
		}

		if err := uow.PromoCodeRepository().Save(ctx, &created); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:   entities.HistoryKindPromoCreated,
			Code:   created.Code,
			Amount: created.Rewards.Experience,
			Tokens: created.Rewards.Tokens,
		}); err != nil {
			return nil, err
		}

		return &created, nil
	})
}

// Redeem applies the rewards of code to identity. The checks run in order: the code
// must exist, must not be exhausted and must not have been used by identity.
func (s *promoService) Redeem(ctx context.Context, code, identity string) (*entities.PromoRedemption, error) {
	if entities.NormalizePromoCode(code) == "" {
		return nil, fmt.Errorf("%w: promo code must not be empty", entities.ErrValidation)
	}
	if identity == "" {
		return nil, fmt.Errorf("%w: identity must not be empty", entities.ErrValidation)
	}

	redemption, err := runInUnitOfWork(ctx, s.runner, "redeem_promo_code", func(uow interfaces.UnitOfWork) (*entities.PromoRedemption, error) {
		promo, err := uow.PromoCodeRepository().GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if promo == nil {
			return nil, fmt.Errorf("%w: promo code %s", entities.ErrNotFound, entities.NormalizePromoCode(code))
		}

		if err := promo.CheckRedeemable(identity, s.now()); err != nil {
			return nil, err
		}

		account, err := uow.AccountRepository().GetByIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

		redemption := &entities.PromoRedemption{
			Code:     promo.Code,
			Identity: identity,
			OldLevel: account.Level(),
		}
		oldTokens := account.DoubleTokens
		rewards := promo.Rewards

		// Experience uses the premium state from before this redemption
		if rewards.Experience > 0 {
			grant, err := grantExperience(uow, account, rewards.Experience, entities.ReasonPromo)
			if err != nil {
				return nil, err
			}
			redemption.Granted.Experience = grant.Granted
		}
		if rewards.Tokens > 0 {
			account.CreditTokens(rewards.Tokens)
			redemption.Granted.Tokens = rewards.Tokens
		}
		if rewards.RafflePoints > 0 {
			account.RafflePoints += rewards.RafflePoints
			redemption.Granted.RafflePoints = rewards.RafflePoints
		}
		if rewards.CardPacks > 0 {
			account.CardPacks += rewards.CardPacks
			redemption.Granted.CardPacks = rewards.CardPacks
		}
		if rewards.PremiumGrant {
			account.SetPremium(true, s.now())
			redemption.Granted.PremiumGrant = true
		}
		redemption.NewLevel = account.Level()

		promo.MarkUsed(identity)

		if err := uow.PromoCodeRepository().Save(ctx, promo); err != nil {
			return nil, err
		}
		if err := uow.AccountRepository().Save(ctx, account); err != nil {
			return nil, err
		}

		if err := utils.RecordHistory(ctx, uow.HistoryRepository(), uow.EventBus(), &entities.HistoryEvent{
			Kind:     entities.HistoryKindPromoRedeemed,
			Identity: identity,
			Code:     promo.Code,
			Amount:   redemption.Granted.Experience,
			Tokens:   redemption.Granted.Tokens,
			Reason:   entities.ReasonPromo,
		}); err != nil {
			return nil, err
		}
		utils.PublishTokenChange(uow.EventBus(), identity, oldTokens, account.DoubleTokens, entities.ReasonPromo)

		return redemption, nil
	})
	if err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordExperienceGranted(entities.ReasonPromo, redemption.Granted.Experience)
	return redemption, nil
}

// GetCode looks up a promo code
func (s *promoService) GetCode(ctx context.Context, code string) (*entities.PromoCode, error) {
	return readInUnitOfWork(ctx, s.runner, func(uow interfaces.UnitOfWork) (*entities.PromoCode, error) {
		promo, err := uow.PromoCodeRepository().GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if promo == nil {
			return nil, fmt.Errorf("%w: promo code %s", entities.ErrNotFound, entities.NormalizePromoCode(code))
		}
		return promo, nil
	})
}

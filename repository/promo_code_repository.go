package repository

import (
	"context"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
)

// promoCodeRepository implements interfaces.PromoCodeRepository over the keyed store
type promoCodeRepository struct {
	reader stagedReader
}

func newPromoCodeRepository(store interfaces.KeyedStore, batch *entities.Batch) *promoCodeRepository {
	return &promoCodeRepository{reader: stagedReader{store: store, batch: batch}}
}

// GetByCode returns the promo code, or nil if it does not exist
func (r *promoCodeRepository) GetByCode(ctx context.Context, code string) (*entities.PromoCode, error) {
	var promo entities.PromoCode
	version, found, err := r.reader.load(ctx, PromoKey(code), &promo)
	if err != nil {
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	if !found {
		return nil, nil
	}
	if promo.UsedBy == nil {
		promo.UsedBy = []string{}
	}
	promo.Version = version
	return &promo, nil
}

// Save stages the promo code
func (r *promoCodeRepository) Save(ctx context.Context, promo *entities.PromoCode) error {
	return r.reader.stage(PromoKey(promo.Code), promo.Version, promo)
}

package entities

import "fmt"

// PromoRewards enumerates what a promo code grants. A zero field is absent.
type PromoRewards struct {
	Experience   int64 `json:"xp,omitempty"`
	Tokens       int64 `json:"tokens,omitempty"` // credited to double tokens
	RafflePoints int64 `json:"raffle_points,omitempty"`
	CardPacks    int64 `json:"card_packs,omitempty"`
	PremiumGrant bool  `json:"premium,omitempty"`
}

// Validate rejects negative amounts and empty reward sets
func (r PromoRewards) Validate() error {
	amounts := map[string]int64{
		"xp":            r.Experience,
		"tokens":        r.Tokens,
		"raffle_points": r.RafflePoints,
		"card_packs":    r.CardPacks,
	}
	for name, amount := range amounts {
		if amount < 0 {
			return fmt.Errorf("%w: reward %s must not be negative, got %d", ErrValidation, name, amount)
		}
	}
	if r.IsEmpty() {
		return fmt.Errorf("%w: promo code must grant at least one reward", ErrValidation)
	}
	return nil
}

// IsEmpty reports whether no reward kind is present
func (r PromoRewards) IsEmpty() bool {
	return r.Experience == 0 && r.Tokens == 0 && r.RafflePoints == 0 && r.CardPacks == 0 && !r.PremiumGrant
}

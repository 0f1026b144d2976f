package entities

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// PromoCode is a redeemable bundle of rewards, usable at most once per identity
type PromoCode struct {
	Code      string       `json:"code"`
	Rewards   PromoRewards `json:"rewards"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	MaxUses   int          `json:"max_uses"` // 0 means unlimited
	UsedCount int          `json:"used_count"`
	UsedBy    []string     `json:"used_by"`
	CreatedAt time.Time    `json:"created_at"`

	Version int64 `json:"-"`
}

// NormalizePromoCode trims and upper-cases a code
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewPromoCode validates the inputs and builds a fresh, unused code
func NewPromoCode(code string, rewards PromoRewards, expiresAt *time.Time, maxUses int, now time.Time) (*PromoCode, error) {
	normalized := NormalizePromoCode(code)
	if normalized == "" {
		return nil, fmt.Errorf("%w: promo code must not be empty", ErrValidation)
	}
	if maxUses < 0 {
		return nil, fmt.Errorf("%w: max uses must not be negative, got %d", ErrValidation, maxUses)
	}
	if err := rewards.Validate(); err != nil {
		return nil, err
	}

	var expiry *time.Time
	if expiresAt != nil {
		e := expiresAt.UTC()
		expiry = &e
	}

	return &PromoCode{
		Code:      normalized,
		Rewards:   rewards,
		ExpiresAt: expiry,
		MaxUses:   maxUses,
		UsedBy:    []string{},
		CreatedAt: now.UTC(),
	}, nil
}

// IsExpired checks whether the expiry has passed
func (p *PromoCode) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// IsExhausted checks whether the code is expired or out of uses
func (p *PromoCode) IsExhausted(now time.Time) bool {
	return p.IsExpired(now) || (p.MaxUses > 0 && p.UsedCount >= p.MaxUses)
}

// HasBeenUsedBy checks whether identity already redeemed the code
func (p *PromoCode) HasBeenUsedBy(identity string) bool {
	return slices.Contains(p.UsedBy, identity)
}

// CheckRedeemable applies the redemption checks in order: exhausted, then already used
func (p *PromoCode) CheckRedeemable(identity string, now time.Time) error {
	if p.IsExhausted(now) {
		return fmt.Errorf("%w: %s", ErrExhausted, p.Code)
	}
	if p.HasBeenUsedBy(identity) {
		return fmt.Errorf("%w: %s by %s", ErrAlreadyUsed, p.Code, identity)
	}
	return nil
}

// MarkUsed records identity as a redeemer
func (p *PromoCode) MarkUsed(identity string) {
	if p.HasBeenUsedBy(identity) {
		return
	}
	p.UsedBy = append(p.UsedBy, identity)
	p.UsedCount = len(p.UsedBy)
}

// RemainingUses returns how many redemptions are left, or -1 when unlimited
func (p *PromoCode) RemainingUses() int {
	if p.MaxUses == 0 {
		return -1
	}
	return max(p.MaxUses-p.UsedCount, 0)
}

// PromoRedemption is the result of a successful redemption
type PromoRedemption struct {
	Code     string       `json:"code"`
	Identity string       `json:"identity"`
	Granted  PromoRewards `json:"granted"` // experience is the amount after the premium multiplier
	OldLevel int          `json:"old_level"`
	NewLevel int          `json:"new_level"`
}

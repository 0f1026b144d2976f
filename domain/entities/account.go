package entities

import (
	"fmt"
	"math"
	"time"
)

// Account is the per-identity progression record
type Account struct {
	Identity     string     `json:"identity"`
	Experience   int64      `json:"xp"`
	Invites      int64      `json:"invites"`
	RafflePoints int64      `json:"raffle_points"`
	DoubleTokens int64      `json:"double_tokens"`
	CardPacks    int64      `json:"card_packs"`
	Premium      bool       `json:"premium"`
	PremiumSince *time.Time `json:"premium_since,omitempty"`

	// Version is the store version the record was read at; 0 means never persisted
	Version int64 `json:"-"`
}

// NewAccount returns the default record for an identity that has never been written
func NewAccount(identity string) *Account {
	return &Account{Identity: identity}
}

// Level derives the account level from its experience
func (a *Account) Level() int {
	return LevelForExperience(a.Experience)
}

// Progress derives the level progress from its experience
func (a *Account) Progress() Progress {
	return ProgressForExperience(a.Experience)
}

// ExperienceGrant describes the outcome of a grant
type ExperienceGrant struct {
	Identity   string `json:"identity"`
	Base       int64  `json:"base"`
	Granted    int64  `json:"granted"`
	OldLevel   int    `json:"old_level"`
	NewLevel   int    `json:"new_level"`
	Experience int64  `json:"xp"`
	Reason     string `json:"reason"`
}

// LeveledUp reports whether the grant crossed at least one level boundary
func (g *ExperienceGrant) LeveledUp() bool {
	return g.NewLevel > g.OldLevel
}

// GrantExperience adds base experience, applying the premium multiplier.
// This is the only gameplay path that raises experience.
func (a *Account) GrantExperience(base int64, reason string) (*ExperienceGrant, error) {
	if base < 0 {
		return nil, fmt.Errorf("%w: experience amount must not be negative, got %d", ErrValidation, base)
	}

	granted := base
	if a.Premium {
		if base > math.MaxInt64/PremiumMultiplierNumerator {
			return nil, fmt.Errorf("%w: experience amount %d is too large for the premium multiplier", ErrValidation, base)
		}
		granted = ApplyPremiumMultiplier(base)
	}
	if a.Experience > math.MaxInt64-granted {
		return nil, fmt.Errorf("%w: granting %d experience to %s would overflow its total", ErrValidation, granted, a.Identity)
	}

	oldLevel := a.Level()
	a.Experience += granted

	return &ExperienceGrant{
		Identity:   a.Identity,
		Base:       base,
		Granted:    granted,
		OldLevel:   oldLevel,
		NewLevel:   a.Level(),
		Experience: a.Experience,
		Reason:     reason,
	}, nil
}

// CanAfford checks if the account holds at least tokens double tokens
func (a *Account) CanAfford(tokens int64) bool {
	return a.DoubleTokens >= tokens
}

// DebitTokens removes tokens from the double token balance
func (a *Account) DebitTokens(tokens int64) error {
	if tokens <= 0 {
		return fmt.Errorf("%w: token debit must be positive, got %d", ErrValidation, tokens)
	}
	if !a.CanAfford(tokens) {
		return fmt.Errorf("%w: %s holds %d tokens, %d required", ErrInsufficientBalance, a.Identity, a.DoubleTokens, tokens)
	}
	a.DoubleTokens -= tokens
	return nil
}

// CreditTokens adds tokens to the double token balance
func (a *Account) CreditTokens(tokens int64) {
	a.DoubleTokens += tokens
}

// SetPremium switches premium on or off. Switching on stamps premiumSince
// unless the account is already premium.
func (a *Account) SetPremium(on bool, now time.Time) {
	if on && !a.Premium {
		since := now.UTC()
		a.PremiumSince = &since
	}
	a.Premium = on
}

// Reset zeroes experience and every counter. Premium state is kept.
func (a *Account) Reset() {
	a.Experience = 0
	a.Invites = 0
	a.RafflePoints = 0
	a.DoubleTokens = 0
	a.CardPacks = 0
}

// AccountPatch carries the fields an administrative overwrite replaces.
// Nil fields keep their stored value.
type AccountPatch struct {
	Experience   *int64     `json:"xp,omitempty"`
	Invites      *int64     `json:"invites,omitempty"`
	RafflePoints *int64     `json:"raffle_points,omitempty"`
	DoubleTokens *int64     `json:"double_tokens,omitempty"`
	CardPacks    *int64     `json:"card_packs,omitempty"`
	Premium      *bool      `json:"premium,omitempty"`
	PremiumSince *time.Time `json:"premium_since,omitempty"`
}

// Validate rejects negative counters
func (p *AccountPatch) Validate() error {
	fields := []struct {
		name  string
		value *int64
	}{
		{"xp", p.Experience},
		{"invites", p.Invites},
		{"raffle_points", p.RafflePoints},
		{"double_tokens", p.DoubleTokens},
		{"card_packs", p.CardPacks},
	}
	for _, f := range fields {
		if f.value != nil && *f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrValidation, f.name, *f.value)
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing
func (p *AccountPatch) IsEmpty() bool {
	return p.Experience == nil && p.Invites == nil && p.RafflePoints == nil &&
		p.DoubleTokens == nil && p.CardPacks == nil && p.Premium == nil && p.PremiumSince == nil
}

// Apply overwrites the account fields present in the patch
func (a *Account) Apply(p *AccountPatch, now time.Time) {
	if p.Experience != nil {
		a.Experience = *p.Experience
	}
	if p.Invites != nil {
		a.Invites = *p.Invites
	}
	if p.RafflePoints != nil {
		a.RafflePoints = *p.RafflePoints
	}
	if p.DoubleTokens != nil {
		a.DoubleTokens = *p.DoubleTokens
	}
	if p.CardPacks != nil {
		a.CardPacks = *p.CardPacks
	}
	if p.Premium != nil {
		a.SetPremium(*p.Premium, now)
	}
	if p.PremiumSince != nil {
		since := p.PremiumSince.UTC()
		a.PremiumSince = &since
	}
}

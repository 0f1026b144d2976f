package entities

import "time"

// Progression
const (
	// ExperiencePerLevel is the experience span of every level
	ExperiencePerLevel int64 = 100
	MinLevel                 = 1
	MaxLevel                 = 100

	// Premium accounts receive floor(base * 11 / 10) on every grant
	PremiumMultiplierNumerator   int64 = 11
	PremiumMultiplierDenominator int64 = 10

	// InviteExperience is the base grant for a recorded invite
	InviteExperience int64 = 100
)

// Wagering
const (
	TeamSize = 5

	MinBetTokens int64 = 1
	MaxBetTokens int64 = 50

	// Experience credited per staked token, by team result
	PayoutRateWin  int64 = 20
	PayoutRateDraw int64 = 10
	PayoutRateLoss int64 = 0
)

// Optimistic concurrency
const (
	// MaxCASRetries bounds how many times an operation is rerun after a version mismatch
	MaxCASRetries = 32

	CASBackoffBase = 2 * time.Millisecond
	CASBackoffMax  = 50 * time.Millisecond
)

// Experience grant reasons recorded in history
const (
	ReasonInvite = "invite"
	ReasonPromo  = "promo"
	ReasonPayout = "payout"
)

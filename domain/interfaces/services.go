package interfaces

import (
	"context"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
)

// AccountService defines the interface for progression records
type AccountService interface {
	// GetAccount returns the account or its defaults. It never writes.
	GetAccount(ctx context.Context, identity string) (*entities.Account, error)

	// SetAccount overwrites the fields present in patch
	SetAccount(ctx context.Context, identity string, patch *entities.AccountPatch) (*entities.Account, error)

	// GrantExperience adds experience, applying the premium multiplier
	GrantExperience(ctx context.Context, identity string, baseAmount int64, reason string) (*entities.ExperienceGrant, error)

	// SetPremium switches premium on or off
	SetPremium(ctx context.Context, identity string, on bool) (*entities.Account, error)

	// GrantInvite records an invite and its experience reward
	GrantInvite(ctx context.Context, identity string) (*entities.ExperienceGrant, error)

	// ResetAccount zeroes experience and counters
	ResetAccount(ctx context.Context, identity string) (*entities.Account, error)

	// Progress derives level progress from an experience total
	Progress(experience int64) entities.Progress
}

// PromoService defines the interface for promo codes
type PromoService interface {
	// CreateCode creates or replaces a promo code
	CreateCode(ctx context.Context, code string, rewards entities.PromoRewards, expiresAt *time.Time, maxUses int) (*entities.PromoCode, error)

	// Redeem applies the code's rewards to identity exactly once
	Redeem(ctx context.Context, code, identity string) (*entities.PromoRedemption, error)

	// GetCode looks up a promo code
	GetCode(ctx context.Context, code string) (*entities.PromoCode, error)
}

// WagerService defines the interface for teams and bets
type WagerService interface {
	// CreateTeam creates an open team of five members
	CreateTeam(ctx context.Context, name string, members []string) (*entities.Team, error)

	// ReplaceMember swaps one member of an open team
	ReplaceMember(ctx context.Context, team, oldID, newID string) (*entities.Team, error)

	// DeleteTeam removes an open team, refunding its bets
	DeleteTeam(ctx context.Context, name string) error

	// PlaceBet stakes tokens of identity on an open team
	PlaceBet(ctx context.Context, scope, identity, team string, tokens int64) (*entities.Bet, error)

	// ResolveTeam pays out every bet on the team and archives it
	ResolveTeam(ctx context.Context, name string, result entities.TeamResult) (*entities.TeamResolution, error)

	// GetTeam looks up a live team
	GetTeam(ctx context.Context, name string) (*entities.Team, error)

	// ListTeams returns every live team
	ListTeams(ctx context.Context) ([]*entities.Team, error)

	// ListBets returns the open bets of identity
	ListBets(ctx context.Context, identity string) ([]*entities.Bet, error)
}

// SettingsService defines the interface for per-scope settings
type SettingsService interface {
	// GetSettings returns the scope's settings or defaults. It never writes.
	GetSettings(ctx context.Context, scope string) (*entities.Settings, error)

	// PatchSettings merges patch into the scope's settings
	PatchSettings(ctx context.Context, scope string, patch *entities.SettingsPatch) (*entities.Settings, error)

	// OpenWageringWindow enables wagering under a fresh window id
	OpenWageringWindow(ctx context.Context, scope string) (*entities.Settings, error)

	// CloseWageringWindow disables wagering
	CloseWageringWindow(ctx context.Context, scope string) (*entities.Settings, error)

	// IsPrivileged checks identity and roles against the scope's privileged lists
	IsPrivileged(ctx context.Context, scope, identity string, roles []string) (bool, error)
}

// HistoryService defines the interface for the ledger history
type HistoryService interface {
	// Append records a standalone entry
	Append(ctx context.Context, event *entities.HistoryEvent) (*entities.HistoryEvent, error)

	// QueryByIdentity returns the entries of identity in insertion order
	QueryByIdentity(ctx context.Context, identity string) ([]*entities.HistoryEvent, error)

	// QueryByTeam returns the entries of a team in insertion order, matching the name case-insensitively
	QueryByTeam(ctx context.Context, team string) ([]*entities.HistoryEvent, error)
}

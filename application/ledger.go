package application

import (
	"context"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/services"
)

// Ledger bundles the ledger services for a front end. Operations that take a scope
// fall back to the default scope when given an empty one.
type Ledger struct {
	Accounts interfaces.AccountService
	Promos   interfaces.PromoService
	Wagers   interfaces.WagerService
	Settings interfaces.SettingsService
	History  interfaces.HistoryService

	defaultScope string
}

// NewLedger wires every service to uowFactory
func NewLedger(uowFactory interfaces.UnitOfWorkFactory, defaultScope string) *Ledger {
	return &Ledger{
		Accounts:     services.NewAccountService(uowFactory),
		Promos:       services.NewPromoService(uowFactory),
		Wagers:       services.NewWagerService(uowFactory),
		Settings:     services.NewSettingsService(uowFactory),
		History:      services.NewHistoryService(uowFactory),
		defaultScope: defaultScope,
	}
}

// Scope resolves an empty scope to the default one
func (l *Ledger) Scope(scope string) string {
	if scope == "" {
		return l.defaultScope
	}
	return scope
}

// GetAccount returns the account of identity or its defaults
func (l *Ledger) GetAccount(ctx context.Context, identity string) (*entities.Account, error) {
	return l.Accounts.GetAccount(ctx, identity)
}

// GrantExperience adds experience to identity through the grant rule
func (l *Ledger) GrantExperience(ctx context.Context, identity string, amount int64, reason string) (*entities.ExperienceGrant, error) {
	return l.Accounts.GrantExperience(ctx, identity, amount, reason)
}

// CreatePromoCode creates or replaces a promo code
func (l *Ledger) CreatePromoCode(ctx context.Context, code string, rewards entities.PromoRewards, expiresAt *time.Time, maxUses int) (*entities.PromoCode, error) {
	return l.Promos.CreateCode(ctx, code, rewards, expiresAt, maxUses)
}

// RedeemPromoCode redeems code for identity
func (l *Ledger) RedeemPromoCode(ctx context.Context, code, identity string) (*entities.PromoRedemption, error) {
	return l.Promos.Redeem(ctx, code, identity)
}

// CreateTeam creates an open team
func (l *Ledger) CreateTeam(ctx context.Context, name string, members []string) (*entities.Team, error) {
	return l.Wagers.CreateTeam(ctx, name, members)
}

// PlaceBet stakes tokens in scope
func (l *Ledger) PlaceBet(ctx context.Context, scope, identity, team string, tokens int64) (*entities.Bet, error) {
	return l.Wagers.PlaceBet(ctx, l.Scope(scope), identity, team, tokens)
}

// ResolveTeam resolves a team with result, given as win, loss or draw
func (l *Ledger) ResolveTeam(ctx context.Context, name, result string) (*entities.TeamResolution, error) {
	parsed, err := entities.ParseTeamResult(result)
	if err != nil {
		return nil, err
	}
	return l.Wagers.ResolveTeam(ctx, name, parsed)
}

// GetSettings returns the settings of scope
func (l *Ledger) GetSettings(ctx context.Context, scope string) (*entities.Settings, error) {
	return l.Settings.GetSettings(ctx, l.Scope(scope))
}

// OpenWagering opens the wagering window of scope
func (l *Ledger) OpenWagering(ctx context.Context, scope string) (*entities.Settings, error) {
	return l.Settings.OpenWageringWindow(ctx, l.Scope(scope))
}

// CloseWagering closes the wagering window of scope
func (l *Ledger) CloseWagering(ctx context.Context, scope string) (*entities.Settings, error) {
	return l.Settings.CloseWageringWindow(ctx, l.Scope(scope))
}

// IsPrivileged checks identity and roles against the privileged lists of scope
func (l *Ledger) IsPrivileged(ctx context.Context, scope, identity string, roles []string) (bool, error) {
	return l.Settings.IsPrivileged(ctx, l.Scope(scope), identity, roles)
}

// HistoryFor returns the history of identity, or of team when identity is empty
func (l *Ledger) HistoryFor(ctx context.Context, identity, team string) ([]*entities.HistoryEvent, error) {
	if identity != "" {
		return l.History.QueryByIdentity(ctx, identity)
	}
	return l.History.QueryByTeam(ctx, team)
}

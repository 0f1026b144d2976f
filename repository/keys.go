package repository

import (
	"fmt"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
)

// Key prefixes of the keyed store
const (
	AccountKeyPrefix      = "account_"
	PromoKeyPrefix        = "promo_"
	TeamKeyPrefix         = "team_"
	ArchivedTeamKeyPrefix = "archive_team_"
	SettingsKeyPrefix     = "settings_"

	// RosterKey holds the index of live teams
	RosterKey = "roster_teams"
)

// AccountKey is the record key of an identity's account
func AccountKey(identity string) string {
	return AccountKeyPrefix + identity
}

// PromoKey is the record key of a promo code
func PromoKey(code string) string {
	return PromoKeyPrefix + entities.NormalizePromoCode(code)
}

// TeamKey is the record key of a live team
func TeamKey(name string) string {
	return TeamKeyPrefix + entities.NormalizeTeamName(name)
}

// ArchivedTeamKey is the record key a resolved team is moved to
func ArchivedTeamKey(name string, resolvedAt time.Time) string {
	return fmt.Sprintf("%s%s_%d", ArchivedTeamKeyPrefix, entities.NormalizeTeamName(name), resolvedAt.UnixNano())
}

// SettingsKey is the record key of a scope's settings
func SettingsKey(scope string) string {
	return SettingsKeyPrefix + scope
}

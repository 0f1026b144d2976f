package entities

import "time"

// HistoryKind discriminates history entries
type HistoryKind string

const (
	HistoryKindBetPlaced          HistoryKind = "bet_placed"
	HistoryKindPayout             HistoryKind = "payout"
	HistoryKindTeamCreated        HistoryKind = "team_created"
	HistoryKindTeamResolved       HistoryKind = "team_resolved"
	HistoryKindTeamDeleted        HistoryKind = "team_deleted"
	HistoryKindTeamMemberReplaced HistoryKind = "team_member_replaced"
	HistoryKindBetRefunded        HistoryKind = "bet_refunded"
	HistoryKindExperienceGranted  HistoryKind = "experience_granted"
	HistoryKindAccountUpdated     HistoryKind = "account_updated"
	HistoryKindPromoCreated       HistoryKind = "promo_created"
	HistoryKindPromoRedeemed      HistoryKind = "promo_redeemed"
	HistoryKindSettingsUpdated    HistoryKind = "settings_updated"
)

// HistoryEvent is one append-only ledger entry. Fields not relevant to a kind stay empty.
type HistoryEvent struct {
	ID        string      `json:"id"`
	Seq       int64       `json:"seq"` // assigned by the store, increasing in insertion order
	Kind      HistoryKind `json:"kind"`
	Identity  string      `json:"identity,omitempty"`
	Team      string      `json:"team,omitempty"`
	Scope     string      `json:"scope,omitempty"`
	Tokens    int64       `json:"tokens,omitempty"`
	WindowID  int64       `json:"window_id,omitempty"`
	Amount    int64       `json:"amount,omitempty"`
	Result    TeamResult  `json:"result,omitempty"`
	Members   []string    `json:"members,omitempty"`
	Code      string      `json:"code,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// HistoryFilter selects history entries. Exactly one of Identity or Team is expected;
// Team matches case-insensitively.
type HistoryFilter struct {
	Identity string
	Team     string
}

// Matches reports whether the entry satisfies the filter
func (f HistoryFilter) Matches(e *HistoryEvent) bool {
	if f.Identity != "" && e.Identity != f.Identity {
		return false
	}
	if f.Team != "" && NormalizeTeamName(e.Team) != NormalizeTeamName(f.Team) {
		return false
	}
	return true
}

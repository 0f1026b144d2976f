package entities

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// TeamResult is the outcome a team resolves with
type TeamResult string

const (
	TeamResultWin  TeamResult = "win"
	TeamResultLoss TeamResult = "loss"
	TeamResultDraw TeamResult = "draw"
)

// ParseTeamResult accepts win, loss or draw in any case
func ParseTeamResult(s string) (TeamResult, error) {
	switch r := TeamResult(strings.ToLower(strings.TrimSpace(s))); r {
	case TeamResultWin, TeamResultLoss, TeamResultDraw:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown team result %q", ErrValidation, s)
	}
}

// PayoutRate returns the experience credited per staked token
func (r TeamResult) PayoutRate() int64 {
	switch r {
	case TeamResultWin:
		return PayoutRateWin
	case TeamResultDraw:
		return PayoutRateDraw
	default:
		return PayoutRateLoss
	}
}

// Bet is a token stake on an open team
type Bet struct {
	Identity string    `json:"identity"`
	Team     string    `json:"team"`
	Tokens   int64     `json:"tokens"`
	WindowID int64     `json:"window_id,omitempty"` // wagering window the stake was placed in
	PlacedAt time.Time `json:"placed_at"`
}

// ValidateBetTokens checks the stake is inside [MinBetTokens, MaxBetTokens]
func ValidateBetTokens(tokens int64) error {
	if tokens < MinBetTokens || tokens > MaxBetTokens {
		return fmt.Errorf("%w: bet must be between %d and %d tokens, got %d", ErrValidation, MinBetTokens, MaxBetTokens, tokens)
	}
	return nil
}

// Team is a fixed five-member wagering target
type Team struct {
	Name       string     `json:"name"`
	Members    []string   `json:"members"`
	LastResult TeamResult `json:"last_result,omitempty"` // empty while open
	Bets       []*Bet     `json:"bets"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	Version int64 `json:"-"`
}

// NormalizeTeamName is the case-insensitive identity of a team name
func NormalizeTeamName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateMembers requires exactly TeamSize distinct, non-empty identities
func ValidateMembers(members []string) error {
	if len(members) != TeamSize {
		return fmt.Errorf("%w: a team needs exactly %d members, got %d", ErrValidation, TeamSize, len(members))
	}
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m == "" {
			return fmt.Errorf("%w: member identity must not be empty", ErrValidation)
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: member %s listed twice", ErrValidation, m)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// NewTeam validates the name and members and builds an open team
func NewTeam(name string, members []string, now time.Time) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name must not be empty", ErrValidation)
	}
	if err := ValidateMembers(members); err != nil {
		return nil, err
	}
	return &Team{
		Name:      name,
		Members:   slices.Clone(members),
		Bets:      []*Bet{},
		CreatedAt: now.UTC(),
	}, nil
}

// IsOpen checks if the team still accepts bets and roster changes
func (t *Team) IsOpen() bool {
	return t.LastResult == ""
}

// IsResolved checks if the team has a result
func (t *Team) IsResolved() bool {
	return !t.IsOpen()
}

// HasMember checks if identity plays on the team
func (t *Team) HasMember(identity string) bool {
	return slices.Contains(t.Members, identity)
}

// MemberSignature is an order-independent fingerprint of the member set
func (t *Team) MemberSignature() string {
	return MemberSignature(t.Members)
}

// MemberSignature sorts and joins the members
func MemberSignature(members []string) string {
	sorted := slices.Clone(members)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// ReplaceMember swaps oldID for newID on an open team
func (t *Team) ReplaceMember(oldID, newID string) error {
	if t.IsResolved() {
		return fmt.Errorf("%w: team %s is already resolved", ErrConflict, t.Name)
	}
	idx := slices.Index(t.Members, oldID)
	if idx == -1 {
		return fmt.Errorf("%w: %s is not a member of team %s", ErrNotFound, oldID, t.Name)
	}
	if newID == "" {
		return fmt.Errorf("%w: member identity must not be empty", ErrValidation)
	}
	if t.HasMember(newID) {
		return fmt.Errorf("%w: %s is already a member of team %s", ErrConflict, newID, t.Name)
	}
	t.Members[idx] = newID
	return nil
}

// AddBet records a stake on an open team
func (t *Team) AddBet(bet *Bet) error {
	if t.IsResolved() {
		return fmt.Errorf("%w: team %s is not open", ErrNotFound, t.Name)
	}
	t.Bets = append(t.Bets, bet)
	return nil
}

// BetsBy returns the bets identity placed on the team
func (t *Team) BetsBy(identity string) []*Bet {
	var out []*Bet
	for _, b := range t.Bets {
		if b.Identity == identity {
			out = append(out, b)
		}
	}
	return out
}

// TotalStaked sums every open stake
func (t *Team) TotalStaked() int64 {
	var total int64
	for _, b := range t.Bets {
		total += b.Tokens
	}
	return total
}

// Resolve moves the team to its terminal state. Bets stay attached until the caller has paid them.
func (t *Team) Resolve(result TeamResult, now time.Time) error {
	if t.IsResolved() {
		return fmt.Errorf("%w: team %s already resolved as %s", ErrInvalidState, t.Name, t.LastResult)
	}
	if _, err := ParseTeamResult(string(result)); err != nil {
		return err
	}
	resolvedAt := now.UTC()
	t.LastResult = result
	t.ResolvedAt = &resolvedAt
	return nil
}

// ClearBets drops every bet, returning them
func (t *Team) ClearBets() []*Bet {
	bets := t.Bets
	t.Bets = []*Bet{}
	return bets
}

// Payout is the credit issued to one bet at resolution
type Payout struct {
	Identity string `json:"identity"`
	Tokens   int64  `json:"tokens"`
	Granted  int64  `json:"granted"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// TeamResolution summarizes a resolved team
type TeamResolution struct {
	Team    string     `json:"team"`
	Members []string   `json:"members"`
	Result  TeamResult `json:"result"`
	Rate    int64      `json:"rate"`
	Payouts []*Payout  `json:"payouts"`
}

// TotalGranted sums the experience paid out
func (r *TeamResolution) TotalGranted() int64 {
	var total int64
	for _, p := range r.Payouts {
		total += p.Granted
	}
	return total
}

// RosterEntry is one live team in the roster
type RosterEntry struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// TeamRoster indexes every live team. All team lifecycle changes rewrite it,
// so its version serializes the cross-team invariants.
type TeamRoster struct {
	Teams map[string]*RosterEntry `json:"teams"` // keyed by normalized name

	Version int64 `json:"-"`
}

// NewTeamRoster returns an empty roster
func NewTeamRoster() *TeamRoster {
	return &TeamRoster{Teams: map[string]*RosterEntry{}}
}

// Contains checks for a live team name, case-insensitively
func (r *TeamRoster) Contains(name string) bool {
	_, ok := r.Teams[NormalizeTeamName(name)]
	return ok
}

// TeamOf returns the live team identity plays on, skipping the team named exclude
func (r *TeamRoster) TeamOf(identity, exclude string) (string, bool) {
	skip := NormalizeTeamName(exclude)
	for key, entry := range r.Teams {
		if key == skip {
			continue
		}
		if slices.Contains(entry.Members, identity) {
			return entry.Name, true
		}
	}
	return "", false
}

// TeamWithMembers returns the live team whose member set equals members, skipping exclude
func (r *TeamRoster) TeamWithMembers(members []string, exclude string) (string, bool) {
	skip := NormalizeTeamName(exclude)
	signature := MemberSignature(members)
	for key, entry := range r.Teams {
		if key == skip {
			continue
		}
		if MemberSignature(entry.Members) == signature {
			return entry.Name, true
		}
	}
	return "", false
}

// CheckAvailable enforces the cross-team invariants for a team about to hold members
func (r *TeamRoster) CheckAvailable(name string, members []string) error {
	if other, ok := r.TeamWithMembers(members, name); ok {
		return fmt.Errorf("%w: team %s already has the same members", ErrConflict, other)
	}
	for _, m := range members {
		if other, ok := r.TeamOf(m, name); ok {
			return fmt.Errorf("%w: %s already plays on team %s", ErrConflict, m, other)
		}
	}
	return nil
}

// Put adds or refreshes the entry of a team
func (r *TeamRoster) Put(team *Team) {
	if r.Teams == nil {
		r.Teams = map[string]*RosterEntry{}
	}
	r.Teams[NormalizeTeamName(team.Name)] = &RosterEntry{Name: team.Name, Members: slices.Clone(team.Members)}
}

// Remove drops a team from the roster
func (r *TeamRoster) Remove(name string) {
	delete(r.Teams, NormalizeTeamName(name))
}

// Names lists the display names of live teams in alphabetical order
func (r *TeamRoster) Names() []string {
	names := make([]string, 0, len(r.Teams))
	for _, entry := range r.Teams {
		names = append(names, entry.Name)
	}
	sort.Slice(names, func(i, j int) bool {
		return NormalizeTeamName(names[i]) < NormalizeTeamName(names[j])
	})
	return names
}

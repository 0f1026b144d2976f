package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/repository"

	"github.com/stretchr/testify/require"
)

// Test identities and scopes
const (
	TestScope = "guild-1"
	TestUserA = "user-a"
	TestUserB = "user-b"
)

// TestMembers is a valid five-member roster
var TestMembers = []string{"p1", "p2", "p3", "p4", "p5"}

// TestNow is the fixed clock of every fixture
var TestNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// syncPublisher records published events and is safe for concurrent commits
type syncPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *syncPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a snapshot of everything published so far
func (p *syncPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// OfType filters the published events by type
func (p *syncPublisher) OfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, e := range p.Events() {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// LedgerFixture wires every service to one in-memory store
type LedgerFixture struct {
	T         *testing.T
	Ctx       context.Context
	Store     *repository.MemoryStore
	Publisher *syncPublisher
	Factory   interfaces.UnitOfWorkFactory

	Accounts *accountService
	Promos   *promoService
	Wagers   *wagerService
	Settings *settingsService
	History  *historyService
}

// NewLedgerFixture creates a fixture with a fixed clock and a fast retry backoff
func NewLedgerFixture(t *testing.T) *LedgerFixture {
	store := repository.NewMemoryStore()
	publisher := &syncPublisher{}
	factory := infrastructure.NewUnitOfWorkFactory(store, publisher)

	r := newRunner(factory)
	r.backoffBase = 100 * time.Microsecond
	r.backoffMax = time.Millisecond

	clock := func() time.Time { return TestNow }

	return &LedgerFixture{
		T:         t,
		Ctx:       context.Background(),
		Store:     store,
		Publisher: publisher,
		Factory:   factory,
		Accounts:  &accountService{runner: r, now: clock},
		Promos:    &promoService{runner: r, now: clock},
		Wagers:    &wagerService{runner: r, now: clock},
		Settings:  &settingsService{runner: r},
		History:   &historyService{runner: r},
	}
}

// WithTokens sets the double token balance of identity
func (f *LedgerFixture) WithTokens(identity string, tokens int64) *LedgerFixture {
	_, err := f.Accounts.SetAccount(f.Ctx, identity, &entities.AccountPatch{DoubleTokens: &tokens})
	require.NoError(f.T, err)
	return f
}

// WithPremium turns premium on for identity
func (f *LedgerFixture) WithPremium(identity string) *LedgerFixture {
	_, err := f.Accounts.SetPremium(f.Ctx, identity, true)
	require.NoError(f.T, err)
	return f
}

// WithOpenWindow opens wagering in TestScope
func (f *LedgerFixture) WithOpenWindow() *LedgerFixture {
	_, err := f.Settings.OpenWageringWindow(f.Ctx, TestScope)
	require.NoError(f.T, err)
	return f
}

// WithTeam creates a team with the given members
func (f *LedgerFixture) WithTeam(name string, members ...string) *LedgerFixture {
	if len(members) == 0 {
		members = TestMembers
	}
	_, err := f.Wagers.CreateTeam(f.Ctx, name, members)
	require.NoError(f.T, err)
	return f
}

// Account reads the committed account
func (f *LedgerFixture) Account(identity string) *entities.Account {
	account, err := f.Accounts.GetAccount(f.Ctx, identity)
	require.NoError(f.T, err)
	return account
}

// HistoryKinds returns the kinds of every committed entry for identity in order
func (f *LedgerFixture) HistoryKinds(identity string) []entities.HistoryKind {
	entries, err := f.History.QueryByIdentity(f.Ctx, identity)
	require.NoError(f.T, err)
	kinds := make([]entities.HistoryKind, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

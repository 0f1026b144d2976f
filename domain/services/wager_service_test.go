package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWagerService_CreateTeam(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		setup   func(f *LedgerFixture)
		team    string
		members []string
		wantErr error
	}{
		{
			name:    "valid team",
			setup:   func(f *LedgerFixture) {},
			team:    "Alpha",
			members: TestMembers,
		},
		{
			name:    "four members",
			setup:   func(f *LedgerFixture) {},
			team:    "Alpha",
			members: []string{"p1", "p2", "p3", "p4"},
			wantErr: entities.ErrValidation,
		},
		{
			name:    "duplicate member",
			setup:   func(f *LedgerFixture) {},
			team:    "Alpha",
			members: []string{"p1", "p2", "p3", "p4", "p4"},
			wantErr: entities.ErrValidation,
		},
		{
			name:    "empty name",
			setup:   func(f *LedgerFixture) {},
			team:    " ",
			members: TestMembers,
			wantErr: entities.ErrValidation,
		},
		{
			name:    "name taken case-insensitively",
			setup:   func(f *LedgerFixture) { f.WithTeam("Alpha") },
			team:    "ALPHA",
			members: []string{"q1", "q2", "q3", "q4", "q5"},
			wantErr: entities.ErrConflict,
		},
		{
			name:    "identical member set under another name",
			setup:   func(f *LedgerFixture) { f.WithTeam("Alpha") },
			team:    "Beta",
			members: []string{"p5", "p4", "p3", "p2", "p1"},
			wantErr: entities.ErrConflict,
		},
		{
			name:    "member already on an open team",
			setup:   func(f *LedgerFixture) { f.WithTeam("Alpha") },
			team:    "Beta",
			members: []string{"p1", "q2", "q3", "q4", "q5"},
			wantErr: entities.ErrConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := NewLedgerFixture(t)
			tc.setup(f)

			team, err := f.Wagers.CreateTeam(f.Ctx, tc.team, tc.members)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, team.IsOpen())
			assert.Equal(t, tc.members, team.Members)

			stored, err := f.Wagers.GetTeam(f.Ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, "Alpha", stored.Name)
		})
	}
}

func TestWagerService_ReplaceMember(t *testing.T) {
	t.Parallel()

	other := []string{"q1", "q2", "q3", "q4", "q5"}

	testCases := []struct {
		name    string
		team    string
		oldID   string
		newID   string
		wantErr error
	}{
		{name: "replaces member", team: "Alpha", oldID: "p1", newID: "z1"},
		{name: "missing team", team: "Nope", oldID: "p1", newID: "z1", wantErr: entities.ErrNotFound},
		{name: "old id not on team", team: "Alpha", oldID: "zz", newID: "z1", wantErr: entities.ErrNotFound},
		{name: "new id already a member", team: "Alpha", oldID: "p1", newID: "p2", wantErr: entities.ErrConflict},
		{name: "new id on another open team", team: "Alpha", oldID: "p1", newID: "q1", wantErr: entities.ErrConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := NewLedgerFixture(t).WithTeam("Alpha").WithTeam("Beta", other...)

			team, err := f.Wagers.ReplaceMember(f.Ctx, tc.team, tc.oldID, tc.newID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"z1", "p2", "p3", "p4", "p5"}, team.Members)

			// p1 is free again
			_, err = f.Wagers.CreateTeam(f.Ctx, "Gamma", []string{"p1", "g2", "g3", "g4", "g5"})
			require.NoError(t, err)

			entries, err := f.History.QueryByTeam(f.Ctx, "alpha")
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, entities.HistoryKindTeamMemberReplaced, entries[1].Kind)
			assert.Equal(t, "z1", entries[1].Identity)
		})
	}
}

func TestWagerService_PlaceBet(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		openWindow  bool
		balance     int64
		team        string
		tokens      int64
		wantErr     error
		wantBalance int64
	}{
		{name: "accepted", openWindow: true, balance: 30, team: "Alpha", tokens: 10, wantBalance: 20},
		{name: "whole balance", openWindow: true, balance: 50, team: "alpha", tokens: 50, wantBalance: 0},
		{name: "zero tokens", openWindow: true, balance: 30, team: "Alpha", tokens: 0, wantErr: entities.ErrValidation, wantBalance: 30},
		{name: "above max", openWindow: true, balance: 100, team: "Alpha", tokens: 51, wantErr: entities.ErrValidation, wantBalance: 100},
		{name: "window closed", openWindow: false, balance: 30, team: "Alpha", tokens: 10, wantErr: entities.ErrUnavailable, wantBalance: 30},
		{name: "missing team", openWindow: true, balance: 30, team: "Nope", tokens: 10, wantErr: entities.ErrNotFound, wantBalance: 30},
		{name: "insufficient balance", openWindow: true, balance: 5, team: "Alpha", tokens: 10, wantErr: entities.ErrInsufficientBalance, wantBalance: 5},
		{name: "validation before window", openWindow: false, balance: 5, team: "Nope", tokens: 0, wantErr: entities.ErrValidation, wantBalance: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := NewLedgerFixture(t).WithTeam("Alpha").WithTokens(TestUserA, tc.balance)
			if tc.openWindow {
				f.WithOpenWindow()
			}

			bet, err := f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, tc.team, tc.tokens)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.tokens, bet.Tokens)
				assert.Equal(t, "Alpha", bet.Team)

				bets, err := f.Wagers.ListBets(f.Ctx, TestUserA)
				require.NoError(t, err)
				assert.Len(t, bets, 1)
			}
			assert.Equal(t, tc.wantBalance, f.Account(TestUserA).DoubleTokens)
		})
	}
}

func TestWagerService_PlaceBet_PublishesTokenChange(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).WithTeam("Alpha").WithTokens(TestUserA, 30).WithOpenWindow()

	_, err := f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, "Alpha", 12)
	require.NoError(t, err)

	changes := f.Publisher.OfType(events.EventTypeTokenBalanceChanged)
	require.NotEmpty(t, changes)
	last := changes[len(changes)-1].(events.TokenBalanceChangedEvent)
	assert.Equal(t, int64(-12), last.ChangeAmount)
	assert.Equal(t, reasonBet, last.Reason)

	entries, err := f.History.QueryByIdentity(f.Ctx, TestUserA)
	require.NoError(t, err)
	placed := entries[len(entries)-1]
	assert.Equal(t, entities.HistoryKindBetPlaced, placed.Kind)
	assert.Equal(t, TestScope, placed.Scope)
	assert.Equal(t, int64(12), placed.Tokens)
}

func TestWagerService_ResolveTeam_Win(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).
		WithTeam("Alpha").
		WithTokens(TestUserA, 10).
		WithTokens(TestUserB, 20).
		WithOpenWindow()

	_, err := f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, "Alpha", 10)
	require.NoError(t, err)
	_, err = f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserB, "Alpha", 20)
	require.NoError(t, err)

	resolution, err := f.Wagers.ResolveTeam(f.Ctx, "alpha", entities.TeamResultWin)
	require.NoError(t, err)
	assert.Equal(t, int64(entities.PayoutRateWin), resolution.Rate)
	require.Len(t, resolution.Payouts, 2)
	assert.Equal(t, int64(600), resolution.TotalGranted())

	assert.Equal(t, int64(200), f.Account(TestUserA).Experience)
	assert.Equal(t, int64(400), f.Account(TestUserB).Experience)
	assert.Equal(t, int64(0), f.Account(TestUserA).DoubleTokens)

	_, err = f.Wagers.GetTeam(f.Ctx, "Alpha")
	require.ErrorIs(t, err, entities.ErrNotFound)

	archived, err := f.Store.List(f.Ctx, repository.ArchivedTeamKeyPrefix)
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	entries, err := f.History.QueryByTeam(f.Ctx, "ALPHA")
	require.NoError(t, err)
	var payouts int
	for _, e := range entries {
		if e.Kind == entities.HistoryKindPayout {
			payouts++
		}
	}
	assert.Equal(t, 2, payouts)
	assert.Equal(t, entities.HistoryKindTeamResolved, entries[len(entries)-1].Kind)

	// The roster no longer holds the members
	_, err = f.Wagers.CreateTeam(f.Ctx, "Alpha", TestMembers)
	require.NoError(t, err)
}

func TestWagerService_ResolveTeam_Rates(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		result      entities.TeamResult
		premium     bool
		wantGranted int64
	}{
		{result: entities.TeamResultWin, wantGranted: 100},
		{result: entities.TeamResultDraw, wantGranted: 50},
		{result: entities.TeamResultLoss, wantGranted: 0},
		{result: entities.TeamResultDraw, premium: true, wantGranted: 55},
	}

	for _, tc := range testCases {
		t.Run(string(tc.result), func(t *testing.T) {
			t.Parallel()
			f := NewLedgerFixture(t).WithTeam("Alpha").WithTokens(TestUserA, 5).WithOpenWindow()
			if tc.premium {
				f.WithPremium(TestUserA)
			}
			_, err := f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, "Alpha", 5)
			require.NoError(t, err)

			resolution, err := f.Wagers.ResolveTeam(f.Ctx, "Alpha", tc.result)
			require.NoError(t, err)
			require.Len(t, resolution.Payouts, 1)
			assert.Equal(t, tc.wantGranted, resolution.Payouts[0].Granted)
			assert.Equal(t, tc.wantGranted, f.Account(TestUserA).Experience)
		})
	}
}

func TestWagerService_ResolveTeam_OneShot(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).WithTeam("Alpha").WithTokens(TestUserA, 10).WithOpenWindow()
	_, err := f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, "Alpha", 10)
	require.NoError(t, err)

	_, err = f.Wagers.ResolveTeam(f.Ctx, "Alpha", entities.TeamResultWin)
	require.NoError(t, err)

	_, err = f.Wagers.ResolveTeam(f.Ctx, "Alpha", entities.TeamResultWin)
	require.ErrorIs(t, err, entities.ErrNotFound)
	assert.Equal(t, int64(200), f.Account(TestUserA).Experience)
}

func TestWagerService_ResolveTeam_Invalid(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).WithTeam("Alpha")

	_, err := f.Wagers.ResolveTeam(f.Ctx, "Alpha", entities.TeamResult("forfeit"))
	require.ErrorIs(t, err, entities.ErrValidation)

	_, err = f.Wagers.ResolveTeam(f.Ctx, "Nope", entities.TeamResultLoss)
	require.ErrorIs(t, err, entities.ErrNotFound)
}

func TestWagerService_DeleteTeam_RefundsBets(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).WithTeam("Alpha").WithTokens(TestUserA, 30).WithOpenWindow()
	_, err := f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, "Alpha", 10)
	require.NoError(t, err)
	_, err = f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, "Alpha", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), f.Account(TestUserA).DoubleTokens)

	require.NoError(t, f.Wagers.DeleteTeam(f.Ctx, "ALPHA"))

	assert.Equal(t, int64(30), f.Account(TestUserA).DoubleTokens)
	teams, err := f.Wagers.ListTeams(f.Ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)

	kinds := f.HistoryKinds(TestUserA)
	assert.Equal(t, entities.HistoryKindBetRefunded, kinds[len(kinds)-1])

	err = f.Wagers.DeleteTeam(f.Ctx, "Alpha")
	require.ErrorIs(t, err, entities.ErrNotFound)
}

func TestWagerService_ListTeams(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).
		WithTeam("Charlie", "c1", "c2", "c3", "c4", "c5").
		WithTeam("alpha", "a1", "a2", "a3", "a4", "a5")

	teams, err := f.Wagers.ListTeams(f.Ctx)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "alpha", teams[0].Name)
	assert.Equal(t, "Charlie", teams[1].Name)
}

func TestWagerService_PlaceBet_RecordsWageringWindow(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).WithOpenWindow().WithTeam("Alpha").WithTokens(TestUserA, 30)

	// reopening starts window 2
	_, err := f.Settings.CloseWageringWindow(f.Ctx, TestScope)
	require.NoError(t, err)
	f.WithOpenWindow()

	bet, err := f.Wagers.PlaceBet(f.Ctx, TestScope, TestUserA, "Alpha", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bet.WindowID)

	_, err = f.Wagers.ResolveTeam(f.Ctx, "Alpha", entities.TeamResultWin)
	require.NoError(t, err)

	entries, err := f.History.QueryByIdentity(f.Ctx, TestUserA)
	require.NoError(t, err)
	windows := map[entities.HistoryKind]int64{}
	for _, e := range entries {
		windows[e.Kind] = e.WindowID
	}
	assert.Equal(t, int64(2), windows[entities.HistoryKindBetPlaced])
	assert.Equal(t, int64(2), windows[entities.HistoryKindPayout])
}

func TestWagerService_PlaceBet_ConcurrentSameTeam(t *testing.T) {
	t.Parallel()
	f := NewLedgerFixture(t).WithOpenWindow().WithTeam("Alpha")

	const bettors = 10
	identities := make([]string, bettors)
	for i := range identities {
		identities[i] = fmt.Sprintf("bettor-%d", i)
		f.WithTokens(identities[i], 25)
	}

	var wg sync.WaitGroup
	errs := make(chan error, bettors)
	for _, id := range identities {
		wg.Add(1)
		go func(identity string) {
			defer wg.Done()
			_, err := f.Wagers.PlaceBet(f.Ctx, TestScope, identity, "Alpha", 10)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, entities.ErrConflict), "unexpected error: %v", err)
	}
	assert.Positive(t, succeeded)

	team, err := f.Wagers.GetTeam(f.Ctx, "Alpha")
	require.NoError(t, err)

	debited := 0
	for _, id := range identities {
		account := f.Account(id)
		switch account.DoubleTokens {
		case 15:
			debited++
			assert.Len(t, team.BetsBy(id), 1, "debited %s has no bet", id)
		case 25:
			assert.Empty(t, team.BetsBy(id), "undebited %s has a bet", id)
		default:
			t.Errorf("%s holds %d tokens", id, account.DoubleTokens)
		}
	}
	assert.Len(t, team.Bets, succeeded)
	assert.Equal(t, succeeded, debited)
}

func TestWagerService_CreateTeam_ConcurrentOverlap(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		members func(i int) []string
	}{
		{
			name: "shared member",
			members: func(i int) []string {
				return []string{"shared", fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i), fmt.Sprintf("c%d", i), fmt.Sprintf("d%d", i)}
			},
		},
		{
			name:    "identical member set",
			members: func(int) []string { return TestMembers },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := NewLedgerFixture(t)

			const attempts = 8
			var wg sync.WaitGroup
			errs := make(chan error, attempts)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := f.Wagers.CreateTeam(f.Ctx, fmt.Sprintf("Team%d", i), tc.members(i))
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			succeeded := 0
			for err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.True(t, errors.Is(err, entities.ErrConflict), "unexpected error: %v", err)
			}
			assert.Equal(t, 1, succeeded)

			teams, err := f.Wagers.ListTeams(f.Ctx)
			require.NoError(t, err)
			assert.Len(t, teams, 1)
		})
	}
}

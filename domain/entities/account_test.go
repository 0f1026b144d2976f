package entities

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_GrantExperience(t *testing.T) {
	t.Parallel()

	account := NewAccount("user-1")
	account.Experience = 90

	grant, err := account.GrantExperience(20, ReasonPayout)
	require.NoError(t, err)
	assert.Equal(t, int64(20), grant.Granted)
	assert.Equal(t, 1, grant.OldLevel)
	assert.Equal(t, 2, grant.NewLevel)
	assert.True(t, grant.LeveledUp())
	assert.Equal(t, int64(110), account.Experience)

	account.Premium = true
	grant, err = account.GrantExperience(100, ReasonPromo)
	require.NoError(t, err)
	assert.Equal(t, int64(110), grant.Granted)
	assert.Equal(t, int64(220), grant.Experience)

	_, err = account.GrantExperience(-1, ReasonPromo)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int64(220), account.Experience)
}

func TestAccount_GrantExperience_Overflow(t *testing.T) {
	t.Parallel()

	premiumLimit := math.MaxInt64 / PremiumMultiplierNumerator

	tests := []struct {
		name      string
		premium   bool
		start     int64
		base      int64
		wantErr   bool
		wantTotal int64
	}{
		{"premium base above multiplier limit", true, 0, math.MaxInt64 / 10, true, 0},
		{"premium base at multiplier limit", true, 0, premiumLimit, false, premiumLimit * 11 / 10},
		{"plain grant past the cap", false, math.MaxInt64, 1, true, math.MaxInt64},
		{"plain grant reaching the cap", false, math.MaxInt64 - 5, 5, false, math.MaxInt64},
		{"premium grant past the cap", true, math.MaxInt64 - 10, 10, true, math.MaxInt64 - 10},
		{"zero grant at the cap", false, math.MaxInt64, 0, false, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			account := NewAccount("user-1")
			account.Premium = tt.premium
			account.Experience = tt.start

			grant, err := account.GrantExperience(tt.base, ReasonPayout)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				assert.Nil(t, grant)
			} else {
				require.NoError(t, err)
				assert.GreaterOrEqual(t, grant.Granted, int64(0))
			}
			assert.Equal(t, tt.wantTotal, account.Experience)
			assert.GreaterOrEqual(t, account.Experience, int64(0))
		})
	}
}

func TestAccount_Tokens(t *testing.T) {
	t.Parallel()

	account := NewAccount("user-1")
	account.CreditTokens(5)

	err := account.DebitTokens(10)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(5), account.DoubleTokens)

	require.NoError(t, account.DebitTokens(5))
	assert.Equal(t, int64(0), account.DoubleTokens)

	require.ErrorIs(t, account.DebitTokens(0), ErrValidation)
}

func TestAccount_SetPremium(t *testing.T) {
	t.Parallel()

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(24 * time.Hour)

	account := NewAccount("user-1")
	account.SetPremium(true, first)
	account.SetPremium(true, later)
	require.NotNil(t, account.PremiumSince)
	assert.True(t, account.PremiumSince.Equal(first), "re-enabling keeps the original stamp")

	account.SetPremium(false, later)
	assert.False(t, account.Premium)
	assert.NotNil(t, account.PremiumSince)
}

func TestAccount_ApplyPatch(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	account := NewAccount("user-1")
	account.Invites = 4

	xp := int64(300)
	tokens := int64(12)
	patch := &AccountPatch{Experience: &xp, DoubleTokens: &tokens}
	require.NoError(t, patch.Validate())
	assert.False(t, patch.IsEmpty())

	account.Apply(patch, now)
	assert.Equal(t, int64(300), account.Experience)
	assert.Equal(t, int64(12), account.DoubleTokens)
	assert.Equal(t, int64(4), account.Invites)
	assert.Equal(t, 4, account.Level())

	negative := int64(-1)
	require.ErrorIs(t, (&AccountPatch{CardPacks: &negative}).Validate(), ErrValidation)
	assert.True(t, (&AccountPatch{}).IsEmpty())
}

func TestAccount_Reset(t *testing.T) {
	t.Parallel()

	account := &Account{Identity: "user-1", Experience: 500, Invites: 2, RafflePoints: 3, DoubleTokens: 4, CardPacks: 5, Premium: true}
	account.Reset()
	assert.Equal(t, &Account{Identity: "user-1", Premium: true}, account)
}

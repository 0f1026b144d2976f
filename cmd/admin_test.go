package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/application"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/config"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminLedger() *application.Ledger {
	factory := infrastructure.NewUnitOfWorkFactory(repository.NewMemoryStore(), infrastructure.NewNoopEventPublisher())
	return application.NewLedger(factory, "default")
}

func execJSON(t *testing.T, l *application.Ledger, name string, args ...string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, ExecAdmin(context.Background(), l, name, args, &out))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	return decoded
}

func TestExecAdmin_GrantAndAccount(t *testing.T) {
	t.Parallel()
	l := newAdminLedger()

	execJSON(t, l, "grant-xp", "-id", "u1", "-amount", "250")
	account := execJSON(t, l, "account", "-id", "u1")

	assert.Equal(t, float64(250), account["xp"])
	progress := account["progress"].(map[string]any)
	assert.Equal(t, float64(3), progress["level"])
	assert.Equal(t, float64(50), progress["current_xp"])
}

func TestExecAdmin_WagerRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newAdminLedger()

	tokens := int64(20)
	_, err := l.Accounts.SetAccount(ctx, "fan", &entities.AccountPatch{DoubleTokens: &tokens})
	require.NoError(t, err)

	execJSON(t, l, "wagering", "open")
	execJSON(t, l, "create-team", "-name", "Alpha", "-members", "p1, p2,p3,p4,p5")
	execJSON(t, l, "bet", "-id", "fan", "-team", "alpha", "-tokens", "10")

	resolution := execJSON(t, l, "resolve-team", "-name", "Alpha", "-result", "draw")
	assert.Equal(t, "draw", resolution["result"])
	assert.Len(t, resolution["payouts"], 1)

	account, err := l.GetAccount(ctx, "fan")
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.Experience)
	assert.Equal(t, int64(10), account.DoubleTokens)
}

func TestExecAdmin_Errors(t *testing.T) {
	t.Parallel()
	l := newAdminLedger()
	ctx := context.Background()

	tests := []struct {
		name    string
		command string
		args    []string
		wantErr error
	}{
		{"unknown result", "resolve-team", []string{"-name", "x", "-result", "maybe"}, entities.ErrValidation},
		{"missing team", "resolve-team", []string{"-name", "x", "-result", "win"}, entities.ErrNotFound},
		{"bad expiry", "create-promo", []string{"-code", "x", "-xp", "5", "-expires", "tomorrow"}, entities.ErrValidation},
		{"bad wagering action", "wagering", []string{"toggle"}, entities.ErrValidation},
		{"redeem missing code", "redeem", []string{"-code", "nope", "-id", "u1"}, entities.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := ExecAdmin(ctx, l, tt.command, tt.args, &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, out.Len())
		})
	}

	err := ExecAdmin(ctx, l, "launch", nil, &bytes.Buffer{})
	assert.Error(t, err)
	assert.False(t, IsAdminCommand("launch"))
	assert.True(t, IsAdminCommand("redeem"))
	assert.Contains(t, AdminUsage(), "resolve-team -name <team>")
}

func TestBuildLedger_MemoryBackend(t *testing.T) {
	t.Parallel()

	rt, err := BuildLedger(context.Background(), config.NewTestConfig())
	require.NoError(t, err)
	defer rt.Close()

	account, err := rt.Ledger.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Experience)
}

func TestBuildLedger_UnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := config.NewTestConfig()
	cfg.StoreBackend = "etcd"

	_, err := BuildLedger(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown store backend")
}

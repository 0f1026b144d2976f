package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/application"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/config"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"

	log "github.com/sirupsen/logrus"
)

// reasonManual marks experience granted by an operator
const reasonManual = "manual"

// adminCommand runs one operator subcommand and returns the value to print
type adminCommand struct {
	usage string
	run   func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error)
}

var adminCommands = map[string]adminCommand{
	"account": {
		usage: "account -id <identity>",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			id := fs.String("id", "", "identity")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			account, err := l.GetAccount(ctx, *id)
			if err != nil {
				return nil, err
			}
			return struct {
				*entities.Account
				Progress entities.Progress `json:"progress"`
			}{account, l.Accounts.Progress(account.Experience)}, nil
		},
	},
	"grant-xp": {
		usage: "grant-xp -id <identity> -amount <n> [-reason <text>]",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			id := fs.String("id", "", "identity")
			amount := fs.Int64("amount", 0, "base experience")
			reason := fs.String("reason", reasonManual, "history reason")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.GrantExperience(ctx, *id, *amount, *reason)
		},
	},
	"premium": {
		usage: "premium -id <identity> [-off]",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			id := fs.String("id", "", "identity")
			off := fs.Bool("off", false, "revoke premium")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.Accounts.SetPremium(ctx, *id, !*off)
		},
	},
	"create-promo": {
		usage: "create-promo -code <code> [-xp n] [-tokens n] [-raffle n] [-packs n] [-premium] [-max-uses n] [-expires RFC3339]",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			code := fs.String("code", "", "promo code")
			var rewards entities.PromoRewards
			fs.Int64Var(&rewards.Experience, "xp", 0, "experience reward")
			fs.Int64Var(&rewards.Tokens, "tokens", 0, "double token reward")
			fs.Int64Var(&rewards.RafflePoints, "raffle", 0, "raffle point reward")
			fs.Int64Var(&rewards.CardPacks, "packs", 0, "card pack reward")
			fs.BoolVar(&rewards.PremiumGrant, "premium", false, "grant premium")
			maxUses := fs.Int("max-uses", 0, "redemption cap, 0 for unlimited")
			expires := fs.String("expires", "", "expiry as RFC3339")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}

			var expiresAt *time.Time
			if *expires != "" {
				t, err := time.Parse(time.RFC3339, *expires)
				if err != nil {
					return nil, fmt.Errorf("%w: expires must be an RFC3339 timestamp", entities.ErrValidation)
				}
				expiresAt = &t
			}
			return l.CreatePromoCode(ctx, *code, rewards, expiresAt, *maxUses)
		},
	},
	"redeem": {
		usage: "redeem -code <code> -id <identity>",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			code := fs.String("code", "", "promo code")
			id := fs.String("id", "", "identity")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.RedeemPromoCode(ctx, *code, *id)
		},
	},
	"create-team": {
		usage: "create-team -name <team> -members a,b,c,d,e",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			name := fs.String("name", "", "team name")
			members := fs.String("members", "", "comma separated member identities")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.CreateTeam(ctx, *name, splitList(*members))
		},
	},
	"replace-member": {
		usage: "replace-member -name <team> -old <identity> -new <identity>",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			name := fs.String("name", "", "team name")
			oldID := fs.String("old", "", "member to replace")
			newID := fs.String("new", "", "replacement member")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.Wagers.ReplaceMember(ctx, *name, *oldID, *newID)
		},
	},
	"delete-team": {
		usage: "delete-team -name <team>",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			name := fs.String("name", "", "team name")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			if err := l.Wagers.DeleteTeam(ctx, *name); err != nil {
				return nil, err
			}
			return map[string]string{"deleted": *name}, nil
		},
	},
	"teams": {
		usage: "teams",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.Wagers.ListTeams(ctx)
		},
	},
	"bet": {
		usage: "bet -id <identity> -team <team> -tokens <1-50> [-scope <scope>]",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			id := fs.String("id", "", "identity")
			team := fs.String("team", "", "team name")
			tokens := fs.Int64("tokens", 0, "tokens to stake")
			scope := fs.String("scope", "", "settings scope")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.PlaceBet(ctx, *scope, *id, *team, *tokens)
		},
	},
	"resolve-team": {
		usage: "resolve-team -name <team> -result win|draw|loss",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			name := fs.String("name", "", "team name")
			result := fs.String("result", "", "win, draw or loss")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.ResolveTeam(ctx, *name, *result)
		},
	},
	"wagering": {
		usage: "wagering open|close|status [-scope <scope>]",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("%w: expected open, close or status", entities.ErrValidation)
			}
			action := args[0]
			scope := fs.String("scope", "", "settings scope")
			if err := fs.Parse(args[1:]); err != nil {
				return nil, err
			}
			switch action {
			case "open":
				return l.OpenWagering(ctx, *scope)
			case "close":
				return l.CloseWagering(ctx, *scope)
			case "status":
				return l.GetSettings(ctx, *scope)
			default:
				return nil, fmt.Errorf("%w: expected open, close or status", entities.ErrValidation)
			}
		},
	},
	"history": {
		usage: "history -id <identity> | -team <team>",
		run: func(ctx context.Context, l *application.Ledger, fs *flag.FlagSet, args []string) (any, error) {
			id := fs.String("id", "", "identity")
			team := fs.String("team", "", "team name")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			return l.HistoryFor(ctx, *id, *team)
		},
	},
}

// IsAdminCommand reports whether name is an operator subcommand
func IsAdminCommand(name string) bool {
	_, ok := adminCommands[name]
	return ok
}

// AdminUsage lists every operator subcommand
func AdminUsage() string {
	names := make([]string, 0, len(adminCommands))
	for name := range adminCommands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", adminCommands[name].usage)
	}
	return b.String()
}

// RunAdmin wires a ledger from config and runs one operator subcommand against it
func RunAdmin(ctx context.Context, name string, args []string, out io.Writer) error {
	rt, err := BuildLedger(ctx, config.Get())
	if err != nil {
		return err
	}
	defer rt.Close()

	return ExecAdmin(ctx, rt.Ledger, name, args, out)
}

// ExecAdmin runs one operator subcommand against l and writes its result to out as JSON
func ExecAdmin(ctx context.Context, l *application.Ledger, name string, args []string, out io.Writer) error {
	command, ok := adminCommands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	result, err := command.run(ctx, l, fs, args)
	if err != nil {
		log.WithFields(log.Fields{
			"command": name,
			"error":   err,
		}).Debug("Admin command failed")
		return fmt.Errorf("%s: %w", name, err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"tip20kit/core/events"
	"tip20kit/sdk/token"
)

// submitOnly sends req and prints the pending transaction.
func submitOnly(ctx context.Context, s *session, req token.Request, stdout io.Writer) error {
	pending, err := s.client.Submit(ctx, req)
	if err != nil {
		return err
	}
	return printPending(stdout, pending)
}

func runApprove(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("approve")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to approve")
	spender := fs.String("spender", "", "spender address")
	amount := fs.String("amount", "", "allowance in base units")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.ApproveParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.Spender, err = parseAddress("spender", *spender); err != nil {
		return err
	}
	if p.Amount, err = parseAmount("amount", *amount); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.ApproveSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.Approval)
}

func runTransfer(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("transfer")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to transfer")
	from := fs.String("from", "", "owner to spend an allowance from (defaults to the acting account)")
	to := fs.String("to", "", "recipient")
	amount := fs.String("amount", "", "amount in base units")
	memo := fs.String("memo", "", "optional memo: text or 0x-prefixed hex, at most 32 bytes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.TransferParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.From, err = optionalAddress("from", *from); err != nil {
		return err
	}
	if p.To, err = parseAddress("to", *to); err != nil {
		return err
	}
	if p.Amount, err = parseAmount("amount", *amount); err != nil {
		return err
	}
	if p.Memo, err = parseMemo(*memo); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.TransferSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.Transfer)
}

func runMint(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("mint")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to mint")
	to := fs.String("to", "", "recipient")
	amount := fs.String("amount", "", "amount in base units")
	memo := fs.String("memo", "", "optional memo: text or 0x-prefixed hex, at most 32 bytes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.MintParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.To, err = parseAddress("to", *to); err != nil {
		return err
	}
	if p.Amount, err = parseAmount("amount", *amount); err != nil {
		return err
	}
	if p.Memo, err = parseMemo(*memo); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.MintSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.Mint)
}

func runBurn(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("burn")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to burn")
	amount := fs.String("amount", "", "amount in base units")
	memo := fs.String("memo", "", "optional memo: text or 0x-prefixed hex, at most 32 bytes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.BurnParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.Amount, err = parseAmount("amount", *amount); err != nil {
		return err
	}
	if p.Memo, err = parseMemo(*memo); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.BurnSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.Burn)
}

func runBurnBlocked(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("burn-blocked")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to burn")
	from := fs.String("from", "", "blocked holder")
	amount := fs.String("amount", "", "amount in base units")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.BurnBlockedParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.From, err = parseAddress("from", *from); err != nil {
		return err
	}
	if p.Amount, err = parseAmount("amount", *amount); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.BurnBlockedSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.BurnBlocked)
}

func runPause(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	return runPauseState(ctx, s, "pause", args, stdout)
}

func runUnpause(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	return runPauseState(ctx, s, "unpause", args, stdout)
}

func runPauseState(ctx context.Context, s *session, name string, args []string, stdout io.Writer) error {
	fs := newFlagSet(name)
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to "+name)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.PauseParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}

	var res *token.PauseResult
	switch {
	case name == "pause" && w.noWait:
		return submitOnly(ctx, s, p, stdout)
	case name == "pause":
		res, err = s.client.PauseSync(ctx, p)
	case w.noWait:
		return submitOnly(ctx, s, token.UnpauseParams(p), stdout)
	default:
		res, err = s.client.UnpauseSync(ctx, token.UnpauseParams(p))
	}
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.PauseStateUpdate)
}

func printRoles(stdout io.Writer, res *token.RolesResult) error {
	evs := make([]events.Event, len(res.Value))
	for i, ev := range res.Value {
		evs[i] = ev
	}
	return printResult(stdout, res.Receipt, evs...)
}

func runGrant(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("grant")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token whose roles change")
	to := fs.String("to", "", "account receiving the roles")
	list := fs.String("roles", "", "comma separated role names or ids")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.GrantRolesParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.To, err = parseAddress("to", *to); err != nil {
		return err
	}
	if p.Roles, err = parseRoles("roles", *list); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.GrantRolesSync(ctx, p)
	if err != nil {
		return err
	}
	return printRoles(stdout, res)
}

func runRevoke(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("revoke")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token whose roles change")
	from := fs.String("from", "", "account losing the roles")
	list := fs.String("roles", "", "comma separated role names or ids")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.RevokeRolesParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.From, err = parseAddress("from", *from); err != nil {
		return err
	}
	if p.Roles, err = parseRoles("roles", *list); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.RevokeRolesSync(ctx, p)
	if err != nil {
		return err
	}
	return printRoles(stdout, res)
}

func runRenounce(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("renounce")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token whose roles change")
	list := fs.String("roles", "", "comma separated role names or ids")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.RenounceRolesParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.Roles, err = parseRoles("roles", *list); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.RenounceRolesSync(ctx, p)
	if err != nil {
		return err
	}
	return printRoles(stdout, res)
}

func runSetRoleAdmin(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("set-role-admin")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token whose role admin changes")
	role := fs.String("role", "", "role being administered")
	admin := fs.String("admin-role", "", "new admin role")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.SetRoleAdminParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.Role, err = parseRole("role", *role); err != nil {
		return err
	}
	if p.AdminRole, err = parseRole("admin-role", *admin); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.SetRoleAdminSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.RoleAdminUpdated)
}

func runSetSupplyCap(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("set-supply-cap")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token whose cap changes")
	supplyCap := fs.String("cap", "", "new supply cap in base units")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.SetSupplyCapParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.SupplyCap, err = parseAmount("cap", *supplyCap); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.SetSupplyCapSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.SupplyCapUpdate)
}

func runSetPolicy(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("set-policy")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token whose transfer policy changes")
	policy := fs.String("policy", "", "transfer policy id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.ChangeTransferPolicyParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if err := required("policy", *policy); err != nil {
		return err
	}
	if p.PolicyID, err = strconv.ParseUint(strings.TrimSpace(*policy), 10, 64); err != nil {
		return fmt.Errorf("--policy: %w", err)
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.ChangeTransferPolicySync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.TransferPolicyUpdate)
}

func runCreate(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("create")
	var w writeFlags
	w.register(fs)
	name := fs.String("name", "", "token name")
	symbol := fs.String("symbol", "", "token symbol")
	currency := fs.String("currency", "", "ISO currency code the token tracks")
	quote := fs.String("quote-token", "", "quote token (defaults to the root quote token)")
	admin := fs.String("admin", "", "initial admin (defaults to the acting account)")
	salt := fs.String("salt", "", "0x-prefixed 32-byte salt (random when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	for flagName, value := range map[string]string{"name": *name, "symbol": *symbol, "currency": *currency} {
		if err := required(flagName, value); err != nil {
			return err
		}
	}
	p := token.CreateParams{WriteOptions: opts, Name: *name, Symbol: *symbol, Currency: *currency}
	if p.QuoteToken, err = s.optionalTokenRef("quote-token", *quote); err != nil {
		return err
	}
	if p.Admin, err = optionalAddress("admin", *admin); err != nil {
		return err
	}
	if *salt != "" {
		raw := common.FromHex(*salt)
		if len(raw) != common.HashLength {
			return fmt.Errorf("--salt: expected 32 bytes, got %d", len(raw))
		}
		copy(p.Salt[:], raw)
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.CreateSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.TokenCreated)
}

func runPrepareQuote(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("prepare-quote")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to migrate")
	quote := fs.String("quote-token", "", "proposed quote token")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.PrepareUpdateQuoteTokenParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if p.QuoteToken, err = s.tokenRef("quote-token", *quote); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.PrepareUpdateQuoteTokenSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.QuoteTokenChange)
}

func runFinalizeQuote(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("finalize-quote")
	var w writeFlags
	w.register(fs)
	tok := fs.String("token", "", "token to migrate")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	opts, err := w.options(s)
	if err != nil {
		return err
	}
	p := token.UpdateQuoteTokenParams{WriteOptions: opts}
	if p.Token, err = s.tokenRef("token", *tok); err != nil {
		return err
	}
	if w.noWait {
		return submitOnly(ctx, s, p, stdout)
	}
	res, err := s.client.UpdateQuoteTokenSync(ctx, p)
	if err != nil {
		return err
	}
	return printResult(stdout, res.Receipt, res.QuoteTokenChange)
}

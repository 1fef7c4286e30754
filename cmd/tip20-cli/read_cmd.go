package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"

	"tip20kit/sdk/token"
)

func runBalance(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("balance")
	tok := fs.String("token", "", "token to query")
	account := fs.String("account", "", "account to query (defaults to the acting account)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	addr, err := optionalAddress("account", *account)
	if err != nil {
		return err
	}
	if addr == (common.Address{}) {
		addr = s.client.Account()
	}
	balance, err := s.client.GetBalance(ctx, token.BalanceParams{Token: ref, Account: addr})
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]string{
		"token":   ref.String(),
		"account": addr.Hex(),
		"balance": balance.String(),
	})
}

func runAllowance(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("allowance")
	tok := fs.String("token", "", "token to query")
	owner := fs.String("owner", "", "owner (defaults to the acting account)")
	spender := fs.String("spender", "", "spender")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	ownerAddr, err := optionalAddress("owner", *owner)
	if err != nil {
		return err
	}
	if ownerAddr == (common.Address{}) {
		ownerAddr = s.client.Account()
	}
	spenderAddr, err := parseAddress("spender", *spender)
	if err != nil {
		return err
	}
	allowance, err := s.client.GetAllowance(ctx, token.AllowanceParams{Token: ref, Owner: ownerAddr, Spender: spenderAddr})
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]string{
		"token":     ref.String(),
		"owner":     ownerAddr.Hex(),
		"spender":   spenderAddr.Hex(),
		"allowance": allowance.String(),
	})
}

type metadataOutput struct {
	Address          string  `json:"address"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	Currency         string  `json:"currency"`
	Decimals         uint8   `json:"decimals"`
	TotalSupply      string  `json:"totalSupply"`
	SupplyCap        *string `json:"supplyCap,omitempty"`
	Paused           *bool   `json:"paused,omitempty"`
	QuoteToken       *string `json:"quoteToken,omitempty"`
	TransferPolicyID *uint64 `json:"transferPolicyId,omitempty"`
}

func runMetadata(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("metadata")
	tok := fs.String("token", "", "token to describe")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	addr, err := s.client.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	md, err := s.client.GetMetadata(ctx, ref)
	if err != nil {
		return err
	}
	out := metadataOutput{
		Address:          addr.Hex(),
		Name:             md.Name,
		Symbol:           md.Symbol,
		Currency:         md.Currency,
		Decimals:         md.Decimals,
		TotalSupply:      md.TotalSupply.String(),
		Paused:           md.Paused,
		TransferPolicyID: md.TransferPolicyID,
	}
	if md.SupplyCap != nil {
		v := md.SupplyCap.String()
		out.SupplyCap = &v
	}
	if md.QuoteToken != nil {
		v := md.QuoteToken.Hex()
		out.QuoteToken = &v
	}
	return writeJSON(stdout, out)
}

func runHasRole(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("has-role")
	tok := fs.String("token", "", "token to query")
	account := fs.String("account", "", "account to check (defaults to the acting account)")
	role := fs.String("role", "", "role name or 0x-prefixed id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	addr, err := optionalAddress("account", *account)
	if err != nil {
		return err
	}
	if addr == (common.Address{}) {
		addr = s.client.Account()
	}
	r, err := parseRole("role", *role)
	if err != nil {
		return err
	}
	has, err := s.client.HasRole(ctx, token.HasRoleParams{Token: ref, Account: addr, Role: r})
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]any{
		"token":   ref.String(),
		"account": addr.Hex(),
		"role":    r.String(),
		"hasRole": has,
	})
}

func runRoleAdmin(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("role-admin")
	tok := fs.String("token", "", "token to query")
	role := fs.String("role", "", "role name or 0x-prefixed id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	r, err := parseRole("role", *role)
	if err != nil {
		return err
	}
	admin, err := s.client.GetRoleAdmin(ctx, token.RoleAdminParams{Token: ref, Role: r})
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]string{
		"token":     ref.String(),
		"role":      r.String(),
		"adminRole": admin.String(),
	})
}

func runPendingQuote(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("pending-quote")
	tok := fs.String("token", "", "token to query")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	pending, ok, err := s.client.GetPendingQuoteToken(ctx, ref)
	if err != nil {
		return err
	}
	out := map[string]any{"token": ref.String(), "pending": nil}
	if ok {
		out["pending"] = pending.Hex()
	}
	return writeJSON(stdout, out)
}

func runMigration(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("migration: expected status or detect-cycle")
	}
	switch args[0] {
	case "status":
		return runMigrationStatus(ctx, s, args[1:], stdout)
	case "detect-cycle":
		return runDetectCycle(ctx, s, args[1:], stdout)
	default:
		return fmt.Errorf("migration: unknown subcommand %q", args[0])
	}
}

func runMigrationStatus(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("migration status")
	tok := fs.String("token", "", "token to inspect")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	status, err := s.client.Migration().Status(ctx, ref)
	if err != nil {
		return err
	}
	out := map[string]any{
		"token":      status.Token.Hex(),
		"quoteToken": status.Current.Hex(),
		"pending":    nil,
	}
	if status.HasProposal() {
		out["pending"] = status.Pending.Hex()
	}
	return writeJSON(stdout, out)
}

func runDetectCycle(ctx context.Context, s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("migration detect-cycle")
	tok := fs.String("token", "", "token that would migrate")
	proposed := fs.String("quote-token", "", "proposed quote token")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ref, err := s.tokenRef("token", *tok)
	if err != nil {
		return err
	}
	next, err := s.tokenRef("quote-token", *proposed)
	if err != nil {
		return err
	}
	cycle, path, err := s.client.Migration().DetectCycle(ctx, ref, next)
	if err != nil {
		return err
	}
	hops := make([]string, len(path))
	for i, addr := range path {
		hops[i] = addr.Hex()
	}
	return writeJSON(stdout, map[string]any{"cycle": cycle, "path": hops})
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
)

const defaultConfig = "./tip20.toml"

// command is one CLI verb. Commands that talk to the chain receive an open
// session; the rest run without one.
type command struct {
	summary string
	// offline commands never dial the node.
	offline bool
	// signs marks commands that submit transactions and so need the key.
	signs bool
	run   func(ctx context.Context, s *session, args []string, stdout io.Writer) error
}

var commands = map[string]command{
	"balance":        {summary: "Show the balance of an account", run: runBalance},
	"allowance":      {summary: "Show how much a spender may move for an owner", run: runAllowance},
	"metadata":       {summary: "Show token metadata", run: runMetadata},
	"has-role":       {summary: "Check whether an account holds a role", run: runHasRole},
	"role-admin":     {summary: "Show the admin role of a role", run: runRoleAdmin},
	"pending-quote":  {summary: "Show the proposed quote token, if any", run: runPendingQuote},
	"migration":      {summary: "Inspect quote token migrations (status, detect-cycle)", run: runMigration},
	"approve":        {summary: "Set a spender allowance", signs: true, run: runApprove},
	"transfer":       {summary: "Transfer tokens, optionally from an approved owner", signs: true, run: runTransfer},
	"mint":           {summary: "Mint tokens to an account", signs: true, run: runMint},
	"burn":           {summary: "Burn tokens held by the acting account", signs: true, run: runBurn},
	"burn-blocked":   {summary: "Burn tokens held by a policy-blocked account", signs: true, run: runBurnBlocked},
	"pause":          {summary: "Pause transfers", signs: true, run: runPause},
	"unpause":        {summary: "Resume transfers", signs: true, run: runUnpause},
	"grant":          {summary: "Grant roles to an account", signs: true, run: runGrant},
	"revoke":         {summary: "Revoke roles from an account", signs: true, run: runRevoke},
	"renounce":       {summary: "Renounce roles held by the acting account", signs: true, run: runRenounce},
	"set-role-admin": {summary: "Change the admin role of a role", signs: true, run: runSetRoleAdmin},
	"set-supply-cap": {summary: "Change the supply cap", signs: true, run: runSetSupplyCap},
	"set-policy":     {summary: "Change the transfer policy", signs: true, run: runSetPolicy},
	"create":         {summary: "Create a token through the factory", signs: true, run: runCreate},
	"prepare-quote":  {summary: "Propose a new quote token", signs: true, run: runPrepareQuote},
	"finalize-quote": {summary: "Finalize the proposed quote token", signs: true, run: runFinalizeQuote},
	"watch":          {summary: "Stream events as JSON lines", run: runWatch},
	"checkpoints":    {summary: "List or reset watch checkpoints", run: runCheckpoints},
	"keys":           {summary: "Create or inspect keystores", offline: true, run: runKeys},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type globalFlags struct {
	configPath string
	rpcURL     string
	account    string
	feeToken   string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := flag.NewFlagSet("tip20-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	fs.StringVar(&g.configPath, "config", defaultConfig, "path to the CLI config file")
	fs.StringVar(&g.rpcURL, "rpc", "", "node endpoint, overriding RPCURL")
	fs.StringVar(&g.account, "account", "", "acting account, overriding Account")
	fs.StringVar(&g.feeToken, "fee-token", "", "default fee token, overriding FeeToken")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}

	var s *session
	if !cmd.offline {
		var err error
		s, err = openSession(ctx, g, cmd.signs)
		if err != nil {
			return printError(stderr, err)
		}
		defer s.Close()
	}
	if err := cmd.run(ctx, s, rest[1:], stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return printError(stderr, err)
	}
	return 0
}

func printError(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}

func usage() string {
	names := make([]string, 0, len(commands))
	width := 0
	for name := range commands {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Usage:\n  tip20-cli [--config path] [--rpc url] [--account addr] [--fee-token token] <command> [flags]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, name, commands[name].summary)
	}
	b.WriteString("\nTokens may be given as an address, a numeric id or a token book alias.")
	return b.String()
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"tip20kit/config"
	"tip20kit/core/tokenref"
	"tip20kit/sdk/simulated"
	"tip20kit/sdk/token"
)

var (
	admin = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// useSimulated routes every command to a fresh simulated chain.
func useSimulated(t *testing.T, book string) *simulated.Chain {
	t.Helper()
	chain := simulated.New(admin)
	t.Cleanup(chain.Close)
	client, err := token.NewClient(chain,
		token.WithAccount(admin),
		token.WithMetrics(nil, nil),
		token.WithReceiptTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	var parsed *tokenref.Book
	if book != "" {
		parsed, err = tokenref.ParseBook([]byte(book))
		require.NoError(t, err)
	}
	cfg := config.Default()
	cfg.CheckpointDB = filepath.Join(t.TempDir(), "checkpoints.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	original := openSession
	openSession = func(context.Context, globalFlags, bool) (*session, error) {
		return &session{cfg: cfg, book: parsed, client: client, logger: logger}, nil
	}
	t.Cleanup(func() { openSession = original })
	return chain
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	code, stdout, stderr := runCLI(t, args...)
	require.Equal(t, 0, code, "stderr: %s", stderr)
	return stdout
}

func decodeResult(t *testing.T, out string) resultOutput {
	t.Helper()
	var res resultOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

func createAlpha(t *testing.T) string {
	t.Helper()
	res := decodeResult(t, mustRun(t, "create", "--name", "Alpha Dollar", "--symbol", "ALPHA", "--currency", "USD"))
	require.Len(t, res.Events, 1)
	require.Equal(t, "ALPHA", res.Events[0].Attributes["symbol"])
	return res.Events[0].Attributes["token"]
}

func TestUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Usage:")
	require.Contains(t, stderr, "finalize-quote")

	code, _, stderr = runCLI(t, "frobnicate")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Unknown command: frobnicate")
}

func TestCreateGrantMintBalance(t *testing.T) {
	useSimulated(t, "")
	alpha := createAlpha(t)

	res := decodeResult(t, mustRun(t, "grant", "--token", alpha, "--to", admin.Hex(), "--roles", "issuer,pause"))
	require.Len(t, res.Events, 2)
	require.Equal(t, "true", res.Events[0].Attributes["hasRole"])

	res = decodeResult(t, mustRun(t, "mint", "--token", alpha, "--to", bob.Hex(), "--amount", "25e6", "--memo", "invoice-7"))
	require.NotZero(t, res.BlockNumber)
	require.Equal(t, "25000000", res.Events[0].Attributes["amount"])

	var balance map[string]string
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "balance", "--token", alpha, "--account", bob.Hex())), &balance))
	require.Equal(t, "25000000", balance["balance"])

	var hasRole map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "has-role", "--token", alpha, "--role", "issuer")), &hasRole))
	require.Equal(t, true, hasRole["hasRole"])

	var md metadataOutput
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "metadata", "--token", alpha)), &md))
	require.Equal(t, "ALPHA", md.Symbol)
	require.Equal(t, "25000000", md.TotalSupply)
	require.NotNil(t, md.Paused)
	require.False(t, *md.Paused)
}

func TestTokenBookAliases(t *testing.T) {
	useSimulated(t, "tokens:\n  path: 0\n")
	var md metadataOutput
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "metadata", "--token", "path")), &md))
	require.Equal(t, tokenref.RootQuoteToken.Address().Hex(), md.Address)
	require.Nil(t, md.SupplyCap)
	require.Nil(t, md.QuoteToken)
}

func TestRevertsAreReported(t *testing.T) {
	useSimulated(t, "")
	alpha := createAlpha(t)

	code, _, stderr := runCLI(t, "transfer", "--token", alpha, "--to", bob.Hex(), "--amount", "1")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "reverted")

	code, _, stderr = runCLI(t, "mint", "--token", alpha, "--to", bob.Hex(), "--amount", "1.5")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "whole number")

	code, _, stderr = runCLI(t, "grant", "--token", alpha, "--to", bob.Hex(), "--roles", "janitor")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown role")

	code, _, stderr = runCLI(t, "balance", "--token", "9999")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "not found")
}

func TestNoWaitPrintsPending(t *testing.T) {
	useSimulated(t, "")
	alpha := createAlpha(t)

	var pending pendingOutput
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "approve", "--no-wait", "--token", alpha, "--spender", bob.Hex(), "--amount", "10")), &pending))
	require.Equal(t, "approve", pending.Action)
	require.Equal(t, admin.Hex(), pending.From)
	require.True(t, strings.HasPrefix(pending.TxHash, "0x"))

	require.Eventually(t, func() bool {
		var allowance map[string]string
		out := mustRun(t, "allowance", "--token", alpha, "--spender", bob.Hex())
		return json.Unmarshal([]byte(out), &allowance) == nil && allowance["allowance"] == "10"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestQuoteMigrationCommands(t *testing.T) {
	useSimulated(t, "")
	alpha := createAlpha(t)
	res := decodeResult(t, mustRun(t, "create", "--name", "Beta", "--symbol", "BETA", "--currency", "USD", "--quote-token", alpha))
	beta := res.Events[0].Attributes["token"]

	var cycle map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "migration", "detect-cycle", "--token", alpha, "--quote-token", beta)), &cycle))
	require.Equal(t, true, cycle["cycle"])

	mustRun(t, "prepare-quote", "--token", alpha, "--quote-token", beta)
	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "migration", "status", "--token", alpha)), &status))
	require.Equal(t, common.HexToAddress(beta).Hex(), status["pending"])

	code, _, stderr := runCLI(t, "finalize-quote", "--token", alpha)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "reverted")
}

func TestWatchResumesFromCheckpoint(t *testing.T) {
	useSimulated(t, "")
	alpha := createAlpha(t)
	mustRun(t, "grant", "--token", alpha, "--to", admin.Hex(), "--roles", "issuer")
	mustRun(t, "mint", "--token", alpha, "--to", bob.Hex(), "--amount", "1")
	mustRun(t, "mint", "--token", alpha, "--to", bob.Hex(), "--amount", "2")

	readAmounts := func(out string) []string {
		var amounts []string
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			var ev struct {
				Type       string            `json:"type"`
				Attributes map[string]string `json:"attributes"`
			}
			require.NoError(t, json.Unmarshal([]byte(line), &ev))
			amounts = append(amounts, ev.Attributes["amount"])
		}
		return amounts
	}

	out := mustRun(t, "watch", "mint", "--token", alpha, "--from-block", "0", "--resume", "minter", "--limit", "1")
	require.Equal(t, []string{"1"}, readAmounts(out))

	out = mustRun(t, "watch", "mint", "--token", alpha, "--resume", "minter", "--limit", "1")
	require.Equal(t, []string{"2"}, readAmounts(out))

	var cps map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "checkpoints")), &cps))
	require.Contains(t, cps, "minter")

	mustRun(t, "checkpoints", "--reset", "minter")
	cps = nil
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "checkpoints")), &cps))
	require.Empty(t, cps)
}

func TestWatchRejectsUnknownKind(t *testing.T) {
	useSimulated(t, "")
	code, _, stderr := runCLI(t, "watch", "comets")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown event kind")
}

type fixedSecret string

func (s fixedSecret) Get() (string, error) { return string(s), nil }

func TestKeysNewAndAddress(t *testing.T) {
	original := newPassphrase
	newPassphrase = func(string, string) secret { return fixedSecret("correct horse") }
	t.Cleanup(func() { newPassphrase = original })

	path := filepath.Join(t.TempDir(), "operator.json")
	var created map[string]string
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "keys", "new", "--out", path)), &created))
	require.True(t, common.IsHexAddress(created["address"]))

	var loaded map[string]string
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "keys", "address", "--keystore", path)), &loaded))
	require.Equal(t, created["address"], loaded["address"])

	code, _, stderr := runCLI(t, "keys", "new", "--out", path)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "already exists")
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want *big.Int
		err  bool
	}{
		{in: "42", want: big.NewInt(42)},
		{in: "1_000", want: big.NewInt(1000)},
		{in: "25e6", want: big.NewInt(25_000_000)},
		{in: "1.5e6", want: big.NewInt(1_500_000)},
		{in: "+7", want: big.NewInt(7)},
		{in: "1.5", err: true},
		{in: "-1", err: true},
		{in: "e6", err: true},
		{in: "abc", err: true},
		{in: "", err: true},
	}
	for _, tc := range cases {
		got, err := parseAmount("amount", tc.in)
		if tc.err {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Zero(t, tc.want.Cmp(got), "%s: got %s", tc.in, got)
	}
}

func TestParseMemo(t *testing.T) {
	m, err := parseMemo("0x01ff")
	require.NoError(t, err)
	require.Equal(t, byte(0x01), m[0])
	require.Equal(t, byte(0xff), m[1])

	m, err = parseMemo("")
	require.NoError(t, err)
	require.Nil(t, m)

	_, err = parseMemo(strings.Repeat("x", 33))
	require.Error(t, err)
}

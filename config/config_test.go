package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"tip20kit/core/tokenref"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tip20.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tip20.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultRPCURL, cfg.RPCURL)
	require.Equal(t, DefaultReceiptTimeout, cfg.ReceiptTimeout.Std())
	require.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCURL, again.RPCURL)
	require.Equal(t, cfg.CheckpointDB, again.CheckpointDB)
}

func TestLoadParsesSettings(t *testing.T) {
	path := writeConfig(t, `RPCURL = "wss://rpc.example.com"
ChainID = 4217
Account = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
KeystorePath = "keys/operator.json"
FeeToken = "alphaUSD"
ReceiptTimeout = "45s"
PollInterval = "250ms"
RequestsPerSecond = 20
TokenBook = "tokens.yaml"
LogFile = "/var/log/tip20.log"

[AccountFeeTokens]
"0x70997970C51812dc3A010C7d01b50e0d17dc79C8" = "2"

[telemetry]
Endpoint = "otel:4318"
Insecure = true
Traces = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	dir := filepath.Dir(path)

	require.Equal(t, "wss://rpc.example.com", cfg.RPCURL)
	require.Equal(t, uint64(4217), cfg.ChainID)
	require.Equal(t, 45*time.Second, cfg.ReceiptTimeout.Std())
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval.Std())
	require.Equal(t, 20.0, cfg.RequestsPerSecond)
	require.Equal(t, filepath.Join(dir, "keys/operator.json"), cfg.KeystorePath)
	require.Equal(t, filepath.Join(dir, "tokens.yaml"), cfg.TokenBook)
	require.Equal(t, "/var/log/tip20.log", cfg.LogFile)
	require.Equal(t, DefaultPassphraseEnv, cfg.PassphraseEnv)
	require.True(t, cfg.Telemetry.Enabled())

	account, ok := cfg.AccountAddress()
	require.True(t, ok)
	require.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), account)

	require.NoError(t, os.WriteFile(cfg.TokenBook, []byte("tokens:\n  alphaUSD: 1\n"), 0o644))
	book, err := cfg.LoadBook()
	require.NoError(t, err)
	fees, err := cfg.ParseFeeTokens(book)
	require.NoError(t, err)
	require.Equal(t, tokenref.FromID(1), fees.Default)
	require.Equal(t, tokenref.FromID(2), fees.ByAccount[common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")])
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `RPCURL = "http://localhost:8545"
ValidatorKey = "0xdeadbeef"
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ValidatorKey")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.RPCURL = "ftp://node" }, "RPCURL"},
		{"bad account", func(c *Config) { c.Account = "alice" }, "Account"},
		{"node signing without account", func(c *Config) { c.NodeSigning = true }, "NodeSigning"},
		{"account without keystore", func(c *Config) { c.Account = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" }, "KeystorePath"},
		{"short timeout", func(c *Config) { c.ReceiptTimeout = Duration(time.Millisecond) }, "ReceiptTimeout"},
		{"fast polling", func(c *Config) { c.PollInterval = Duration(time.Millisecond) }, "PollInterval"},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, "RequestsPerSecond"},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Metrics = true }, "telemetry"},
		{"bad fee account", func(c *Config) { c.AccountFeeTokens = map[string]string{"bob": "1"} }, "AccountFeeTokens"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.want), "error %q lacks %q", err, tc.want)
		})
	}
	require.NoError(t, Default().Validate())
}

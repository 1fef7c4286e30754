package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the operator configuration of the CLI.
type Config struct {
	RPCURL  string `toml:"RPCURL"`
	ChainID uint64 `toml:"ChainID"`
	// Account is the default acting account.
	Account string `toml:"Account"`
	// NodeSigning hands transactions to the node for signing instead of
	// signing with the keystore.
	NodeSigning   bool   `toml:"NodeSigning"`
	KeystorePath  string `toml:"KeystorePath"`
	PassphraseEnv string `toml:"PassphraseEnv"`
	// FeeToken is the client-wide default fee token: an address, a numeric
	// id or a token book alias.
	FeeToken string `toml:"FeeToken"`
	// AccountFeeTokens overrides FeeToken per account.
	AccountFeeTokens map[string]string `toml:"AccountFeeTokens"`

	ReceiptTimeout    Duration `toml:"ReceiptTimeout"`
	PollInterval      Duration `toml:"PollInterval"`
	RequestsPerSecond float64  `toml:"RequestsPerSecond"`

	TokenBook    string `toml:"TokenBook"`
	CheckpointDB string `toml:"CheckpointDB"`

	Environment string    `toml:"Environment"`
	LogLevel    string    `toml:"LogLevel"`
	LogFile     string    `toml:"LogFile"`
	Telemetry   Telemetry `toml:"telemetry"`
}

const (
	DefaultRPCURL         = "http://localhost:8545"
	DefaultPassphraseEnv  = "TIP20_KEYSTORE_PASSPHRASE"
	DefaultReceiptTimeout = 2 * time.Minute
	DefaultPollInterval   = time.Second
)

// Default returns the configuration written for a fresh install.
func Default() *Config {
	return &Config{
		RPCURL:         DefaultRPCURL,
		PassphraseEnv:  DefaultPassphraseEnv,
		ReceiptTimeout: Duration(DefaultReceiptTimeout),
		PollInterval:   Duration(DefaultPollInterval),
		CheckpointDB:   "checkpoints.db",
		LogLevel:       "info",
	}
}

// Load reads the configuration at path, writing the defaults there first if
// the file does not exist. Relative paths inside the file resolve against
// its directory.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
		cfg.resolvePaths(filepath.Dir(path))
		return cfg, nil
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCURL) == "" {
		c.RPCURL = DefaultRPCURL
	}
	if strings.TrimSpace(c.PassphraseEnv) == "" {
		c.PassphraseEnv = DefaultPassphraseEnv
	}
	if c.ReceiptTimeout == 0 {
		c.ReceiptTimeout = Duration(DefaultReceiptTimeout)
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.KeystorePath, &c.TokenBook, &c.CheckpointDB, &c.LogFile} {
		if *p != "" && !filepath.IsAbs(*p) && dir != "" && dir != "." {
			*p = filepath.Join(dir, *p)
		}
	}
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

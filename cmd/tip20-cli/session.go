package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"tip20kit/cmd/internal/passphrase"
	"tip20kit/config"
	"tip20kit/core/tokenref"
	"tip20kit/crypto"
	"tip20kit/observability/logging"
	"tip20kit/observability/otel"
	"tip20kit/sdk/rpcbackend"
	"tip20kit/sdk/token"
)

const serviceName = "tip20-cli"

// session is everything a chain-facing command needs.
type session struct {
	cfg    *config.Config
	book   *tokenref.Book
	client *token.Client
	logger *slog.Logger

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *session) onClose(fn func()) { s.closers = append(s.closers, fn) }

// openSession is replaced in tests with a session over a simulated chain.
var openSession = dialSession

func dialSession(ctx context.Context, g globalFlags, signs bool) (_ *session, err error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.rpcURL != "" {
		cfg.RPCURL = g.rpcURL
	}
	if g.account != "" {
		cfg.Account = g.account
	}
	if g.feeToken != "" {
		cfg.FeeToken = g.feeToken
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser := logging.Setup(logging.Options{
		Service: serviceName,
		Env:     cfg.Environment,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	s := &session{cfg: cfg, logger: logger}
	s.onClose(func() { _ = logCloser.Close() })
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	headers := otel.ParseHeaders(cfg.Telemetry.Headers)
	shutdown, err := otel.Init(ctx, otel.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     headers,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	s.onClose(func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	})
	if cfg.Telemetry.Enabled() {
		logger.Debug("telemetry enabled",
			slog.String("endpoint", cfg.Telemetry.Endpoint),
			logging.MaskHeaders("headers", headers))
	}

	book, err := cfg.LoadBook()
	if err != nil {
		return nil, err
	}
	s.book = book
	fees, err := cfg.ParseFeeTokens(book)
	if err != nil {
		return nil, err
	}

	backendCfg := rpcbackend.Config{
		PollInterval:      cfg.PollInterval.Std(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	}
	if cfg.ChainID != 0 {
		backendCfg.ChainID = new(big.Int).SetUint64(cfg.ChainID)
	}
	account, hasAccount := cfg.AccountAddress()
	if signs && hasAccount && !cfg.NodeSigning {
		key, err := unlock(cfg, account)
		if err != nil {
			return nil, err
		}
		backendCfg.Key = key
	}

	logger.Debug("dialing node", slog.String("rpc", logging.MaskURL(cfg.RPCURL)))
	backend, err := rpcbackend.Dial(ctx, cfg.RPCURL, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", logging.MaskURL(cfg.RPCURL), err)
	}
	s.onClose(backend.Close)

	opts := []token.Option{
		token.WithLogger(logger),
		token.WithReceiptTimeout(cfg.ReceiptTimeout.Std()),
		token.WithTracer(otel.Tracer()),
	}
	if hasAccount {
		opts = append(opts, token.WithAccount(account))
	}
	if !fees.Default.IsZero() {
		opts = append(opts, token.WithFeeToken(fees.Default))
	}
	for acct, ref := range fees.ByAccount {
		opts = append(opts, token.WithAccountFeeToken(acct, ref))
	}
	client, err := token.NewClient(backend, opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.onClose(client.Close)
	return s, nil
}

func unlock(cfg *config.Config, account common.Address) (*crypto.PrivateKey, error) {
	source := passphrase.NewSource(cfg.PassphraseEnv, filepath.Base(cfg.KeystorePath))
	pass, err := source.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadAccount(cfg.KeystorePath, pass, account)
	if err != nil {
		return nil, fmt.Errorf("unlock %s: %w", account.Hex(), err)
	}
	return key, nil
}

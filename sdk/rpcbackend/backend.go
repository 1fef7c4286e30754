// Package rpcbackend implements the token client backend over Ethereum
// JSON-RPC.
//
// Two signing modes are supported. With a local key every transaction is a
// single-call EIP-1559 transaction signed in process and the node's default
// fee token pays. Without one, transactions are handed to the node through
// eth_sendTransaction carrying the call batch and the fee token, and the node
// signs for the sender.
package rpcbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"tip20kit/crypto"
	"tip20kit/sdk/token"
)

const (
	defaultPollInterval = time.Second
	// maxLogRange bounds a single eth_getLogs request.
	maxLogRange = 2_000
)

// Config controls the backend.
type Config struct {
	// ChainID is required for local signing. Zero queries the node.
	ChainID *big.Int
	// Key signs transactions locally. Nil selects node signing.
	Key *crypto.PrivateKey
	// PollInterval paces receipt polling and HTTP log polling.
	PollInterval time.Duration
	// RequestsPerSecond caps outgoing requests. Zero disables limiting.
	RequestsPerSecond float64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Backend talks to a node. It is safe for concurrent use.
type Backend struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	key     *crypto.PrivateKey
	chainID *big.Int
	poll    time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
	// streaming is set for transports with server push.
	streaming bool
}

var _ token.Backend = (*Backend)(nil)

// ErrBatchUnsupported is returned when a multi-call transaction is sent with
// local signing.
var ErrBatchUnsupported = errors.New("rpcbackend: local signing sends one call per transaction")

// Dial connects to url. WebSocket and IPC endpoints stream logs; HTTP
// endpoints are polled.
func Dial(ctx context.Context, url string, cfg Config) (*Backend, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("rpcbackend: empty endpoint")
	}
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("rpcbackend: dial %s: %w", url, err)
	}
	b, err := New(ctx, client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	b.streaming = !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://")
	return b, nil
}

// New wraps an established RPC client. Logs are polled.
func New(ctx context.Context, client *rpc.Client, cfg Config) (*Backend, error) {
	b := &Backend{
		rpc:     client,
		eth:     ethclient.NewClient(client),
		key:     cfg.Key,
		chainID: cfg.ChainID,
		poll:    cfg.PollInterval,
		logger:  cfg.Logger,
	}
	if b.poll <= 0 {
		b.poll = defaultPollInterval
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if b.key != nil && (b.chainID == nil || b.chainID.Sign() == 0) {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		id, err := b.eth.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("rpcbackend: chain id: %w", err)
		}
		b.chainID = id
	}
	return b, nil
}

// Close releases the connection.
func (b *Backend) Close() { b.rpc.Close() }

// Signer reports the locally signing account, if any.
func (b *Backend) Signer() (common.Address, bool) {
	if b.key == nil {
		return common.Address{}, false
	}
	return b.key.Address(), true
}

func (b *Backend) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return b.eth.CallContract(ctx, msg, block)
}

// WaitForReceipt polls until hash is mined or ctx ends.
func (b *Backend) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()
	for {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		receipt, err := b.eth.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			b.logger.Debug("receipt poll failed", slog.String("tx", hash.Hex()), slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubscribeFilterLogs streams matching logs. Streaming transports subscribe
// directly unless a FromBlock asks for history, which is served by polling.
func (b *Backend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if b.streaming && q.FromBlock == nil {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		return b.eth.SubscribeFilterLogs(ctx, q, ch)
	}
	return b.pollLogs(ctx, q, ch)
}

// Package token is a client for role-gated, pausable, quote-pegged tokens.
//
// Every state-changing action comes in two forms: X submits and returns a
// Pending handle, XSync waits for inclusion and returns the fields of the
// event the action emitted together with its receipt. Reads always go to the
// chain. Watchers stream decoded, filtered events until unsubscribed.
//
// The client does not sequence nonces. Callers issuing concurrent writes from
// the same account must order them.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tip20kit/core/tokenref"
	"tip20kit/core/tip20"
	"tip20kit/observability"
)

const defaultReceiptTimeout = 2 * time.Minute

// ErrNoAccount is returned when an action has no acting account and the
// client has no default signer.
var ErrNoAccount = errors.New("token: no acting account")

// Client dispatches token actions and watches token events.
type Client struct {
	backend  Backend
	resolver *tokenref.Resolver

	account        common.Address
	feeToken       tokenref.Ref
	accountFees    map[common.Address]tokenref.Ref
	receiptTimeout time.Duration

	logger  *slog.Logger
	metrics *observability.TokenMetrics
	watch   *observability.WatchMetrics
	tracer  trace.Tracer

	mu      sync.Mutex
	watches map[string]*subscription
}

// Option configures the client.
type Option func(*Client)

// WithAccount sets the default acting account.
func WithAccount(addr common.Address) Option {
	return func(c *Client) {
		c.account = addr
	}
}

// WithFeeToken sets the fee token used when neither the action nor the
// acting account's default names one.
func WithFeeToken(ref tokenref.Ref) Option {
	return func(c *Client) {
		c.feeToken = ref
	}
}

// WithAccountFeeToken sets a fee token default for one acting account. It
// takes precedence over WithFeeToken but not over an explicit fee token on
// the action.
func WithAccountFeeToken(account common.Address, ref tokenref.Ref) Option {
	return func(c *Client) {
		if c.accountFees == nil {
			c.accountFees = make(map[common.Address]tokenref.Ref)
		}
		c.accountFees[account] = ref
	}
}

// WithReceiptTimeout bounds how long Sync actions wait for inclusion. Zero
// leaves the bound to the caller's context.
func WithReceiptTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.receiptTimeout = d
	}
}

// WithResolver overrides the token id resolver. By default ids are checked
// against the factory registry through the backend.
func WithResolver(r *tokenref.Resolver) Option {
	return func(c *Client) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics overrides the action and watch metric registries. Nil values
// disable recording.
func WithMetrics(actions *observability.TokenMetrics, watch *observability.WatchMetrics) Option {
	return func(c *Client) {
		c.metrics = actions
		c.watch = watch
	}
}

// WithTracer sets the tracer used for action spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewClient builds a client over backend.
func NewClient(backend Backend, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("token: backend required")
	}
	c := &Client{
		backend:        backend,
		receiptTimeout: defaultReceiptTimeout,
		logger:         slog.Default(),
		metrics:        observability.Token(),
		watch:          observability.Watch(),
		tracer:         otel.Tracer("tip20kit/sdk/token"),
		watches:        make(map[string]*subscription),
	}
	c.resolver = tokenref.NewResolver(tokenref.RegistryFunc(c.isRegistered))
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(slog.String("component", "tip20"))
	return c, nil
}

// Backend exposes the underlying chain access.
func (c *Client) Backend() Backend { return c.backend }

// Account returns the default acting account.
func (c *Client) Account() common.Address { return c.account }

// Resolve maps a token reference to its contract address.
func (c *Client) Resolve(ctx context.Context, ref tokenref.Ref) (common.Address, error) {
	return c.resolver.Resolve(ctx, ref)
}

// Close cancels every active watch.
func (c *Client) Close() {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.watches))
	for _, s := range c.watches {
		subs = append(subs, s)
	}
	c.mu.Unlock()
	for _, s := range subs {
		s.unsubscribe()
	}
}

func (c *Client) isRegistered(ctx context.Context, addr common.Address) (bool, error) {
	return callView[bool](ctx, c, tip20.Factory, tokenref.FactoryAddress, "isTIP20", addr)
}

func (c *Client) actingAccount(opts WriteOptions) (common.Address, error) {
	if opts.Account != (common.Address{}) {
		return opts.Account, nil
	}
	if c.account != (common.Address{}) {
		return c.account, nil
	}
	return common.Address{}, ErrNoAccount
}

// feeTokenFor applies the precedence explicit > per-account default >
// client default > node default.
func (c *Client) feeTokenFor(ctx context.Context, account common.Address, explicit tokenref.Ref) (common.Address, error) {
	ref := explicit
	if ref.IsZero() {
		ref = c.accountFees[account]
	}
	if ref.IsZero() {
		ref = c.feeToken
	}
	if ref.IsZero() {
		return common.Address{}, nil
	}
	addr, err := c.resolver.Resolve(ctx, ref)
	if err != nil {
		return common.Address{}, fmt.Errorf("fee token: %w", err)
	}
	return addr, nil
}

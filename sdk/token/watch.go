package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"tip20kit/core/events"
	"tip20kit/core/roles"
	"tip20kit/core/tip20"
	"tip20kit/core/tokenref"
	"tip20kit/observability"
)

// Unsubscribe ends a watch. Once it returns no further callback starts. It
// is idempotent and may be called from inside a callback.
type Unsubscribe func()

// WatchOptions are shared by every watch.
type WatchOptions struct {
	// Token restricts the watch to one contract. Zero watches every token.
	Token tokenref.Ref
	// FromBlock replays history from the given block when the backend
	// supports it.
	FromBlock *big.Int
	// OnError receives the transport error that ended the watch. Decode and
	// filter misses never reach it.
	OnError func(error)
}

// WatchParams configures a watch of event E filtered by F. Every non-nil
// field of Args must equal the decoded value for a log to be delivered.
type WatchParams[E any, F any] struct {
	WatchOptions
	Args    F
	OnEvent func(E, types.Log)
}

// TransferFilter selects Transfer events by sender and recipient.
type TransferFilter struct {
	From *common.Address
	To   *common.Address
}

func (f TransferFilter) match(e events.Transfer) bool {
	return eqAddr(f.From, e.From) && eqAddr(f.To, e.To)
}

// MintFilter selects Mint events by recipient.
type MintFilter struct {
	To *common.Address
}

func (f MintFilter) match(e events.Mint) bool { return eqAddr(f.To, e.To) }

// BurnFilter selects Burn events by the burned-from account.
type BurnFilter struct {
	From *common.Address
}

func (f BurnFilter) match(e events.Burn) bool { return eqAddr(f.From, e.From) }

// ApproveFilter selects Approval events by owner and spender.
type ApproveFilter struct {
	Owner   *common.Address
	Spender *common.Address
}

func (f ApproveFilter) match(e events.Approval) bool {
	return eqAddr(f.Owner, e.Owner) && eqAddr(f.Spender, e.Spender)
}

// RoleFilter selects role grants and revocations.
type RoleFilter struct {
	Role    *roles.Role
	Account *common.Address
	Sender  *common.Address
}

func (f RoleFilter) match(e events.RoleMembershipUpdated) bool {
	return (f.Role == nil || *f.Role == e.Role) && eqAddr(f.Account, e.Account) && eqAddr(f.Sender, e.Sender)
}

// AdminRoleFilter selects changes of a role's admin role.
type AdminRoleFilter struct {
	Role         *roles.Role
	NewAdminRole *roles.Role
	Sender       *common.Address
}

func (f AdminRoleFilter) match(e events.RoleAdminUpdated) bool {
	return (f.Role == nil || *f.Role == e.Role) &&
		(f.NewAdminRole == nil || *f.NewAdminRole == e.NewAdminRole) &&
		eqAddr(f.Sender, e.Sender)
}

// QuoteTokenFilter selects quote token proposals and finalizations.
type QuoteTokenFilter struct {
	Updater   *common.Address
	Completed *bool
}

func (f QuoteTokenFilter) match(e events.QuoteTokenChange) bool {
	return eqAddr(f.Updater, e.Updater) && (f.Completed == nil || *f.Completed == e.Completed)
}

// PauseFilter selects pause state changes.
type PauseFilter struct {
	Updater  *common.Address
	IsPaused *bool
}

func (f PauseFilter) match(e events.PauseStateUpdate) bool {
	return eqAddr(f.Updater, e.Updater) && (f.IsPaused == nil || *f.IsPaused == e.IsPaused)
}

// CreateFilter selects factory TokenCreated events.
type CreateFilter struct {
	Token   *common.Address
	TokenID *big.Int
	Admin   *common.Address
}

func (f CreateFilter) match(e events.TokenCreated) bool {
	if f.TokenID != nil && (e.TokenID == nil || f.TokenID.Cmp(e.TokenID) != 0) {
		return false
	}
	return eqAddr(f.Token, e.Token) && eqAddr(f.Admin, e.Admin)
}

func eqAddr(want *common.Address, got common.Address) bool {
	return want == nil || *want == got
}

// Parameter types for each watch.
type (
	WatchTransferParams         = WatchParams[events.Transfer, TransferFilter]
	WatchMintParams             = WatchParams[events.Mint, MintFilter]
	WatchBurnParams             = WatchParams[events.Burn, BurnFilter]
	WatchApproveParams          = WatchParams[events.Approval, ApproveFilter]
	WatchRoleParams             = WatchParams[events.RoleMembershipUpdated, RoleFilter]
	WatchAdminRoleParams        = WatchParams[events.RoleAdminUpdated, AdminRoleFilter]
	WatchUpdateQuoteTokenParams = WatchParams[events.QuoteTokenChange, QuoteTokenFilter]
	WatchPauseParams            = WatchParams[events.PauseStateUpdate, PauseFilter]
	WatchCreateParams           = WatchParams[events.TokenCreated, CreateFilter]
)

// WatchTransfer delivers Transfer events.
func (c *Client) WatchTransfer(ctx context.Context, p WatchTransferParams) (Unsubscribe, error) {
	return watch(ctx, c, "transfer", p, nil, events.DecodeTransfer, tip20.EventTransfer)
}

// WatchMint delivers Mint events.
func (c *Client) WatchMint(ctx context.Context, p WatchMintParams) (Unsubscribe, error) {
	return watch(ctx, c, "mint", p, nil, events.DecodeMint, tip20.EventMint)
}

// WatchBurn delivers Burn events.
func (c *Client) WatchBurn(ctx context.Context, p WatchBurnParams) (Unsubscribe, error) {
	return watch(ctx, c, "burn", p, nil, events.DecodeBurn, tip20.EventBurn)
}

// WatchApprove delivers Approval events.
func (c *Client) WatchApprove(ctx context.Context, p WatchApproveParams) (Unsubscribe, error) {
	return watch(ctx, c, "approve", p, nil, events.DecodeApproval, tip20.EventApproval)
}

// WatchRole delivers role grants and revocations; Kind on the event tells
// them apart.
func (c *Client) WatchRole(ctx context.Context, p WatchRoleParams) (Unsubscribe, error) {
	return watch(ctx, c, "role", p, nil, events.DecodeRoleMembershipUpdated, tip20.EventRoleMembership)
}

// WatchAdminRole delivers RoleAdminUpdated events.
func (c *Client) WatchAdminRole(ctx context.Context, p WatchAdminRoleParams) (Unsubscribe, error) {
	return watch(ctx, c, "adminRole", p, nil, events.DecodeRoleAdminUpdated, tip20.EventRoleAdminUpdated)
}

// WatchUpdateQuoteToken delivers both proposals (Completed false) and
// finalizations (Completed true).
func (c *Client) WatchUpdateQuoteToken(ctx context.Context, p WatchUpdateQuoteTokenParams) (Unsubscribe, error) {
	return watch(ctx, c, "updateQuoteToken", p, nil, events.DecodeQuoteTokenChange,
		tip20.EventNextQuoteTokenSet, tip20.EventQuoteTokenUpdate)
}

// WatchPause delivers pause and unpause events.
func (c *Client) WatchPause(ctx context.Context, p WatchPauseParams) (Unsubscribe, error) {
	return watch(ctx, c, "pause", p, nil, events.DecodePauseStateUpdate, tip20.EventPauseStateUpdate)
}

// WatchCreate follows the factory. The Token option is ignored.
func (c *Client) WatchCreate(ctx context.Context, p WatchCreateParams) (Unsubscribe, error) {
	p.Token = tokenref.Ref{}
	factory := tokenref.FactoryAddress
	return watch(ctx, c, "create", p, &factory, events.DecodeTokenCreated, tip20.EventTokenCreated)
}

type filter[E any] interface {
	match(E) bool
}

type subscription struct {
	id       string
	kind     string
	canceled atomic.Bool
	// mu is held across the cancellation check and the callback.
	mu          sync.Mutex
	dispatching atomic.Bool
	once        sync.Once
	cancel      context.CancelFunc
	done        chan struct{}
	client      *Client
}

func (s *subscription) unsubscribe() {
	s.once.Do(func() {
		s.canceled.Store(true)
		s.cancel()
		s.client.mu.Lock()
		delete(s.client.watches, s.id)
		s.client.mu.Unlock()
	})
	// Wait out a callback in progress unless called from inside it.
	if !s.dispatching.Load() {
		s.mu.Lock()
		s.mu.Unlock() //nolint:staticcheck
	}
}

func watch[E events.Event, F filter[E]](
	ctx context.Context,
	c *Client,
	kind string,
	p WatchParams[E, F],
	address *common.Address,
	decode func(types.Log) (E, error),
	names ...string,
) (Unsubscribe, error) {
	if p.OnEvent == nil {
		return nil, fmt.Errorf("token: watch %s: OnEvent required", kind)
	}
	q := ethereum.FilterQuery{FromBlock: p.FromBlock}
	switch {
	case address != nil:
		q.Addresses = []common.Address{*address}
	case !p.Token.IsZero():
		token, err := c.Resolve(ctx, p.Token)
		if err != nil {
			return nil, fmt.Errorf("token: watch %s: %w", kind, err)
		}
		q.Addresses = []common.Address{token}
	}
	sigs := make([]common.Hash, 0, len(names))
	for _, name := range names {
		sigs = append(sigs, events.Topic(name))
	}
	q.Topics = [][]common.Hash{sigs}

	subCtx, cancel := context.WithCancel(context.Background())
	logs := make(chan types.Log, 128)
	sub, err := c.backend.SubscribeFilterLogs(subCtx, q, logs)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("token: watch %s: %w", kind, err)
	}

	s := &subscription{
		id:     uuid.NewString(),
		kind:   kind,
		cancel: cancel,
		done:   make(chan struct{}),
		client: c,
	}
	c.mu.Lock()
	c.watches[s.id] = s
	c.mu.Unlock()
	c.watch.Started(kind)
	logger := c.logger.With(slog.String("watch", kind), slog.String("subscription", s.id))
	logger.Debug("watch started")

	go func() {
		defer close(s.done)
		defer c.watch.Stopped(kind)
		defer sub.Unsubscribe()
		for {
			select {
			case <-subCtx.Done():
				return
			case err, ok := <-sub.Err():
				if !ok || s.canceled.Load() {
					return
				}
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("watch ended", slog.Any("error", err))
					if p.OnError != nil {
						p.OnError(err)
					}
				}
				s.unsubscribe()
				return
			case log := <-logs:
				ev, err := decode(log)
				if err != nil {
					c.watch.RecordDrop(kind, observability.DropDecode)
					logger.Debug("dropping undecodable log", slog.String("tx", log.TxHash.Hex()), slog.Any("error", err))
					continue
				}
				if !p.Args.match(ev) {
					c.watch.RecordDrop(kind, observability.DropFilter)
					continue
				}
				if !s.dispatch(func() { p.OnEvent(ev, log) }) {
					c.watch.RecordDrop(kind, observability.DropCanceled)
					return
				}
				c.watch.RecordDelivery(kind)
			}
		}
	}()
	return s.unsubscribe, nil
}

// dispatch runs fn unless the subscription was cancelled. The check happens
// immediately before the call, under the same lock unsubscribe waits on.
func (s *subscription) dispatch(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatching.Store(true)
	defer s.dispatching.Store(false)
	if s.canceled.Load() {
		return false
	}
	fn()
	return true
}

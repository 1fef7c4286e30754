// Package simulated is an in-memory token chain implementing the client
// backend. It enforces roles, pausing, allowances, supply caps, transfer
// policies and quote token migration the way the on-chain contracts do, and
// emits the same logs.
//
// Every transaction is mined into its own block. Historical state is not
// kept: reads at past blocks observe the current state.
package simulated

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"

	"tip20kit/core/tokenref"
	"tip20kit/sdk/token"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("simulated: chain closed")

// Chain is an in-memory chain. It is safe for concurrent use.
type Chain struct {
	mu       sync.Mutex
	state    *world
	head     uint64
	nonce    uint64
	autoMine bool
	queued   []queuedTx
	receipts map[common.Hash]*gethtypes.Receipt
	mined    map[common.Hash]chan struct{}
	history  []gethtypes.Log
	// feeTokens records the fee token each transaction asked for.
	feeTokens map[common.Hash]common.Address

	feed    event.Feed
	outbox  [][]gethtypes.Log
	wake    *sync.Cond
	closed  bool
	stopped chan struct{}
}

type queuedTx struct {
	hash common.Hash
	req  token.TxRequest
}

// New creates a chain whose root quote token is administered by admin.
func New(admin common.Address) *Chain {
	root := tokenref.RootQuoteToken.Address()
	c := &Chain{
		state: &world{
			tokens:   map[common.Address]*tokenState{root: newTokenState(tokenref.RootID, "pathUSD", "pathUSD", "USD", common.Address{}, admin)},
			nextID:   tokenref.RootID + 1,
			policies: make(map[uint64]map[common.Address]bool),
		},
		autoMine:  true,
		receipts:  make(map[common.Hash]*gethtypes.Receipt),
		mined:     make(map[common.Hash]chan struct{}),
		feeTokens: make(map[common.Hash]common.Address),
		stopped:   make(chan struct{}),
	}
	c.wake = sync.NewCond(&c.mu)
	go c.deliver()
	return c
}

var _ token.Backend = (*Chain)(nil)

// Close stops log delivery. Pending subscriptions see no further logs.
func (c *Chain) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.wake.Broadcast()
	c.mu.Unlock()
	<-c.stopped
}

// SetAutoMine toggles mining on submission. With auto-mining off,
// transactions wait for Mine.
func (c *Chain) SetAutoMine(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoMine = on
}

// Mine includes every queued transaction in submission order.
func (c *Chain) Mine() {
	c.mu.Lock()
	defer c.mu.Unlock()
	queued := c.queued
	c.queued = nil
	for _, tx := range queued {
		c.mineLocked(tx)
	}
}

// Fund mints amount of token to account, bypassing roles and supply caps.
func (c *Chain) Fund(tok, account common.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.state.tokens[tok]
	if !ok {
		return fmt.Errorf("simulated: unknown token %s", tok.Hex())
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return fmt.Errorf("simulated: amount overflows uint256")
	}
	t.balances[account] = new(uint256.Int).Add(t.balance(account), v)
	t.totalSupply = new(uint256.Int).Add(t.totalSupply, v)
	return nil
}

// SetPolicy makes policyID a blocklist of the given accounts.
func (c *Chain) SetPolicy(policyID uint64, blocked ...common.Address) error {
	if policyID <= PolicyAllowAll {
		return fmt.Errorf("simulated: policy %d is built in", policyID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	set := make(map[common.Address]bool, len(blocked))
	for _, a := range blocked {
		set[a] = true
	}
	c.state.policies[policyID] = set
	return nil
}

// FeeToken returns the fee token requested by transaction hash.
func (c *Chain) FeeToken(hash common.Hash) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feeTokens[hash]
}

// Head returns the latest block number.
func (c *Chain) Head() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// CallContract executes msg against a throwaway copy of the current state.
func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, fmt.Errorf("simulated: contract creation not supported")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out, _, err := c.state.clone().exec(msg.From, *msg.To, msg.Data)
	return out, err
}

// SendCalls queues req as one transaction and mines it unless auto-mining is
// off. Reverted transactions are mined with a failed receipt.
func (c *Chain) SendCalls(ctx context.Context, req token.TxRequest) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	if len(req.Calls) == 0 {
		return common.Hash{}, fmt.Errorf("simulated: transaction without calls")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return common.Hash{}, ErrClosed
	}
	c.nonce++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], c.nonce)
	hash := crypto.Keccak256Hash(req.From.Bytes(), seed[:])
	c.mined[hash] = make(chan struct{})
	c.feeTokens[hash] = req.FeeToken
	tx := queuedTx{hash: hash, req: req}
	if c.autoMine {
		c.mineLocked(tx)
	} else {
		c.queued = append(c.queued, tx)
	}
	return hash, nil
}

func (c *Chain) mineLocked(tx queuedTx) {
	c.head++
	receipt := &gethtypes.Receipt{
		Type:        gethtypes.DynamicFeeTxType,
		Status:      gethtypes.ReceiptStatusSuccessful,
		TxHash:      tx.hash,
		BlockNumber: new(big.Int).SetUint64(c.head),
		BlockHash:   crypto.Keccak256Hash(new(big.Int).SetUint64(c.head).Bytes()),
	}
	next := c.state.clone()
	var logs []gethtypes.Log
	for _, call := range tx.req.Calls {
		_, emitted, err := next.exec(tx.req.From, call.To, call.Data)
		if err != nil {
			receipt.Status = gethtypes.ReceiptStatusFailed
			logs = nil
			break
		}
		logs = append(logs, emitted...)
	}
	if receipt.Status == gethtypes.ReceiptStatusSuccessful {
		c.state = next
	}
	for i := range logs {
		logs[i].BlockNumber = c.head
		logs[i].BlockHash = receipt.BlockHash
		logs[i].TxHash = tx.hash
		logs[i].Index = uint(i)
		receipt.Logs = append(receipt.Logs, &logs[i])
	}
	c.receipts[tx.hash] = receipt
	c.history = append(c.history, logs...)
	if len(logs) > 0 {
		c.outbox = append(c.outbox, logs)
		c.wake.Signal()
	}
	close(c.mined[tx.hash])
	delete(c.mined, tx.hash)
}

// WaitForReceipt blocks until hash is mined or ctx ends.
func (c *Chain) WaitForReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	c.mu.Lock()
	if r, ok := c.receipts[hash]; ok {
		c.mu.Unlock()
		return r, nil
	}
	ch, ok := c.mined[hash]
	c.mu.Unlock()
	if !ok {
		return nil, ethereum.NotFound
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ch:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipts[hash], nil
}

// deliver drains the outbox onto the feed outside the chain lock so
// subscribers may submit transactions from their handlers.
func (c *Chain) deliver() {
	defer close(c.stopped)
	for {
		c.mu.Lock()
		for len(c.outbox) == 0 && !c.closed {
			c.wake.Wait()
		}
		if c.closed {
			c.mu.Unlock()
			return
		}
		batch := c.outbox[0]
		c.outbox = c.outbox[1:]
		c.mu.Unlock()
		for _, log := range batch {
			c.feed.Send(log)
		}
	}
}

// SubscribeFilterLogs streams logs matching q. A FromBlock at or below the
// head replays history first; live logs follow without gaps or repeats.
func (c *Chain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	cutoff := c.head
	var replay []gethtypes.Log
	if q.FromBlock != nil {
		from := q.FromBlock.Uint64()
		for _, log := range c.history {
			if log.BlockNumber >= from && matches(q, log) {
				replay = append(replay, log)
			}
		}
	}
	live := make(chan gethtypes.Log, 256)
	feedSub := c.feed.Subscribe(live)
	c.mu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer feedSub.Unsubscribe()
		for _, log := range replay {
			select {
			case ch <- log:
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for {
			select {
			case log := <-live:
				if log.BlockNumber <= cutoff || !matches(q, log) {
					continue
				}
				select {
				case ch <- log:
				case <-quit:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			case err := <-feedSub.Err():
				return err
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}), nil
}

func matches(q ethereum.FilterQuery, log gethtypes.Log) bool {
	if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
		return false
	}
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(log.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == log.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

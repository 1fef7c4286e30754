package simulated

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"tip20kit/core/events"
	"tip20kit/core/roles"
	"tip20kit/core/tip20"
	"tip20kit/core/tokenref"
	"tip20kit/sdk/token"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func mustPack(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	data, err := tip20.Token.Pack(method, args...)
	require.NoError(t, err)
	return data
}

func send(t *testing.T, c *Chain, from common.Address, calls ...token.Call) *gethtypes.Receipt {
	t.Helper()
	ctx := context.Background()
	hash, err := c.SendCalls(ctx, token.TxRequest{From: from, Calls: calls})
	require.NoError(t, err)
	receipt, err := c.WaitForReceipt(ctx, hash)
	require.NoError(t, err)
	return receipt
}

func TestRevertDataDecodes(t *testing.T) {
	c := New(alice)
	defer c.Close()
	root := tokenref.RootQuoteToken.Address()

	_, err := c.CallContract(context.Background(), ethereum.CallMsg{
		From: alice,
		To:   &root,
		Data: mustPack(t, "mint", bob, big.NewInt(1)),
	}, nil)
	require.Error(t, err)

	data, ok := token.RevertData(err)
	require.True(t, ok)
	rev, ok := tip20.DecodeRevert(data)
	require.True(t, ok)
	require.Equal(t, tip20.ErrorUnauthorized, rev.Name)
}

func TestBatchIsAtomic(t *testing.T) {
	c := New(alice)
	defer c.Close()
	root := tokenref.RootQuoteToken.Address()
	issuer := roles.Serialize(roles.Issuer)

	receipt := send(t, c, alice,
		token.Call{To: root, Data: mustPack(t, "grantRole", issuer, bob)},
		token.Call{To: root, Data: mustPack(t, "transfer", bob, big.NewInt(1))},
	)
	require.Equal(t, gethtypes.ReceiptStatusFailed, receipt.Status)
	require.Empty(t, receipt.Logs)

	c.mu.Lock()
	held := c.state.tokens[root].hasRole(bob, issuer)
	c.mu.Unlock()
	require.False(t, held)
}

func TestLogsCarryPositions(t *testing.T) {
	c := New(alice)
	defer c.Close()
	root := tokenref.RootQuoteToken.Address()
	require.NoError(t, c.Fund(root, alice, big.NewInt(10)))

	receipt := send(t, c, alice, token.Call{To: root, Data: mustPack(t, "transfer", bob, big.NewInt(4))})
	require.Equal(t, gethtypes.ReceiptStatusSuccessful, receipt.Status)
	require.Len(t, receipt.Logs, 1)
	log := receipt.Logs[0]
	require.Equal(t, c.Head(), log.BlockNumber)
	require.Equal(t, receipt.TxHash, log.TxHash)

	ev, err := events.DecodeTransfer(*log)
	require.NoError(t, err)
	require.Equal(t, bob, ev.To)
	require.Equal(t, int64(4), ev.Amount.Int64())
}

func TestSubscribeReplaysThenStreams(t *testing.T) {
	c := New(alice)
	defer c.Close()
	root := tokenref.RootQuoteToken.Address()
	require.NoError(t, c.Fund(root, alice, big.NewInt(10)))
	send(t, c, alice, token.Call{To: root, Data: mustPack(t, "transfer", bob, big.NewInt(1))})

	ch := make(chan gethtypes.Log, 8)
	sub, err := c.SubscribeFilterLogs(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{root},
		Topics:    [][]common.Hash{{events.Topic(tip20.EventTransfer)}},
	}, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	send(t, c, alice, token.Call{To: root, Data: mustPack(t, "approve", bob, big.NewInt(5))})
	send(t, c, alice, token.Call{To: root, Data: mustPack(t, "transfer", bob, big.NewInt(2))})

	var amounts []int64
	for len(amounts) < 2 {
		select {
		case log := <-ch:
			ev, err := events.DecodeTransfer(log)
			require.NoError(t, err)
			amounts = append(amounts, ev.Amount.Int64())
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %v", amounts)
		}
	}
	require.Equal(t, []int64{1, 2}, amounts)

	select {
	case log := <-ch:
		t.Fatalf("unexpected log %+v", log)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestManualMining(t *testing.T) {
	c := New(alice)
	defer c.Close()
	c.SetAutoMine(false)
	root := tokenref.RootQuoteToken.Address()

	ctx := context.Background()
	hash, err := c.SendCalls(ctx, token.TxRequest{From: alice, Calls: []token.Call{{To: root, Data: mustPack(t, "pause")}}})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = c.WaitForReceipt(waitCtx, hash)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	c.Mine()
	receipt, err := c.WaitForReceipt(ctx, hash)
	require.NoError(t, err)
	// Alice administers the root token but lacks the pause role.
	require.Equal(t, gethtypes.ReceiptStatusFailed, receipt.Status)

	_, err = c.WaitForReceipt(ctx, common.HexToHash("0x01"))
	require.True(t, errors.Is(err, ethereum.NotFound))
}

func TestPolicies(t *testing.T) {
	c := New(alice)
	defer c.Close()
	require.Error(t, c.SetPolicy(PolicyAllowAll, bob))
	require.NoError(t, c.SetPolicy(5, bob))
	require.False(t, c.state.authorized(5, bob))
	require.True(t, c.state.authorized(5, alice))
	require.False(t, c.state.authorized(PolicyRejectAll, alice))
}

func TestClosedChainRejectsWork(t *testing.T) {
	c := New(alice)
	c.Close()
	c.Close()
	root := tokenref.RootQuoteToken.Address()
	_, err := c.SendCalls(context.Background(), token.TxRequest{From: alice, Calls: []token.Call{{To: root, Data: mustPack(t, "pause")}}})
	require.ErrorIs(t, err, ErrClosed)
}

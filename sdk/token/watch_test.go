package token_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/require"

	"tip20kit/core/events"
	"tip20kit/core/roles"
	"tip20kit/core/tokenref"
	"tip20kit/sdk/token"
)

type collector[E any] struct {
	mu  sync.Mutex
	got []E
}

func (c *collector[E]) add(e E, _ gethtypes.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, e)
}

func (c *collector[E]) snapshot() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]E(nil), c.got...)
}

func (c *collector[E]) waitFor(t *testing.T, n int) []E {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.snapshot()) >= n }, 2*time.Second, 5*time.Millisecond)
	return c.snapshot()
}

func fundedToken(t *testing.T, client *token.Client, symbol string, amount *big.Int) tokenref.Ref {
	t.Helper()
	tok := createToken(t, client, symbol, tokenref.Ref{})
	grant(t, client, tok, admin, roles.Issuer)
	_, err := client.MintSync(context.Background(), token.MintParams{Token: tok, To: admin, Amount: amount})
	require.NoError(t, err)
	return tok
}

func TestWatchTransferFiltersAndStops(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	tok := fundedToken(t, client, "WTCH", units(100))

	var seen collector[events.Transfer]
	to := bob
	unsubscribe, err := client.WatchTransfer(ctx, token.WatchTransferParams{
		WatchOptions: token.WatchOptions{Token: tok},
		Args:         token.TransferFilter{To: &to},
		OnEvent:      seen.add,
	})
	require.NoError(t, err)

	for _, step := range []struct {
		to     common.Address
		amount int64
	}{{bob, 1}, {carol, 2}, {bob, 3}} {
		_, err := client.TransferSync(ctx, token.TransferParams{Token: tok, To: step.to, Amount: units(step.amount)})
		require.NoError(t, err)
	}

	got := seen.waitFor(t, 2)
	require.Len(t, got, 2)
	require.Equal(t, 0, got[0].Amount.Cmp(units(1)))
	require.Equal(t, 0, got[1].Amount.Cmp(units(3)))
	for _, ev := range got {
		require.Equal(t, bob, ev.To)
		require.Equal(t, admin, ev.From)
	}

	unsubscribe()
	unsubscribe()

	_, err = client.TransferSync(ctx, token.TransferParams{Token: tok, To: bob, Amount: units(4)})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, seen.snapshot(), 2)
}

func TestWatchIgnoresOtherTokens(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	watched := fundedToken(t, client, "ONE", units(10))
	other := fundedToken(t, client, "TWO", units(10))

	var seen collector[events.Transfer]
	unsubscribe, err := client.WatchTransfer(ctx, token.WatchTransferParams{
		WatchOptions: token.WatchOptions{Token: watched},
		OnEvent:      seen.add,
	})
	require.NoError(t, err)
	defer unsubscribe()

	_, err = client.TransferSync(ctx, token.TransferParams{Token: other, To: bob, Amount: units(1)})
	require.NoError(t, err)
	_, err = client.TransferSync(ctx, token.TransferParams{Token: watched, To: carol, Amount: units(2)})
	require.NoError(t, err)

	got := seen.waitFor(t, 1)
	require.Len(t, got, 1)
	require.Equal(t, carol, got[0].To)
}

func TestWatchFromBlockReplays(t *testing.T) {
	ctx := context.Background()
	chain, client := newHarness(t)
	start := new(big.Int).SetUint64(chain.Head() + 1)
	tok := fundedToken(t, client, "HIST", units(10))

	var seen collector[events.Mint]
	unsubscribe, err := client.WatchMint(ctx, token.WatchMintParams{
		WatchOptions: token.WatchOptions{Token: tok, FromBlock: start},
		OnEvent:      seen.add,
	})
	require.NoError(t, err)
	defer unsubscribe()

	got := seen.waitFor(t, 1)
	require.Equal(t, admin, got[0].To)
	require.Equal(t, 0, got[0].Amount.Cmp(units(10)))

	_, err = client.MintSync(ctx, token.MintParams{Token: tok, To: bob, Amount: units(1)})
	require.NoError(t, err)
	got = seen.waitFor(t, 2)
	require.Len(t, got, 2)
	require.Equal(t, bob, got[1].To)
}

func TestWatchRoleReportsKind(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	tok := createToken(t, client, "RW", tokenref.Ref{})

	var seen collector[events.RoleMembershipUpdated]
	issuer := roles.Issuer
	unsubscribe, err := client.WatchRole(ctx, token.WatchRoleParams{
		WatchOptions: token.WatchOptions{Token: tok},
		Args:         token.RoleFilter{Role: &issuer},
		OnEvent:      seen.add,
	})
	require.NoError(t, err)
	defer unsubscribe()

	grant(t, client, tok, bob, roles.Issuer, roles.Pause)
	_, err = client.RevokeRolesSync(ctx, token.RevokeRolesParams{Token: tok, Roles: []roles.Role{roles.Issuer}, From: bob})
	require.NoError(t, err)

	got := seen.waitFor(t, 2)
	require.Len(t, got, 2)
	require.Equal(t, events.RoleGranted, got[0].Kind())
	require.Equal(t, events.RoleRevoked, got[1].Kind())
	require.Equal(t, bob, got[1].Account)
}

func TestWatchQuoteTokenPhases(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	a := createToken(t, client, "QA", tokenref.Ref{})
	b := createToken(t, client, "QB", tokenref.Ref{})

	var seen collector[events.QuoteTokenChange]
	unsubscribe, err := client.WatchUpdateQuoteToken(ctx, token.WatchUpdateQuoteTokenParams{
		WatchOptions: token.WatchOptions{Token: a},
		OnEvent:      seen.add,
	})
	require.NoError(t, err)
	defer unsubscribe()

	_, err = client.PrepareUpdateQuoteTokenSync(ctx, token.PrepareUpdateQuoteTokenParams{Token: a, QuoteToken: b})
	require.NoError(t, err)
	_, err = client.UpdateQuoteTokenSync(ctx, token.UpdateQuoteTokenParams{Token: a})
	require.NoError(t, err)

	got := seen.waitFor(t, 2)
	require.False(t, got[0].Completed)
	require.Equal(t, b.Address(), got[0].NextQuoteToken)
	require.True(t, got[1].Completed)
	require.Equal(t, b.Address(), got[1].NewQuoteToken)
}

func TestWatchCreateFollowsFactory(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)

	var seen collector[events.TokenCreated]
	unsubscribe, err := client.WatchCreate(ctx, token.WatchCreateParams{OnEvent: seen.add})
	require.NoError(t, err)
	defer unsubscribe()

	tok := createToken(t, client, "NEW", tokenref.Ref{})
	got := seen.waitFor(t, 1)
	require.Equal(t, tok.Address(), got[0].Token)
	require.Equal(t, "NEW", got[0].Symbol)
}

func TestWatchPauseAndApprove(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	tok := createToken(t, client, "PA", tokenref.Ref{})
	grant(t, client, tok, admin, roles.Pause)

	var pauses collector[events.PauseStateUpdate]
	stopPause, err := client.WatchPause(ctx, token.WatchPauseParams{WatchOptions: token.WatchOptions{Token: tok}, OnEvent: pauses.add})
	require.NoError(t, err)
	defer stopPause()

	var approvals collector[events.Approval]
	spender := carol
	stopApprove, err := client.WatchApprove(ctx, token.WatchApproveParams{
		WatchOptions: token.WatchOptions{Token: tok},
		Args:         token.ApproveFilter{Spender: &spender},
		OnEvent:      approvals.add,
	})
	require.NoError(t, err)
	defer stopApprove()

	_, err = client.PauseSync(ctx, token.PauseParams{Token: tok})
	require.NoError(t, err)
	_, err = client.ApproveSync(ctx, token.ApproveParams{Token: tok, Spender: bob, Amount: units(1)})
	require.NoError(t, err)
	_, err = client.ApproveSync(ctx, token.ApproveParams{Token: tok, Spender: carol, Amount: units(2)})
	require.NoError(t, err)

	require.True(t, pauses.waitFor(t, 1)[0].IsPaused)
	got := approvals.waitFor(t, 1)
	require.Len(t, got, 1)
	require.Equal(t, carol, got[0].Spender)
}

func TestUnsubscribeFromCallback(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	tok := fundedToken(t, client, "CB", units(10))

	var (
		mu          sync.Mutex
		calls       int
		unsubscribe token.Unsubscribe
	)
	ready := make(chan struct{})
	var err error
	unsubscribe, err = client.WatchTransfer(ctx, token.WatchTransferParams{
		WatchOptions: token.WatchOptions{Token: tok},
		OnEvent: func(events.Transfer, gethtypes.Log) {
			<-ready
			mu.Lock()
			calls++
			mu.Unlock()
			unsubscribe()
		},
	})
	require.NoError(t, err)
	close(ready)

	for i := 0; i < 3; i++ {
		_, err := client.TransferSync(ctx, token.TransferParams{Token: tok, To: bob, Amount: units(1)})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

func TestWatchRequiresHandler(t *testing.T) {
	_, client := newHarness(t)
	_, err := client.WatchBurn(context.Background(), token.WatchBurnParams{})
	require.Error(t, err)
}

func TestCloseEndsWatches(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	tok := fundedToken(t, client, "CLS", units(10))

	var seen collector[events.Transfer]
	_, err := client.WatchTransfer(ctx, token.WatchTransferParams{WatchOptions: token.WatchOptions{Token: tok}, OnEvent: seen.add})
	require.NoError(t, err)

	client.Close()
	_, err = client.TransferSync(ctx, token.TransferParams{Token: tok, To: bob, Amount: units(1)})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, seen.snapshot())
}

// streamBackend replays a fixed log sequence to every subscriber.
type streamBackend struct {
	logs []gethtypes.Log
}

func (b *streamBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("stream backend: no state")
}

func (b *streamBackend) SendCalls(context.Context, token.TxRequest) (common.Hash, error) {
	return common.Hash{}, errors.New("stream backend: read only")
}

func (b *streamBackend) WaitForReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	return nil, errors.New("stream backend: read only")
}

func (b *streamBackend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for _, log := range b.logs {
			select {
			case ch <- log:
			case <-quit:
				return nil
			}
		}
		<-quit
		return nil
	}), nil
}

func TestWatchDropsMalformedLogs(t *testing.T) {
	addr := tokenref.AddressFromID(9)
	bad, err := events.Encode(addr, events.Transfer{From: admin, To: bob, Amount: big.NewInt(1)})
	require.NoError(t, err)
	bad.Data = bad.Data[:7]
	good, err := events.Encode(addr, events.Transfer{From: admin, To: bob, Amount: big.NewInt(42)})
	require.NoError(t, err)
	good.BlockNumber, good.Index = 2, 1

	client, err := token.NewClient(&streamBackend{logs: []gethtypes.Log{bad, good}}, token.WithMetrics(nil, nil))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	var seen collector[events.Transfer]
	var failures atomic.Int32
	unsubscribe, err := client.WatchTransfer(context.Background(), token.WatchTransferParams{
		WatchOptions: token.WatchOptions{OnError: func(error) { failures.Add(1) }},
		OnEvent:      seen.add,
	})
	require.NoError(t, err)

	got := seen.waitFor(t, 1)
	unsubscribe()

	require.Len(t, seen.snapshot(), 1)
	require.Equal(t, 0, got[0].Amount.Cmp(big.NewInt(42)))
	require.Zero(t, failures.Load())
}

package token_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	tokerrors "tip20kit/core/errors"
	"tip20kit/core/tokenref"
	"tip20kit/sdk/token"
)

func TestFinalizeWithoutProposal(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	tok := createToken(t, client, "NOP", tokenref.Ref{})

	_, err := client.UpdateQuoteTokenSync(ctx, token.UpdateQuoteTokenParams{Token: tok})
	require.ErrorIs(t, err, tokerrors.ErrNoPendingProposal)
	require.ErrorIs(t, err, tokerrors.ErrActionReverted)

	status, err := client.Migration().Status(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, tokenref.RootQuoteToken.Address(), status.Current)
	require.False(t, status.HasProposal())
}

func TestQuoteTokenMigration(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	a := createToken(t, client, "MA", tokenref.Ref{})
	b := createToken(t, client, "MB", tokenref.Ref{})

	proposed, err := client.PrepareUpdateQuoteTokenSync(ctx, token.PrepareUpdateQuoteTokenParams{Token: a, QuoteToken: b})
	require.NoError(t, err)
	require.False(t, proposed.Completed)
	require.Equal(t, b.Address(), proposed.NextQuoteToken)
	require.Equal(t, admin, proposed.Updater)

	pending, ok, err := client.GetPendingQuoteToken(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b.Address(), pending)

	// Proposing does not move the peg.
	md, err := client.GetMetadata(ctx, a)
	require.NoError(t, err)
	require.Equal(t, tokenref.RootQuoteToken.Address(), *md.QuoteToken)

	done, err := client.UpdateQuoteTokenSync(ctx, token.UpdateQuoteTokenParams{Token: a})
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.Equal(t, b.Address(), done.NewQuoteToken)

	md, err = client.GetMetadata(ctx, a)
	require.NoError(t, err)
	require.Equal(t, b.Address(), *md.QuoteToken)

	status, err := client.Migration().Status(ctx, a)
	require.NoError(t, err)
	require.Equal(t, b.Address(), status.Current)
	require.False(t, status.HasProposal())
}

func TestCircularQuoteTokenRejected(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	b := createToken(t, client, "CB", tokenref.Ref{})
	a := createToken(t, client, "CA", b)

	md, err := client.GetMetadata(ctx, a)
	require.NoError(t, err)
	require.Equal(t, b.Address(), *md.QuoteToken)

	// Proposing is accepted; only finalizing checks for loops.
	_, err = client.PrepareUpdateQuoteTokenSync(ctx, token.PrepareUpdateQuoteTokenParams{Token: b, QuoteToken: a})
	require.NoError(t, err)

	cyclic, path, err := client.Migration().DetectCycle(ctx, b, a)
	require.NoError(t, err)
	require.True(t, cyclic)
	require.Equal(t, []common.Address{a.Address(), b.Address()}, path)

	_, err = client.UpdateQuoteTokenSync(ctx, token.UpdateQuoteTokenParams{Token: b})
	require.ErrorIs(t, err, tokerrors.ErrCircularQuoteToken)

	// The failed finalize leaves the proposal and the peg untouched.
	status, err := client.Migration().Status(ctx, b)
	require.NoError(t, err)
	require.Equal(t, tokenref.RootQuoteToken.Address(), status.Current)
	require.Equal(t, a.Address(), status.Pending)
}

func TestDetectCycleOnAcyclicChain(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	c := createToken(t, client, "DC", tokenref.Ref{})
	b := createToken(t, client, "DB", c)
	a := createToken(t, client, "DA", tokenref.Ref{})

	cyclic, path, err := client.Migration().DetectCycle(ctx, a, b)
	require.NoError(t, err)
	require.False(t, cyclic)
	require.Equal(t, []common.Address{b.Address(), c.Address(), tokenref.RootQuoteToken.Address()}, path)
}

func TestRootQuoteTokenCannotMigrate(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)
	other := createToken(t, client, "RQ", tokenref.Ref{})

	_, err := client.PrepareUpdateQuoteTokenSync(ctx, token.PrepareUpdateQuoteTokenParams{Token: tokenref.RootQuoteToken, QuoteToken: other})
	require.ErrorIs(t, err, tokerrors.ErrInvalidQuoteToken)
	require.NotErrorIs(t, err, tokerrors.ErrCircularQuoteToken)
}

func TestCreateWithUnknownQuoteToken(t *testing.T) {
	ctx := context.Background()
	_, client := newHarness(t)

	_, err := client.CreateSync(ctx, token.CreateParams{
		Name:       "Orphan",
		Symbol:     "ORP",
		Currency:   "USD",
		QuoteToken: tokenref.FromAddress(tokenref.AddressFromID(4242)),
	})
	require.ErrorIs(t, err, tokerrors.ErrInvalidQuoteToken)
	require.NotErrorIs(t, err, tokerrors.ErrCircularQuoteToken)
	require.ErrorIs(t, err, tokerrors.ErrActionReverted)
}

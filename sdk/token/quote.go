package token

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/events"
	"tip20kit/core/tokenref"
)

// MaxQuoteChainDepth bounds DetectCycle's walk of quote token links.
const MaxQuoteChainDepth = 64

// QuoteTokenResult is returned by both migration steps. Completed is false
// for a proposal and true for a finalization.
type QuoteTokenResult struct {
	events.QuoteTokenChange
	Receipt *types.Receipt
}

func (p PrepareUpdateQuoteTokenParams) action() string { return "prepareUpdateQuoteToken" }
func (p PrepareUpdateQuoteTokenParams) options() WriteOptions { return p.WriteOptions }

func (p PrepareUpdateQuoteTokenParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	quote, err := c.Resolve(ctx, p.QuoteToken)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("quote token: %w", err)
	}
	return singleCall(ctx, c, p.Token, "setNextQuoteToken", quote)
}

func (p UpdateQuoteTokenParams) action() string { return "updateQuoteToken" }
func (p UpdateQuoteTokenParams) options() WriteOptions { return p.WriteOptions }

func (p UpdateQuoteTokenParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return singleCall(ctx, c, p.Token, "completeQuoteTokenUpdate")
}

// PrepareUpdateQuoteToken proposes a new quote token, replacing any pending
// proposal. Nothing changes until UpdateQuoteToken finalizes it. The root
// quote token cannot migrate and reverts with ErrInvalidQuoteToken.
func (c *Client) PrepareUpdateQuoteToken(ctx context.Context, p PrepareUpdateQuoteTokenParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) PrepareUpdateQuoteTokenSync(ctx context.Context, p PrepareUpdateQuoteTokenParams) (*QuoteTokenResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeNextQuoteTokenSet)
	if err != nil {
		return nil, err
	}
	return &QuoteTokenResult{
		QuoteTokenChange: events.QuoteTokenChange{Updater: ev.Updater, NextQuoteToken: ev.NextQuoteToken},
		Receipt:          receipt,
	}, nil
}

// UpdateQuoteToken finalizes the pending proposal. It reverts with
// ErrNoPendingProposal when nothing is proposed and ErrCircularQuoteToken
// when the proposed token's quote chain leads back to the token.
func (c *Client) UpdateQuoteToken(ctx context.Context, p UpdateQuoteTokenParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) UpdateQuoteTokenSync(ctx context.Context, p UpdateQuoteTokenParams) (*QuoteTokenResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeQuoteTokenUpdate)
	if err != nil {
		return nil, err
	}
	return &QuoteTokenResult{
		QuoteTokenChange: events.QuoteTokenChange{Updater: ev.Updater, NewQuoteToken: ev.NewQuoteToken, Completed: true},
		Receipt:          receipt,
	}, nil
}

// MigrationStatus is a fresh snapshot of a token's peg.
type MigrationStatus struct {
	Token   common.Address
	Current common.Address
	// Pending is the zero address when no proposal exists.
	Pending common.Address
}

// HasProposal reports whether a finalize would find a pending proposal.
func (s MigrationStatus) HasProposal() bool { return s.Pending != (common.Address{}) }

// Migration inspects quote token migrations. It never gates submission: the
// contract is the authority on whether a finalize succeeds.
type Migration struct {
	client *Client
}

// Migration returns the migration inspector for c.
func (c *Client) Migration() *Migration { return &Migration{client: c} }

// Status reads the current and pending quote token of ref.
func (m *Migration) Status(ctx context.Context, ref tokenref.Ref) (MigrationStatus, error) {
	token, err := m.client.Resolve(ctx, ref)
	if err != nil {
		return MigrationStatus{}, err
	}
	current, err := m.client.quoteTokenOf(ctx, token)
	if err != nil {
		return MigrationStatus{}, err
	}
	pending, _, err := m.client.pendingQuoteToken(ctx, token)
	if err != nil {
		return MigrationStatus{}, err
	}
	return MigrationStatus{Token: token, Current: current, Pending: pending}, nil
}

// DetectCycle follows proposed's quote chain and reports whether it reaches
// token. The returned path starts at proposed. The root quote token ends
// every chain.
func (m *Migration) DetectCycle(ctx context.Context, token, proposed tokenref.Ref) (bool, []common.Address, error) {
	target, err := m.client.Resolve(ctx, token)
	if err != nil {
		return false, nil, err
	}
	cursor, err := m.client.Resolve(ctx, proposed)
	if err != nil {
		return false, nil, err
	}
	root := tokenref.RootQuoteToken.Address()
	path := []common.Address{cursor}
	seen := map[common.Address]struct{}{cursor: {}}
	for depth := 0; depth < MaxQuoteChainDepth; depth++ {
		if cursor == target {
			return true, path, nil
		}
		if cursor == root {
			return false, path, nil
		}
		next, err := m.client.quoteTokenOf(ctx, cursor)
		if err != nil {
			return false, path, err
		}
		if next == (common.Address{}) {
			return false, path, nil
		}
		path = append(path, next)
		if _, ok := seen[next]; ok && next != target {
			// A loop that never reaches target.
			return false, path, nil
		}
		seen[next] = struct{}{}
		cursor = next
	}
	return false, path, fmt.Errorf("token: quote chain deeper than %d", MaxQuoteChainDepth)
}

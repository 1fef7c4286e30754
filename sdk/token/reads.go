package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"tip20kit/core/roles"
	"tip20kit/core/tip20"
	"tip20kit/core/tokenref"
)

// Metadata is a fresh snapshot of a token. The root quote token exposes only
// the first five fields; the pointer fields are nil for it.
type Metadata struct {
	Name        string
	Symbol      string
	Currency    string
	Decimals    uint8
	TotalSupply *big.Int

	SupplyCap        *big.Int
	Paused           *bool
	QuoteToken       *common.Address
	TransferPolicyID *uint64
}

// GetBalance returns the balance of Account, defaulting to the client's
// account.
func (c *Client) GetBalance(ctx context.Context, p BalanceParams) (*big.Int, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return nil, err
	}
	account := p.Account
	if account == (common.Address{}) {
		account = c.account
	}
	return callView[*big.Int](ctx, c, tip20.Token, token, "balanceOf", account)
}

// GetAllowance returns how much Spender may move on behalf of Owner. Owner
// defaults to the client's account.
func (c *Client) GetAllowance(ctx context.Context, p AllowanceParams) (*big.Int, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return nil, err
	}
	owner := p.Owner
	if owner == (common.Address{}) {
		owner = c.account
	}
	return callView[*big.Int](ctx, c, tip20.Token, token, "allowance", owner, p.Spender)
}

// HasRole reports whether Account holds Role. Account defaults to the
// client's account.
func (c *Client) HasRole(ctx context.Context, p HasRoleParams) (bool, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return false, err
	}
	account := p.Account
	if account == (common.Address{}) {
		account = c.account
	}
	return callView[bool](ctx, c, tip20.Token, token, "hasRole", account, roles.Serialize(p.Role))
}

// GetRoleAdmin returns the role administering Role.
func (c *Client) GetRoleAdmin(ctx context.Context, p RoleAdminParams) (roles.Role, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return roles.Role{}, err
	}
	id, err := callView[[32]byte](ctx, c, tip20.Token, token, "getRoleAdmin", roles.Serialize(p.Role))
	if err != nil {
		return roles.Role{}, err
	}
	return roles.Deserialize(id), nil
}

// GetPendingQuoteToken returns the proposed quote token, if any.
func (c *Client) GetPendingQuoteToken(ctx context.Context, ref tokenref.Ref) (common.Address, bool, error) {
	token, err := c.Resolve(ctx, ref)
	if err != nil {
		return common.Address{}, false, err
	}
	return c.pendingQuoteToken(ctx, token)
}

func (c *Client) pendingQuoteToken(ctx context.Context, token common.Address) (common.Address, bool, error) {
	next, err := callView[common.Address](ctx, c, tip20.Token, token, "nextQuoteToken")
	if err != nil {
		return common.Address{}, false, err
	}
	return next, next != (common.Address{}), nil
}

func (c *Client) quoteTokenOf(ctx context.Context, token common.Address) (common.Address, error) {
	if token == tokenref.RootQuoteToken.Address() {
		return common.Address{}, nil
	}
	return callView[common.Address](ctx, c, tip20.Token, token, "quoteToken")
}

// GetMetadata reads every metadata field concurrently.
func (c *Client) GetMetadata(ctx context.Context, ref tokenref.Ref) (*Metadata, error) {
	token, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	var md Metadata
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		md.Name, err = callView[string](gctx, c, tip20.Token, token, "name")
		return err
	})
	g.Go(func() (err error) {
		md.Symbol, err = callView[string](gctx, c, tip20.Token, token, "symbol")
		return err
	})
	g.Go(func() (err error) {
		md.Currency, err = callView[string](gctx, c, tip20.Token, token, "currency")
		return err
	})
	g.Go(func() (err error) {
		md.Decimals, err = callView[uint8](gctx, c, tip20.Token, token, "decimals")
		return err
	})
	g.Go(func() (err error) {
		md.TotalSupply, err = callView[*big.Int](gctx, c, tip20.Token, token, "totalSupply")
		return err
	})
	if token != tokenref.RootQuoteToken.Address() {
		g.Go(func() (err error) {
			md.SupplyCap, err = callView[*big.Int](gctx, c, tip20.Token, token, "supplyCap")
			return err
		})
		g.Go(func() error {
			v, err := callView[bool](gctx, c, tip20.Token, token, "paused")
			md.Paused = &v
			return err
		})
		g.Go(func() error {
			v, err := callView[common.Address](gctx, c, tip20.Token, token, "quoteToken")
			md.QuoteToken = &v
			return err
		})
		g.Go(func() error {
			v, err := callView[uint64](gctx, c, tip20.Token, token, "transferPolicyId")
			md.TransferPolicyID = &v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &md, nil
}

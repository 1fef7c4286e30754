package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/events"
	"tip20kit/core/tip20"
	"tip20kit/core/tokenref"
)

// Results carry the fields of the emitted event and the receipt.

type ApproveResult struct {
	events.Approval
	Receipt *types.Receipt
}

type TransferResult struct {
	events.Transfer
	Receipt *types.Receipt
}

type MintResult struct {
	events.Mint
	Receipt *types.Receipt
}

type BurnResult struct {
	events.Burn
	Receipt *types.Receipt
}

type BurnBlockedResult struct {
	events.BurnBlocked
	Receipt *types.Receipt
}

type PauseResult struct {
	events.PauseStateUpdate
	Receipt *types.Receipt
}

// RolesResult lists one membership update per role in the request.
type RolesResult struct {
	Value   []events.RoleMembershipUpdated
	Receipt *types.Receipt
}

type SetRoleAdminResult struct {
	events.RoleAdminUpdated
	Receipt *types.Receipt
}

type SetSupplyCapResult struct {
	events.SupplyCapUpdate
	Receipt *types.Receipt
}

type ChangeTransferPolicyResult struct {
	events.TransferPolicyUpdate
	Receipt *types.Receipt
}

func (p ApproveParams) action() string { return "approve" }
func (p ApproveParams) options() WriteOptions { return p.WriteOptions }

func (p ApproveParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return common.Address{}, nil, err
	}
	amt, err := amount("amount", p.Amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	data, err := pack(tip20.Token, "approve", p.Spender, amt)
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, []Call{{To: token, Data: data}}, nil
}

// Approve sets the acting account's allowance for Spender.
func (c *Client) Approve(ctx context.Context, p ApproveParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) ApproveSync(ctx context.Context, p ApproveParams) (*ApproveResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeApproval)
	if err != nil {
		return nil, err
	}
	return &ApproveResult{Approval: ev, Receipt: receipt}, nil
}

func (p TransferParams) action() string { return "transfer" }
func (p TransferParams) options() WriteOptions { return p.WriteOptions }

func (p TransferParams) build(ctx context.Context, c *Client, account common.Address) (common.Address, []Call, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return common.Address{}, nil, err
	}
	amt, err := amount("amount", p.Amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	delegated := p.From != (common.Address{}) && p.From != account
	var data []byte
	switch {
	case delegated && p.Memo != nil:
		data, err = pack(tip20.Token, "transferFromWithMemo", p.From, p.To, amt, *p.Memo)
	case delegated:
		data, err = pack(tip20.Token, "transferFrom", p.From, p.To, amt)
	case p.Memo != nil:
		data, err = pack(tip20.Token, "transferWithMemo", p.To, amt, *p.Memo)
	default:
		data, err = pack(tip20.Token, "transfer", p.To, amt)
	}
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, []Call{{To: token, Data: data}}, nil
}

// Transfer moves tokens. A From other than the acting account spends an
// allowance; a Memo selects the memo-carrying variant.
func (c *Client) Transfer(ctx context.Context, p TransferParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) TransferSync(ctx context.Context, p TransferParams) (*TransferResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeTransfer)
	if err != nil {
		return nil, err
	}
	return &TransferResult{Transfer: ev, Receipt: receipt}, nil
}

func (p MintParams) action() string { return "mint" }
func (p MintParams) options() WriteOptions { return p.WriteOptions }

func (p MintParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return common.Address{}, nil, err
	}
	amt, err := amount("amount", p.Amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	var data []byte
	if p.Memo != nil {
		data, err = pack(tip20.Token, "mintWithMemo", p.To, amt, *p.Memo)
	} else {
		data, err = pack(tip20.Token, "mint", p.To, amt)
	}
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, []Call{{To: token, Data: data}}, nil
}

// Mint issues new supply to To. The acting account needs the issuer role.
func (c *Client) Mint(ctx context.Context, p MintParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) MintSync(ctx context.Context, p MintParams) (*MintResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeMint)
	if err != nil {
		return nil, err
	}
	return &MintResult{Mint: ev, Receipt: receipt}, nil
}

func (p BurnParams) action() string { return "burn" }
func (p BurnParams) options() WriteOptions { return p.WriteOptions }

func (p BurnParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return common.Address{}, nil, err
	}
	amt, err := amount("amount", p.Amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	var data []byte
	if p.Memo != nil {
		data, err = pack(tip20.Token, "burnWithMemo", amt, *p.Memo)
	} else {
		data, err = pack(tip20.Token, "burn", amt)
	}
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, []Call{{To: token, Data: data}}, nil
}

// Burn destroys the acting account's own balance.
func (c *Client) Burn(ctx context.Context, p BurnParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) BurnSync(ctx context.Context, p BurnParams) (*BurnResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeBurn)
	if err != nil {
		return nil, err
	}
	return &BurnResult{Burn: ev, Receipt: receipt}, nil
}

func (p BurnBlockedParams) action() string { return "burnBlocked" }
func (p BurnBlockedParams) options() WriteOptions { return p.WriteOptions }

func (p BurnBlockedParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return common.Address{}, nil, err
	}
	amt, err := amount("amount", p.Amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	data, err := pack(tip20.Token, "burnBlocked", p.From, amt)
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, []Call{{To: token, Data: data}}, nil
}

// BurnBlocked destroys balance of an account blocked by the transfer policy.
func (c *Client) BurnBlocked(ctx context.Context, p BurnBlockedParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) BurnBlockedSync(ctx context.Context, p BurnBlockedParams) (*BurnBlockedResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeBurnBlocked)
	if err != nil {
		return nil, err
	}
	return &BurnBlockedResult{BurnBlocked: ev, Receipt: receipt}, nil
}

func (p PauseParams) action() string { return "pause" }
func (p PauseParams) options() WriteOptions { return p.WriteOptions }

func (p PauseParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return singleCall(ctx, c, p.Token, "pause")
}

func (p UnpauseParams) action() string { return "unpause" }
func (p UnpauseParams) options() WriteOptions { return p.WriteOptions }

func (p UnpauseParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return singleCall(ctx, c, p.Token, "unpause")
}

// Pause halts transfer-affecting actions on the token.
func (c *Client) Pause(ctx context.Context, p PauseParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) PauseSync(ctx context.Context, p PauseParams) (*PauseResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodePauseStateUpdate)
	if err != nil {
		return nil, err
	}
	return &PauseResult{PauseStateUpdate: ev, Receipt: receipt}, nil
}

func (c *Client) Unpause(ctx context.Context, p UnpauseParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) UnpauseSync(ctx context.Context, p UnpauseParams) (*PauseResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodePauseStateUpdate)
	if err != nil {
		return nil, err
	}
	return &PauseResult{PauseStateUpdate: ev, Receipt: receipt}, nil
}

func (p SetSupplyCapParams) action() string { return "setSupplyCap" }
func (p SetSupplyCapParams) options() WriteOptions { return p.WriteOptions }

func (p SetSupplyCapParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	token, err := c.Resolve(ctx, p.Token)
	if err != nil {
		return common.Address{}, nil, err
	}
	supplyCap, err := amount("supply cap", p.SupplyCap)
	if err != nil {
		return common.Address{}, nil, err
	}
	data, err := pack(tip20.Token, "setSupplyCap", supplyCap)
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, []Call{{To: token, Data: data}}, nil
}

func (c *Client) SetSupplyCap(ctx context.Context, p SetSupplyCapParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) SetSupplyCapSync(ctx context.Context, p SetSupplyCapParams) (*SetSupplyCapResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeSupplyCapUpdate)
	if err != nil {
		return nil, err
	}
	return &SetSupplyCapResult{SupplyCapUpdate: ev, Receipt: receipt}, nil
}

func (p ChangeTransferPolicyParams) action() string { return "changeTransferPolicy" }
func (p ChangeTransferPolicyParams) options() WriteOptions { return p.WriteOptions }

func (p ChangeTransferPolicyParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return singleCall(ctx, c, p.Token, "changeTransferPolicyId", p.PolicyID)
}

func (c *Client) ChangeTransferPolicy(ctx context.Context, p ChangeTransferPolicyParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) ChangeTransferPolicySync(ctx context.Context, p ChangeTransferPolicyParams) (*ChangeTransferPolicyResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeTransferPolicyUpdate)
	if err != nil {
		return nil, err
	}
	return &ChangeTransferPolicyResult{TransferPolicyUpdate: ev, Receipt: receipt}, nil
}

func singleCall(ctx context.Context, c *Client, ref tokenref.Ref, method string, args ...interface{}) (common.Address, []Call, error) {
	token, err := c.Resolve(ctx, ref)
	if err != nil {
		return common.Address{}, nil, err
	}
	data, err := pack(tip20.Token, method, args...)
	if err != nil {
		return common.Address{}, nil, err
	}
	return token, []Call{{To: token, Data: data}}, nil
}

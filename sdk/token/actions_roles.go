package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"tip20kit/core/events"
	"tip20kit/core/roles"
	"tip20kit/core/tip20"
	"tip20kit/core/tokenref"
)

type CreateResult struct {
	events.TokenCreated
	Receipt *types.Receipt
}

func (p GrantRolesParams) action() string { return "grantRoles" }
func (p GrantRolesParams) options() WriteOptions { return p.WriteOptions }

func (p GrantRolesParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return roleCalls(ctx, c, p.Token, p.Roles, func(r roles.Role) ([]byte, error) {
		return pack(tip20.Token, "grantRole", roles.Serialize(r), p.To)
	})
}

func (p RevokeRolesParams) action() string { return "revokeRoles" }
func (p RevokeRolesParams) options() WriteOptions { return p.WriteOptions }

func (p RevokeRolesParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return roleCalls(ctx, c, p.Token, p.Roles, func(r roles.Role) ([]byte, error) {
		return pack(tip20.Token, "revokeRole", roles.Serialize(r), p.From)
	})
}

func (p RenounceRolesParams) action() string { return "renounceRoles" }
func (p RenounceRolesParams) options() WriteOptions { return p.WriteOptions }

func (p RenounceRolesParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return roleCalls(ctx, c, p.Token, p.Roles, func(r roles.Role) ([]byte, error) {
		return pack(tip20.Token, "renounceRole", roles.Serialize(r))
	})
}

// roleCalls batches one call per role into a single transaction.
func roleCalls(ctx context.Context, c *Client, ref tokenref.Ref, rs []roles.Role, encode func(roles.Role) ([]byte, error)) (common.Address, []Call, error) {
	if err := requireRoles(rs); err != nil {
		return common.Address{}, nil, err
	}
	token, err := c.Resolve(ctx, ref)
	if err != nil {
		return common.Address{}, nil, err
	}
	calls := make([]Call, 0, len(rs))
	for _, r := range rs {
		data, err := encode(r)
		if err != nil {
			return common.Address{}, nil, err
		}
		calls = append(calls, Call{To: token, Data: data})
	}
	return token, calls, nil
}

// GrantRoles grants Roles to To. The acting account must hold each role's
// admin role.
func (c *Client) GrantRoles(ctx context.Context, p GrantRolesParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) GrantRolesSync(ctx context.Context, p GrantRolesParams) (*RolesResult, error) {
	evs, receipt, err := confirmAll(ctx, c, p, events.DecodeRoleMembershipUpdated)
	if err != nil {
		return nil, err
	}
	return &RolesResult{Value: evs, Receipt: receipt}, nil
}

// RevokeRoles removes Roles from From.
func (c *Client) RevokeRoles(ctx context.Context, p RevokeRolesParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) RevokeRolesSync(ctx context.Context, p RevokeRolesParams) (*RolesResult, error) {
	evs, receipt, err := confirmAll(ctx, c, p, events.DecodeRoleMembershipUpdated)
	if err != nil {
		return nil, err
	}
	return &RolesResult{Value: evs, Receipt: receipt}, nil
}

// RenounceRoles drops Roles from the acting account. No admin role is needed.
func (c *Client) RenounceRoles(ctx context.Context, p RenounceRolesParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) RenounceRolesSync(ctx context.Context, p RenounceRolesParams) (*RolesResult, error) {
	evs, receipt, err := confirmAll(ctx, c, p, events.DecodeRoleMembershipUpdated)
	if err != nil {
		return nil, err
	}
	return &RolesResult{Value: evs, Receipt: receipt}, nil
}

func (p SetRoleAdminParams) action() string { return "setRoleAdmin" }
func (p SetRoleAdminParams) options() WriteOptions { return p.WriteOptions }

func (p SetRoleAdminParams) build(ctx context.Context, c *Client, _ common.Address) (common.Address, []Call, error) {
	return singleCall(ctx, c, p.Token, "setRoleAdmin", roles.Serialize(p.Role), roles.Serialize(p.AdminRole))
}

// SetRoleAdmin changes which role administers Role.
func (c *Client) SetRoleAdmin(ctx context.Context, p SetRoleAdminParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) SetRoleAdminSync(ctx context.Context, p SetRoleAdminParams) (*SetRoleAdminResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeRoleAdminUpdated)
	if err != nil {
		return nil, err
	}
	return &SetRoleAdminResult{RoleAdminUpdated: ev, Receipt: receipt}, nil
}

func (p CreateParams) action() string { return "create" }
func (p CreateParams) options() WriteOptions { return p.WriteOptions }

func (p CreateParams) build(ctx context.Context, c *Client, account common.Address) (common.Address, []Call, error) {
	quoteRef := p.QuoteToken
	if quoteRef.IsZero() {
		quoteRef = tokenref.RootQuoteToken
	}
	quote, err := c.Resolve(ctx, quoteRef)
	if err != nil {
		return common.Address{}, nil, err
	}
	admin := p.Admin
	if admin == (common.Address{}) {
		admin = account
	}
	salt := p.Salt
	if salt == ([32]byte{}) {
		id := uuid.New()
		salt = crypto.Keccak256Hash(id[:])
	}
	data, err := pack(tip20.Factory, "createToken", p.Name, p.Symbol, p.Currency, quote, admin, salt)
	if err != nil {
		return common.Address{}, nil, err
	}
	return tokenref.FactoryAddress, []Call{{To: tokenref.FactoryAddress, Data: data}}, nil
}

// Create deploys a new token through the factory.
func (c *Client) Create(ctx context.Context, p CreateParams) (*Pending, error) {
	return c.Submit(ctx, p)
}

func (c *Client) CreateSync(ctx context.Context, p CreateParams) (*CreateResult, error) {
	ev, receipt, err := confirm(ctx, c, p, events.DecodeTokenCreated)
	if err != nil {
		return nil, err
	}
	return &CreateResult{TokenCreated: ev, Receipt: receipt}, nil
}

package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tip20kit/core/roles"
	"tip20kit/core/tokenref"
)

// WriteOptions is embedded by every action. A zero Account acts as the
// client's default signer. FeeToken is independent of the token acted on.
type WriteOptions struct {
	Account  common.Address
	FeeToken tokenref.Ref
}

// Memo is an optional 32-byte reference attached to transfers, mints and
// burns. A nil memo selects the plain contract function.
type Memo = *[32]byte

// MemoFromString left-aligns s into a memo, truncating past 32 bytes.
func MemoFromString(s string) Memo {
	var m [32]byte
	copy(m[:], s)
	return &m
}

type ApproveParams struct {
	WriteOptions
	Token   tokenref.Ref
	Spender common.Address
	Amount  *big.Int
}

// TransferParams moves Amount to To. Setting From to an account other than
// the acting one spends the acting account's allowance from From.
type TransferParams struct {
	WriteOptions
	Token  tokenref.Ref
	From   common.Address
	To     common.Address
	Amount *big.Int
	Memo   Memo
}

type MintParams struct {
	WriteOptions
	Token  tokenref.Ref
	To     common.Address
	Amount *big.Int
	Memo   Memo
}

type BurnParams struct {
	WriteOptions
	Token  tokenref.Ref
	Amount *big.Int
	Memo   Memo
}

// BurnBlockedParams destroys balance held by an account the transfer policy
// blocks.
type BurnBlockedParams struct {
	WriteOptions
	Token  tokenref.Ref
	From   common.Address
	Amount *big.Int
}

type PauseParams struct {
	WriteOptions
	Token tokenref.Ref
}

type UnpauseParams PauseParams

// GrantRolesParams grants every role in Roles to To in one transaction.
type GrantRolesParams struct {
	WriteOptions
	Token tokenref.Ref
	Roles []roles.Role
	To    common.Address
}

// RevokeRolesParams revokes every role in Roles from From in one transaction.
type RevokeRolesParams struct {
	WriteOptions
	Token tokenref.Ref
	Roles []roles.Role
	From  common.Address
}

// RenounceRolesParams drops roles held by the acting account.
type RenounceRolesParams struct {
	WriteOptions
	Token tokenref.Ref
	Roles []roles.Role
}

type SetRoleAdminParams struct {
	WriteOptions
	Token     tokenref.Ref
	Role      roles.Role
	AdminRole roles.Role
}

type SetSupplyCapParams struct {
	WriteOptions
	Token     tokenref.Ref
	SupplyCap *big.Int
}

type ChangeTransferPolicyParams struct {
	WriteOptions
	Token    tokenref.Ref
	PolicyID uint64
}

// CreateParams deploys a token through the factory. A zero QuoteToken pegs
// against the root quote token, a zero Admin makes the acting account admin
// and a zero Salt is replaced by a random one.
type CreateParams struct {
	WriteOptions
	Name       string
	Symbol     string
	Currency   string
	QuoteToken tokenref.Ref
	Admin      common.Address
	Salt       [32]byte
}

type PrepareUpdateQuoteTokenParams struct {
	WriteOptions
	Token      tokenref.Ref
	QuoteToken tokenref.Ref
}

type UpdateQuoteTokenParams struct {
	WriteOptions
	Token tokenref.Ref
}

// Read parameters.

type BalanceParams struct {
	Token   tokenref.Ref
	Account common.Address
}

type AllowanceParams struct {
	Token   tokenref.Ref
	Owner   common.Address
	Spender common.Address
}

type HasRoleParams struct {
	Token   tokenref.Ref
	Account common.Address
	Role    roles.Role
}

type RoleAdminParams struct {
	Token tokenref.Ref
	Role  roles.Role
}

// amount rejects values outside the uint256 range before they reach the ABI
// encoder.
func amount(field string, v *big.Int) (*big.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("token: %s required", field)
	}
	if _, overflow := uint256.FromBig(v); v.Sign() < 0 || overflow {
		return nil, fmt.Errorf("token: %s %s out of uint256 range", field, v)
	}
	return v, nil
}

func requireRoles(rs []roles.Role) error {
	if len(rs) == 0 {
		return fmt.Errorf("token: at least one role required")
	}
	return nil
}

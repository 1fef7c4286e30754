package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/tip20"
)

const (
	// TypeMint is emitted when supply is issued to an account.
	TypeMint = "tip20.mint"
	// TypeBurn is emitted when the caller destroys its own balance.
	TypeBurn = "tip20.burn"
	// TypeBurnBlocked is emitted when a blocked account's balance is destroyed.
	TypeBurnBlocked = "tip20.burn_blocked"
)

type Mint struct {
	To     common.Address
	Amount *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Attributes() map[string]string {
	return map[string]string{
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
}

// DecodeMint decodes a Mint log.
func DecodeMint(log gethtypes.Log) (Mint, error) {
	fields, err := unpack(tip20.Token, tip20.EventMint, log)
	if err != nil {
		return Mint{}, err
	}
	var e Mint
	if e.To, err = field[common.Address](fields, tip20.EventMint, "to"); err != nil {
		return Mint{}, err
	}
	if e.Amount, err = field[*big.Int](fields, tip20.EventMint, "amount"); err != nil {
		return Mint{}, err
	}
	return e, nil
}

type Burn struct {
	From   common.Address
	Amount *big.Int
}

func (Burn) EventType() string { return TypeBurn }

func (e Burn) Attributes() map[string]string {
	return map[string]string{
		"from":   formatAddress(e.From),
		"amount": formatAmount(e.Amount),
	}
}

// DecodeBurn decodes a Burn log.
func DecodeBurn(log gethtypes.Log) (Burn, error) {
	from, amount, err := decodeBurnShape(tip20.EventBurn, log)
	if err != nil {
		return Burn{}, err
	}
	return Burn{From: from, Amount: amount}, nil
}

type BurnBlocked struct {
	From   common.Address
	Amount *big.Int
}

func (BurnBlocked) EventType() string { return TypeBurnBlocked }

func (e BurnBlocked) Attributes() map[string]string {
	return Burn{From: e.From, Amount: e.Amount}.Attributes()
}

// DecodeBurnBlocked decodes a BurnBlocked log.
func DecodeBurnBlocked(log gethtypes.Log) (BurnBlocked, error) {
	from, amount, err := decodeBurnShape(tip20.EventBurnBlocked, log)
	if err != nil {
		return BurnBlocked{}, err
	}
	return BurnBlocked{From: from, Amount: amount}, nil
}

func decodeBurnShape(name string, log gethtypes.Log) (common.Address, *big.Int, error) {
	fields, err := unpack(tip20.Token, name, log)
	if err != nil {
		return common.Address{}, nil, err
	}
	from, err := field[common.Address](fields, name, "from")
	if err != nil {
		return common.Address{}, nil, err
	}
	amount, err := field[*big.Int](fields, name, "amount")
	if err != nil {
		return common.Address{}, nil, err
	}
	return from, amount, nil
}

package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/tip20"
)

// TypeTokenCreated is emitted by the factory for every new token.
const TypeTokenCreated = "tip20.token_created"

type TokenCreated struct {
	Token      common.Address
	TokenID    *big.Int
	Name       string
	Symbol     string
	Currency   string
	QuoteToken common.Address
	Admin      common.Address
}

func (TokenCreated) EventType() string { return TypeTokenCreated }

func (e TokenCreated) Attributes() map[string]string {
	return map[string]string{
		"token":      formatAddress(e.Token),
		"tokenId":    formatAmount(e.TokenID),
		"name":       e.Name,
		"symbol":     e.Symbol,
		"currency":   e.Currency,
		"quoteToken": formatAddress(e.QuoteToken),
		"admin":      formatAddress(e.Admin),
	}
}

// DecodeTokenCreated decodes a factory TokenCreated log.
func DecodeTokenCreated(log gethtypes.Log) (TokenCreated, error) {
	const name = tip20.EventTokenCreated
	fields, err := unpack(tip20.Factory, name, log)
	if err != nil {
		return TokenCreated{}, err
	}
	var e TokenCreated
	if e.Token, err = field[common.Address](fields, name, "token"); err != nil {
		return TokenCreated{}, err
	}
	if e.TokenID, err = field[*big.Int](fields, name, "tokenId"); err != nil {
		return TokenCreated{}, err
	}
	if e.Name, err = field[string](fields, name, "name"); err != nil {
		return TokenCreated{}, err
	}
	if e.Symbol, err = field[string](fields, name, "symbol"); err != nil {
		return TokenCreated{}, err
	}
	if e.Currency, err = field[string](fields, name, "currency"); err != nil {
		return TokenCreated{}, err
	}
	if e.QuoteToken, err = field[common.Address](fields, name, "quoteToken"); err != nil {
		return TokenCreated{}, err
	}
	if e.Admin, err = field[common.Address](fields, name, "admin"); err != nil {
		return TokenCreated{}, err
	}
	return e, nil
}

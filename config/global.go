package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"tip20kit/core/tokenref"
)

// FeeTokens are the parsed fee token defaults.
type FeeTokens struct {
	Default   tokenref.Ref
	ByAccount map[common.Address]tokenref.Ref
}

// AccountAddress returns the configured acting account, if any.
func (c *Config) AccountAddress() (common.Address, bool) {
	if !common.IsHexAddress(c.Account) {
		return common.Address{}, false
	}
	return common.HexToAddress(c.Account), true
}

// LoadBook reads the token alias book. A config without one yields a nil
// book, which resolves only addresses and ids.
func (c *Config) LoadBook() (*tokenref.Book, error) {
	if c.TokenBook == "" {
		return nil, nil
	}
	book, err := tokenref.LoadBook(c.TokenBook)
	if err != nil {
		return nil, fmt.Errorf("config: token book: %w", err)
	}
	return book, nil
}

// ParseFeeTokens resolves the fee token settings against book.
func (c *Config) ParseFeeTokens(book *tokenref.Book) (FeeTokens, error) {
	out := FeeTokens{ByAccount: make(map[common.Address]tokenref.Ref, len(c.AccountFeeTokens))}
	if c.FeeToken != "" {
		ref, err := book.Parse(c.FeeToken)
		if err != nil {
			return FeeTokens{}, fmt.Errorf("config: FeeToken: %w", err)
		}
		out.Default = ref
	}
	for account, value := range c.AccountFeeTokens {
		ref, err := book.Parse(value)
		if err != nil {
			return FeeTokens{}, fmt.Errorf("config: AccountFeeTokens[%s]: %w", account, err)
		}
		out.ByAccount[common.HexToAddress(account)] = ref
	}
	return out, nil
}

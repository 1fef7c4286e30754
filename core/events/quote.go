package events

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/tip20"
)

const (
	// TypeNextQuoteTokenSet is emitted when a quote token change is proposed.
	TypeNextQuoteTokenSet = "tip20.quote_token_proposed"
	// TypeQuoteTokenUpdate is emitted when a proposal is finalized.
	TypeQuoteTokenUpdate = "tip20.quote_token_updated"
)

type NextQuoteTokenSet struct {
	Updater        common.Address
	NextQuoteToken common.Address
}

func (NextQuoteTokenSet) EventType() string { return TypeNextQuoteTokenSet }

func (e NextQuoteTokenSet) Attributes() map[string]string {
	return map[string]string{
		"updater":        formatAddress(e.Updater),
		"nextQuoteToken": formatAddress(e.NextQuoteToken),
	}
}

// DecodeNextQuoteTokenSet decodes a NextQuoteTokenSet log.
func DecodeNextQuoteTokenSet(log gethtypes.Log) (NextQuoteTokenSet, error) {
	updater, token, err := decodeQuoteShape(tip20.EventNextQuoteTokenSet, "nextQuoteToken", log)
	if err != nil {
		return NextQuoteTokenSet{}, err
	}
	return NextQuoteTokenSet{Updater: updater, NextQuoteToken: token}, nil
}

type QuoteTokenUpdate struct {
	Updater       common.Address
	NewQuoteToken common.Address
}

func (QuoteTokenUpdate) EventType() string { return TypeQuoteTokenUpdate }

func (e QuoteTokenUpdate) Attributes() map[string]string {
	return map[string]string{
		"updater":       formatAddress(e.Updater),
		"newQuoteToken": formatAddress(e.NewQuoteToken),
	}
}

// DecodeQuoteTokenUpdate decodes a QuoteTokenUpdate log.
func DecodeQuoteTokenUpdate(log gethtypes.Log) (QuoteTokenUpdate, error) {
	updater, token, err := decodeQuoteShape(tip20.EventQuoteTokenUpdate, "newQuoteToken", log)
	if err != nil {
		return QuoteTokenUpdate{}, err
	}
	return QuoteTokenUpdate{Updater: updater, NewQuoteToken: token}, nil
}

// QuoteTokenChange merges both phases of a quote token migration. Exactly one
// of NextQuoteToken (proposal) or NewQuoteToken (finalization) is set,
// matching Completed.
type QuoteTokenChange struct {
	Updater        common.Address
	NextQuoteToken common.Address
	NewQuoteToken  common.Address
	Completed      bool
}

func (e QuoteTokenChange) EventType() string {
	if e.Completed {
		return TypeQuoteTokenUpdate
	}
	return TypeNextQuoteTokenSet
}

func (e QuoteTokenChange) Attributes() map[string]string {
	attrs := map[string]string{
		"updater":   formatAddress(e.Updater),
		"completed": formatBool(e.Completed),
	}
	if e.Completed {
		attrs["newQuoteToken"] = formatAddress(e.NewQuoteToken)
	} else {
		attrs["nextQuoteToken"] = formatAddress(e.NextQuoteToken)
	}
	return attrs
}

// DecodeQuoteTokenChange decodes either phase of a quote token migration.
func DecodeQuoteTokenChange(log gethtypes.Log) (QuoteTokenChange, error) {
	if len(log.Topics) == 0 {
		return QuoteTokenChange{}, ErrSignatureMismatch
	}
	switch log.Topics[0] {
	case tip20.Token.Events[tip20.EventNextQuoteTokenSet].ID:
		e, err := DecodeNextQuoteTokenSet(log)
		if err != nil {
			return QuoteTokenChange{}, err
		}
		return QuoteTokenChange{Updater: e.Updater, NextQuoteToken: e.NextQuoteToken}, nil
	case tip20.Token.Events[tip20.EventQuoteTokenUpdate].ID:
		e, err := DecodeQuoteTokenUpdate(log)
		if err != nil {
			return QuoteTokenChange{}, err
		}
		return QuoteTokenChange{Updater: e.Updater, NewQuoteToken: e.NewQuoteToken, Completed: true}, nil
	default:
		return QuoteTokenChange{}, ErrSignatureMismatch
	}
}

func decodeQuoteShape(name, tokenField string, log gethtypes.Log) (common.Address, common.Address, error) {
	fields, err := unpack(tip20.Token, name, log)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	updater, err := field[common.Address](fields, name, "updater")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token, err := field[common.Address](fields, name, tokenField)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return updater, token, nil
}

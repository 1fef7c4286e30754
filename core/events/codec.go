package events

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/tip20"
)

type decoder func(gethtypes.Log) (Event, error)

func wrap[E Event](fn func(gethtypes.Log) (E, error)) decoder {
	return func(log gethtypes.Log) (Event, error) {
		e, err := fn(log)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

var decoders = map[common.Hash]decoder{
	tip20.Token.Events[tip20.EventTransfer].ID:             wrap(DecodeTransfer),
	tip20.Token.Events[tip20.EventTransferWithMemo].ID:     wrap(DecodeTransferWithMemo),
	tip20.Token.Events[tip20.EventApproval].ID:             wrap(DecodeApproval),
	tip20.Token.Events[tip20.EventMint].ID:                 wrap(DecodeMint),
	tip20.Token.Events[tip20.EventBurn].ID:                 wrap(DecodeBurn),
	tip20.Token.Events[tip20.EventBurnBlocked].ID:          wrap(DecodeBurnBlocked),
	tip20.Token.Events[tip20.EventPauseStateUpdate].ID:     wrap(DecodePauseStateUpdate),
	tip20.Token.Events[tip20.EventSupplyCapUpdate].ID:      wrap(DecodeSupplyCapUpdate),
	tip20.Token.Events[tip20.EventTransferPolicyUpdate].ID: wrap(DecodeTransferPolicyUpdate),
	tip20.Token.Events[tip20.EventNextQuoteTokenSet].ID:    wrap(DecodeNextQuoteTokenSet),
	tip20.Token.Events[tip20.EventQuoteTokenUpdate].ID:     wrap(DecodeQuoteTokenUpdate),
	tip20.Token.Events[tip20.EventRoleMembership].ID:       wrap(DecodeRoleMembershipUpdated),
	tip20.Token.Events[tip20.EventRoleAdminUpdated].ID:     wrap(DecodeRoleAdminUpdated),
	tip20.Factory.Events[tip20.EventTokenCreated].ID:       wrap(DecodeTokenCreated),
}

// Decode dispatches on the log's signature topic.
func Decode(log gethtypes.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, ErrSignatureMismatch
	}
	fn, ok := decoders[log.Topics[0]]
	if !ok {
		return nil, ErrSignatureMismatch
	}
	return fn(log)
}

// Topic returns the signature topic of a token event.
func Topic(name string) common.Hash {
	if ev, ok := tip20.Token.Events[name]; ok {
		return ev.ID
	}
	return tip20.Factory.Events[name].ID
}

// Encode builds the log a contract at addr would emit for e. Block and
// transaction positions are left for the caller to fill in.
func Encode(addr common.Address, e Event) (gethtypes.Log, error) {
	def, name, values, err := arguments(e)
	if err != nil {
		return gethtypes.Log{}, err
	}
	ev := def.Events[name]
	if len(values) != len(ev.Inputs) {
		return gethtypes.Log{}, fmt.Errorf("events: %s expects %d arguments, got %d", name, len(ev.Inputs), len(values))
	}
	topics := []common.Hash{ev.ID}
	var data []interface{}
	for i, arg := range ev.Inputs {
		if !arg.Indexed {
			data = append(data, values[i])
			continue
		}
		hashes, err := abi.MakeTopics([]interface{}{values[i]})
		if err != nil {
			return gethtypes.Log{}, fmt.Errorf("events: %s.%s topic: %w", name, arg.Name, err)
		}
		topics = append(topics, hashes[0][0])
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return gethtypes.Log{}, fmt.Errorf("events: %s data: %w", name, err)
	}
	return gethtypes.Log{Address: addr, Topics: topics, Data: packed}, nil
}

func arguments(e Event) (abi.ABI, string, []interface{}, error) {
	switch v := e.(type) {
	case Transfer:
		return tip20.Token, tip20.EventTransfer, []interface{}{v.From, v.To, amountOrZero(v.Amount)}, nil
	case TransferWithMemo:
		return tip20.Token, tip20.EventTransferWithMemo, []interface{}{v.From, v.To, amountOrZero(v.Amount), v.Memo}, nil
	case Approval:
		return tip20.Token, tip20.EventApproval, []interface{}{v.Owner, v.Spender, amountOrZero(v.Amount)}, nil
	case Mint:
		return tip20.Token, tip20.EventMint, []interface{}{v.To, amountOrZero(v.Amount)}, nil
	case Burn:
		return tip20.Token, tip20.EventBurn, []interface{}{v.From, amountOrZero(v.Amount)}, nil
	case BurnBlocked:
		return tip20.Token, tip20.EventBurnBlocked, []interface{}{v.From, amountOrZero(v.Amount)}, nil
	case PauseStateUpdate:
		return tip20.Token, tip20.EventPauseStateUpdate, []interface{}{v.Updater, v.IsPaused}, nil
	case SupplyCapUpdate:
		return tip20.Token, tip20.EventSupplyCapUpdate, []interface{}{v.Updater, amountOrZero(v.NewSupplyCap)}, nil
	case TransferPolicyUpdate:
		return tip20.Token, tip20.EventTransferPolicyUpdate, []interface{}{v.Updater, v.NewPolicyID}, nil
	case NextQuoteTokenSet:
		return tip20.Token, tip20.EventNextQuoteTokenSet, []interface{}{v.Updater, v.NextQuoteToken}, nil
	case QuoteTokenUpdate:
		return tip20.Token, tip20.EventQuoteTokenUpdate, []interface{}{v.Updater, v.NewQuoteToken}, nil
	case RoleMembershipUpdated:
		return tip20.Token, tip20.EventRoleMembership, []interface{}{v.Role.ID(), v.Account, v.Sender, v.HasRole}, nil
	case RoleAdminUpdated:
		return tip20.Token, tip20.EventRoleAdminUpdated, []interface{}{v.Role.ID(), v.NewAdminRole.ID(), v.Sender}, nil
	case TokenCreated:
		return tip20.Factory, tip20.EventTokenCreated, []interface{}{v.Token, amountOrZero(v.TokenID), v.Name, v.Symbol, v.Currency, v.QuoteToken, v.Admin}, nil
	default:
		return abi.ABI{}, "", nil, fmt.Errorf("events: cannot encode %T", e)
	}
}

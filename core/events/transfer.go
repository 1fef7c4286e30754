package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/tip20"
)

const (
	// TypeTransfer is emitted for every balance movement between accounts.
	TypeTransfer = "tip20.transfer"
	// TypeTransferWithMemo accompanies a transfer that carried a memo.
	TypeTransferWithMemo = "tip20.transfer_memo"
	// TypeApproval is emitted when an allowance is set.
	TypeApproval = "tip20.approval"
)

type Transfer struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Attributes() map[string]string {
	return map[string]string{
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
}

// DecodeTransfer decodes a Transfer log.
func DecodeTransfer(log gethtypes.Log) (Transfer, error) {
	fields, err := unpack(tip20.Token, tip20.EventTransfer, log)
	if err != nil {
		return Transfer{}, err
	}
	var e Transfer
	if e.From, err = field[common.Address](fields, tip20.EventTransfer, "from"); err != nil {
		return Transfer{}, err
	}
	if e.To, err = field[common.Address](fields, tip20.EventTransfer, "to"); err != nil {
		return Transfer{}, err
	}
	if e.Amount, err = field[*big.Int](fields, tip20.EventTransfer, "amount"); err != nil {
		return Transfer{}, err
	}
	return e, nil
}

type TransferWithMemo struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
	Memo   [32]byte
}

func (TransferWithMemo) EventType() string { return TypeTransferWithMemo }

func (e TransferWithMemo) Attributes() map[string]string {
	attrs := Transfer{From: e.From, To: e.To, Amount: e.Amount}.Attributes()
	attrs["memo"] = formatMemo(e.Memo)
	return attrs
}

// DecodeTransferWithMemo decodes a TransferWithMemo log.
func DecodeTransferWithMemo(log gethtypes.Log) (TransferWithMemo, error) {
	fields, err := unpack(tip20.Token, tip20.EventTransferWithMemo, log)
	if err != nil {
		return TransferWithMemo{}, err
	}
	var e TransferWithMemo
	if e.From, err = field[common.Address](fields, tip20.EventTransferWithMemo, "from"); err != nil {
		return TransferWithMemo{}, err
	}
	if e.To, err = field[common.Address](fields, tip20.EventTransferWithMemo, "to"); err != nil {
		return TransferWithMemo{}, err
	}
	if e.Amount, err = field[*big.Int](fields, tip20.EventTransferWithMemo, "amount"); err != nil {
		return TransferWithMemo{}, err
	}
	if e.Memo, err = field[[32]byte](fields, tip20.EventTransferWithMemo, "memo"); err != nil {
		return TransferWithMemo{}, err
	}
	return e, nil
}

type Approval struct {
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Attributes() map[string]string {
	return map[string]string{
		"owner":   formatAddress(e.Owner),
		"spender": formatAddress(e.Spender),
		"amount":  formatAmount(e.Amount),
	}
}

// DecodeApproval decodes an Approval log.
func DecodeApproval(log gethtypes.Log) (Approval, error) {
	fields, err := unpack(tip20.Token, tip20.EventApproval, log)
	if err != nil {
		return Approval{}, err
	}
	var e Approval
	if e.Owner, err = field[common.Address](fields, tip20.EventApproval, "owner"); err != nil {
		return Approval{}, err
	}
	if e.Spender, err = field[common.Address](fields, tip20.EventApproval, "spender"); err != nil {
		return Approval{}, err
	}
	if e.Amount, err = field[*big.Int](fields, tip20.EventApproval, "amount"); err != nil {
		return Approval{}, err
	}
	return e, nil
}

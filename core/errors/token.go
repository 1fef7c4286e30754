package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Resolution errors.
var (
	ErrTokenNotFound = stderrors.New("tip20: token not found")
	ErrInvalidRef    = stderrors.New("tip20: invalid token reference")
)

// Errors surfaced from decoded on-chain reverts.
var (
	ErrActionReverted        = stderrors.New("tip20: action reverted")
	ErrUnauthorized          = stderrors.New("tip20: unauthorized")
	ErrInsufficientAllowance = stderrors.New("tip20: insufficient allowance")
	ErrInsufficientBalance   = stderrors.New("tip20: insufficient balance")
	ErrTokenPaused           = stderrors.New("tip20: token paused")
	ErrNoPendingProposal     = stderrors.New("tip20: no pending quote token proposal")
	ErrCircularQuoteToken    = stderrors.New("tip20: circular quote token reference")
	ErrInvalidQuoteToken     = stderrors.New("tip20: invalid quote token")
	ErrSupplyCapExceeded     = stderrors.New("tip20: supply cap exceeded")
	ErrPolicyForbids         = stderrors.New("tip20: transfer policy forbids")
)

// Liveness and decode errors.
var (
	ErrActionTimedOut = stderrors.New("tip20: timed out waiting for receipt")
	ErrEventNotFound  = stderrors.New("tip20: expected event not found in receipt")
)

// RevertError describes a state-mutating action rejected by the chain. Err is
// the mapped sentinel when the revert could be decoded to a known error, nil
// otherwise.
type RevertError struct {
	Action string
	TxHash common.Hash
	Name   string
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	msg := "tip20: " + e.Action + " reverted"
	if e.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	switch {
	case e.Name != "" && e.Reason != "":
		msg += ": " + e.Name + ": " + e.Reason
	case e.Name != "":
		msg += ": " + e.Name
	case e.Reason != "":
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap exposes the mapped sentinel so errors.Is works against it.
func (e *RevertError) Unwrap() error { return e.Err }

// Is reports true for ErrActionReverted regardless of the mapped sentinel.
func (e *RevertError) Is(target error) bool { return target == ErrActionReverted }

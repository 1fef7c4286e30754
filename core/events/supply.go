package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/tip20"
)

const (
	// TypePauseState is emitted whenever a token is paused or unpaused.
	TypePauseState = "tip20.pause_state"
	// TypeSupplyCap is emitted when the supply cap changes.
	TypeSupplyCap = "tip20.supply_cap"
	// TypeTransferPolicy is emitted when the transfer policy id changes.
	TypeTransferPolicy = "tip20.transfer_policy"
)

type PauseStateUpdate struct {
	Updater  common.Address
	IsPaused bool
}

func (PauseStateUpdate) EventType() string { return TypePauseState }

func (e PauseStateUpdate) Attributes() map[string]string {
	return map[string]string{
		"updater":  formatAddress(e.Updater),
		"isPaused": formatBool(e.IsPaused),
	}
}

// DecodePauseStateUpdate decodes a PauseStateUpdate log.
func DecodePauseStateUpdate(log gethtypes.Log) (PauseStateUpdate, error) {
	fields, err := unpack(tip20.Token, tip20.EventPauseStateUpdate, log)
	if err != nil {
		return PauseStateUpdate{}, err
	}
	var e PauseStateUpdate
	if e.Updater, err = field[common.Address](fields, tip20.EventPauseStateUpdate, "updater"); err != nil {
		return PauseStateUpdate{}, err
	}
	if e.IsPaused, err = field[bool](fields, tip20.EventPauseStateUpdate, "isPaused"); err != nil {
		return PauseStateUpdate{}, err
	}
	return e, nil
}

type SupplyCapUpdate struct {
	Updater      common.Address
	NewSupplyCap *big.Int
}

func (SupplyCapUpdate) EventType() string { return TypeSupplyCap }

func (e SupplyCapUpdate) Attributes() map[string]string {
	return map[string]string{
		"updater":      formatAddress(e.Updater),
		"newSupplyCap": formatAmount(e.NewSupplyCap),
	}
}

// DecodeSupplyCapUpdate decodes a SupplyCapUpdate log.
func DecodeSupplyCapUpdate(log gethtypes.Log) (SupplyCapUpdate, error) {
	fields, err := unpack(tip20.Token, tip20.EventSupplyCapUpdate, log)
	if err != nil {
		return SupplyCapUpdate{}, err
	}
	var e SupplyCapUpdate
	if e.Updater, err = field[common.Address](fields, tip20.EventSupplyCapUpdate, "updater"); err != nil {
		return SupplyCapUpdate{}, err
	}
	if e.NewSupplyCap, err = field[*big.Int](fields, tip20.EventSupplyCapUpdate, "newSupplyCap"); err != nil {
		return SupplyCapUpdate{}, err
	}
	return e, nil
}

type TransferPolicyUpdate struct {
	Updater     common.Address
	NewPolicyID uint64
}

func (TransferPolicyUpdate) EventType() string { return TypeTransferPolicy }

func (e TransferPolicyUpdate) Attributes() map[string]string {
	return map[string]string{
		"updater":     formatAddress(e.Updater),
		"newPolicyId": strconv.FormatUint(e.NewPolicyID, 10),
	}
}

// DecodeTransferPolicyUpdate decodes a TransferPolicyUpdate log.
func DecodeTransferPolicyUpdate(log gethtypes.Log) (TransferPolicyUpdate, error) {
	fields, err := unpack(tip20.Token, tip20.EventTransferPolicyUpdate, log)
	if err != nil {
		return TransferPolicyUpdate{}, err
	}
	var e TransferPolicyUpdate
	if e.Updater, err = field[common.Address](fields, tip20.EventTransferPolicyUpdate, "updater"); err != nil {
		return TransferPolicyUpdate{}, err
	}
	if e.NewPolicyID, err = field[uint64](fields, tip20.EventTransferPolicyUpdate, "newPolicyId"); err != nil {
		return TransferPolicyUpdate{}, err
	}
	return e, nil
}

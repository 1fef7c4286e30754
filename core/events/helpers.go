package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatBool(v bool) string { return strconv.FormatBool(v) }

func formatMemo(memo [32]byte) string {
	if memo == ([32]byte{}) {
		return ""
	}
	return hexutil.Encode(memo[:])
}

func formatAddress(addr common.Address) string { return addr.Hex() }

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

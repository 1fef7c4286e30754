package token

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call is a single contract invocation inside a transaction.
type Call struct {
	To   common.Address
	Data []byte
}

// TxRequest is a write submitted as one transaction. Multiple calls execute
// atomically in order. A zero FeeToken leaves the choice to the node.
type TxRequest struct {
	From     common.Address
	FeeToken common.Address
	Calls    []Call
}

// Backend is the chain access the client needs. Reads, writes, receipt
// confirmation and log streaming are all delegated to it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendCalls(ctx context.Context, req TxRequest) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// dataError matches errors carrying revert payloads, such as the JSON-RPC
// errors returned by go-ethereum's rpc package.
type dataError interface {
	ErrorData() interface{}
}

// RevertData extracts the raw revert payload from err, if any.
func RevertData(err error) ([]byte, bool) {
	var de dataError
	if !errors.As(err, &de) {
		return nil, false
	}
	switch v := de.ErrorData().(type) {
	case []byte:
		return v, true
	case hexutil.Bytes:
		return v, true
	case string:
		if !strings.HasPrefix(v, "0x") {
			return nil, false
		}
		raw, err := hexutil.Decode(v)
		if err != nil {
			return nil, false
		}
		return raw, true
	default:
		return nil, false
	}
}

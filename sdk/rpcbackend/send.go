package rpcbackend

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"tip20kit/sdk/token"
)

// callArgs is one entry of the calls array of a fee-token transaction.
type callArgs struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value,omitempty"`
}

// sendArgs is the eth_sendTransaction payload for node signing.
type sendArgs struct {
	From     common.Address  `json:"from"`
	Calls    []callArgs      `json:"calls"`
	FeeToken *common.Address `json:"feeToken,omitempty"`
}

// SendCalls submits req. Node errors carrying revert data, such as failed
// gas estimation, are returned unchanged so callers can decode them.
func (b *Backend) SendCalls(ctx context.Context, req token.TxRequest) (common.Hash, error) {
	if len(req.Calls) == 0 {
		return common.Hash{}, fmt.Errorf("rpcbackend: transaction without calls")
	}
	if b.key != nil {
		return b.sendSigned(ctx, req)
	}
	args := sendArgs{From: req.From, Calls: make([]callArgs, 0, len(req.Calls))}
	for _, call := range req.Calls {
		args.Calls = append(args.Calls, callArgs{To: call.To, Data: call.Data})
	}
	if req.FeeToken != (common.Address{}) {
		fee := req.FeeToken
		args.FeeToken = &fee
	}
	if err := b.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	if err := b.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (b *Backend) sendSigned(ctx context.Context, req token.TxRequest) (common.Hash, error) {
	if len(req.Calls) != 1 {
		return common.Hash{}, ErrBatchUnsupported
	}
	from := b.key.Address()
	if req.From != (common.Address{}) && req.From != from {
		return common.Hash{}, fmt.Errorf("rpcbackend: signer is %s, not %s", from.Hex(), req.From.Hex())
	}
	if req.FeeToken != (common.Address{}) {
		b.logger.Debug("fee token ignored for locally signed transaction", slog.String("fee_token", req.FeeToken.Hex()))
	}
	call := req.Calls[0]
	to := call.To

	var (
		nonce uint64
		tip   *big.Int
		head  *types.Header
		gas   uint64
	)
	steps := []func() error{
		func() (err error) { nonce, err = b.eth.PendingNonceAt(ctx, from); return },
		func() (err error) { tip, err = b.eth.SuggestGasTipCap(ctx); return },
		func() (err error) { head, err = b.eth.HeaderByNumber(ctx, nil); return },
		func() (err error) {
			gas, err = b.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: call.Data})
			return
		},
	}
	for _, step := range steps {
		if err := b.wait(ctx); err != nil {
			return common.Hash{}, err
		}
		if err := step(); err != nil {
			return common.Hash{}, err
		}
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      call.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(b.chainID), b.key.PrivateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("rpcbackend: sign: %w", err)
	}
	if err := b.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	if err := b.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	b.logger.Debug("transaction sent",
		slog.String("tx", signed.Hash().Hex()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas", gas))
	return signed.Hash(), nil
}

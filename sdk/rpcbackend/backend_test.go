package rpcbackend

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"tip20kit/crypto"
	"tip20kit/sdk/token"
)

// fakeEth serves the subset of the eth namespace the backend uses.
type fakeEth struct {
	mu       sync.Mutex
	head     uint64
	logs     []types.Log
	receipts map[common.Hash]*types.Receipt
	sent     []sendArgs
	raw      []*types.Transaction
	ranges   [][2]uint64
}

type filterArgs struct {
	FromBlock *hexutil.Big     `json:"fromBlock"`
	ToBlock   *hexutil.Big     `json:"toBlock"`
	Address   []common.Address `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
}

func newFakeEth() *fakeEth {
	return &fakeEth{receipts: make(map[common.Hash]*types.Receipt)}
}

func (f *fakeEth) ChainId() hexutil.Big { return hexutil.Big(*big.NewInt(4217)) }

func (f *fakeEth) BlockNumber() hexutil.Uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return hexutil.Uint64(f.head)
}

func (f *fakeEth) SendTransaction(args sendArgs) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, args)
	return common.BigToHash(big.NewInt(int64(len(f.sent)))), nil
}

func (f *fakeEth) SendRawTransaction(data hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return common.Hash{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = append(f.raw, tx)
	return tx.Hash(), nil
}

func (f *fakeEth) GetTransactionCount(common.Address, string) hexutil.Uint64 { return 7 }

func (f *fakeEth) MaxPriorityFeePerGas() *hexutil.Big { return (*hexutil.Big)(big.NewInt(2)) }

func (f *fakeEth) EstimateGas(map[string]interface{}, *string) hexutil.Uint64 { return 50_000 }

func (f *fakeEth) GetBlockByNumber(string, bool) *types.Header {
	return &types.Header{
		Number:     big.NewInt(10),
		Difficulty: big.NewInt(0),
		BaseFee:    big.NewInt(100),
	}
}

func (f *fakeEth) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts[hash]
}

func (f *fakeEth) GetLogs(args filterArgs) []types.Log {
	from, to := args.FromBlock.ToInt().Uint64(), args.ToBlock.ToInt().Uint64()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, [2]uint64{from, to})
	out := []types.Log{}
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	return out
}

func (f *fakeEth) mine(logs ...types.Log) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head++
	for _, log := range logs {
		log.BlockNumber = f.head
		f.logs = append(f.logs, log)
	}
}

func newBackend(t *testing.T, fake *fakeEth, cfg Config) *Backend {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", fake))
	t.Cleanup(srv.Stop)
	client := rpc.DialInProc(srv)
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	b, err := New(context.Background(), client, cfg)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func sampleReceipt(hash common.Hash) *types.Receipt {
	return &types.Receipt{
		Type:        types.DynamicFeeTxType,
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(3),
		Logs:        []*types.Log{},
	}
}

func TestNodeSigningSendsBatchAndFeeToken(t *testing.T) {
	fake := newFakeEth()
	b := newBackend(t, fake, Config{})

	from := common.HexToAddress("0xaaaa")
	fee := common.HexToAddress("0x20c0000000000000000000000000000000000001")
	token1 := common.HexToAddress("0x20c0000000000000000000000000000000000002")
	hash, err := b.SendCalls(context.Background(), token.TxRequest{
		From:     from,
		FeeToken: fee,
		Calls: []token.Call{
			{To: token1, Data: []byte{1, 2, 3, 4}},
			{To: token1, Data: []byte{5, 6, 7, 8}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, common.BigToHash(big.NewInt(1)), hash)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 1)
	sent := fake.sent[0]
	require.Equal(t, from, sent.From)
	require.NotNil(t, sent.FeeToken)
	require.Equal(t, fee, *sent.FeeToken)
	require.Len(t, sent.Calls, 2)
	require.Equal(t, hexutil.Bytes{5, 6, 7, 8}, sent.Calls[1].Data)
}

func TestNodeSigningOmitsDefaultFeeToken(t *testing.T) {
	fake := newFakeEth()
	b := newBackend(t, fake, Config{})
	_, err := b.SendCalls(context.Background(), token.TxRequest{
		From:  common.HexToAddress("0xaaaa"),
		Calls: []token.Call{{To: common.HexToAddress("0xbbbb"), Data: []byte{1}}},
	})
	require.NoError(t, err)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Nil(t, fake.sent[0].FeeToken)
}

func TestLocalSigning(t *testing.T) {
	fake := newFakeEth()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	b := newBackend(t, fake, Config{Key: key})
	signer, ok := b.Signer()
	require.True(t, ok)
	require.Equal(t, key.Address(), signer)

	to := common.HexToAddress("0x20c0000000000000000000000000000000000003")
	hash, err := b.SendCalls(context.Background(), token.TxRequest{
		From:  key.Address(),
		Calls: []token.Call{{To: to, Data: []byte{0xde, 0xad, 0xbe, 0xef}}},
	})
	require.NoError(t, err)

	fake.mu.Lock()
	require.Len(t, fake.raw, 1)
	tx := fake.raw[0]
	fake.mu.Unlock()
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, uint64(50_000), tx.Gas())
	require.Equal(t, int64(202), tx.GasFeeCap().Int64())
	require.Equal(t, int64(4217), tx.ChainId().Int64())

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	require.Equal(t, key.Address(), sender)

	_, err = b.SendCalls(context.Background(), token.TxRequest{
		From:  key.Address(),
		Calls: []token.Call{{To: to, Data: []byte{1}}, {To: to, Data: []byte{2}}},
	})
	require.ErrorIs(t, err, ErrBatchUnsupported)

	_, err = b.SendCalls(context.Background(), token.TxRequest{
		From:  common.HexToAddress("0x1234"),
		Calls: []token.Call{{To: to, Data: []byte{1}}},
	})
	require.Error(t, err)
}

func TestWaitForReceiptPolls(t *testing.T) {
	fake := newFakeEth()
	b := newBackend(t, fake, Config{})
	hash := common.HexToHash("0xfeed")

	go func() {
		time.Sleep(20 * time.Millisecond)
		fake.mu.Lock()
		fake.receipts[hash] = sampleReceipt(hash)
		fake.mu.Unlock()
	}()
	receipt, err := b.WaitForReceipt(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, hash, receipt.TxHash)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.WaitForReceipt(ctx, common.HexToHash("0xdead"))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPollingSubscriptionReplaysAndFollows(t *testing.T) {
	fake := newFakeEth()
	addr := common.HexToAddress("0x20c0000000000000000000000000000000000001")
	topic := common.HexToHash("0x01")
	mk := func(i byte) types.Log {
		return types.Log{Address: addr, Topics: []common.Hash{topic}, Data: []byte{i}, TxHash: common.BytesToHash([]byte{i})}
	}
	fake.mine(mk(1))
	fake.mine()
	b := newBackend(t, fake, Config{})

	ch := make(chan types.Log, 8)
	sub, err := b.SubscribeFilterLogs(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(1),
		Addresses: []common.Address{addr},
	}, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	fake.mine(mk(2))
	var got []byte
	for len(got) < 2 {
		select {
		case log := <-ch:
			got = append(got, log.Data[0])
		case err := <-sub.Err():
			t.Fatalf("subscription ended: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out with %v", got)
		}
	}
	require.Equal(t, []byte{1, 2}, got)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, r := range fake.ranges {
		require.LessOrEqual(t, r[0], r[1])
	}
}

func TestPollingSubscriptionWithoutFromBlockSkipsHistory(t *testing.T) {
	fake := newFakeEth()
	addr := common.HexToAddress("0x20c0000000000000000000000000000000000001")
	fake.mine(types.Log{Address: addr, Topics: []common.Hash{{}}, Data: []byte{9}})
	b := newBackend(t, fake, Config{})

	ch := make(chan types.Log, 8)
	sub, err := b.SubscribeFilterLogs(context.Background(), ethereum.FilterQuery{}, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	fake.mine(types.Log{Address: addr, Topics: []common.Hash{{}}, Data: []byte{10}})
	select {
	case log := <-ch:
		require.Equal(t, byte(10), log.Data[0])
	case <-time.After(2 * time.Second):
		t.Fatal("no log delivered")
	}
}

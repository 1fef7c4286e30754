package rpcbackend

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// pollLogs emulates a log subscription with eth_getLogs over successive
// block ranges. A nil FromBlock starts after the current head.
func (b *Backend) pollLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	var next uint64
	if q.FromBlock != nil {
		next = q.FromBlock.Uint64()
	} else {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
		head, err := b.eth.BlockNumber(ctx)
		if err != nil {
			return nil, err
		}
		next = head + 1
	}
	var stop uint64
	bounded := q.ToBlock != nil
	if bounded {
		stop = q.ToBlock.Uint64()
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(b.poll)
		defer ticker.Stop()
		for {
			if err := b.wait(ctx); err != nil {
				return err
			}
			head, err := b.eth.BlockNumber(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				b.logger.Debug("log poll failed", slog.Any("error", err))
				head = 0
			}
			if bounded && head > stop {
				head = stop
			}
			for next <= head {
				to := next + maxLogRange - 1
				if to > head {
					to = head
				}
				rq := q
				rq.BlockHash = nil
				rq.FromBlock = new(big.Int).SetUint64(next)
				rq.ToBlock = new(big.Int).SetUint64(to)
				if err := b.wait(ctx); err != nil {
					return err
				}
				logs, err := b.eth.FilterLogs(ctx, rq)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					b.logger.Debug("log range fetch failed",
						slog.Uint64("from", next), slog.Uint64("to", to), slog.Any("error", err))
					break
				}
				for _, log := range logs {
					if log.Removed {
						continue
					}
					select {
					case ch <- log:
					case <-quit:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				next = to + 1
			}
			if bounded && next > stop {
				return nil
			}
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}), nil
}

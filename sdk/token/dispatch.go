package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	tokerrors "tip20kit/core/errors"
	"tip20kit/core/events"
	"tip20kit/core/tip20"
	"tip20kit/observability"
)

// Request is one state-changing action. The parameter structs of this
// package are the only implementations.
type Request interface {
	action() string
	options() WriteOptions
	build(ctx context.Context, c *Client, account common.Address) (common.Address, []Call, error)
}

// Pending is a submitted, not yet confirmed action.
type Pending struct {
	Action string
	Hash   common.Hash
	From   common.Address
	// Target is the contract whose events characterise the action.
	Target common.Address

	calls     []Call
	submitted time.Time
}

// Submit resolves, encodes and sends req.
func (c *Client) Submit(ctx context.Context, req Request) (*Pending, error) {
	action := req.action()
	ctx, span := c.tracer.Start(ctx, "tip20.submit", trace.WithAttributes(attribute.String("tip20.action", action)))
	defer span.End()

	p, err := c.submit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var rerr *tokerrors.RevertError
		if errors.As(err, &rerr) {
			c.metrics.RecordAction(action, observability.OutcomeReverted)
			c.metrics.RecordRevert(action, rerr.Name)
		} else {
			c.metrics.RecordAction(action, observability.OutcomeError)
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("tip20.tx", p.Hash.Hex()))
	c.metrics.RecordAction(action, observability.OutcomeSubmitted)
	c.logger.Debug("token action submitted",
		slog.String("action", action),
		slog.String("tx", p.Hash.Hex()),
		slog.String("from", p.From.Hex()),
		slog.String("target", p.Target.Hex()))
	return p, nil
}

func (c *Client) submit(ctx context.Context, req Request) (*Pending, error) {
	action := req.action()
	opts := req.options()
	account, err := c.actingAccount(opts)
	if err != nil {
		return nil, err
	}
	target, calls, err := req.build(ctx, c, account)
	if err != nil {
		return nil, fmt.Errorf("token: %s: %w", action, err)
	}
	fee, err := c.feeTokenFor(ctx, account, opts.FeeToken)
	if err != nil {
		return nil, fmt.Errorf("token: %s: %w", action, err)
	}
	hash, err := c.backend.SendCalls(ctx, TxRequest{From: account, FeeToken: fee, Calls: calls})
	if err != nil {
		if data, ok := RevertData(err); ok {
			return nil, revertError(action, common.Hash{}, data)
		}
		return nil, fmt.Errorf("token: submit %s: %w", action, err)
	}
	return &Pending{
		Action:    action,
		Hash:      hash,
		From:      account,
		Target:    target,
		calls:     calls,
		submitted: time.Now(),
	}, nil
}

// Await waits for p to be included. A failed receipt yields a
// *errors.RevertError with the decoded reason when the call can be replayed.
// An expired wait yields ErrActionTimedOut; the action is never resubmitted.
func (c *Client) Await(ctx context.Context, p *Pending) (*types.Receipt, error) {
	if p == nil {
		return nil, fmt.Errorf("token: nil pending action")
	}
	ctx, span := c.tracer.Start(ctx, "tip20.await", trace.WithAttributes(
		attribute.String("tip20.action", p.Action),
		attribute.String("tip20.tx", p.Hash.Hex()),
	))
	defer span.End()

	receipt, err := c.await(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return receipt, err
}

func (c *Client) await(ctx context.Context, p *Pending) (*types.Receipt, error) {
	waitCtx := ctx
	if c.receiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.receiptTimeout)
		defer cancel()
	}
	receipt, err := c.backend.WaitForReceipt(waitCtx, p.Hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.metrics.RecordAction(p.Action, observability.OutcomeTimeout)
			c.metrics.RecordTimeout(p.Action)
			return nil, fmt.Errorf("%w: %s %s", tokerrors.ErrActionTimedOut, p.Action, p.Hash.Hex())
		}
		c.metrics.RecordAction(p.Action, observability.OutcomeError)
		return nil, fmt.Errorf("token: await %s: %w", p.Action, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		rerr := c.explainRevert(ctx, p, receipt)
		c.metrics.RecordAction(p.Action, observability.OutcomeReverted)
		c.metrics.RecordRevert(p.Action, rerr.Name)
		c.logger.Warn("token action reverted",
			slog.String("action", p.Action),
			slog.String("tx", p.Hash.Hex()),
			slog.String("reason", rerr.Name))
		return receipt, rerr
	}
	c.metrics.RecordAction(p.Action, observability.OutcomeConfirmed)
	if !p.submitted.IsZero() {
		c.metrics.ObserveConfirmation(p.Action, time.Since(p.submitted))
	}
	return receipt, nil
}

// explainRevert replays the calls at the inclusion block to recover revert
// data. The first call that reverts is assumed to have failed the batch.
// Each call is replayed alone against the pre-batch state, so a call that
// only fails because of an earlier call in the same batch (granting the
// admin role of a later role, say) can be reported with the wrong reason.
func (c *Client) explainRevert(ctx context.Context, p *Pending, receipt *types.Receipt) *tokerrors.RevertError {
	for _, call := range p.calls {
		to := call.To
		_, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: p.From, To: &to, Data: call.Data}, receipt.BlockNumber)
		if err == nil {
			continue
		}
		if data, ok := RevertData(err); ok {
			return revertError(p.Action, p.Hash, data)
		}
		return &tokerrors.RevertError{Action: p.Action, TxHash: p.Hash, Reason: err.Error()}
	}
	return &tokerrors.RevertError{Action: p.Action, TxHash: p.Hash}
}

var revertSentinels = map[string]error{
	tip20.ErrorUnauthorized:          tokerrors.ErrUnauthorized,
	tip20.ErrorInsufficientAllowance: tokerrors.ErrInsufficientAllowance,
	tip20.ErrorInsufficientBalance:   tokerrors.ErrInsufficientBalance,
	tip20.ErrorContractPaused:        tokerrors.ErrTokenPaused,
	tip20.ErrorNoPendingQuoteToken:   tokerrors.ErrNoPendingProposal,
	tip20.ErrorInvalidQuoteToken:     tokerrors.ErrInvalidQuoteToken,
	tip20.ErrorSupplyCapExceeded:     tokerrors.ErrSupplyCapExceeded,
	tip20.ErrorPolicyForbids:         tokerrors.ErrPolicyForbids,
}

func revertError(action string, hash common.Hash, data []byte) *tokerrors.RevertError {
	rerr := &tokerrors.RevertError{Action: action, TxHash: hash}
	if rev, ok := tip20.DecodeRevert(data); ok {
		rerr.Name = rev.Name
		rerr.Reason = rev.Reason
		rerr.Err = revertSentinels[rev.Name]
		// Only finalizing a migration can close a loop in the quote chain.
		if rev.Name == tip20.ErrorInvalidQuoteToken && action == "updateQuoteToken" {
			rerr.Err = tokerrors.ErrCircularQuoteToken
		}
	}
	return rerr
}

// confirm submits req, waits for it and decodes the first log from the
// action's target that decode accepts.
func confirm[E any](ctx context.Context, c *Client, req Request, decode func(types.Log) (E, error)) (E, *types.Receipt, error) {
	var zero E
	p, err := c.Submit(ctx, req)
	if err != nil {
		return zero, nil, err
	}
	receipt, err := c.Await(ctx, p)
	if err != nil {
		return zero, receipt, err
	}
	for _, log := range receipt.Logs {
		if log == nil || log.Address != p.Target {
			continue
		}
		ev, err := decode(*log)
		if errors.Is(err, events.ErrSignatureMismatch) {
			continue
		}
		if err != nil {
			return zero, receipt, fmt.Errorf("token: %s: %w", p.Action, err)
		}
		return ev, receipt, nil
	}
	return zero, receipt, fmt.Errorf("%w: %s %s", tokerrors.ErrEventNotFound, p.Action, p.Hash.Hex())
}

// confirmAll is confirm for actions emitting one event per call.
func confirmAll[E any](ctx context.Context, c *Client, req Request, decode func(types.Log) (E, error)) ([]E, *types.Receipt, error) {
	p, err := c.Submit(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := c.Await(ctx, p)
	if err != nil {
		return nil, receipt, err
	}
	var out []E
	for _, log := range receipt.Logs {
		if log == nil || log.Address != p.Target {
			continue
		}
		ev, err := decode(*log)
		if errors.Is(err, events.ErrSignatureMismatch) {
			continue
		}
		if err != nil {
			return nil, receipt, fmt.Errorf("token: %s: %w", p.Action, err)
		}
		out = append(out, ev)
	}
	if len(out) == 0 {
		return nil, receipt, fmt.Errorf("%w: %s %s", tokerrors.ErrEventNotFound, p.Action, p.Hash.Hex())
	}
	return out, receipt, nil
}

func pack(def abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := def.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	return data, nil
}

// callView performs a read against the latest block and unpacks the single
// return value.
func callView[T any](ctx context.Context, c *Client, def abi.ABI, to common.Address, method string, args ...interface{}) (T, error) {
	var zero T
	data, err := pack(def, method, args...)
	if err != nil {
		return zero, err
	}
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return zero, fmt.Errorf("token: call %s: %w", method, err)
	}
	values, err := def.Unpack(method, raw)
	if err != nil {
		return zero, fmt.Errorf("token: decode %s: %w", method, err)
	}
	if len(values) != 1 {
		return zero, fmt.Errorf("token: %s returned %d values", method, len(values))
	}
	v, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("token: %s returned %T", method, values[0])
	}
	return v, nil
}

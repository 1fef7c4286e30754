package events

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/types"
)

// ErrMalformedLog is returned when a log carries the expected signature but
// cannot be decoded into the event's fields.
var ErrMalformedLog = errors.New("events: malformed log")

// ErrSignatureMismatch is returned when a log belongs to another event.
var ErrSignatureMismatch = errors.New("events: signature mismatch")

// Event represents a decoded contract event.
type Event interface {
	EventType() string
	Attributes() map[string]string
}

// Render flattens a decoded event together with its log position.
func Render(e Event, log gethtypes.Log) *types.Event {
	return &types.Event{
		Type:        e.EventType(),
		Contract:    log.Address.Hex(),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    log.Index,
		Attributes:  e.Attributes(),
	}
}

// unpack decodes both the indexed topics and the data section of log into a
// field map keyed by argument name.
func unpack(def abi.ABI, name string, log gethtypes.Log) (map[string]interface{}, error) {
	ev, ok := def.Events[name]
	if !ok {
		return nil, fmt.Errorf("events: unknown event %s", name)
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return nil, ErrSignatureMismatch
	}
	out := make(map[string]interface{}, len(ev.Inputs))
	if len(ev.Inputs.NonIndexed()) > 0 {
		if err := def.UnpackIntoMap(out, name, log.Data); err != nil {
			return nil, fmt.Errorf("%w: %s data: %v", ErrMalformedLog, name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(out, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("%w: %s topics: %v", ErrMalformedLog, name, err)
	}
	return out, nil
}

// field extracts a typed value from an unpacked map.
func field[T any](fields map[string]interface{}, event, key string) (T, error) {
	var zero T
	raw, ok := fields[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s missing %s", ErrMalformedLog, event, key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s.%s has type %T", ErrMalformedLog, event, key, raw)
	}
	return v, nil
}

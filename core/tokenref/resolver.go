package tokenref

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	tiperrors "tip20kit/core/errors"
)

// Registry reports whether an address belongs to a registered token.
type Registry interface {
	IsRegistered(ctx context.Context, token common.Address) (bool, error)
}

// RegistryFunc adapts a function to the Registry interface.
type RegistryFunc func(ctx context.Context, token common.Address) (bool, error)

// IsRegistered delegates to the wrapped function.
func (f RegistryFunc) IsRegistered(ctx context.Context, token common.Address) (bool, error) {
	if f == nil {
		return true, nil
	}
	return f(ctx, token)
}

// Resolver turns references into canonical addresses. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	registry Registry
}

// NewResolver constructs a resolver. A nil registry disables the
// registration check for id references.
func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns the canonical address for ref. Address references pass
// through untouched; id references must be registered.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (common.Address, error) {
	switch ref.Kind() {
	case KindAddress:
		return ref.addr, nil
	case KindID:
	default:
		return common.Address{}, fmt.Errorf("%w: unset", tiperrors.ErrInvalidRef)
	}

	addr := AddressFromID(ref.id)
	if ref.id == RootID || r == nil || r.registry == nil {
		return addr, nil
	}
	ok, err := r.registry.IsRegistered(ctx, addr)
	if err != nil {
		return common.Address{}, fmt.Errorf("lookup token %d: %w", ref.id, err)
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: id %d", tiperrors.ErrTokenNotFound, ref.id)
	}
	return addr, nil
}

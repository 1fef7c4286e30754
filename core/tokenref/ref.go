package tokenref

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	tiperrors "tip20kit/core/errors"
)

// Kind distinguishes the two reference forms.
type Kind uint8

const (
	KindAddress Kind = iota + 1
	KindID
)

// RootID is the id of the root quote token every other token ultimately pegs against.
const RootID uint64 = 0

var (
	// tokenPrefix is the fixed leading bytes of every id-derived token address.
	tokenPrefix = [2]byte{0x20, 0xc0}

	// FactoryAddress is the token factory precompile.
	FactoryAddress = common.HexToAddress("0x20fc000000000000000000000000000000000000")

	// RootQuoteToken references the root quote token.
	RootQuoteToken = FromID(RootID)
)

// Ref is a token reference: either a contract address or a numeric id.
type Ref struct {
	kind Kind
	addr common.Address
	id   uint64
}

// FromAddress builds an address reference.
func FromAddress(addr common.Address) Ref {
	return Ref{kind: KindAddress, addr: addr}
}

// FromID builds an id reference.
func FromID(id uint64) Ref {
	return Ref{kind: KindID, id: id}
}

// Kind returns the reference form. The zero Ref has kind 0.
func (r Ref) Kind() Kind { return r.kind }

// IsZero reports whether the reference was never set.
func (r Ref) IsZero() bool { return r.kind == 0 }

// Address computes the canonical address without consulting any registry.
func (r Ref) Address() common.Address {
	switch r.kind {
	case KindAddress:
		return r.addr
	case KindID:
		return AddressFromID(r.id)
	default:
		return common.Address{}
	}
}

// ID returns the numeric id when the reference is an id, or an address in the
// id-derived range.
func (r Ref) ID() (uint64, bool) {
	switch r.kind {
	case KindID:
		return r.id, true
	case KindAddress:
		return IDFromAddress(r.addr)
	default:
		return 0, false
	}
}

func (r Ref) String() string {
	switch r.kind {
	case KindAddress:
		return r.addr.Hex()
	case KindID:
		return strconv.FormatUint(r.id, 10)
	default:
		return "<unset>"
	}
}

// AddressFromID derives the deterministic token address for id.
func AddressFromID(id uint64) common.Address {
	var addr common.Address
	copy(addr[:2], tokenPrefix[:])
	binary.BigEndian.PutUint64(addr[12:], id)
	return addr
}

// IDFromAddress recovers the id from an id-derived address.
func IDFromAddress(addr common.Address) (uint64, bool) {
	if addr[0] != tokenPrefix[0] || addr[1] != tokenPrefix[1] {
		return 0, false
	}
	for _, b := range addr[2:12] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(addr[12:]), true
}

// Parse accepts a 0x-prefixed hex address or a decimal id.
func Parse(value string) (Ref, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Ref{}, fmt.Errorf("%w: empty", tiperrors.ErrInvalidRef)
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		if !common.IsHexAddress(trimmed) {
			return Ref{}, fmt.Errorf("%w: %q is not a hex address", tiperrors.ErrInvalidRef, trimmed)
		}
		return FromAddress(common.HexToAddress(trimmed)), nil
	}
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", tiperrors.ErrInvalidRef, trimmed, err)
	}
	return FromID(id), nil
}

// Package roles maps token roles to their on-chain identifiers.
//
// The enumeration is closed but not exhaustive: identifiers minted by a newer
// contract decode to an Other role that serializes back to the same bytes.
package roles

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role is a token role. Known roles compare equal to the package-level
// values; unknown identifiers are carried verbatim.
type Role struct {
	name string
	id   common.Hash
}

var (
	// DefaultAdmin administers every role by default, including itself.
	DefaultAdmin = Role{name: "defaultAdmin"}
	Issuer       = Role{name: "issuer", id: crypto.Keccak256Hash([]byte("ISSUER_ROLE"))}
	Pause        = Role{name: "pause", id: crypto.Keccak256Hash([]byte("PAUSE_ROLE"))}
	Unpause      = Role{name: "unpause", id: crypto.Keccak256Hash([]byte("UNPAUSE_ROLE"))}
	BurnBlocked  = Role{name: "burnBlocked", id: crypto.Keccak256Hash([]byte("BURN_BLOCKED_ROLE"))}
)

var known = []Role{DefaultAdmin, Issuer, Pause, Unpause, BurnBlocked}

var (
	byID   = make(map[common.Hash]Role, len(known))
	byName = make(map[string]Role, len(known))
)

func init() {
	for _, r := range known {
		byID[r.id] = r
		byName[strings.ToLower(r.name)] = r
	}
}

// Known returns the closed enumeration in declaration order.
func Known() []Role {
	out := make([]Role, len(known))
	copy(out, known)
	return out
}

// Other wraps a raw identifier. Identifiers of known roles collapse to the
// known value.
func Other(id common.Hash) Role {
	if r, ok := byID[id]; ok {
		return r
	}
	return Role{id: id}
}

// Serialize returns the on-chain identifier of r.
func Serialize(r Role) common.Hash { return r.id }

// Deserialize maps an on-chain identifier to a role. It never fails.
func Deserialize(id common.Hash) Role { return Other(id) }

// ID is shorthand for Serialize.
func (r Role) ID() common.Hash { return r.id }

// Name returns the enumeration name, or "" for Other roles.
func (r Role) Name() string { return r.name }

// IsKnown reports whether r belongs to the enumeration.
func (r Role) IsKnown() bool { return r.name != "" }

func (r Role) String() string {
	if r.name != "" {
		return r.name
	}
	return r.id.Hex()
}

// MarshalText renders known roles by name and others by hex id.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText accepts anything Parse does.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Parse accepts a role name (case-insensitive) or a 0x-prefixed 32-byte id.
func Parse(value string) (Role, error) {
	trimmed := strings.TrimSpace(value)
	if r, ok := byName[strings.ToLower(trimmed)]; ok {
		return r, nil
	}
	if strings.HasPrefix(trimmed, "0x") && len(trimmed) == 2+2*common.HashLength {
		raw := common.FromHex(trimmed)
		if len(raw) == common.HashLength {
			return Other(common.BytesToHash(raw)), nil
		}
	}
	return Role{}, fmt.Errorf("roles: unknown role %q", value)
}

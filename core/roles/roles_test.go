package roles

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestKnownRolesRoundTrip(t *testing.T) {
	for _, r := range Known() {
		require.Equal(t, r, Deserialize(Serialize(r)), r.String())
		require.True(t, r.IsKnown())
	}
}

func TestUnknownIDsRoundTrip(t *testing.T) {
	raws := []common.Hash{
		crypto.Keccak256Hash([]byte("MINTER_ROLE")),
		common.HexToHash("0x01"),
		common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"),
	}
	for _, raw := range raws {
		r := Deserialize(raw)
		require.False(t, r.IsKnown())
		require.Equal(t, raw, Serialize(r))
		require.Equal(t, raw.Hex(), r.String())
	}
}

func TestDefaultAdminIsZero(t *testing.T) {
	require.Equal(t, common.Hash{}, Serialize(DefaultAdmin))
	require.Equal(t, DefaultAdmin, Deserialize(common.Hash{}))
}

func TestOtherCollapsesKnownIDs(t *testing.T) {
	require.Equal(t, Issuer, Other(crypto.Keccak256Hash([]byte("ISSUER_ROLE"))))
}

func TestParse(t *testing.T) {
	r, err := Parse("ISSUER")
	require.NoError(t, err)
	require.Equal(t, Issuer, r)

	r, err = Parse("burnblocked")
	require.NoError(t, err)
	require.Equal(t, BurnBlocked, r)

	raw := crypto.Keccak256Hash([]byte("FUTURE_ROLE"))
	r, err = Parse(raw.Hex())
	require.NoError(t, err)
	require.Equal(t, raw, r.ID())

	_, err = Parse("superuser")
	require.Error(t, err)
}

func TestTextRoundTrip(t *testing.T) {
	for _, r := range append(Known(), Other(common.HexToHash("0xbeef"))) {
		text, err := r.MarshalText()
		require.NoError(t, err)
		var got Role
		require.NoError(t, got.UnmarshalText(text))
		require.Equal(t, r, got)
	}
}

package keys

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/shadeledger/shade-go-base/jubjub"
)

func TestSpendingKeyDerivation(t *testing.T) {
	t.Run("deterministic from seed", func(t *testing.T) {
		var seed [SeedSize]byte
		copy(seed[:], hexutil.MustDecode("0x8d4e30335edd21332b7a052b2e08f88c04ba4d94c42e0e13e8a2bd4bcb54b1e9"))

		k1 := SpendingKeyFromSeed(seed)
		k2 := SpendingKeyFromSeed(seed)
		require.Zero(t, k1.SpendAuthorizingKey().Cmp(k2.SpendAuthorizingKey()))
		require.Zero(t, k1.ProofAuthorizingKey().Cmp(k2.ProofAuthorizingKey()))
		require.Equal(t, k1.OutgoingViewKey(), k2.OutgoingViewKey())
		require.Equal(t, k1.PublicAddress(), k2.PublicAddress())
	})

	t.Run("distinct seeds give distinct keys", func(t *testing.T) {
		k1, err := NewSpendingKey(rand.Reader)
		require.NoError(t, err)
		k2, err := NewSpendingKey(rand.Reader)
		require.NoError(t, err)
		require.NotEqual(t, k1.PublicAddress(), k2.PublicAddress())
		require.NotZero(t, k1.SpendAuthorizingKey().Cmp(k2.SpendAuthorizingKey()))
	})

	t.Run("authorizing scalars differ", func(t *testing.T) {
		k, err := NewSpendingKey(rand.Reader)
		require.NoError(t, err)
		require.NotZero(t, k.SpendAuthorizingKey().Cmp(k.ProofAuthorizingKey()))
	})

	t.Run("short seed reader fails", func(t *testing.T) {
		_, err := NewSpendingKey(bytes.NewReader([]byte{1, 2, 3}))
		require.Error(t, err)
	})
}

func TestViewKey(t *testing.T) {
	k, err := NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	view := k.ViewKey()

	t.Run("authorizing key matches spend scalar", func(t *testing.T) {
		base := jubjub.SpendAuthBase()
		ak := jubjub.Mul(&base, k.SpendAuthorizingKey())
		require.True(t, view.AuthorizingKey.Equal(&ak))
	})

	t.Run("address agrees across derivation paths", func(t *testing.T) {
		require.Equal(t, k.PublicAddress(), view.PublicAddress())
		require.Equal(t, k.PublicAddress(), k.IncomingViewKey().PublicAddress())
	})

	t.Run("incoming view key scalar maps to address", func(t *testing.T) {
		ivk := view.IncomingViewKey()
		base := jubjub.DiffieHellmanBase()
		p := jubjub.Mul(&base, ivk.Scalar())
		require.Equal(t, PublicAddress(jubjub.EncodePoint(&p)), k.PublicAddress())
	})
}

func TestPublicAddress(t *testing.T) {
	k, err := NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	addr := k.PublicAddress()

	t.Run("decodes to a curve point", func(t *testing.T) {
		_, err := addr.Point()
		require.NoError(t, err)
	})

	t.Run("round trips through bytes", func(t *testing.T) {
		parsed, err := AddressFromBytes(addr.Bytes())
		require.NoError(t, err)
		require.Equal(t, addr, parsed)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := AddressFromBytes(addr.Bytes()[:30])
		require.ErrorIs(t, err, ErrInvalidAddress)
	})
}

package jubjub

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointEncoding(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		p := SpendAuthBase()
		enc := EncodePoint(&p)
		dec, err := DecodePoint(enc[:])
		require.NoError(t, err)
		require.True(t, dec.Equal(&p))
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := DecodePoint(make([]byte, 31))
		require.ErrorIs(t, err, ErrInvalidPoint)
		_, err = DecodePoint(nil)
		require.ErrorIs(t, err, ErrInvalidPoint)
	})
}

func TestIdentity(t *testing.T) {
	base := SpendAuthBase()
	require.False(t, IsIdentity(&base))

	// multiplying a subgroup point by the group order gives the identity
	id := Mul(&base, Order())
	require.True(t, IsIdentity(&id))

	zero := Mul(&base, big.NewInt(0))
	require.True(t, IsIdentity(&zero))
}

func TestClearCofactor(t *testing.T) {
	p := NoteCommitmentBase()
	cleared := ClearCofactor(&p)
	// the cleared point must be in the prime order subgroup
	id := Mul(&cleared, Order())
	require.True(t, IsIdentity(&id))
}

func TestPointArithmetic(t *testing.T) {
	base := SpendAuthBase()
	two := Mul(&base, big.NewInt(2))
	sum := Add(&base, &base)
	require.True(t, sum.Equal(&two))

	neg := Neg(&base)
	back := Add(&base, &neg)
	require.True(t, IsIdentity(&back))
}

func TestGenerators(t *testing.T) {
	points := []Point{
		SpendAuthBase(),
		ProofAuthBase(),
		ValueRandomnessBase(),
		NoteCommitmentBase(),
		NoteRandomnessBase(),
		NullifierPositionBase(),
		DiffieHellmanBase(),
	}
	for i := range points {
		require.False(t, IsIdentity(&points[i]), "generator %d is the identity", i)
		id := Mul(&points[i], Order())
		require.True(t, IsIdentity(&id), "generator %d is not in the subgroup", i)
		for j := i + 1; j < len(points); j++ {
			require.False(t, points[i].Equal(&points[j]), "generators %d and %d coincide", i, j)
		}
	}
}

func TestHashToPoint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		p1, err := HashToPoint("test.h2p", []byte("data"))
		require.NoError(t, err)
		p2, err := HashToPoint("test.h2p", []byte("data"))
		require.NoError(t, err)
		require.True(t, p1.Equal(&p2))
	})

	t.Run("domain and data separation", func(t *testing.T) {
		p1, err := HashToPoint("test.h2p.a", []byte("data"))
		require.NoError(t, err)
		p2, err := HashToPoint("test.h2p.b", []byte("data"))
		require.NoError(t, err)
		require.False(t, p1.Equal(&p2))

		p3, err := HashToPoint("test.h2p.a", []byte("other"))
		require.NoError(t, err)
		require.False(t, p1.Equal(&p3))
	})

	t.Run("lands in subgroup", func(t *testing.T) {
		for _, domain := range []string{"test.a", "test.b", "test.c", "test.d"} {
			p, err := HashToPoint(domain)
			require.NoError(t, err)
			id := Mul(&p, Order())
			require.True(t, IsIdentity(&id))
		}
	})
}

func TestScalarEncoding(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		k, err := RandomScalar(rand.Reader)
		require.NoError(t, err)
		enc := ScalarToBytes(k)
		dec, err := ScalarFromBytes(enc[:])
		require.NoError(t, err)
		require.Zero(t, k.Cmp(dec))
	})

	t.Run("rejects non canonical", func(t *testing.T) {
		enc := ScalarToBytes(Order())
		_, err := ScalarFromBytes(enc[:])
		require.ErrorIs(t, err, ErrInvalidScalar)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ScalarFromBytes([]byte{1, 2, 3})
		require.ErrorIs(t, err, ErrInvalidScalar)
	})
}

func TestScalarArithmetic(t *testing.T) {
	a, err := RandomScalar(rand.Reader)
	require.NoError(t, err)
	b, err := RandomScalar(rand.Reader)
	require.NoError(t, err)

	// a+b-b == a
	sum := ScalarAdd(a, b)
	diff := ScalarSub(sum, b)
	require.Zero(t, a.Cmp(diff))

	// a·a⁻¹ == 1
	inv, err := ScalarInverse(a)
	require.NoError(t, err)
	one := ScalarMul(a, inv)
	require.Zero(t, one.Cmp(big.NewInt(1)))

	// zero is not invertible
	_, err = ScalarInverse(big.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidScalar)
}

func TestRandomScalar(t *testing.T) {
	t.Run("in range", func(t *testing.T) {
		for i := 0; i < 16; i++ {
			k, err := RandomScalar(rand.Reader)
			require.NoError(t, err)
			require.Negative(t, k.Cmp(Order()))
			require.GreaterOrEqual(t, k.Sign(), 0)
		}
	})

	t.Run("deterministic for fixed reader", func(t *testing.T) {
		seed := bytes.Repeat([]byte{0x5a}, 64)
		k1, err := RandomScalar(bytes.NewReader(seed))
		require.NoError(t, err)
		k2, err := RandomScalar(bytes.NewReader(seed))
		require.NoError(t, err)
		require.Zero(t, k1.Cmp(k2))
	})

	t.Run("short reader fails", func(t *testing.T) {
		_, err := RandomScalar(bytes.NewReader([]byte{1, 2, 3}))
		require.Error(t, err)
	})
}

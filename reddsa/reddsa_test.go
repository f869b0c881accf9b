package reddsa

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadeledger/shade-go-base/jubjub"
)

func newKey(t *testing.T) *big.Int {
	t.Helper()
	sk, err := jubjub.RandomScalar(rand.Reader)
	require.NoError(t, err)
	return sk
}

func TestSignVerify(t *testing.T) {
	msg := []byte("a message to authorize")

	for name, scheme := range map[string]*Scheme{"spend auth": SpendAuth(), "binding": Binding()} {
		t.Run(name, func(t *testing.T) {
			sk := newKey(t)
			vk := scheme.VerificationKey(sk)

			sig, err := scheme.Sign(rand.Reader, sk, msg)
			require.NoError(t, err)
			require.NoError(t, scheme.Verify(vk[:], msg, sig))
		})
	}
}

func TestVerifyRejections(t *testing.T) {
	scheme := SpendAuth()
	sk := newKey(t)
	vk := scheme.VerificationKey(sk)
	msg := []byte("a message to authorize")

	sig, err := scheme.Sign(rand.Reader, sk, msg)
	require.NoError(t, err)

	t.Run("wrong message", func(t *testing.T) {
		err := scheme.Verify(vk[:], []byte("another message"), sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := scheme.VerificationKey(newKey(t))
		err := scheme.Verify(other[:], msg, sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("flipped bit in nonce commitment", func(t *testing.T) {
		bad := sig
		bad[3] ^= 0x01
		err := scheme.Verify(vk[:], msg, bad)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("flipped bit in response", func(t *testing.T) {
		bad := sig
		bad[40] ^= 0x80
		err := scheme.Verify(vk[:], msg, bad)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("non canonical response scalar", func(t *testing.T) {
		bad := sig
		order := jubjub.ScalarToBytes(jubjub.Order())
		copy(bad[32:], order[:])
		err := scheme.Verify(vk[:], msg, bad)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("cross scheme", func(t *testing.T) {
		// a spend auth signature must not verify under the binding scheme
		bindingVK := Binding().VerificationKey(sk)
		err := Binding().Verify(bindingVK[:], msg, sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestRandomization(t *testing.T) {
	scheme := SpendAuth()
	sk := newKey(t)
	alpha := newKey(t)
	msg := []byte("randomized signing")

	rsk := RandomizeSecret(sk, alpha)
	sig, err := scheme.Sign(rand.Reader, rsk, msg)
	require.NoError(t, err)

	vkBytes := scheme.VerificationKey(sk)
	vkPoint, err := jubjub.DecodePoint(vkBytes[:])
	require.NoError(t, err)
	rvk := scheme.RandomizePublic(&vkPoint, alpha)
	rvkBytes := jubjub.EncodePoint(&rvk)

	require.NoError(t, scheme.Verify(rvkBytes[:], msg, sig))

	// the original key must not accept the randomized signature
	err = scheme.Verify(vkBytes[:], msg, sig)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerificationKeyDeterminism(t *testing.T) {
	sk := newKey(t)
	vk1 := SpendAuth().VerificationKey(sk)
	vk2 := SpendAuth().VerificationKey(sk)
	require.Equal(t, vk1, vk2)
	require.NotEqual(t, vk1, Binding().VerificationKey(sk))
}

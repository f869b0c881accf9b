package frost

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/reddsa"
)

func testSeed(t *testing.T) [32]byte {
	t.Helper()
	var seed [32]byte
	_, err := rand.Read(seed[:])
	require.NoError(t, err)
	return seed
}

// runRounds drives both signing rounds for the given participants and
// returns the commitment set and the shares.
func runRounds(t *testing.T, packages []*KeyPackage, msg []byte, randomizer *big.Int) ([]SigningCommitment, []SignatureShare) {
	t.Helper()
	nonces := make([]*Nonces, len(packages))
	commitments := make([]SigningCommitment, len(packages))
	for i, kp := range packages {
		n, c, err := RoundOne(kp, testSeed(t))
		require.NoError(t, err)
		nonces[i] = n
		commitments[i] = c
	}
	shares := make([]SignatureShare, len(packages))
	for i, kp := range packages {
		share, err := CreateSignatureShare(kp, nonces[i], commitments, msg, randomizer)
		require.NoError(t, err)
		shares[i] = share
	}
	return commitments, shares
}

func TestRoundOne(t *testing.T) {
	packages, _, err := SplitKey(rand.Reader, newSecret(t), 2, newTestIdentities(t, 2))
	require.NoError(t, err)
	kp := packages[0]

	t.Run("deterministic in the seed", func(t *testing.T) {
		seed := testSeed(t)
		_, c1, err := RoundOne(kp, seed)
		require.NoError(t, err)
		_, c2, err := RoundOne(kp, seed)
		require.NoError(t, err)
		require.Equal(t, c1, c2)

		_, c3, err := RoundOne(kp, testSeed(t))
		require.NoError(t, err)
		require.NotEqual(t, c1, c3)
	})

	t.Run("commitment matches the nonces", func(t *testing.T) {
		n, c, err := RoundOne(kp, testSeed(t))
		require.NoError(t, err)
		require.Equal(t, c, n.Commitment())
		require.Equal(t, kp.Identity(), c.Identity)
	})

	t.Run("missing key package", func(t *testing.T) {
		_, _, err := RoundOne(nil, testSeed(t))
		require.ErrorIs(t, err, ErrInvalidKeyPackage)
	})
}

func TestSigningRoundTrip(t *testing.T) {
	secret := newSecret(t)
	ids := newTestIdentities(t, 3)
	packages, pub, err := SplitKey(rand.Reader, secret, 2, ids)
	require.NoError(t, err)

	msg := []byte("spend authorization message")
	randomizer, err := jubjub.RandomScalar(rand.Reader)
	require.NoError(t, err)

	groupKey := pub.GroupPublicKey()
	groupPoint, err := jubjub.DecodePoint(groupKey[:])
	require.NoError(t, err)
	randomized := reddsa.SpendAuth().RandomizePublic(&groupPoint, randomizer)
	rvk := jubjub.EncodePoint(&randomized)

	commitments, shares := runRounds(t, packages[:2], msg, randomizer)
	for _, share := range shares {
		require.NoError(t, VerifySignatureShare(pub, share, commitments, msg, randomizer))
	}

	sig, err := Aggregate(pub, commitments, shares, msg, randomizer)
	require.NoError(t, err)
	require.NoError(t, reddsa.SpendAuth().Verify(rvk[:], msg, sig))

	t.Run("indistinguishable from a single signer", func(t *testing.T) {
		rsk := reddsa.RandomizeSecret(secret, randomizer)
		single, err := reddsa.SpendAuth().Sign(rand.Reader, rsk, msg)
		require.NoError(t, err)
		require.NoError(t, reddsa.SpendAuth().Verify(rvk[:], msg, single))
	})

	t.Run("share order does not matter", func(t *testing.T) {
		sig2, err := Aggregate(pub, commitments, []SignatureShare{shares[1], shares[0]}, msg, randomizer)
		require.NoError(t, err)
		require.NoError(t, reddsa.SpendAuth().Verify(rvk[:], msg, sig2))
	})

	t.Run("different quorum signs the same message", func(t *testing.T) {
		commitments, shares := runRounds(t, packages[1:], msg, randomizer)
		sig, err := Aggregate(pub, commitments, shares, msg, randomizer)
		require.NoError(t, err)
		require.NoError(t, reddsa.SpendAuth().Verify(rvk[:], msg, sig))
	})
}

func TestCreateSignatureShare_Validation(t *testing.T) {
	packages, _, err := SplitKey(rand.Reader, newSecret(t), 2, newTestIdentities(t, 3))
	require.NoError(t, err)
	msg := []byte("spend authorization message")
	randomizer, err := jubjub.RandomScalar(rand.Reader)
	require.NoError(t, err)

	roundOne := func(t *testing.T, kp *KeyPackage) (*Nonces, SigningCommitment) {
		n, c, err := RoundOne(kp, testSeed(t))
		require.NoError(t, err)
		return n, c
	}

	n0, c0 := roundOne(t, packages[0])
	_, c1 := roundOne(t, packages[1])

	t.Run("too few commitments", func(t *testing.T) {
		_, err := CreateSignatureShare(packages[0], n0, []SigningCommitment{c0}, msg, randomizer)
		require.ErrorIs(t, err, ErrInsufficientSigners)
	})

	t.Run("own commitment missing", func(t *testing.T) {
		_, c2 := roundOne(t, packages[2])
		_, err := CreateSignatureShare(packages[0], n0, []SigningCommitment{c1, c2}, msg, randomizer)
		require.ErrorIs(t, err, ErrUnknownSigner)
	})

	t.Run("own commitment substituted", func(t *testing.T) {
		_, forged := roundOne(t, packages[0])
		require.NotEqual(t, c0, forged)
		_, err := CreateSignatureShare(packages[0], n0, []SigningCommitment{forged, c1}, msg, randomizer)
		require.Error(t, err)
	})

	t.Run("nonces from another participant", func(t *testing.T) {
		n1, _ := roundOne(t, packages[1])
		_, err := CreateSignatureShare(packages[0], n1, []SigningCommitment{c0, c1}, msg, randomizer)
		require.Error(t, err)
	})

	t.Run("duplicate commitment", func(t *testing.T) {
		_, err := CreateSignatureShare(packages[0], n0, []SigningCommitment{c0, c0}, msg, randomizer)
		require.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("missing randomizer", func(t *testing.T) {
		_, err := CreateSignatureShare(packages[0], n0, []SigningCommitment{c0, c1}, msg, nil)
		require.Error(t, err)
	})
}

func TestVerifySignatureShare_Rejections(t *testing.T) {
	packages, pub, err := SplitKey(rand.Reader, newSecret(t), 2, newTestIdentities(t, 3))
	require.NoError(t, err)
	msg := []byte("spend authorization message")
	randomizer, err := jubjub.RandomScalar(rand.Reader)
	require.NoError(t, err)

	commitments, shares := runRounds(t, packages[:2], msg, randomizer)

	t.Run("tampered share names the signer", func(t *testing.T) {
		bad := shares[0]
		bad.Share[31] ^= 0x01
		err := VerifySignatureShare(pub, bad, commitments, msg, randomizer)
		require.ErrorIs(t, err, ErrInvalidSignatureShare)
		require.Contains(t, err.Error(), bad.Identity.String())
	})

	t.Run("share for a different message", func(t *testing.T) {
		err := VerifySignatureShare(pub, shares[0], commitments, []byte("another message"), randomizer)
		require.ErrorIs(t, err, ErrInvalidSignatureShare)
	})

	t.Run("share for a different randomizer", func(t *testing.T) {
		other, err := jubjub.RandomScalar(rand.Reader)
		require.NoError(t, err)
		verr := VerifySignatureShare(pub, shares[0], commitments, msg, other)
		require.ErrorIs(t, verr, ErrInvalidSignatureShare)
	})

	t.Run("signer outside the commitment set", func(t *testing.T) {
		stranger := SignatureShare{Identity: packages[2].Identity(), Share: shares[0].Share}
		err := VerifySignatureShare(pub, stranger, commitments, msg, randomizer)
		require.ErrorIs(t, err, ErrUnknownSigner)
	})
}

func TestAggregate_Rejections(t *testing.T) {
	packages, pub, err := SplitKey(rand.Reader, newSecret(t), 2, newTestIdentities(t, 3))
	require.NoError(t, err)
	msg := []byte("spend authorization message")
	randomizer, err := jubjub.RandomScalar(rand.Reader)
	require.NoError(t, err)

	commitments, shares := runRounds(t, packages[:2], msg, randomizer)

	t.Run("missing share", func(t *testing.T) {
		_, err := Aggregate(pub, commitments, shares[:1], msg, randomizer)
		require.ErrorIs(t, err, ErrInsufficientSigners)
	})

	t.Run("duplicate share", func(t *testing.T) {
		_, err := Aggregate(pub, commitments, []SignatureShare{shares[0], shares[0]}, msg, randomizer)
		require.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("share from an uncommitted signer", func(t *testing.T) {
		stranger := SignatureShare{Identity: packages[2].Identity(), Share: shares[0].Share}
		_, err := Aggregate(pub, commitments, []SignatureShare{shares[0], stranger}, msg, randomizer)
		require.ErrorIs(t, err, ErrUnknownSigner)
	})

	t.Run("tampered share is attributed", func(t *testing.T) {
		bad := shares[1]
		bad.Share[31] ^= 0x01
		_, err := Aggregate(pub, commitments, []SignatureShare{shares[0], bad}, msg, randomizer)
		require.ErrorIs(t, err, ErrInvalidSignatureShare)
		require.Contains(t, err.Error(), bad.Identity.String())
	})
}

func TestSigningCommitment_SerializeRoundTrip(t *testing.T) {
	packages, _, err := SplitKey(rand.Reader, newSecret(t), 2, newTestIdentities(t, 2))
	require.NoError(t, err)
	_, commitment, err := RoundOne(packages[0], testSeed(t))
	require.NoError(t, err)

	data, err := commitment.Serialize()
	require.NoError(t, err)
	parsed, err := DeserializeSigningCommitment(data)
	require.NoError(t, err)
	require.Equal(t, commitment, parsed)

	t.Run("garbage", func(t *testing.T) {
		_, err := DeserializeSigningCommitment([]byte("not cbor"))
		require.Error(t, err)
	})
}

func TestCommitmentSet_SerializeRoundTrip(t *testing.T) {
	packages, _, err := SplitKey(rand.Reader, newSecret(t), 2, newTestIdentities(t, 3))
	require.NoError(t, err)
	commitments := make([]SigningCommitment, len(packages))
	for i, kp := range packages {
		_, c, err := RoundOne(kp, testSeed(t))
		require.NoError(t, err)
		commitments[i] = c
	}

	data, err := SerializeCommitments(commitments)
	require.NoError(t, err)
	parsed, err := DeserializeCommitments(data)
	require.NoError(t, err)
	require.Equal(t, commitments, parsed)

	t.Run("garbage", func(t *testing.T) {
		_, err := DeserializeCommitments([]byte("not cbor"))
		require.Error(t, err)
	})

	t.Run("rejects an invalid entry", func(t *testing.T) {
		bad := commitments[0]
		bad.Hiding = [32]byte{0xff, 0xff, 0xff, 0xff}
		data, err := SerializeCommitments([]SigningCommitment{bad})
		require.NoError(t, err)
		_, err = DeserializeCommitments(data)
		require.Error(t, err)
	})
}

func TestSignatureShare_SerializeRoundTrip(t *testing.T) {
	packages, _, err := SplitKey(rand.Reader, newSecret(t), 2, newTestIdentities(t, 2))
	require.NoError(t, err)
	msg := []byte("spend authorization message")
	randomizer, err := jubjub.RandomScalar(rand.Reader)
	require.NoError(t, err)
	_, shares := runRounds(t, packages, msg, randomizer)

	data, err := shares[0].Serialize()
	require.NoError(t, err)
	parsed, err := DeserializeSignatureShare(data)
	require.NoError(t, err)
	require.Equal(t, shares[0], parsed)

	t.Run("garbage", func(t *testing.T) {
		_, err := DeserializeSignatureShare([]byte("not cbor"))
		require.ErrorIs(t, err, ErrInvalidSignatureShare)
	})
}

package transaction

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadeledger/shade-go-base/frost"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/testutils"
	"github.com/shadeledger/shade-go-base/testutils/fakeoracle"
)

func newIdentities(t *testing.T, n int) []frost.Identity {
	t.Helper()
	ids := make([]frost.Identity, n)
	for i := range ids {
		id, err := frost.NewIdentity(rand.Reader)
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func seed32(t *testing.T) [32]byte {
	t.Helper()
	var s [32]byte
	copy(s[:], testutils.RandomBytes(t, len(s)))
	return s
}

func buildUnsignedForSigning(t *testing.T, oracle *fakeoracle.Oracle, key *keys.SpendingKey) *UnsignedTransaction {
	t.Helper()
	receiver := testutils.NewSpendingKey(t)
	p := proposeTransfer(t, oracle, key, receiver)
	unsigned, err := p.Build(key.ViewKey(), key.OutgoingViewKey(), key.PublicAddress(), 1)
	require.NoError(t, err)
	return unsigned
}

func splitSpendingKey(t *testing.T, key *keys.SpendingKey, n int) ([]frost.Identity, map[frost.Identity]*frost.KeyPackage, *frost.PublicKeyPackage) {
	t.Helper()
	ids := newIdentities(t, n)
	kps, pub, err := frost.SplitKey(rand.Reader, key.SpendAuthorizingKey(), 2, ids)
	require.NoError(t, err)
	packages := make(map[frost.Identity]*frost.KeyPackage, len(kps))
	for _, kp := range kps {
		packages[kp.Identity()] = kp
	}
	return ids, packages, pub
}

// runSigningCeremony drives a full session: round one collects commitments,
// the coordinator bundles them with the unsigned transaction into a
// SigningPackage, and round two produces the shares that aggregate into the
// finished transaction.
func runSigningCeremony(t *testing.T, pub *frost.PublicKeyPackage, signers []frost.Identity, packages map[frost.Identity]*frost.KeyPackage, unsigned *UnsignedTransaction) *Transaction {
	t.Helper()
	ceremony, err := frost.NewCeremony(len(signers))
	require.NoError(t, err)

	nonces := make(map[frost.Identity]*frost.Nonces, len(signers))
	for _, id := range signers {
		n, commitment, err := frost.RoundOne(packages[id], seed32(t))
		require.NoError(t, err)
		nonces[id] = n
		require.NoError(t, ceremony.AddCommitment(commitment))
	}
	commitments, err := ceremony.WaitCommitments(context.Background())
	require.NoError(t, err)

	sp, err := NewSigningPackage(commitments, signers, unsigned)
	require.NoError(t, err)

	for _, id := range signers {
		share, err := sp.CreateSignatureShare(packages[id], nonces[id])
		require.NoError(t, err)
		require.NoError(t, sp.VerifySignatureShare(pub, share))
		require.NoError(t, ceremony.AddShare(share))
	}
	shares, err := ceremony.WaitShares(context.Background())
	require.NoError(t, err)

	tx, err := sp.AggregateSignatureShares(pub, shares)
	require.NoError(t, err)
	return tx
}

func TestThresholdSigning(t *testing.T) {
	oracle := fakeoracle.New(1)
	key := testutils.NewSpendingKey(t)
	ids, packages, pub := splitSpendingKey(t, key, 3)

	// The group key must be the spend authorization key the proofs commit to.
	require.Equal(t, jubjub.EncodePoint(&key.ViewKey().AuthorizingKey), pub.GroupPublicKey())

	unsigned := buildUnsignedForSigning(t, oracle, key)
	tx := runSigningCeremony(t, pub, ids[:2], packages, unsigned)
	require.NoError(t, VerifyTransactionWithOracle(oracle, tx))
	require.Equal(t, unsigned.RandomizedPublicKey(), tx.RandomizedPublicKey())

	t.Run("any quorum signs", func(t *testing.T) {
		other := buildUnsignedForSigning(t, oracle, key)
		tx2 := runSigningCeremony(t, pub, ids[1:], packages, other)
		require.NoError(t, VerifyTransactionWithOracle(oracle, tx2))
	})
}

func TestSigningPackage_SerializeRoundTrip(t *testing.T) {
	oracle := fakeoracle.New(1)
	key := testutils.NewSpendingKey(t)
	ids, packages, pub := splitSpendingKey(t, key, 3)
	unsigned := buildUnsignedForSigning(t, oracle, key)

	signers := ids[:2]
	nonces := make(map[frost.Identity]*frost.Nonces, len(signers))
	commitments := make([]frost.SigningCommitment, 0, len(signers))
	for _, id := range signers {
		n, commitment, err := frost.RoundOne(packages[id], seed32(t))
		require.NoError(t, err)
		nonces[id] = n
		commitments = append(commitments, commitment)
	}
	sp, err := NewSigningPackage(commitments, signers, unsigned)
	require.NoError(t, err)

	raw, err := sp.Serialize()
	require.NoError(t, err)
	parsed, err := DeserializeSigningPackage(raw)
	require.NoError(t, err)

	require.Equal(t, sp.Signers(), parsed.Signers())
	require.Equal(t, sp.Commitments(), parsed.Commitments())
	require.Equal(t, unsigned.SignatureHash(), parsed.UnsignedTransaction().SignatureHash())
	require.Equal(t, unsigned.Randomizer(), parsed.UnsignedTransaction().Randomizer())

	// Round two run entirely from the parsed package must still produce a
	// valid transaction.
	shares := make([]frost.SignatureShare, 0, len(signers))
	for _, id := range signers {
		share, err := parsed.CreateSignatureShare(packages[id], nonces[id])
		require.NoError(t, err)
		require.NoError(t, parsed.VerifySignatureShare(pub, share))
		shares = append(shares, share)
	}
	tx, err := parsed.AggregateSignatureShares(pub, shares)
	require.NoError(t, err)
	require.NoError(t, VerifyTransactionWithOracle(oracle, tx))

	t.Run("truncated stream", func(t *testing.T) {
		_, err := DeserializeSigningPackage(raw[:8])
		require.Error(t, err)
	})
}

func TestNewSigningPackage_RosterValidation(t *testing.T) {
	oracle := fakeoracle.New(1)
	key := testutils.NewSpendingKey(t)
	ids, packages, _ := splitSpendingKey(t, key, 3)
	unsigned := buildUnsignedForSigning(t, oracle, key)

	commit := func(t *testing.T, id frost.Identity) frost.SigningCommitment {
		t.Helper()
		_, c, err := frost.RoundOne(packages[id], seed32(t))
		require.NoError(t, err)
		return c
	}
	c0, c1, c2 := commit(t, ids[0]), commit(t, ids[1]), commit(t, ids[2])

	t.Run("roster and commitments agree", func(t *testing.T) {
		sp, err := NewSigningPackage([]frost.SigningCommitment{c0, c1}, ids[:2], unsigned)
		require.NoError(t, err)
		require.Equal(t, ids[:2], sp.Signers())
	})

	t.Run("no commitments", func(t *testing.T) {
		_, err := NewSigningPackage(nil, ids[:2], unsigned)
		require.ErrorIs(t, err, frost.ErrInsufficientSigners)
	})

	t.Run("duplicate signer", func(t *testing.T) {
		_, err := NewSigningPackage([]frost.SigningCommitment{c0, c1}, []frost.Identity{ids[0], ids[0]}, unsigned)
		require.ErrorIs(t, err, frost.ErrDuplicateIdentity)
	})

	t.Run("duplicate commitment", func(t *testing.T) {
		_, err := NewSigningPackage([]frost.SigningCommitment{c0, c0}, ids[:2], unsigned)
		require.ErrorIs(t, err, frost.ErrDuplicateIdentity)
	})

	t.Run("commitment from outside the roster", func(t *testing.T) {
		_, err := NewSigningPackage([]frost.SigningCommitment{c0, c2}, ids[:2], unsigned)
		require.ErrorIs(t, err, frost.ErrUnknownSigner)
	})

	t.Run("signer who never committed", func(t *testing.T) {
		_, err := NewSigningPackage([]frost.SigningCommitment{c0}, ids[:2], unsigned)
		require.ErrorIs(t, err, frost.ErrUnknownSigner)
	})

	t.Run("missing unsigned transaction", func(t *testing.T) {
		_, err := NewSigningPackage([]frost.SigningCommitment{c0, c1}, ids[:2], nil)
		require.Error(t, err)
	})

	t.Run("quorum below the threshold fails at round two", func(t *testing.T) {
		n, c, err := frost.RoundOne(packages[ids[0]], seed32(t))
		require.NoError(t, err)
		sp, err := NewSigningPackage([]frost.SigningCommitment{c}, ids[:1], unsigned)
		require.NoError(t, err)
		_, err = sp.CreateSignatureShare(packages[ids[0]], n)
		require.ErrorIs(t, err, frost.ErrInsufficientSigners)
	})
}

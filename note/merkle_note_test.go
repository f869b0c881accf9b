package note

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadeledger/shade-go-base/keys"
)

func randomMerkleNote(t *testing.T, owner, sender *keys.SpendingKey) (*Note, *MerkleNote) {
	t.Helper()
	n := randomNote(t, owner, sender, 1500)
	var cv [32]byte
	_, err := rand.Read(cv[:])
	require.NoError(t, err)
	m, err := NewMerkleNote(rand.Reader, n, cv, sender.OutgoingViewKey())
	require.NoError(t, err)
	return n, m
}

func TestMerkleNote_OwnerRoundTrip(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)

	n, m := randomMerkleNote(t, owner, sender)

	got, err := m.DecryptNoteForOwner(owner.IncomingViewKey())
	require.NoError(t, err)
	require.True(t, n.Equal(got))
	require.Equal(t, n.Memo(), got.Memo())
	require.Equal(t, sender.PublicAddress(), got.Sender())
}

func TestMerkleNote_SpenderRoundTrip(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)

	n, m := randomMerkleNote(t, owner, sender)

	got, err := m.DecryptNoteForSpender(sender.OutgoingViewKey())
	require.NoError(t, err)
	require.True(t, n.Equal(got))
	require.Equal(t, owner.PublicAddress(), got.Owner())
}

func TestMerkleNote_WrongKeyFails(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	stranger, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)

	_, m := randomMerkleNote(t, owner, sender)

	t.Run("owner path", func(t *testing.T) {
		_, err := m.DecryptNoteForOwner(stranger.IncomingViewKey())
		require.ErrorIs(t, err, ErrNoteDecryptionFailed)
	})

	t.Run("spender path", func(t *testing.T) {
		_, err := m.DecryptNoteForSpender(stranger.OutgoingViewKey())
		require.ErrorIs(t, err, ErrNoteDecryptionFailed)
	})

	t.Run("sender key does not open the owner path", func(t *testing.T) {
		_, err := m.DecryptNoteForOwner(sender.IncomingViewKey())
		require.ErrorIs(t, err, ErrNoteDecryptionFailed)
	})
}

func TestMerkleNote_Serialize(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)

	n, m := randomMerkleNote(t, owner, sender)

	wire := m.Serialize()
	require.Len(t, wire, MerkleNoteSize)

	back, err := DeserializeMerkleNote(bytes.NewReader(wire))
	require.NoError(t, err)
	require.Equal(t, m.ValueCommitment(), back.ValueCommitment())
	require.Equal(t, m.NoteCommitment(), back.NoteCommitment())
	require.Equal(t, m.MerkleHash(), back.MerkleHash())

	got, err := back.DecryptNoteForOwner(owner.IncomingViewKey())
	require.NoError(t, err)
	require.True(t, n.Equal(got))

	t.Run("short read", func(t *testing.T) {
		_, err := DeserializeMerkleNote(bytes.NewReader(wire[:MerkleNoteSize-1]))
		require.Error(t, err)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		mangled := append([]byte(nil), wire...)
		mangled[96+5] ^= 0x01 // inside the owner ciphertext
		broken, err := DeserializeMerkleNote(bytes.NewReader(mangled))
		require.NoError(t, err)
		_, err = broken.DecryptNoteForOwner(owner.IncomingViewKey())
		require.ErrorIs(t, err, ErrNoteDecryptionFailed)
	})
}

func TestEncryptionStats(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)

	attemptsBefore, successesBefore := EncryptionStats()

	_, m := randomMerkleNote(t, owner, sender)
	_, err = m.DecryptNoteForOwner(owner.IncomingViewKey())
	require.NoError(t, err)

	attempts, successes := EncryptionStats()
	require.Equal(t, attemptsBefore+2, attempts)
	require.Equal(t, successesBefore+2, successes)

	_, err = m.DecryptNoteForSpender(owner.OutgoingViewKey())
	require.ErrorIs(t, err, ErrNoteDecryptionFailed)

	attempts, successes = EncryptionStats()
	require.Equal(t, attemptsBefore+3, attempts)
	require.Equal(t, successesBefore+2, successes, "failed decryption must not count as success")
}

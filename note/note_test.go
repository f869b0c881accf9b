package note

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/keys"
)

func randomNote(t *testing.T, owner, sender *keys.SpendingKey, value uint64) *Note {
	t.Helper()
	memo, err := MemoFromString("test note")
	require.NoError(t, err)
	n, err := NewNote(rand.Reader, owner.PublicAddress(), asset.NativeID(), value, memo, sender.PublicAddress())
	require.NoError(t, err)
	return n
}

func TestMemoFromString(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		m, err := MemoFromString("hello")
		require.NoError(t, err)
		require.Equal(t, "hello", m.String())
	})

	t.Run("padding is trimmed", func(t *testing.T) {
		m, err := MemoFromString("")
		require.NoError(t, err)
		require.Empty(t, m.String())
	})

	t.Run("too long", func(t *testing.T) {
		long := make([]byte, MemoSize+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := MemoFromString(string(long))
		require.ErrorIs(t, err, ErrInvalidNoteData)
	})
}

func TestNote_Commitment(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)

	n := randomNote(t, owner, sender, 42)

	t.Run("deterministic", func(t *testing.T) {
		cm1, err := n.Commitment()
		require.NoError(t, err)
		cm2, err := n.Commitment()
		require.NoError(t, err)
		require.Equal(t, cm1, cm2)
	})

	t.Run("randomness separates equal notes", func(t *testing.T) {
		other, err := NewNote(rand.Reader, n.Owner(), n.AssetID(), n.Value(), n.Memo(), n.Sender())
		require.NoError(t, err)
		cm1, err := n.Commitment()
		require.NoError(t, err)
		cm2, err := other.Commitment()
		require.NoError(t, err)
		require.NotEqual(t, cm1, cm2)
	})

	t.Run("value changes commitment", func(t *testing.T) {
		other := randomNote(t, owner, sender, 43)
		cm1, err := n.Commitment()
		require.NoError(t, err)
		cm2, err := other.Commitment()
		require.NoError(t, err)
		require.NotEqual(t, cm1, cm2)
	})
}

func TestNote_Nullifier(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	n := randomNote(t, owner, sender, 7)

	t.Run("deterministic", func(t *testing.T) {
		nf1, err := n.Nullifier(owner.ViewKey(), 3)
		require.NoError(t, err)
		nf2, err := n.Nullifier(owner.ViewKey(), 3)
		require.NoError(t, err)
		require.Equal(t, nf1, nf2)
	})

	t.Run("position matters", func(t *testing.T) {
		nf1, err := n.Nullifier(owner.ViewKey(), 3)
		require.NoError(t, err)
		nf2, err := n.Nullifier(owner.ViewKey(), 4)
		require.NoError(t, err)
		require.NotEqual(t, nf1, nf2)
	})

	t.Run("key matters", func(t *testing.T) {
		nf1, err := n.Nullifier(owner.ViewKey(), 3)
		require.NoError(t, err)
		nf2, err := n.Nullifier(sender.ViewKey(), 3)
		require.NoError(t, err)
		require.NotEqual(t, nf1, nf2)
	})

	t.Run("missing view key", func(t *testing.T) {
		_, err := n.Nullifier(nil, 0)
		require.ErrorIs(t, err, ErrInvalidNoteData)
	})
}

func TestNote_Equal(t *testing.T) {
	owner, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)
	sender, err := keys.NewSpendingKey(rand.Reader)
	require.NoError(t, err)

	n := randomNote(t, owner, sender, 10)
	require.True(t, n.Equal(n))
	require.False(t, n.Equal(nil))

	other := randomNote(t, owner, sender, 10)
	require.False(t, n.Equal(other), "fresh randomness must separate notes")
}

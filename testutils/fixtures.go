// Package testutils provides random fixtures for tests.
package testutils

import (
	"crypto/rand"
	"testing"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/note"
)

// RandomBytes fills a fresh slice of n bytes.
func RandomBytes(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal("failed to generate random bytes:", err)
	}
	return buf
}

// Random fills buf with random bytes.
func Random(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

// NewSpendingKey generates a fresh account key.
func NewSpendingKey(t *testing.T) *keys.SpendingKey {
	t.Helper()
	k, err := keys.NewSpendingKey(rand.Reader)
	if err != nil {
		t.Fatal("failed to generate spending key:", err)
	}
	return k
}

// NewAsset creates an asset owned by creator.
func NewAsset(t *testing.T, creator keys.PublicAddress, name string) *asset.Asset {
	t.Helper()
	a, err := asset.New(creator, name, []byte("test asset"))
	if err != nil {
		t.Fatal("failed to create asset:", err)
	}
	return a
}

// NewNote builds a native-asset note owned by owner.
func NewNote(t *testing.T, owner keys.PublicAddress, value uint64, sender keys.PublicAddress) *note.Note {
	t.Helper()
	return NewAssetNote(t, owner, asset.NativeID(), value, sender)
}

// NewAssetNote builds a note of the given asset.
func NewAssetNote(t *testing.T, owner keys.PublicAddress, assetID asset.Identifier, value uint64, sender keys.PublicAddress) *note.Note {
	t.Helper()
	memo, err := note.MemoFromString("test")
	if err != nil {
		t.Fatal("failed to build memo:", err)
	}
	n, err := note.NewNote(rand.Reader, owner, assetID, value, memo, sender)
	if err != nil {
		t.Fatal("failed to create note:", err)
	}
	return n
}

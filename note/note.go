/*
Package note implements the shielded value notes: commitment construction,
nullifier derivation and the two-audience encrypted transport form.

A note names an owner, an asset, a value, a memo and the sender. Only its
commitment — a blinded hash — appears on chain; the note itself travels
encrypted inside a MerkleNote, decryptable by the owner (incoming view key)
and by the sender (outgoing view key).
*/
package note

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	frmimc "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
)

const (
	// MemoSize is the fixed width of a note memo.
	MemoSize = 32
	// CommitmentSize is the length of a note commitment.
	CommitmentSize = 32
	// NullifierSize is the length of a nullifier.
	NullifierSize = 32
)

var (
	ErrInvalidNoteData      = errors.New("invalid note data")
	ErrNoteDecryptionFailed = errors.New("note decryption failed")
)

const (
	domainNullifier = "shadeledger.note.nullifier"
)

// Memo is the fixed width free-form note annotation.
type Memo [MemoSize]byte

// MemoFromString builds a memo from s, which must fit the fixed width.
func MemoFromString(s string) (Memo, error) {
	var m Memo
	if len(s) > MemoSize {
		return m, fmt.Errorf("%w: memo exceeds %d bytes", ErrInvalidNoteData, MemoSize)
	}
	copy(m[:], s)
	return m, nil
}

func (m Memo) String() string {
	return string(bytes.TrimRight(m[:], "\x00"))
}

// Note is a single shielded value record.
type Note struct {
	owner      keys.PublicAddress
	assetID    asset.Identifier
	value      uint64
	memo       Memo
	sender     keys.PublicAddress
	randomness *big.Int
}

// NewNote builds a note with fresh commitment randomness drawn from rnd.
func NewNote(rnd io.Reader, owner keys.PublicAddress, assetID asset.Identifier, value uint64, memo Memo, sender keys.PublicAddress) (*Note, error) {
	if _, err := owner.Point(); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidNoteData, err)
	}
	randomness, err := jubjub.RandomScalar(rnd)
	if err != nil {
		return nil, fmt.Errorf("drawing note randomness: %w", err)
	}
	return &Note{
		owner:      owner,
		assetID:    assetID,
		value:      value,
		memo:       memo,
		sender:     sender,
		randomness: randomness,
	}, nil
}

// Owner returns the address the note is addressed to.
func (n *Note) Owner() keys.PublicAddress { return n.owner }

// AssetID returns the identifier of the asset the note carries.
func (n *Note) AssetID() asset.Identifier { return n.assetID }

// Value returns the note value.
func (n *Note) Value() uint64 { return n.value }

// Memo returns the note annotation.
func (n *Note) Memo() Memo { return n.memo }

// Sender returns the address that created the note.
func (n *Note) Sender() keys.PublicAddress { return n.sender }

// Randomness returns the commitment blinding scalar.
func (n *Note) Randomness() *big.Int { return new(big.Int).Set(n.randomness) }

// Equal reports whether two notes agree on every field, randomness included.
func (n *Note) Equal(other *Note) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.owner == other.owner &&
		n.assetID == other.assetID &&
		n.value == other.value &&
		n.memo == other.memo &&
		n.sender == other.sender &&
		n.randomness.Cmp(other.randomness) == 0
}

// commitmentPayload collapses the note's public payload into one scalar.
// Every input is reduced into a canonical field element before it is fed to
// the hash, the block form the hash accepts.
func (n *Note) commitmentPayload() (*big.Int, error) {
	generator, err := n.assetID.Generator()
	if err != nil {
		return nil, fmt.Errorf("%w: asset: %v", ErrInvalidNoteData, err)
	}
	generatorBytes := jubjub.EncodePoint(&generator)

	h := frmimc.NewMiMC()
	var block fr.Element
	for _, chunk := range [][]byte{generatorBytes[:], n.owner.Bytes(), n.sender.Bytes()} {
		block.SetBytes(chunk)
		if _, err := h.Write(block.Marshal()); err != nil {
			return nil, fmt.Errorf("hashing note payload: %w", err)
		}
	}
	block.SetUint64(n.value)
	if _, err := h.Write(block.Marshal()); err != nil {
		return nil, fmt.Errorf("hashing note payload: %w", err)
	}
	return jubjub.ReduceScalar(h.Sum(nil)), nil
}

// CommitmentPoint returns the full commitment point
// payload·G_note + randomness·G_rand.
func (n *Note) CommitmentPoint() (jubjub.Point, error) {
	payload, err := n.commitmentPayload()
	if err != nil {
		return jubjub.Point{}, err
	}
	commitBase := jubjub.NoteCommitmentBase()
	randBase := jubjub.NoteRandomnessBase()
	payloadPart := jubjub.Mul(&commitBase, payload)
	blindPart := jubjub.Mul(&randBase, n.randomness)
	return jubjub.Add(&payloadPart, &blindPart), nil
}

// Commitment returns the on-chain form of the note: the affine x coordinate
// of the commitment point. Deterministic given the note fields.
func (n *Note) Commitment() ([CommitmentSize]byte, error) {
	p, err := n.CommitmentPoint()
	if err != nil {
		return [CommitmentSize]byte{}, err
	}
	return p.X.Bytes(), nil
}

// Nullifier derives the double-spend tag for this note at the given tree
// position. It requires the owner's nullifier deriving key and is
// deterministic: the same note, key and position always produce the same
// bytes.
func (n *Note) Nullifier(viewKey *keys.ViewKey, position uint64) ([NullifierSize]byte, error) {
	if viewKey == nil {
		return [NullifierSize]byte{}, fmt.Errorf("%w: missing view key", ErrInvalidNoteData)
	}
	cm, err := n.CommitmentPoint()
	if err != nil {
		return [NullifierSize]byte{}, err
	}
	posBase := jubjub.NullifierPositionBase()
	offset := jubjub.Mul(&posBase, new(big.Int).SetUint64(position))
	rho := jubjub.Add(&cm, &offset)
	rhoBytes := jubjub.EncodePoint(&rho)
	nk := jubjub.EncodePoint(&viewKey.NullifierDerivingKey)
	return hash.SumBlake2s(domainNullifier, nk[:], rhoBytes[:]), nil
}

// notePlaintext is the fixed encrypted note layout:
// randomness ‖ value u64 LE ‖ memo ‖ asset id ‖ sender.
const notePlaintextSize = jubjub.ScalarSize + 8 + MemoSize + asset.IdentifierSize + keys.AddressSize

func (n *Note) plaintext() [notePlaintextSize]byte {
	var out [notePlaintextSize]byte
	randomness := jubjub.ScalarToBytes(n.randomness)
	offset := copy(out[:], randomness[:])
	binary.LittleEndian.PutUint64(out[offset:], n.value)
	offset += 8
	offset += copy(out[offset:], n.memo[:])
	offset += copy(out[offset:], n.assetID.Bytes())
	copy(out[offset:], n.sender.Bytes())
	return out
}

// noteFromPlaintext rebuilds a note for the given owner from a decrypted
// plaintext, revalidating every embedded field.
func noteFromPlaintext(owner keys.PublicAddress, pt []byte) (*Note, error) {
	if len(pt) != notePlaintextSize {
		return nil, fmt.Errorf("%w: plaintext length %d", ErrInvalidNoteData, len(pt))
	}
	randomness, err := jubjub.ScalarFromBytes(pt[:jubjub.ScalarSize])
	if err != nil {
		return nil, fmt.Errorf("%w: randomness: %v", ErrInvalidNoteData, err)
	}
	offset := jubjub.ScalarSize
	value := binary.LittleEndian.Uint64(pt[offset:])
	offset += 8
	var memo Memo
	copy(memo[:], pt[offset:])
	offset += MemoSize
	assetID, err := asset.IdentifierFromBytes(pt[offset : offset+asset.IdentifierSize])
	if err != nil {
		return nil, fmt.Errorf("%w: asset: %v", ErrInvalidNoteData, err)
	}
	offset += asset.IdentifierSize
	sender, err := keys.AddressFromBytes(pt[offset : offset+keys.AddressSize])
	if err != nil {
		return nil, fmt.Errorf("%w: sender: %v", ErrInvalidNoteData, err)
	}
	return &Note{
		owner:      owner,
		assetID:    assetID,
		value:      value,
		memo:       memo,
		sender:     sender,
		randomness: randomness,
	}, nil
}

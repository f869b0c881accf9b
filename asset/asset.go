/*
Package asset implements asset identity. An asset is a named unit of value
tied to the address that created it; its identifier is a 32 byte digest that
doubles as the encoding of the asset's generator point on the protocol curve.

Identifier derivation rejection-samples a one byte nonce: the digest over
(creator, name, nonce) is accepted once it decodes to a curve point whose
cofactor cleared image is not the identity. Roughly half of all digests
decode, so the search effectively always terminates within a few attempts.
*/
package asset

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
)

const (
	// IdentifierSize is the length of an asset identifier.
	IdentifierSize = 32
	// NameSize is the fixed width of an asset name on the wire.
	NameSize = 32
	// MetadataSize is the fixed width of asset metadata on the wire.
	MetadataSize = 96
	// SerializedSize is the length of a serialized asset.
	SerializedSize = keys.AddressSize + NameSize + MetadataSize + 1

	// NativeName is the name of the chain's own asset.
	NativeName = "$SHADE"
)

var (
	ErrInvalidIdentifier        = errors.New("invalid asset identifier")
	ErrInvalidName              = errors.New("invalid asset name")
	ErrInvalidMetadata          = errors.New("invalid asset metadata")
	ErrIdentifierNonceExhausted = errors.New("asset identifier nonce exhausted")
)

const domainIdentifier = "shadeledger.asset.identifier"

// Identifier is the canonical 32 byte handle of an asset.
type Identifier [IdentifierSize]byte

// IdentifierFromBytes parses raw bytes as an identifier, rejecting values
// that have no generator point.
func IdentifierFromBytes(b []byte) (Identifier, error) {
	var id Identifier
	if len(b) != IdentifierSize {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidIdentifier, IdentifierSize, len(b))
	}
	copy(id[:], b)
	if err := id.Validate(); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// Validate checks that the identifier maps to a usable generator pair.
func (id Identifier) Validate() error {
	_, err := id.ValueCommitmentGenerator()
	return err
}

// Generator returns the asset generator point, the raw decoding of the
// identifier bytes.
func (id Identifier) Generator() (jubjub.Point, error) {
	p, err := jubjub.DecodePoint(id[:])
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return p, nil
}

// ValueCommitmentGenerator returns the cofactor cleared, prime order
// generator blinding this asset's value commitments.
func (id Identifier) ValueCommitmentGenerator() (jubjub.Point, error) {
	p, err := id.Generator()
	if err != nil {
		return p, err
	}
	cleared := jubjub.ClearCofactor(&p)
	if jubjub.IsIdentity(&cleared) {
		return jubjub.Point{}, fmt.Errorf("%w: small order generator", ErrInvalidIdentifier)
	}
	return cleared, nil
}

// Bytes returns the identifier as a byte slice.
func (id Identifier) Bytes() []byte {
	return id[:]
}

func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}

// Asset ties a name and metadata to the address that created it. Immutable;
// assets compare by identifier.
type Asset struct {
	creator  keys.PublicAddress
	name     [NameSize]byte
	metadata [MetadataSize]byte
	nonce    byte
	id       Identifier
}

// New derives the asset for (creator, name), searching for the lowest nonce
// whose digest is a valid generator encoding. Metadata travels with the
// asset but takes no part in identifier derivation: the same creator and
// name always yield the same identifier.
func New(creator keys.PublicAddress, name string, metadata []byte) (*Asset, error) {
	if name == "" || len(name) > NameSize || !utf8.ValidString(name) {
		return nil, fmt.Errorf("%w: must be 1..%d bytes of valid UTF-8", ErrInvalidName, NameSize)
	}
	if len(metadata) > MetadataSize {
		return nil, fmt.Errorf("%w: at most %d bytes, got %d", ErrInvalidMetadata, MetadataSize, len(metadata))
	}
	a := &Asset{creator: creator}
	copy(a.name[:], name)
	copy(a.metadata[:], metadata)
	for nonce := 0; nonce < 256; nonce++ {
		id, err := Derive(creator, a.name, byte(nonce))
		if err != nil {
			continue
		}
		a.nonce = byte(nonce)
		a.id = id
		return a, nil
	}
	return nil, fmt.Errorf("%w: creator %x name %q", ErrIdentifierNonceExhausted, creator, name)
}

// Derive computes the identifier for one specific nonce, failing with
// ErrInvalidIdentifier when the digest does not decode to a usable
// generator.
func Derive(creator keys.PublicAddress, name [NameSize]byte, nonce byte) (Identifier, error) {
	digest := hash.Sum256(domainIdentifier, creator.Bytes(), name[:], []byte{nonce})
	return IdentifierFromBytes(digest[:])
}

// FromParts reconstructs an asset from its wire fields, re-deriving and
// validating the identifier.
func FromParts(creator keys.PublicAddress, name [NameSize]byte, metadata [MetadataSize]byte, nonce byte) (*Asset, error) {
	id, err := Derive(creator, name, nonce)
	if err != nil {
		return nil, err
	}
	return &Asset{creator: creator, name: name, metadata: metadata, nonce: nonce, id: id}, nil
}

// ID returns the derived identifier.
func (a *Asset) ID() Identifier {
	return a.id
}

// Name returns the asset name with the zero padding removed.
func (a *Asset) Name() string {
	return strings.TrimRight(string(a.name[:]), "\x00")
}

// RawName returns the fixed width name field.
func (a *Asset) RawName() [NameSize]byte {
	return a.name
}

// Metadata returns the fixed width metadata field.
func (a *Asset) Metadata() [MetadataSize]byte {
	return a.metadata
}

// Creator returns the address that created the asset.
func (a *Asset) Creator() keys.PublicAddress {
	return a.creator
}

// Nonce returns the identifier derivation nonce.
func (a *Asset) Nonce() byte {
	return a.nonce
}

// Serialize returns the wire encoding: creator ‖ name ‖ metadata ‖ nonce.
func (a *Asset) Serialize() []byte {
	out := make([]byte, 0, SerializedSize)
	out = append(out, a.creator.Bytes()...)
	out = append(out, a.name[:]...)
	out = append(out, a.metadata[:]...)
	out = append(out, a.nonce)
	return out
}

// Deserialize reads a serialized asset and revalidates its identifier
// derivation.
func Deserialize(r io.Reader) (*Asset, error) {
	buf := make([]byte, SerializedSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading asset: %w", err)
	}
	var (
		creator  keys.PublicAddress
		name     [NameSize]byte
		metadata [MetadataSize]byte
	)
	copy(creator[:], buf[:keys.AddressSize])
	copy(name[:], buf[keys.AddressSize:keys.AddressSize+NameSize])
	copy(metadata[:], buf[keys.AddressSize+NameSize:SerializedSize-1])
	return FromParts(creator, name, metadata, buf[SerializedSize-1])
}

var (
	nativeOnce  sync.Once
	nativeAsset *Asset
)

// Native returns the chain's own asset, derived once from the zero creator
// address and the fixed native name. The zero address is a sentinel — the
// native asset is never minted through mint descriptions.
func Native() *Asset {
	nativeOnce.Do(func() {
		a, err := New(keys.PublicAddress{}, NativeName, nil)
		if err != nil {
			panic(fmt.Errorf("deriving native asset: %w", err))
		}
		nativeAsset = a
	})
	return nativeAsset
}

// NativeID returns the native asset identifier.
func NativeID() Identifier {
	return Native().ID()
}

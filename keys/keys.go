/*
Package keys implements the spending key hierarchy. A 32 byte seed expands
deterministically into the spend and proof authorizing scalars, the view
keys, and the public address that notes are encrypted to.

The view side is split by capability: a ViewKey can derive nullifiers and
build proofs, an IncomingViewKey can detect and decrypt received notes, an
OutgoingViewKey can recover notes the account sent. None of them can spend.
*/
package keys

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
)

const (
	// SeedSize is the length of a spending key seed.
	SeedSize = 32
	// AddressSize is the length of a serialized public address.
	AddressSize = 32
)

var ErrInvalidAddress = errors.New("invalid public address")

const (
	domainSpendAuthorizing = "shadeledger.key.spend_authorizing"
	domainProofAuthorizing = "shadeledger.key.proof_authorizing"
	domainOutgoingViewing  = "shadeledger.key.outgoing_viewing"
	domainIncomingViewing  = "shadeledger.key.incoming_viewing"
)

// SpendingKey is the root account secret.
type SpendingKey struct {
	seed                [SeedSize]byte
	spendAuthorizingKey *big.Int
	proofAuthorizingKey *big.Int
	outgoingViewKey     OutgoingViewKey
}

// NewSpendingKey draws a fresh spending key from r.
func NewSpendingKey(r io.Reader) (*SpendingKey, error) {
	var seed [SeedSize]byte
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return nil, fmt.Errorf("reading key seed: %w", err)
	}
	return SpendingKeyFromSeed(seed), nil
}

// SpendingKeyFromSeed expands seed into a spending key. The expansion is
// deterministic, the same seed always yields the same key material.
func SpendingKeyFromSeed(seed [SeedSize]byte) *SpendingKey {
	ask := hash.Sum512(domainSpendAuthorizing, seed[:])
	nsk := hash.Sum512(domainProofAuthorizing, seed[:])
	ovk := hash.Sum256(domainOutgoingViewing, seed[:])
	return &SpendingKey{
		seed:                seed,
		spendAuthorizingKey: jubjub.ReduceScalar(ask[:]),
		proofAuthorizingKey: jubjub.ReduceScalar(nsk[:]),
		outgoingViewKey:     OutgoingViewKey(ovk),
	}
}

// Seed returns the raw seed the key was expanded from.
func (k *SpendingKey) Seed() [SeedSize]byte {
	return k.seed
}

// SpendAuthorizingKey returns the scalar that authorizes spends and mints.
func (k *SpendingKey) SpendAuthorizingKey() *big.Int {
	return new(big.Int).Set(k.spendAuthorizingKey)
}

// ProofAuthorizingKey returns the scalar behind the nullifier deriving key.
func (k *SpendingKey) ProofAuthorizingKey() *big.Int {
	return new(big.Int).Set(k.proofAuthorizingKey)
}

// OutgoingViewKey returns the key that recovers sent notes.
func (k *SpendingKey) OutgoingViewKey() OutgoingViewKey {
	return k.outgoingViewKey
}

// ViewKey returns the full viewing key pair derived from this spending key.
func (k *SpendingKey) ViewKey() *ViewKey {
	spendBase := jubjub.SpendAuthBase()
	proofBase := jubjub.ProofAuthBase()
	return &ViewKey{
		AuthorizingKey:       jubjub.Mul(&spendBase, k.spendAuthorizingKey),
		NullifierDerivingKey: jubjub.Mul(&proofBase, k.proofAuthorizingKey),
	}
}

// IncomingViewKey returns the note detection/decryption key.
func (k *SpendingKey) IncomingViewKey() *IncomingViewKey {
	return k.ViewKey().IncomingViewKey()
}

// PublicAddress returns the address notes for this account are sent to.
func (k *SpendingKey) PublicAddress() PublicAddress {
	return k.ViewKey().PublicAddress()
}

// ViewKey is the full viewing key: the spend authorization public key and
// the nullifier deriving key.
type ViewKey struct {
	AuthorizingKey       jubjub.Point
	NullifierDerivingKey jubjub.Point
}

// IncomingViewKey derives the incoming view key bound to this viewing key.
func (v *ViewKey) IncomingViewKey() *IncomingViewKey {
	ak := jubjub.EncodePoint(&v.AuthorizingKey)
	nk := jubjub.EncodePoint(&v.NullifierDerivingKey)
	digest := hash.SumBlake2s(domainIncomingViewing, ak[:], nk[:])
	return &IncomingViewKey{key: jubjub.ReduceScalar(digest[:])}
}

// PublicAddress returns the account address.
func (v *ViewKey) PublicAddress() PublicAddress {
	return v.IncomingViewKey().PublicAddress()
}

// IncomingViewKey decrypts notes addressed to its account.
type IncomingViewKey struct {
	key *big.Int
}

// Scalar returns the private view scalar.
func (k *IncomingViewKey) Scalar() *big.Int {
	return new(big.Int).Set(k.key)
}

// PublicAddress returns the transmission key point for this view key.
func (k *IncomingViewKey) PublicAddress() PublicAddress {
	base := jubjub.DiffieHellmanBase()
	p := jubjub.Mul(&base, k.key)
	return PublicAddress(jubjub.EncodePoint(&p))
}

// OutgoingViewKey recovers the plaintexts of notes the account sent.
type OutgoingViewKey [32]byte

// PublicAddress is the serialized transmission key notes are encrypted to.
type PublicAddress [AddressSize]byte

// AddressFromBytes parses and validates a serialized address.
func AddressFromBytes(b []byte) (PublicAddress, error) {
	var a PublicAddress
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	copy(a[:], b)
	if _, err := a.Point(); err != nil {
		return PublicAddress{}, err
	}
	return a, nil
}

// Point decodes the address into its curve point.
func (a PublicAddress) Point() (jubjub.Point, error) {
	p, err := jubjub.DecodePoint(a[:])
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return p, nil
}

// Bytes returns the address as a byte slice.
func (a PublicAddress) Bytes() []byte {
	return a[:]
}

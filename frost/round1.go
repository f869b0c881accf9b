package frost

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shadeledger/shade-go-base/cbor"
	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/reddsa"
)

const (
	signingCommitmentTag cbor.Tag = 1103
	commitmentSetTag     cbor.Tag = 1107

	domainNonce = "shadeledger.frost.nonce"
)

// SigningCommitment is a participant's round one message: commitments to the
// hiding and binding nonces. It is public, the coordinator relays the full
// set to every participant before round two.
type SigningCommitment struct {
	Identity Identity
	Hiding   [jubjub.PointSize]byte
	Binding  [jubjub.PointSize]byte
}

type signingCommitmentWire struct {
	_        struct{} `cbor:",toarray"`
	Version  uint8
	Identity []byte
	Hiding   []byte
	Binding  []byte
}

// Serialize encodes the commitment as a tagged CBOR array.
func (c SigningCommitment) Serialize() ([]byte, error) {
	return cbor.MarshalTaggedValue(signingCommitmentTag, &signingCommitmentWire{
		Version:  keyPackageVersion,
		Identity: c.Identity.Bytes(),
		Hiding:   c.Hiding[:],
		Binding:  c.Binding[:],
	})
}

// DeserializeSigningCommitment decodes and validates a commitment: both
// nonce commitments must be valid points.
func DeserializeSigningCommitment(data []byte) (SigningCommitment, error) {
	var w signingCommitmentWire
	if err := cbor.UnmarshalTaggedValue(signingCommitmentTag, data, &w); err != nil {
		return SigningCommitment{}, fmt.Errorf("invalid signing commitment: %w", err)
	}
	if w.Version != keyPackageVersion {
		return SigningCommitment{}, fmt.Errorf("invalid signing commitment: unsupported version %d", w.Version)
	}
	identity, err := IdentityFromBytes(w.Identity)
	if err != nil {
		return SigningCommitment{}, fmt.Errorf("invalid signing commitment: %w", err)
	}
	c := SigningCommitment{Identity: identity}
	if len(w.Hiding) != jubjub.PointSize || len(w.Binding) != jubjub.PointSize {
		return SigningCommitment{}, errors.New("invalid signing commitment: truncated nonce commitment")
	}
	copy(c.Hiding[:], w.Hiding)
	copy(c.Binding[:], w.Binding)
	if _, err := jubjub.DecodePoint(c.Hiding[:]); err != nil {
		return SigningCommitment{}, fmt.Errorf("invalid signing commitment: hiding: %w", err)
	}
	if _, err := jubjub.DecodePoint(c.Binding[:]); err != nil {
		return SigningCommitment{}, fmt.Errorf("invalid signing commitment: binding: %w", err)
	}
	return c, nil
}

type commitmentSetWire struct {
	_           struct{} `cbor:",toarray"`
	Version     uint8
	Commitments [][]byte
}

// SerializeCommitments encodes a collected commitment set as one tagged CBOR
// payload, the form the set travels in inside a transaction signing package.
func SerializeCommitments(commitments []SigningCommitment) ([]byte, error) {
	raw := make([][]byte, len(commitments))
	for i, c := range commitments {
		b, err := c.Serialize()
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return cbor.MarshalTaggedValue(commitmentSetTag, &commitmentSetWire{
		Version:     keyPackageVersion,
		Commitments: raw,
	})
}

// DeserializeCommitments decodes a commitment set, validating every entry.
func DeserializeCommitments(data []byte) ([]SigningCommitment, error) {
	var w commitmentSetWire
	if err := cbor.UnmarshalTaggedValue(commitmentSetTag, data, &w); err != nil {
		return nil, fmt.Errorf("invalid commitment set: %w", err)
	}
	if w.Version != keyPackageVersion {
		return nil, fmt.Errorf("invalid commitment set: unsupported version %d", w.Version)
	}
	commitments := make([]SigningCommitment, len(w.Commitments))
	for i, b := range w.Commitments {
		c, err := DeserializeSigningCommitment(b)
		if err != nil {
			return nil, fmt.Errorf("commitment %d: %w", i, err)
		}
		commitments[i] = c
	}
	return commitments, nil
}

// Nonces is the secret counterpart of a SigningCommitment, held by the
// participant until round two. Nonces are single use: signing two different
// messages with the same nonces leaks the key share.
type Nonces struct {
	identity Identity
	hiding   *big.Int
	binding  *big.Int
}

// Commitment recomputes the public commitment to the nonces.
func (n *Nonces) Commitment() SigningCommitment {
	base := reddsa.SpendAuth().Base()
	hiding := jubjub.Mul(&base, n.hiding)
	binding := jubjub.Mul(&base, n.binding)
	return SigningCommitment{
		Identity: n.identity,
		Hiding:   jubjub.EncodePoint(&hiding),
		Binding:  jubjub.EncodePoint(&binding),
	}
}

// RoundOne derives the participant's nonces for one signing session and
// returns the commitment to publish. The nonces are deterministic in the
// seed and the key share: the caller must draw a fresh random seed per
// session and never reuse one.
func RoundOne(kp *KeyPackage, seed [32]byte) (*Nonces, SigningCommitment, error) {
	if kp == nil || kp.share == nil {
		return nil, SigningCommitment{}, fmt.Errorf("%w: missing share", ErrInvalidKeyPackage)
	}
	share := jubjub.ScalarToBytes(kp.share)
	n := &Nonces{
		identity: kp.identity,
		hiding:   nonceScalar(seed, share, "hiding"),
		binding:  nonceScalar(seed, share, "binding"),
	}
	if n.hiding.Sign() == 0 || n.binding.Sign() == 0 {
		return nil, SigningCommitment{}, errors.New("degenerate nonce, draw a new seed")
	}
	return n, n.Commitment(), nil
}

func nonceScalar(seed [32]byte, share [jubjub.ScalarSize]byte, tag string) *big.Int {
	digest := hash.Sum512(domainNonce, seed[:], share[:], []byte(tag))
	return jubjub.ReduceScalar(digest[:])
}

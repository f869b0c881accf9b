/*
Package frost implements two round threshold signing for spend authorization
keys. An aggregated signature is wire-identical to a single signer one: it
verifies under the randomized group key with reddsa.SpendAuth(), so verifiers
cannot tell a threshold signed transaction from an ordinary one.

A trusted dealer splits the spend authorizing key into shares with SplitKey.
Each signing session then runs two rounds: every participant commits to fresh
nonces (RoundOne) and, once the participant set is fixed, produces a share of
the signature over the message (CreateSignatureShare). Anyone holding the
public key package can check shares and fold them into the final signature
(Aggregate). The Ceremony type collects the round messages for a coordinator;
transport between participants is out of scope.
*/
package frost

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/shadeledger/shade-go-base/jubjub"
)

// IdentitySize is the length of a serialized signer identity.
const IdentitySize = jubjub.ScalarSize

var (
	ErrInvalidIdentifier     = errors.New("invalid signer identifier")
	ErrDuplicateIdentity     = errors.New("duplicate signer identity")
	ErrInsufficientSigners   = errors.New("not enough signers")
	ErrUnknownSigner         = errors.New("signer is not part of the session")
	ErrInvalidKeyPackage     = errors.New("invalid key package")
	ErrInvalidSignatureShare = errors.New("invalid signature share")
)

// Identity names a participant. It doubles as the participant's evaluation
// point in the secret sharing polynomial, so it must be a canonical nonzero
// scalar.
type Identity [IdentitySize]byte

// NewIdentity draws a fresh random identity.
func NewIdentity(rnd io.Reader) (Identity, error) {
	for {
		k, err := jubjub.RandomScalar(rnd)
		if err != nil {
			return Identity{}, fmt.Errorf("drawing identity: %w", err)
		}
		if k.Sign() != 0 {
			return Identity(jubjub.ScalarToBytes(k)), nil
		}
	}
}

// IdentityFromBytes validates and adopts a serialized identity.
func IdentityFromBytes(b []byte) (Identity, error) {
	if len(b) != IdentitySize {
		return Identity{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidIdentifier, IdentitySize, len(b))
	}
	k, err := jubjub.ScalarFromBytes(b)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)
	}
	if k.Sign() == 0 {
		return Identity{}, fmt.Errorf("%w: zero scalar", ErrInvalidIdentifier)
	}
	var id Identity
	copy(id[:], b)
	return id, nil
}

// Bytes returns the serialized identity.
func (id Identity) Bytes() []byte {
	return id[:]
}

func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// scalar returns the identity's evaluation point. It fails only for
// identities built as bare literals around invalid bytes.
func (id Identity) scalar() (*big.Int, error) {
	k, err := jubjub.ScalarFromBytes(id[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)
	}
	if k.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero scalar", ErrInvalidIdentifier)
	}
	return k, nil
}

package frost

import (
	"fmt"
	"math/big"

	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/reddsa"
)

// Aggregate folds the signature shares into the final signature. The
// randomizer enters exactly once here, making the result verify under the
// randomized group key as if a single signer had produced it.
//
// The share set must match the commitment set: one share per committed
// participant. On failure every share is re-checked so the error names the
// misbehaving signer when there is one.
func Aggregate(
	pub *PublicKeyPackage,
	commitments []SigningCommitment,
	shares []SignatureShare,
	message []byte,
	randomizer *big.Int,
) ([reddsa.SignatureSize]byte, error) {
	var sig [reddsa.SignatureSize]byte
	if pub == nil {
		return sig, fmt.Errorf("%w: missing public key package", ErrInvalidKeyPackage)
	}
	session, err := newSigningSession(pub.groupPublicKey, commitments, message, randomizer, pub.minSigners)
	if err != nil {
		return sig, err
	}

	byIdentity := make(map[Identity]SignatureShare, len(shares))
	for _, s := range shares {
		if _, ok := byIdentity[s.Identity]; ok {
			return sig, fmt.Errorf("%w: %s", ErrDuplicateIdentity, s.Identity)
		}
		if _, ok := session.commitment(s.Identity); !ok {
			return sig, fmt.Errorf("%w: %s", ErrUnknownSigner, s.Identity)
		}
		byIdentity[s.Identity] = s
	}

	z := new(big.Int)
	for _, c := range session.commitments {
		s, ok := byIdentity[c.Identity]
		if !ok {
			return sig, fmt.Errorf("%w: no share from %s", ErrInsufficientSigners, c.Identity)
		}
		zi, err := jubjub.ScalarFromBytes(s.Share[:])
		if err != nil {
			return sig, fmt.Errorf("%w: %w", ErrInvalidSignatureShare, err)
		}
		z = jubjub.ScalarAdd(z, zi)
	}
	z = jubjub.ScalarAdd(z, jubjub.ScalarMul(session.challenge, randomizer))

	response := jubjub.ScalarToBytes(z)
	copy(sig[:32], session.groupCommitment[:])
	copy(sig[32:], response[:])

	if err := reddsa.SpendAuth().Verify(session.randomizedKey[:], message, sig); err != nil {
		for _, s := range shares {
			if err := session.verifyShare(pub, s); err != nil {
				return [reddsa.SignatureSize]byte{}, err
			}
		}
		return [reddsa.SignatureSize]byte{}, fmt.Errorf("%w: aggregate does not verify", ErrInvalidSignatureShare)
	}
	return sig, nil
}

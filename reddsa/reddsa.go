/*
Package reddsa implements the randomizable Schnorr signature scheme used for
spend authorization and binding signatures.

A signature is R ‖ S: a 32 byte nonce commitment point followed by a 32 byte
response scalar. Keys can be additively rerandomized — a signature created
under sk+α verifies under vk+α·B — which unlinks per-transaction signatures
from the long lived account key. Two scheme instances exist, differing only
in base point and challenge domain: spend authorization and binding.
*/
package reddsa

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
)

// SignatureSize is the length of a serialized signature.
const SignatureSize = 64

var ErrInvalidSignature = errors.New("invalid signature")

// Scheme fixes the base point and the challenge domain tag.
type Scheme struct {
	domain string
	base   func() jubjub.Point
}

var (
	spendAuthScheme = &Scheme{domain: "shadeledger.reddsa.spend_auth", base: jubjub.SpendAuthBase}
	bindingScheme   = &Scheme{domain: "shadeledger.reddsa.binding", base: jubjub.ValueRandomnessBase}
)

// SpendAuth returns the scheme signing spend and mint authorizations.
func SpendAuth() *Scheme { return spendAuthScheme }

// Binding returns the scheme for transaction binding signatures. Its base is
// the value commitment randomness generator, so a binding key is exactly a
// net commitment randomness.
func Binding() *Scheme { return bindingScheme }

// Base returns the scheme's base point.
func (s *Scheme) Base() jubjub.Point {
	return s.base()
}

// VerificationKey returns the encoded public key sk·B.
func (s *Scheme) VerificationKey(sk *big.Int) [jubjub.PointSize]byte {
	b := s.base()
	vk := jubjub.Mul(&b, sk)
	return jubjub.EncodePoint(&vk)
}

// Sign produces a signature over msg. The nonce is drawn from rnd; reusing a
// nonce for two distinct messages reveals the secret key.
func (s *Scheme) Sign(rnd io.Reader, sk *big.Int, msg []byte) ([SignatureSize]byte, error) {
	var sig [SignatureSize]byte
	r, err := jubjub.RandomScalar(rnd)
	if err != nil {
		return sig, fmt.Errorf("drawing signature nonce: %w", err)
	}
	base := s.base()
	nonce := jubjub.Mul(&base, r)
	nonceBytes := jubjub.EncodePoint(&nonce)
	vk := s.VerificationKey(sk)

	c := s.Challenge(nonceBytes[:], vk[:], msg)
	response := jubjub.ScalarAdd(r, jubjub.ScalarMul(c, sk))
	responseBytes := jubjub.ScalarToBytes(response)

	copy(sig[:32], nonceBytes[:])
	copy(sig[32:], responseBytes[:])
	return sig, nil
}

// Verify checks sig over msg under the encoded verification key. Every
// failure mode is reported as ErrInvalidSignature.
func (s *Scheme) Verify(vk []byte, msg []byte, sig [SignatureSize]byte) error {
	nonce, err := jubjub.DecodePoint(sig[:32])
	if err != nil {
		return fmt.Errorf("%w: nonce commitment: %v", ErrInvalidSignature, err)
	}
	response, err := jubjub.ScalarFromBytes(sig[32:])
	if err != nil {
		return fmt.Errorf("%w: response scalar: %v", ErrInvalidSignature, err)
	}
	vkPoint, err := jubjub.DecodePoint(vk)
	if err != nil {
		return fmt.Errorf("%w: verification key: %v", ErrInvalidSignature, err)
	}

	c := s.Challenge(sig[:32], vk, msg)

	// S·B == R + c·vk, compared after clearing the cofactor so a small
	// order component cannot flip the result
	base := s.base()
	lhs := jubjub.Mul(&base, response)
	cvk := jubjub.Mul(&vkPoint, c)
	rhs := jubjub.Add(&nonce, &cvk)
	negRhs := jubjub.Neg(&rhs)
	diff := jubjub.Add(&lhs, &negRhs)
	cleared := jubjub.ClearCofactor(&diff)
	if !jubjub.IsIdentity(&cleared) {
		return ErrInvalidSignature
	}
	return nil
}

// Challenge computes the Schnorr challenge scalar binding the nonce
// commitment, the verification key and the message. Exported so that the
// threshold signing rounds produce signatures wire-identical to single
// signer ones.
func (s *Scheme) Challenge(nonce, vk, msg []byte) *big.Int {
	digest := hash.Sum512(s.domain, nonce, vk, msg)
	return jubjub.ReduceScalar(digest[:])
}

// RandomizeSecret returns sk+α.
func RandomizeSecret(sk, alpha *big.Int) *big.Int {
	return jubjub.ScalarAdd(sk, alpha)
}

// RandomizePublic returns vk+α·B for the scheme base.
func (s *Scheme) RandomizePublic(vk *jubjub.Point, alpha *big.Int) jubjub.Point {
	base := s.base()
	shift := jubjub.Mul(&base, alpha)
	return jubjub.Add(vk, &shift)
}

package frost

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/shadeledger/shade-go-base/cbor"
	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/reddsa"
)

const (
	signatureShareTag cbor.Tag = 1104

	domainBindingFactor = "shadeledger.frost.binding_factor"
)

// SignatureShare is a participant's round two message: their additive share
// of the final response scalar.
type SignatureShare struct {
	Identity Identity
	Share    [jubjub.ScalarSize]byte
}

type signatureShareWire struct {
	_        struct{} `cbor:",toarray"`
	Version  uint8
	Identity []byte
	Share    []byte
}

// Serialize encodes the share as a tagged CBOR array.
func (s SignatureShare) Serialize() ([]byte, error) {
	return cbor.MarshalTaggedValue(signatureShareTag, &signatureShareWire{
		Version:  keyPackageVersion,
		Identity: s.Identity.Bytes(),
		Share:    s.Share[:],
	})
}

// DeserializeSignatureShare decodes and validates a signature share.
func DeserializeSignatureShare(data []byte) (SignatureShare, error) {
	var w signatureShareWire
	if err := cbor.UnmarshalTaggedValue(signatureShareTag, data, &w); err != nil {
		return SignatureShare{}, fmt.Errorf("%w: %w", ErrInvalidSignatureShare, err)
	}
	if w.Version != keyPackageVersion {
		return SignatureShare{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidSignatureShare, w.Version)
	}
	identity, err := IdentityFromBytes(w.Identity)
	if err != nil {
		return SignatureShare{}, fmt.Errorf("%w: %w", ErrInvalidSignatureShare, err)
	}
	if _, err := jubjub.ScalarFromBytes(w.Share); err != nil {
		return SignatureShare{}, fmt.Errorf("%w: %w", ErrInvalidSignatureShare, err)
	}
	s := SignatureShare{Identity: identity}
	copy(s.Share[:], w.Share)
	return s, nil
}

// signingSession fixes everything the participants and the coordinator must
// agree on in round two: the sorted participant set, each participant's
// binding factor and Lagrange coefficient, the group nonce commitment and
// the challenge under the randomized group key.
type signingSession struct {
	commitments     []SigningCommitment
	bindingFactors  map[Identity]*big.Int
	lambdas         map[Identity]*big.Int
	groupCommitment [jubjub.PointSize]byte
	randomizedKey   [jubjub.PointSize]byte
	challenge       *big.Int
}

func newSigningSession(
	groupPublicKey [jubjub.PointSize]byte,
	commitments []SigningCommitment,
	message []byte,
	randomizer *big.Int,
	minSigners uint16,
) (*signingSession, error) {
	if randomizer == nil {
		return nil, errors.New("missing key randomizer")
	}
	if len(commitments) < int(minSigners) {
		return nil, fmt.Errorf("%w: %d commitments with min signers %d", ErrInsufficientSigners, len(commitments), minSigners)
	}

	sorted := make([]SigningCommitment, len(commitments))
	copy(sorted, commitments)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Identity[:], sorted[j].Identity[:]) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Identity == sorted[i-1].Identity {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, sorted[i].Identity)
		}
	}

	// Every binding factor commits to the message and the full commitment
	// set, so nonces cannot be replayed into a different session.
	encoded := encodeCommitments(sorted)
	s := &signingSession{
		commitments:    sorted,
		bindingFactors: make(map[Identity]*big.Int, len(sorted)),
		lambdas:        make(map[Identity]*big.Int, len(sorted)),
	}
	for _, c := range sorted {
		digest := hash.Sum512(domainBindingFactor, message, encoded, c.Identity.Bytes())
		s.bindingFactors[c.Identity] = jubjub.ReduceScalar(digest[:])
	}

	group := jubjub.Identity()
	for _, c := range sorted {
		r, err := commitmentNonce(c, s.bindingFactors[c.Identity])
		if err != nil {
			return nil, err
		}
		group = jubjub.Add(&group, &r)
	}
	s.groupCommitment = jubjub.EncodePoint(&group)

	xs := make([]*big.Int, len(sorted))
	for i, c := range sorted {
		x, err := c.Identity.scalar()
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	for i, c := range sorted {
		lambda, err := lagrangeCoefficient(xs[i], xs)
		if err != nil {
			return nil, err
		}
		s.lambdas[c.Identity] = lambda
	}

	groupPoint, err := jubjub.DecodePoint(groupPublicKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: group public key: %w", ErrInvalidKeyPackage, err)
	}
	randomized := reddsa.SpendAuth().RandomizePublic(&groupPoint, randomizer)
	s.randomizedKey = jubjub.EncodePoint(&randomized)
	s.challenge = reddsa.SpendAuth().Challenge(s.groupCommitment[:], s.randomizedKey[:], message)
	return s, nil
}

// commitmentNonce folds one participant's commitments into their effective
// nonce commitment H + ρ·B.
func commitmentNonce(c SigningCommitment, bindingFactor *big.Int) (jubjub.Point, error) {
	hiding, err := jubjub.DecodePoint(c.Hiding[:])
	if err != nil {
		return jubjub.Point{}, fmt.Errorf("signer %s: hiding commitment: %w", c.Identity, err)
	}
	binding, err := jubjub.DecodePoint(c.Binding[:])
	if err != nil {
		return jubjub.Point{}, fmt.Errorf("signer %s: binding commitment: %w", c.Identity, err)
	}
	scaled := jubjub.Mul(&binding, bindingFactor)
	return jubjub.Add(&hiding, &scaled), nil
}

func encodeCommitments(sorted []SigningCommitment) []byte {
	encoded := make([]byte, 0, len(sorted)*(IdentitySize+2*jubjub.PointSize))
	for _, c := range sorted {
		encoded = append(encoded, c.Identity[:]...)
		encoded = append(encoded, c.Hiding[:]...)
		encoded = append(encoded, c.Binding[:]...)
	}
	return encoded
}

// CreateSignatureShare runs round two for one participant: given the full
// commitment set, the message and the transaction's key randomizer, it
// produces the participant's share of the response scalar. The commitment
// set must include the participant's own round one commitment, unchanged.
func CreateSignatureShare(
	kp *KeyPackage,
	nonces *Nonces,
	commitments []SigningCommitment,
	message []byte,
	randomizer *big.Int,
) (SignatureShare, error) {
	if kp == nil || kp.share == nil {
		return SignatureShare{}, fmt.Errorf("%w: missing share", ErrInvalidKeyPackage)
	}
	if nonces == nil {
		return SignatureShare{}, errors.New("missing round one nonces")
	}
	if nonces.identity != kp.identity {
		return SignatureShare{}, fmt.Errorf("nonces belong to %s, key package to %s", nonces.identity, kp.identity)
	}

	session, err := newSigningSession(kp.groupPublicKey, commitments, message, randomizer, kp.minSigners)
	if err != nil {
		return SignatureShare{}, err
	}
	own, ok := session.commitment(kp.identity)
	if !ok {
		return SignatureShare{}, fmt.Errorf("%w: %s", ErrUnknownSigner, kp.identity)
	}
	if own != nonces.Commitment() {
		return SignatureShare{}, errors.New("commitment set carries a substituted commitment for this signer")
	}

	rho := session.bindingFactors[kp.identity]
	lambda := session.lambdas[kp.identity]
	z := jubjub.ScalarAdd(nonces.hiding, jubjub.ScalarMul(rho, nonces.binding))
	z = jubjub.ScalarAdd(z, jubjub.ScalarMul(jubjub.ScalarMul(lambda, session.challenge), kp.share))
	return SignatureShare{
		Identity: kp.identity,
		Share:    jubjub.ScalarToBytes(z),
	}, nil
}

// VerifySignatureShare checks one participant's share against their round
// one commitment and public verification share, identifying misbehaving
// participants before aggregation.
func VerifySignatureShare(
	pub *PublicKeyPackage,
	share SignatureShare,
	commitments []SigningCommitment,
	message []byte,
	randomizer *big.Int,
) error {
	if pub == nil {
		return fmt.Errorf("%w: missing public key package", ErrInvalidKeyPackage)
	}
	session, err := newSigningSession(pub.groupPublicKey, commitments, message, randomizer, pub.minSigners)
	if err != nil {
		return err
	}
	return session.verifyShare(pub, share)
}

func (s *signingSession) commitment(id Identity) (SigningCommitment, bool) {
	for _, c := range s.commitments {
		if c.Identity == id {
			return c, true
		}
	}
	return SigningCommitment{}, false
}

func (s *signingSession) verifyShare(pub *PublicKeyPackage, share SignatureShare) error {
	commitment, ok := s.commitment(share.Identity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, share.Identity)
	}
	publicShare, ok := pub.PublicShare(share.Identity)
	if !ok {
		return fmt.Errorf("%w: %s has no public share", ErrUnknownSigner, share.Identity)
	}
	z, err := jubjub.ScalarFromBytes(share.Share[:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignatureShare, err)
	}

	nonce, err := commitmentNonce(commitment, s.bindingFactors[share.Identity])
	if err != nil {
		return err
	}
	sharePoint, err := jubjub.DecodePoint(publicShare[:])
	if err != nil {
		return fmt.Errorf("%w: public share of %s: %w", ErrInvalidKeyPackage, share.Identity, err)
	}

	// z·B == R_i + c·λ_i·P_i, compared after clearing the cofactor.
	base := reddsa.SpendAuth().Base()
	lhs := jubjub.Mul(&base, z)
	scaled := jubjub.Mul(&sharePoint, jubjub.ScalarMul(s.challenge, s.lambdas[share.Identity]))
	rhs := jubjub.Add(&nonce, &scaled)
	negRhs := jubjub.Neg(&rhs)
	diff := jubjub.Add(&lhs, &negRhs)
	cleared := jubjub.ClearCofactor(&diff)
	if !jubjub.IsIdentity(&cleared) {
		return fmt.Errorf("%w: signer %s", ErrInvalidSignatureShare, share.Identity)
	}
	return nil
}

package frost

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"

	"github.com/shadeledger/shade-go-base/cbor"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/reddsa"
)

const (
	keyPackageTag       cbor.Tag = 1101
	publicKeyPackageTag cbor.Tag = 1102

	keyPackageVersion = 1
)

// KeyPackage is one participant's long lived secret material: their share of
// the spend authorizing key plus what is needed to take part in signing
// sessions.
type KeyPackage struct {
	identity       Identity
	share          *big.Int
	publicShare    [jubjub.PointSize]byte
	groupPublicKey [jubjub.PointSize]byte
	minSigners     uint16
}

// Identity returns the participant this package belongs to.
func (kp *KeyPackage) Identity() Identity { return kp.identity }

// PublicShare returns the participant's public verification share.
func (kp *KeyPackage) PublicShare() [jubjub.PointSize]byte { return kp.publicShare }

// GroupPublicKey returns the joint authorizing key all shares add up to.
func (kp *KeyPackage) GroupPublicKey() [jubjub.PointSize]byte { return kp.groupPublicKey }

// MinSigners returns the signing threshold.
func (kp *KeyPackage) MinSigners() uint16 { return kp.minSigners }

type keyPackageWire struct {
	_              struct{} `cbor:",toarray"`
	Version        uint8
	Identity       []byte
	Share          []byte
	PublicShare    []byte
	GroupPublicKey []byte
	MinSigners     uint16
}

// Serialize encodes the package as a tagged CBOR array. The encoding holds
// the secret share, treat it like the key itself.
func (kp *KeyPackage) Serialize() ([]byte, error) {
	if kp == nil || kp.share == nil {
		return nil, fmt.Errorf("%w: missing share", ErrInvalidKeyPackage)
	}
	share := jubjub.ScalarToBytes(kp.share)
	return cbor.MarshalTaggedValue(keyPackageTag, &keyPackageWire{
		Version:        keyPackageVersion,
		Identity:       kp.identity.Bytes(),
		Share:          share[:],
		PublicShare:    kp.publicShare[:],
		GroupPublicKey: kp.groupPublicKey[:],
		MinSigners:     kp.minSigners,
	})
}

// DeserializeKeyPackage decodes and fully validates a key package: the
// identity and scalars must be canonical and the public share must match the
// secret one.
func DeserializeKeyPackage(data []byte) (*KeyPackage, error) {
	var w keyPackageWire
	if err := cbor.UnmarshalTaggedValue(keyPackageTag, data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyPackage, err)
	}
	if w.Version != keyPackageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidKeyPackage, w.Version)
	}
	identity, err := IdentityFromBytes(w.Identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyPackage, err)
	}
	share, err := jubjub.ScalarFromBytes(w.Share)
	if err != nil {
		return nil, fmt.Errorf("%w: share: %w", ErrInvalidKeyPackage, err)
	}
	kp := &KeyPackage{
		identity:   identity,
		share:      share,
		minSigners: w.MinSigners,
	}
	if kp.minSigners < 2 {
		return nil, fmt.Errorf("%w: min signers %d", ErrInvalidKeyPackage, kp.minSigners)
	}
	if len(w.PublicShare) != jubjub.PointSize || len(w.GroupPublicKey) != jubjub.PointSize {
		return nil, fmt.Errorf("%w: truncated key encoding", ErrInvalidKeyPackage)
	}
	copy(kp.publicShare[:], w.PublicShare)
	copy(kp.groupPublicKey[:], w.GroupPublicKey)
	if reddsa.SpendAuth().VerificationKey(share) != kp.publicShare {
		return nil, fmt.Errorf("%w: public share does not match the secret share", ErrInvalidKeyPackage)
	}
	if _, err := jubjub.DecodePoint(kp.groupPublicKey[:]); err != nil {
		return nil, fmt.Errorf("%w: group public key: %w", ErrInvalidKeyPackage, err)
	}
	return kp, nil
}

// PublicKeyPackage is the shared, non-secret half of a split key: the group
// key, every participant's verification share and the threshold. Verifiers
// and coordinators hold this, never a KeyPackage.
type PublicKeyPackage struct {
	groupPublicKey [jubjub.PointSize]byte
	publicShares   map[Identity][jubjub.PointSize]byte
	minSigners     uint16
}

// GroupPublicKey returns the joint authorizing key.
func (p *PublicKeyPackage) GroupPublicKey() [jubjub.PointSize]byte { return p.groupPublicKey }

// MinSigners returns the signing threshold.
func (p *PublicKeyPackage) MinSigners() uint16 { return p.minSigners }

// PublicShare looks up a participant's verification share.
func (p *PublicKeyPackage) PublicShare(id Identity) ([jubjub.PointSize]byte, bool) {
	share, ok := p.publicShares[id]
	return share, ok
}

// Identities returns every participant, sorted.
func (p *PublicKeyPackage) Identities() []Identity {
	ids := make([]Identity, 0, len(p.publicShares))
	for id := range p.publicShares {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

type publicShareWire struct {
	_           struct{} `cbor:",toarray"`
	Identity    []byte
	PublicShare []byte
}

type publicKeyPackageWire struct {
	_              struct{} `cbor:",toarray"`
	Version        uint8
	GroupPublicKey []byte
	Shares         []publicShareWire
	MinSigners     uint16
}

// Serialize encodes the package as a tagged CBOR array with the shares in
// identity order.
func (p *PublicKeyPackage) Serialize() ([]byte, error) {
	shares := make([]publicShareWire, 0, len(p.publicShares))
	for _, id := range p.Identities() {
		share := p.publicShares[id]
		shares = append(shares, publicShareWire{
			Identity:    id.Bytes(),
			PublicShare: share[:],
		})
	}
	return cbor.MarshalTaggedValue(publicKeyPackageTag, &publicKeyPackageWire{
		Version:        keyPackageVersion,
		GroupPublicKey: p.groupPublicKey[:],
		Shares:         shares,
		MinSigners:     p.minSigners,
	})
}

// DeserializePublicKeyPackage decodes and validates a public key package.
func DeserializePublicKeyPackage(data []byte) (*PublicKeyPackage, error) {
	var w publicKeyPackageWire
	if err := cbor.UnmarshalTaggedValue(publicKeyPackageTag, data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyPackage, err)
	}
	if w.Version != keyPackageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidKeyPackage, w.Version)
	}
	p := &PublicKeyPackage{
		publicShares: make(map[Identity][jubjub.PointSize]byte, len(w.Shares)),
		minSigners:   w.MinSigners,
	}
	if p.minSigners < 2 {
		return nil, fmt.Errorf("%w: min signers %d", ErrInvalidKeyPackage, p.minSigners)
	}
	if len(w.GroupPublicKey) != jubjub.PointSize {
		return nil, fmt.Errorf("%w: truncated group public key", ErrInvalidKeyPackage)
	}
	copy(p.groupPublicKey[:], w.GroupPublicKey)
	if _, err := jubjub.DecodePoint(p.groupPublicKey[:]); err != nil {
		return nil, fmt.Errorf("%w: group public key: %w", ErrInvalidKeyPackage, err)
	}
	for _, s := range w.Shares {
		id, err := IdentityFromBytes(s.Identity)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKeyPackage, err)
		}
		if _, ok := p.publicShares[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
		}
		if len(s.PublicShare) != jubjub.PointSize {
			return nil, fmt.Errorf("%w: truncated public share of %s", ErrInvalidKeyPackage, id)
		}
		if _, err := jubjub.DecodePoint(s.PublicShare); err != nil {
			return nil, fmt.Errorf("%w: public share of %s: %w", ErrInvalidKeyPackage, id, err)
		}
		var share [jubjub.PointSize]byte
		copy(share[:], s.PublicShare)
		p.publicShares[id] = share
	}
	if len(p.publicShares) < int(p.minSigners) {
		return nil, fmt.Errorf("%w: %d shares with min signers %d", ErrInvalidKeyPackage, len(p.publicShares), p.minSigners)
	}
	return p, nil
}

// SplitKey shares the spend authorizing key among the given identities as a
// trusted dealer: any minSigners of them can sign together, fewer learn
// nothing. The original key keeps working; splitting adds signers, it does
// not revoke the dealer.
func SplitKey(rnd io.Reader, secret *big.Int, minSigners int, identities []Identity) ([]*KeyPackage, *PublicKeyPackage, error) {
	if secret == nil {
		return nil, nil, errors.New("missing secret")
	}
	reduced := new(big.Int).Mod(secret, jubjub.Order())
	if reduced.Sign() == 0 {
		return nil, nil, errors.New("secret is zero")
	}
	if minSigners < 2 {
		return nil, nil, fmt.Errorf("min signers must be at least 2, got %d", minSigners)
	}
	if len(identities) > math.MaxUint16 {
		return nil, nil, fmt.Errorf("too many signers: %d", len(identities))
	}
	if len(identities) < minSigners {
		return nil, nil, fmt.Errorf("%w: %d identities with min signers %d", ErrInsufficientSigners, len(identities), minSigners)
	}
	seen := make(map[Identity]struct{}, len(identities))
	for _, id := range identities {
		if _, ok := seen[id]; ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
		}
		seen[id] = struct{}{}
	}

	// f(0) = secret, remaining coefficients random; each participant gets
	// f evaluated at their identity.
	coefficients := make([]*big.Int, minSigners)
	coefficients[0] = reduced
	for i := 1; i < minSigners; i++ {
		c, err := jubjub.RandomScalar(rnd)
		if err != nil {
			return nil, nil, fmt.Errorf("drawing polynomial coefficient: %w", err)
		}
		coefficients[i] = c
	}

	groupPublicKey := reddsa.SpendAuth().VerificationKey(reduced)
	packages := make([]*KeyPackage, 0, len(identities))
	public := &PublicKeyPackage{
		groupPublicKey: groupPublicKey,
		publicShares:   make(map[Identity][jubjub.PointSize]byte, len(identities)),
		minSigners:     uint16(minSigners),
	}
	for _, id := range identities {
		x, err := id.scalar()
		if err != nil {
			return nil, nil, err
		}
		share := evaluatePolynomial(coefficients, x)
		publicShare := reddsa.SpendAuth().VerificationKey(share)
		packages = append(packages, &KeyPackage{
			identity:       id,
			share:          share,
			publicShare:    publicShare,
			groupPublicKey: groupPublicKey,
			minSigners:     uint16(minSigners),
		})
		public.publicShares[id] = publicShare
	}
	return packages, public, nil
}

// ReconstructKey recovers the spend authorizing key from at least the
// threshold of key packages. It exists for recovery flows; handing the
// reconstructed key around defeats the threshold.
func ReconstructKey(packages []*KeyPackage) (*big.Int, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("%w: no key packages", ErrInsufficientSigners)
	}
	minSigners := packages[0].minSigners
	groupPublicKey := packages[0].groupPublicKey
	if len(packages) < int(minSigners) {
		return nil, fmt.Errorf("%w: %d packages with min signers %d", ErrInsufficientSigners, len(packages), minSigners)
	}

	xs := make([]*big.Int, 0, len(packages))
	seen := make(map[Identity]struct{}, len(packages))
	for _, kp := range packages {
		if kp.minSigners != minSigners || kp.groupPublicKey != groupPublicKey {
			return nil, fmt.Errorf("%w: packages belong to different groups", ErrInvalidKeyPackage)
		}
		if _, ok := seen[kp.identity]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, kp.identity)
		}
		seen[kp.identity] = struct{}{}
		x, err := kp.identity.scalar()
		if err != nil {
			return nil, err
		}
		xs = append(xs, x)
	}

	secret := new(big.Int)
	for i, kp := range packages {
		lambda, err := lagrangeCoefficient(xs[i], xs)
		if err != nil {
			return nil, err
		}
		secret = jubjub.ScalarAdd(secret, jubjub.ScalarMul(lambda, kp.share))
	}
	if reddsa.SpendAuth().VerificationKey(secret) != groupPublicKey {
		return nil, fmt.Errorf("%w: reconstructed key does not match the group key", ErrInvalidKeyPackage)
	}
	return secret, nil
}

func evaluatePolynomial(coefficients []*big.Int, x *big.Int) *big.Int {
	acc := new(big.Int).Set(coefficients[len(coefficients)-1])
	for i := len(coefficients) - 2; i >= 0; i-- {
		acc = jubjub.ScalarAdd(jubjub.ScalarMul(acc, x), coefficients[i])
	}
	return acc
}

// lagrangeCoefficient evaluates the Lagrange basis polynomial for x at zero
// over the participant points xs.
func lagrangeCoefficient(x *big.Int, xs []*big.Int) (*big.Int, error) {
	numerator := big.NewInt(1)
	denominator := big.NewInt(1)
	for _, xj := range xs {
		if xj.Cmp(x) == 0 {
			continue
		}
		numerator = jubjub.ScalarMul(numerator, xj)
		denominator = jubjub.ScalarMul(denominator, jubjub.ScalarSub(xj, x))
	}
	inverse, err := jubjub.ScalarInverse(denominator)
	if err != nil {
		return nil, fmt.Errorf("interpolating at zero: %w", err)
	}
	return jubjub.ScalarMul(numerator, inverse), nil
}

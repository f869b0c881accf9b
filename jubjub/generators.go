package jubjub

import (
	"fmt"
	"sync"

	"github.com/shadeledger/shade-go-base/hash"
)

// The fixed protocol bases. Each is derived from its own domain tag by
// hashing to the curve, so no discrete log relation between any two of them
// is known. Derivation runs once per process; a failure means a corrupted
// constant and is not recoverable.
type generatorSet struct {
	spendAuth       Point
	proofAuth       Point
	valueRandomness Point
	noteCommitment  Point
	noteRandomness  Point
	nullifierPos    Point
	diffieHellman   Point
}

var (
	gensOnce sync.Once
	gens     generatorSet
)

func generators() *generatorSet {
	gensOnce.Do(func() {
		gens = generatorSet{
			spendAuth:       mustHashToPoint("shadeledger.base.spend_auth"),
			proofAuth:       mustHashToPoint("shadeledger.base.proof_auth"),
			valueRandomness: mustHashToPoint("shadeledger.base.value_randomness"),
			noteCommitment:  mustHashToPoint("shadeledger.base.note_commitment"),
			noteRandomness:  mustHashToPoint("shadeledger.base.note_randomness"),
			nullifierPos:    mustHashToPoint("shadeledger.base.nullifier_position"),
			diffieHellman:   mustHashToPoint("shadeledger.base.diffie_hellman"),
		}
	})
	return &gens
}

// SpendAuthBase returns the signing base for spend authorization keys.
func SpendAuthBase() Point { return generators().spendAuth }

// ProofAuthBase returns the base turning a proof authorizing scalar into the
// nullifier deriving key.
func ProofAuthBase() Point { return generators().proofAuth }

// ValueRandomnessBase returns the blinding base shared by value commitments
// and the binding signature.
func ValueRandomnessBase() Point { return generators().valueRandomness }

// NoteCommitmentBase returns the base binding the note payload into its
// commitment.
func NoteCommitmentBase() Point { return generators().noteCommitment }

// NoteRandomnessBase returns the blinding base for note commitments.
func NoteRandomnessBase() Point { return generators().noteRandomness }

// NullifierPositionBase returns the base mixing a note's tree position into
// its nullifier.
func NullifierPositionBase() Point { return generators().nullifierPos }

// DiffieHellmanBase returns the base for note encryption key agreement.
func DiffieHellmanBase() Point { return generators().diffieHellman }

func mustHashToPoint(domain string) Point {
	p, err := HashToPoint(domain)
	if err != nil {
		panic(fmt.Errorf("deriving base point %q: %w", domain, err))
	}
	return p
}

// HashToPoint derives a prime order subgroup point from a domain tag and
// optional data by try-and-increment: candidate digests are decoded as point
// encodings until one lands on the curve and survives cofactor clearing.
// Roughly half of all candidates decode, so the expected attempt count is
// two; exhausting the one byte counter is not reachable in practice.
func HashToPoint(domain string, data ...[]byte) (Point, error) {
	for counter := 0; counter < 256; counter++ {
		h := hash.New(domain)
		for _, d := range data {
			h.Write(d)
		}
		h.Write([]byte{byte(counter)})
		digest := h.Sum(nil)

		var p Point
		if _, err := p.SetBytes(digest); err != nil {
			continue
		}
		cleared := ClearCofactor(&p)
		if IsIdentity(&cleared) {
			continue
		}
		return cleared, nil
	}
	return Point{}, fmt.Errorf("no curve point found for domain %q in 256 attempts", domain)
}

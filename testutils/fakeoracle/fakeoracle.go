// Package fakeoracle is a deterministic proof.Oracle for tests. Proofs are
// keyed blake2b tags over the public inputs: cheap to produce, and any
// mutation of proof or inputs fails verification, which is all the
// transaction layer relies on.
package fakeoracle

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/shadeledger/shade-go-base/proof"
)

// Oracle implements proof.Oracle without a proving system.
type Oracle struct {
	key [32]byte

	// ProveErr, when set, makes every Prove call fail with it.
	ProveErr error
}

// New returns an oracle keyed with k. Oracles with different keys reject
// each other's proofs.
func New(k byte) *Oracle {
	o := &Oracle{}
	o.key[0] = k
	return o
}

func (o *Oracle) tag(kind string, pub []byte) (proof.Proof, error) {
	h, err := blake2b.New256(o.key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing tag: %w", err)
	}
	h.Write([]byte(kind))
	h.Write(pub)
	return h.Sum(nil), nil
}

func (o *Oracle) check(kind string, p proof.Proof, pub []byte) error {
	want, err := o.tag(kind, pub)
	if err != nil {
		return err
	}
	if len(p) != len(want) || subtle.ConstantTimeCompare(p, want) != 1 {
		return fmt.Errorf("%w: %s tag mismatch", proof.ErrInvalidProof, kind)
	}
	return nil
}

func (o *Oracle) ProveSpend(s *proof.SpendStatement) (proof.Proof, error) {
	if o.ProveErr != nil {
		return nil, o.ProveErr
	}
	return o.tag("spend", s.Public.Bytes())
}

func (o *Oracle) ProveOutput(s *proof.OutputStatement) (proof.Proof, error) {
	if o.ProveErr != nil {
		return nil, o.ProveErr
	}
	return o.tag("output", s.Public.Bytes())
}

func (o *Oracle) ProveMint(s *proof.MintStatement) (proof.Proof, error) {
	if o.ProveErr != nil {
		return nil, o.ProveErr
	}
	return o.tag("mint", s.Public.Bytes())
}

func (o *Oracle) VerifySpend(p proof.Proof, pub *proof.SpendPublicInputs) error {
	return o.check("spend", p, pub.Bytes())
}

func (o *Oracle) VerifyOutput(p proof.Proof, pub *proof.OutputPublicInputs) error {
	return o.check("output", p, pub.Bytes())
}

func (o *Oracle) VerifyMint(p proof.Proof, pub *proof.MintPublicInputs) error {
	return o.check("mint", p, pub.Bytes())
}

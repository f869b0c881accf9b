// Package groth16oracle implements the proof oracle on Groth16 over
// BLS12-381. Each description kind gets a small circuit that binds the proof
// to an in-circuit MiMC digest of the statement's public inputs, so any bit
// flip in proof or inputs fails verification. It exercises the full oracle
// contract and stands in for the production circuit system, which ships
// separately with the prover service.
package groth16oracle

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	frmimc "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	stdmimc "github.com/consensys/gnark/std/hash/mimc"

	"github.com/shadeledger/shade-go-base/proof"
)

// blockSize is how many public-input bytes fold into one field element;
// 16 bytes always fit below the BLS12-381 scalar modulus.
const blockSize = 16

// digestCircuit asserts that the private block decomposition hashes to the
// public digest. The digest pins a proof to exactly one public-input string.
type digestCircuit struct {
	Blocks []frontend.Variable
	Digest frontend.Variable `gnark:",public"`
}

func (c *digestCircuit) Define(api frontend.API) error {
	h, err := stdmimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Blocks...)
	api.AssertIsEqual(h.Sum(), c.Digest)
	return nil
}

type kind int

const (
	kindSpend kind = iota
	kindOutput
	kindMint
	kindCount
)

var blockCounts = [kindCount]int{
	kindSpend:  blockCount(len((&proof.SpendPublicInputs{}).Bytes())),
	kindOutput: blockCount(len((&proof.OutputPublicInputs{}).Bytes())),
	kindMint:   blockCount(len((&proof.MintPublicInputs{}).Bytes())),
}

func blockCount(n int) int {
	return (n + blockSize - 1) / blockSize
}

// circuitParams holds one kind's compiled constraint system and keys.
type circuitParams struct {
	once sync.Once
	err  error
	ccs  constraint.ConstraintSystem
	pk   groth16.ProvingKey
	vk   groth16.VerifyingKey
}

// Oracle proves and verifies all three description kinds. Parameters are
// generated lazily, once per kind, and shared for the oracle's lifetime.
type Oracle struct {
	params [kindCount]*circuitParams
}

// New returns an oracle with its own parameter set. Most callers want
// Shared instead; separate oracles cannot verify each other's proofs.
func New() *Oracle {
	o := &Oracle{}
	for i := range o.params {
		o.params[i] = &circuitParams{}
	}
	return o
}

var (
	sharedOnce sync.Once
	sharedInst *Oracle
)

// Shared returns the process-wide oracle instance.
func Shared() *Oracle {
	sharedOnce.Do(func() { sharedInst = New() })
	return sharedInst
}

func (o *Oracle) setup(k kind) (*circuitParams, error) {
	cp := o.params[k]
	cp.once.Do(func() {
		circuit := &digestCircuit{Blocks: make([]frontend.Variable, blockCounts[k])}
		ccs, err := frontend.Compile(ecc.BLS12_381.ScalarField(), r1cs.NewBuilder, circuit)
		if err != nil {
			cp.err = fmt.Errorf("compiling circuit: %w", err)
			return
		}
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			cp.err = fmt.Errorf("generating parameters: %w", err)
			return
		}
		cp.ccs, cp.pk, cp.vk = ccs, pk, vk
	})
	return cp, cp.err
}

// ProveSpend implements proof.Prover.
func (o *Oracle) ProveSpend(s *proof.SpendStatement) (proof.Proof, error) {
	if s == nil {
		return nil, errors.New("nil spend statement")
	}
	return o.prove(kindSpend, s.Public.Bytes())
}

// ProveOutput implements proof.Prover.
func (o *Oracle) ProveOutput(s *proof.OutputStatement) (proof.Proof, error) {
	if s == nil {
		return nil, errors.New("nil output statement")
	}
	return o.prove(kindOutput, s.Public.Bytes())
}

// ProveMint implements proof.Prover.
func (o *Oracle) ProveMint(s *proof.MintStatement) (proof.Proof, error) {
	if s == nil {
		return nil, errors.New("nil mint statement")
	}
	return o.prove(kindMint, s.Public.Bytes())
}

// VerifySpend implements proof.Verifier.
func (o *Oracle) VerifySpend(p proof.Proof, pub *proof.SpendPublicInputs) error {
	if pub == nil {
		return errors.New("nil spend public inputs")
	}
	return o.verify(kindSpend, p, pub.Bytes())
}

// VerifyOutput implements proof.Verifier.
func (o *Oracle) VerifyOutput(p proof.Proof, pub *proof.OutputPublicInputs) error {
	if pub == nil {
		return errors.New("nil output public inputs")
	}
	return o.verify(kindOutput, p, pub.Bytes())
}

// VerifyMint implements proof.Verifier.
func (o *Oracle) VerifyMint(p proof.Proof, pub *proof.MintPublicInputs) error {
	if pub == nil {
		return errors.New("nil mint public inputs")
	}
	return o.verify(kindMint, p, pub.Bytes())
}

func (o *Oracle) prove(k kind, pub []byte) (proof.Proof, error) {
	cp, err := o.setup(k)
	if err != nil {
		return nil, err
	}
	blks := inputBlocks(pub)
	d, err := inputDigest(blks)
	if err != nil {
		return nil, err
	}
	w, err := frontend.NewWitness(assignment(blks, d), ecc.BLS12_381.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("building witness: %w", err)
	}
	pf, err := groth16.Prove(cp.ccs, cp.pk, w)
	if err != nil {
		return nil, fmt.Errorf("proving: %w", err)
	}
	var buf bytes.Buffer
	if _, err := pf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding proof: %w", err)
	}
	return buf.Bytes(), nil
}

func (o *Oracle) verify(k kind, rawProof proof.Proof, pub []byte) error {
	cp, err := o.setup(k)
	if err != nil {
		return err
	}
	blks := inputBlocks(pub)
	d, err := inputDigest(blks)
	if err != nil {
		return err
	}
	w, err := frontend.NewWitness(assignment(blks, d), ecc.BLS12_381.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("building public witness: %w", err)
	}
	pf := groth16.NewProof(ecc.BLS12_381)
	if _, err := pf.ReadFrom(bytes.NewReader(rawProof)); err != nil {
		return fmt.Errorf("%w: decoding: %v", proof.ErrInvalidProof, err)
	}
	if err := groth16.Verify(pf, cp.vk, w); err != nil {
		return fmt.Errorf("%w: %v", proof.ErrInvalidProof, err)
	}
	return nil
}

// inputBlocks splits the canonical public-input bytes into field elements.
// Chunks are at most blockSize bytes, so every element is canonical.
func inputBlocks(pub []byte) []fr.Element {
	out := make([]fr.Element, 0, blockCount(len(pub)))
	for start := 0; start < len(pub); start += blockSize {
		end := start + blockSize
		if end > len(pub) {
			end = len(pub)
		}
		var e fr.Element
		e.SetBytes(pub[start:end])
		out = append(out, e)
	}
	return out
}

// inputDigest hashes the blocks with the native MiMC matching the circuit.
func inputDigest(blks []fr.Element) (fr.Element, error) {
	var d fr.Element
	h := frmimc.NewMiMC()
	for _, b := range blks {
		bb := b.Bytes()
		if _, err := h.Write(bb[:]); err != nil {
			return d, fmt.Errorf("hashing public inputs: %w", err)
		}
	}
	d.SetBytes(h.Sum(nil))
	return d, nil
}

func assignment(blks []fr.Element, d fr.Element) *digestCircuit {
	vars := make([]frontend.Variable, len(blks))
	for i := range blks {
		vars[i] = blks[i].BigInt(new(big.Int))
	}
	return &digestCircuit{Blocks: vars, Digest: d.BigInt(new(big.Int))}
}

package transaction

import (
	"fmt"
	"io"
	"math/big"

	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/merkle"
	"github.com/shadeledger/shade-go-base/note"
	"github.com/shadeledger/shade-go-base/proof"
	"github.com/shadeledger/shade-go-base/reddsa"
)

// SpendDescription consumes a previously committed note: it publishes the
// note's nullifier, proves membership under a tree root, and carries a
// detached spend-auth signature over the transaction's signature hash.
// Immutable once built.
type SpendDescription struct {
	Proof           proof.Proof
	ValueCommitment [jubjub.PointSize]byte
	RootHash        [merkle.HashSize]byte
	TreeSize        uint32
	Nullifier       [note.NullifierSize]byte
	Signature       [reddsa.SignatureSize]byte
}

// serializeSigned writes the fields covered by the signature hash, which is
// everything except the signature itself.
func (s *SpendDescription) serializeSigned(w io.Writer) error {
	if err := writeLengthPrefixed(w, s.Proof); err != nil {
		return err
	}
	if _, err := w.Write(s.ValueCommitment[:]); err != nil {
		return err
	}
	if _, err := w.Write(s.RootHash[:]); err != nil {
		return err
	}
	if err := writeUint32(w, s.TreeSize); err != nil {
		return err
	}
	_, err := w.Write(s.Nullifier[:])
	return err
}

func (s *SpendDescription) serialize(w io.Writer) error {
	if err := s.serializeSigned(w); err != nil {
		return err
	}
	_, err := w.Write(s.Signature[:])
	return err
}

// deserializeSpendFields reads the signed fields, leaving the signature to
// the caller: transactions carry one per spend, unsigned transactions none.
func deserializeSpendFields(r io.Reader) (*SpendDescription, error) {
	s := &SpendDescription{}
	var err error
	if s.Proof, err = readLengthPrefixed(r); err != nil {
		return nil, err
	}
	if s.ValueCommitment, err = readArray32(r); err != nil {
		return nil, err
	}
	if s.RootHash, err = readArray32(r); err != nil {
		return nil, err
	}
	if s.TreeSize, err = readUint32(r); err != nil {
		return nil, err
	}
	s.Nullifier, err = readArray32(r)
	return s, err
}

func deserializeSpend(r io.Reader) (*SpendDescription, error) {
	s, err := deserializeSpendFields(r)
	if err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, s.Signature[:]); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SpendDescription) publicInputs(rpk [jubjub.PointSize]byte) *proof.SpendPublicInputs {
	return &proof.SpendPublicInputs{
		ValueCommitment:     s.ValueCommitment,
		RootHash:            s.RootHash,
		TreeSize:            s.TreeSize,
		Nullifier:           s.Nullifier,
		RandomizedPublicKey: rpk,
	}
}

// PartialVerify checks the proof against public inputs reconstructible from
// the description alone plus the transaction's randomized public key. It is
// what a receiver holding a single description can do without the rest of
// the transaction.
func (s *SpendDescription) PartialVerify(v proof.Verifier, rpk [jubjub.PointSize]byte) error {
	if err := v.VerifySpend(s.Proof, s.publicInputs(rpk)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpendProof, err)
	}
	return nil
}

// VerifySignature checks the detached spend-auth signature over the
// transaction's signature hash.
func (s *SpendDescription) VerifySignature(sigHash [32]byte, rpk [jubjub.PointSize]byte) error {
	return reddsa.SpendAuth().Verify(rpk[:], sigHash[:], s.Signature)
}

// pendingSpend is a queued spend intent awaiting proving.
type pendingSpend struct {
	note    *note.Note
	witness merkle.Witness
}

// build proves the spend and returns the description without its signature,
// plus the value commitment whose randomness feeds the binding key.
func (ps *pendingSpend) build(rnd io.Reader, prover proof.Prover, viewKey *keys.ViewKey, rpk [jubjub.PointSize]byte, randomizer *big.Int) (*SpendDescription, *valueCommitment, error) {
	generator, err := ps.note.AssetID().ValueCommitmentGenerator()
	if err != nil {
		return nil, nil, err
	}
	vc, err := newValueCommitment(rnd, ps.note.Value(), &generator)
	if err != nil {
		return nil, nil, err
	}
	nullifier, err := ps.note.Nullifier(viewKey, merkle.WitnessPosition(ps.witness))
	if err != nil {
		return nil, nil, err
	}

	public := proof.SpendPublicInputs{
		ValueCommitment:     vc.encoded(),
		RootHash:            ps.witness.RootHash(),
		TreeSize:            ps.witness.TreeSize(),
		Nullifier:           nullifier,
		RandomizedPublicKey: rpk,
	}
	pf, err := prover.ProveSpend(&proof.SpendStatement{
		Public:          public,
		Note:            ps.note,
		Witness:         ps.witness,
		ValueRandomness: vc.randomness,
		ViewKey:         viewKey,
		Randomizer:      randomizer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("proving spend: %w", err)
	}

	return &SpendDescription{
		Proof:           pf,
		ValueCommitment: public.ValueCommitment,
		RootHash:        public.RootHash,
		TreeSize:        public.TreeSize,
		Nullifier:       public.Nullifier,
	}, vc, nil
}

package transaction

import (
	"fmt"
	"io"

	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/note"
	"github.com/shadeledger/shade-go-base/proof"
)

// OutputDescription creates a note: it carries the encrypted MerkleNote to
// be appended to the commitment tree and a proof that the commitment is well
// formed. Outputs are not individually signed; the binding signature covers
// them. Immutable once built.
type OutputDescription struct {
	Proof      proof.Proof
	MerkleNote *note.MerkleNote
}

// serialize writes the full wire form, which is also what the signature
// hash covers.
func (o *OutputDescription) serialize(w io.Writer) error {
	if err := writeLengthPrefixed(w, o.Proof); err != nil {
		return err
	}
	_, err := w.Write(o.MerkleNote.Serialize())
	return err
}

func deserializeOutput(r io.Reader) (*OutputDescription, error) {
	o := &OutputDescription{}
	var err error
	if o.Proof, err = readLengthPrefixed(r); err != nil {
		return nil, err
	}
	if o.MerkleNote, err = note.DeserializeMerkleNote(r); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *OutputDescription) publicInputs(rpk [jubjub.PointSize]byte) *proof.OutputPublicInputs {
	return &proof.OutputPublicInputs{
		ValueCommitment:     o.MerkleNote.ValueCommitment(),
		NoteCommitment:      o.MerkleNote.NoteCommitment(),
		EphemeralPublicKey:  o.MerkleNote.EphemeralPublicKey(),
		RandomizedPublicKey: rpk,
	}
}

// PartialVerify checks the proof against the description's own public fields
// plus the transaction's randomized public key.
func (o *OutputDescription) PartialVerify(v proof.Verifier, rpk [jubjub.PointSize]byte) error {
	if err := v.VerifyOutput(o.Proof, o.publicInputs(rpk)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutputProof, err)
	}
	return nil
}

// pendingOutput is a queued output intent awaiting encryption and proving.
type pendingOutput struct {
	note *note.Note
}

func (po *pendingOutput) build(rnd io.Reader, prover proof.Prover, ovk keys.OutgoingViewKey, rpk [jubjub.PointSize]byte) (*OutputDescription, *valueCommitment, error) {
	generator, err := po.note.AssetID().ValueCommitmentGenerator()
	if err != nil {
		return nil, nil, err
	}
	vc, err := newValueCommitment(rnd, po.note.Value(), &generator)
	if err != nil {
		return nil, nil, err
	}
	merkleNote, err := note.NewMerkleNote(rnd, po.note, vc.encoded(), ovk)
	if err != nil {
		return nil, nil, err
	}

	public := proof.OutputPublicInputs{
		ValueCommitment:     merkleNote.ValueCommitment(),
		NoteCommitment:      merkleNote.NoteCommitment(),
		EphemeralPublicKey:  merkleNote.EphemeralPublicKey(),
		RandomizedPublicKey: rpk,
	}
	pf, err := prover.ProveOutput(&proof.OutputStatement{
		Public:          public,
		Note:            po.note,
		ValueRandomness: vc.randomness,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("proving output: %w", err)
	}

	return &OutputDescription{Proof: pf, MerkleNote: merkleNote}, vc, nil
}

// Package proof defines the zero-knowledge statements the transaction layer
// proves and the oracle interface that produces and checks the proofs. The
// transaction code depends only on these types; the concrete proving system
// is injected.
package proof

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/merkle"
	"github.com/shadeledger/shade-go-base/note"
)

// ErrInvalidProof is wrapped by oracle implementations when a proof does not
// verify against the given public inputs.
var ErrInvalidProof = errors.New("proof does not verify")

// Proof is an opaque proving-system artifact. Length depends on the oracle.
type Proof []byte

// SpendPublicInputs are the revealed fields of a spend statement.
type SpendPublicInputs struct {
	ValueCommitment     [32]byte
	RootHash            [32]byte
	TreeSize            uint32
	Nullifier           [32]byte
	RandomizedPublicKey [32]byte
}

// Bytes returns the canonical encoding the oracle binds the proof to.
func (p *SpendPublicInputs) Bytes() []byte {
	out := make([]byte, 0, 4*32+4)
	out = append(out, p.ValueCommitment[:]...)
	out = append(out, p.RootHash[:]...)
	out = binary.LittleEndian.AppendUint32(out, p.TreeSize)
	out = append(out, p.Nullifier[:]...)
	out = append(out, p.RandomizedPublicKey[:]...)
	return out
}

// OutputPublicInputs are the revealed fields of an output statement.
type OutputPublicInputs struct {
	ValueCommitment     [32]byte
	NoteCommitment      [32]byte
	EphemeralPublicKey  [32]byte
	RandomizedPublicKey [32]byte
}

// Bytes returns the canonical encoding the oracle binds the proof to.
func (p *OutputPublicInputs) Bytes() []byte {
	out := make([]byte, 0, 4*32)
	out = append(out, p.ValueCommitment[:]...)
	out = append(out, p.NoteCommitment[:]...)
	out = append(out, p.EphemeralPublicKey[:]...)
	out = append(out, p.RandomizedPublicKey[:]...)
	return out
}

// MintPublicInputs are the revealed fields of a mint statement.
type MintPublicInputs struct {
	AssetID             asset.Identifier
	Value               uint64
	Creator             [32]byte
	RandomizedPublicKey [32]byte
}

// Bytes returns the canonical encoding the oracle binds the proof to.
func (p *MintPublicInputs) Bytes() []byte {
	out := make([]byte, 0, 3*32+8)
	out = append(out, p.AssetID.Bytes()...)
	out = binary.LittleEndian.AppendUint64(out, p.Value)
	out = append(out, p.Creator[:]...)
	out = append(out, p.RandomizedPublicKey[:]...)
	return out
}

// SpendStatement is the full input of the spend circuit: the public block
// plus the witness material that stays private.
type SpendStatement struct {
	Public SpendPublicInputs

	Note            *note.Note
	Witness         merkle.Witness
	ValueRandomness *big.Int
	ViewKey         *keys.ViewKey
	Randomizer      *big.Int
}

// OutputStatement is the full input of the output circuit.
type OutputStatement struct {
	Public OutputPublicInputs

	Note            *note.Note
	ValueRandomness *big.Int
}

// MintStatement is the full input of the mint circuit.
type MintStatement struct {
	Public MintPublicInputs

	Asset      *asset.Asset
	Randomizer *big.Int
}

// Prover produces proofs for the three statement kinds. Proving is
// synchronous and runs to completion; callers own any parallelism.
type Prover interface {
	ProveSpend(s *SpendStatement) (Proof, error)
	ProveOutput(s *OutputStatement) (Proof, error)
	ProveMint(s *MintStatement) (Proof, error)
}

// Verifier checks proofs against public inputs. A nil error means the proof
// is valid for exactly those inputs.
type Verifier interface {
	VerifySpend(p Proof, pub *SpendPublicInputs) error
	VerifyOutput(p Proof, pub *OutputPublicInputs) error
	VerifyMint(p Proof, pub *MintPublicInputs) error
}

// Oracle proves and verifies.
type Oracle interface {
	Prover
	Verifier
}

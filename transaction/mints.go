package transaction

import (
	"fmt"
	"io"
	"math/big"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/proof"
	"github.com/shadeledger/shade-go-base/reddsa"
)

// MintDescription creates new value of a custom asset. It carries the full
// asset definition so receivers can re-derive and check the identifier, a
// proof binding the mint to the randomized key, and a detached signature.
// From V2 a mint may also hand the asset's ownership to a new address.
// Immutable once built.
type MintDescription struct {
	Proof proof.Proof
	Asset *asset.Asset
	Value uint64

	// TransferOwnershipTo is nil when the creator keeps ownership. Only
	// representable from V2.
	TransferOwnershipTo *keys.PublicAddress

	Signature [reddsa.SignatureSize]byte
}

// serializeSigned writes the fields covered by the signature hash. The
// version decides whether the transfer target is representable at all.
func (m *MintDescription) serializeSigned(w io.Writer, version Version) error {
	if m.TransferOwnershipTo != nil && !version.supportsMintTransfer() {
		return fmt.Errorf("%w: ownership transfer needs version %d", ErrInvalidTransactionVersion, V2)
	}
	if err := writeLengthPrefixed(w, m.Proof); err != nil {
		return err
	}
	if _, err := w.Write(m.Asset.Serialize()); err != nil {
		return err
	}
	if err := writeUint64(w, m.Value); err != nil {
		return err
	}
	if version.supportsMintTransfer() {
		if m.TransferOwnershipTo == nil {
			_, err := w.Write([]byte{0})
			return err
		}
		if _, err := w.Write([]byte{1}); err != nil {
			return err
		}
		if _, err := w.Write(m.TransferOwnershipTo.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (m *MintDescription) serialize(w io.Writer, version Version) error {
	if err := m.serializeSigned(w, version); err != nil {
		return err
	}
	_, err := w.Write(m.Signature[:])
	return err
}

// deserializeMintFields reads the signed fields, leaving the signature to
// the caller: transactions carry one per mint, unsigned transactions none.
func deserializeMintFields(r io.Reader, version Version) (*MintDescription, error) {
	m := &MintDescription{}
	var err error
	if m.Proof, err = readLengthPrefixed(r); err != nil {
		return nil, err
	}
	if m.Asset, err = asset.Deserialize(r); err != nil {
		return nil, err
	}
	if m.Value, err = readUint64(r); err != nil {
		return nil, err
	}
	if version.supportsMintTransfer() {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return nil, err
		}
		switch flag[0] {
		case 0:
		case 1:
			raw, err := readArray32(r)
			if err != nil {
				return nil, err
			}
			target, err := keys.AddressFromBytes(raw[:])
			if err != nil {
				return nil, fmt.Errorf("%w: transfer target: %w", ErrInvalidTransaction, err)
			}
			m.TransferOwnershipTo = &target
		default:
			return nil, fmt.Errorf("%w: mint transfer flag %#x", ErrInvalidTransaction, flag[0])
		}
	}
	return m, nil
}

func deserializeMint(r io.Reader, version Version) (*MintDescription, error) {
	m, err := deserializeMintFields(r, version)
	if err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, m.Signature[:]); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MintDescription) publicInputs(rpk [jubjub.PointSize]byte) *proof.MintPublicInputs {
	return &proof.MintPublicInputs{
		AssetID:             m.Asset.ID(),
		Value:               m.Value,
		Creator:             m.Asset.Creator(),
		RandomizedPublicKey: rpk,
	}
}

// PartialVerify re-derives the asset identifier from the carried definition
// and checks the proof. A forged identifier fails here regardless of the
// proof.
func (m *MintDescription) PartialVerify(v proof.Verifier, rpk [jubjub.PointSize]byte) error {
	derived, err := asset.Derive(m.Asset.Creator(), m.Asset.RawName(), m.Asset.Nonce())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMintProof, err)
	}
	if derived != m.Asset.ID() {
		return fmt.Errorf("%w: asset identifier does not match its definition", ErrInvalidMintProof)
	}
	if err := v.VerifyMint(m.Proof, m.publicInputs(rpk)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMintProof, err)
	}
	return nil
}

// VerifySignature checks the detached spend-auth signature over the
// transaction's signature hash.
func (m *MintDescription) VerifySignature(sigHash [32]byte, rpk [jubjub.PointSize]byte) error {
	return reddsa.SpendAuth().Verify(rpk[:], sigHash[:], m.Signature)
}

// pendingMint is a queued mint intent awaiting proving.
type pendingMint struct {
	asset      *asset.Asset
	value      uint64
	transferTo *keys.PublicAddress
}

func (pm *pendingMint) build(prover proof.Prover, rpk [jubjub.PointSize]byte, randomizer *big.Int) (*MintDescription, error) {
	public := proof.MintPublicInputs{
		AssetID:             pm.asset.ID(),
		Value:               pm.value,
		Creator:             pm.asset.Creator(),
		RandomizedPublicKey: rpk,
	}
	pf, err := prover.ProveMint(&proof.MintStatement{
		Public:     public,
		Asset:      pm.asset,
		Randomizer: randomizer,
	})
	if err != nil {
		return nil, fmt.Errorf("proving mint: %w", err)
	}
	return &MintDescription{
		Proof:               pf,
		Asset:               pm.asset,
		Value:               pm.value,
		TransferOwnershipTo: pm.transferTo,
	}, nil
}

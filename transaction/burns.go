package transaction

import (
	"fmt"
	"io"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/jubjub"
)

// BurnDescription removes value of a custom asset from circulation. Burns
// carry no proof: the value commitment is unblinded, so anyone can open it
// against the stated value. Immutable once built.
type BurnDescription struct {
	AssetID         asset.Identifier
	Value           uint64
	ValueCommitment [jubjub.PointSize]byte
}

// serialize writes the full wire form, which is also what the signature
// hash covers.
func (b *BurnDescription) serialize(w io.Writer) error {
	if _, err := w.Write(b.AssetID.Bytes()); err != nil {
		return err
	}
	if err := writeUint64(w, b.Value); err != nil {
		return err
	}
	_, err := w.Write(b.ValueCommitment[:])
	return err
}

func deserializeBurn(r io.Reader) (*BurnDescription, error) {
	b := &BurnDescription{}
	raw, err := readArray32(r)
	if err != nil {
		return nil, err
	}
	if b.AssetID, err = asset.IdentifierFromBytes(raw[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if b.Value, err = readUint64(r); err != nil {
		return nil, err
	}
	if b.ValueCommitment, err = readArray32(r); err != nil {
		return nil, err
	}
	return b, nil
}

// VerifyCommitment opens the unblinded commitment: it must equal
// value·G_asset for the stated asset and value.
func (b *BurnDescription) VerifyCommitment() error {
	generator, err := b.AssetID.ValueCommitmentGenerator()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	want := unblindedCommitment(b.Value, &generator)
	if jubjub.EncodePoint(&want) != b.ValueCommitment {
		return fmt.Errorf("%w: burn commitment does not open to its value", ErrVerificationFailed)
	}
	return nil
}

func newBurnDescription(id asset.Identifier, value uint64) (*BurnDescription, error) {
	generator, err := id.ValueCommitmentGenerator()
	if err != nil {
		return nil, err
	}
	commitment := unblindedCommitment(value, &generator)
	return &BurnDescription{
		AssetID:         id,
		Value:           value,
		ValueCommitment: jubjub.EncodePoint(&commitment),
	}, nil
}

// Package transaction assembles, proves, signs and verifies shielded
// transactions. A ProposedTransaction collects spend, output, mint and burn
// intents, enforces the balance rule and produces an UnsignedTransaction;
// signing, single party or threshold, turns that into a Transaction anyone
// can verify without any key material.
package transaction

import (
	"bytes"
	"fmt"
	"io"

	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/reddsa"
)

const domainTransactionHash = "shadeledger.tx.hash"

// maxDescriptions caps per-kind description counts read off the wire.
const maxDescriptions = 1 << 16

// Transaction is a fully signed shielded transaction. Immutable; all state
// transfers live in the descriptions, the header carries only the version,
// expiration, fee and the randomized verification key.
type Transaction struct {
	version          Version
	expiration       uint32
	randomizedKey    [jubjub.PointSize]byte
	fee              int64
	spends           []*SpendDescription
	outputs          []*OutputDescription
	mints            []*MintDescription
	burns            []*BurnDescription
	bindingSignature [reddsa.SignatureSize]byte
}

// Version returns the serialization version.
func (t *Transaction) Version() Version { return t.version }

// Expiration returns the block sequence after which the transaction is
// invalid, zero meaning never.
func (t *Transaction) Expiration() uint32 { return t.expiration }

// Fee returns the declared miner's fee. Negative only in a miner's fee
// transaction, where it pays out the block reward.
func (t *Transaction) Fee() int64 { return t.fee }

// RandomizedPublicKey returns the per-transaction verification key all spend
// and mint signatures verify under.
func (t *Transaction) RandomizedPublicKey() [jubjub.PointSize]byte {
	return t.randomizedKey
}

// Spends returns the spend descriptions.
func (t *Transaction) Spends() []*SpendDescription {
	out := make([]*SpendDescription, len(t.spends))
	copy(out, t.spends)
	return out
}

// Outputs returns the output descriptions.
func (t *Transaction) Outputs() []*OutputDescription {
	out := make([]*OutputDescription, len(t.outputs))
	copy(out, t.outputs)
	return out
}

// Mints returns the mint descriptions.
func (t *Transaction) Mints() []*MintDescription {
	out := make([]*MintDescription, len(t.mints))
	copy(out, t.mints)
	return out
}

// Burns returns the burn descriptions.
func (t *Transaction) Burns() []*BurnDescription {
	out := make([]*BurnDescription, len(t.burns))
	copy(out, t.burns)
	return out
}

// BindingSignature returns the signature tying the value commitments to the
// declared fee.
func (t *Transaction) BindingSignature() [reddsa.SignatureSize]byte {
	return t.bindingSignature
}

// SignatureHash recomputes the digest the spend and mint signatures cover.
func (t *Transaction) SignatureHash() ([32]byte, error) {
	return computeSignatureHash(t.version, t.expiration, t.fee, t.randomizedKey, t.spends, t.outputs, t.mints, t.burns)
}

// Hash returns the transaction identifier, a domain separated digest of the
// full serialization including signatures.
func (t *Transaction) Hash() ([32]byte, error) {
	raw, err := t.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	h := hash.New(domainTransactionHash)
	h.Write(raw)
	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id, nil
}

// Serialize writes the canonical wire form. Deserializing it yields a
// byte-identical transaction.
func (t *Transaction) Serialize() ([]byte, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.Write([]byte{byte(t.version)}); err != nil {
		return nil, err
	}
	if err := writeUint32(buf, t.expiration); err != nil {
		return nil, err
	}
	if _, err := buf.Write(t.randomizedKey[:]); err != nil {
		return nil, err
	}
	if err := writeInt64(buf, t.fee); err != nil {
		return nil, err
	}

	if err := writeUint32(buf, uint32(len(t.spends))); err != nil {
		return nil, err
	}
	for _, s := range t.spends {
		if err := s.serialize(buf); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(buf, uint32(len(t.outputs))); err != nil {
		return nil, err
	}
	for _, o := range t.outputs {
		if err := o.serialize(buf); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(buf, uint32(len(t.mints))); err != nil {
		return nil, err
	}
	for _, m := range t.mints {
		if err := m.serialize(buf, t.version); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(buf, uint32(len(t.burns))); err != nil {
		return nil, err
	}
	for _, b := range t.burns {
		if err := b.serialize(buf); err != nil {
			return nil, err
		}
	}

	if _, err := buf.Write(t.bindingSignature[:]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize reads one transaction from r.
func Deserialize(r io.Reader) (*Transaction, error) {
	t := &Transaction{}

	var versionByte [1]byte
	if _, err := io.ReadFull(r, versionByte[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	t.version = Version(versionByte[0])
	if err := t.version.Validate(); err != nil {
		return nil, err
	}

	var err error
	if t.expiration, err = readUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if t.randomizedKey, err = readArray32(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if t.fee, err = readInt64(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	if t.spends, t.outputs, t.mints, t.burns, err = readDescriptions(r, t.version, true); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(r, t.bindingSignature[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	return t, nil
}

// readDescriptions reads the four description sections in wire order.
// withSignatures selects the signed transaction layout over the unsigned one;
// outputs and burns are identical in both.
func readDescriptions(r io.Reader, version Version, withSignatures bool) ([]*SpendDescription, []*OutputDescription, []*MintDescription, []*BurnDescription, error) {
	spendCount, err := readCount(r, "spend")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	spends := make([]*SpendDescription, 0, spendCount)
	for i := uint32(0); i < spendCount; i++ {
		var s *SpendDescription
		if withSignatures {
			s, err = deserializeSpend(r)
		} else {
			s, err = deserializeSpendFields(r)
		}
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("%w: spend %d: %w", ErrInvalidTransaction, i, err)
		}
		spends = append(spends, s)
	}

	outputCount, err := readCount(r, "output")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	outputs := make([]*OutputDescription, 0, outputCount)
	for i := uint32(0); i < outputCount; i++ {
		o, err := deserializeOutput(r)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("%w: output %d: %w", ErrInvalidTransaction, i, err)
		}
		outputs = append(outputs, o)
	}

	mintCount, err := readCount(r, "mint")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	mints := make([]*MintDescription, 0, mintCount)
	for i := uint32(0); i < mintCount; i++ {
		var m *MintDescription
		if withSignatures {
			m, err = deserializeMint(r, version)
		} else {
			m, err = deserializeMintFields(r, version)
		}
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("%w: mint %d: %w", ErrInvalidTransaction, i, err)
		}
		mints = append(mints, m)
	}

	burnCount, err := readCount(r, "burn")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	burns := make([]*BurnDescription, 0, burnCount)
	for i := uint32(0); i < burnCount; i++ {
		b, err := deserializeBurn(r)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("%w: burn %d: %w", ErrInvalidTransaction, i, err)
		}
		burns = append(burns, b)
	}

	return spends, outputs, mints, burns, nil
}

func readCount(r io.Reader, kind string) (uint32, error) {
	n, err := readUint32(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %s count: %w", ErrInvalidTransaction, kind, err)
	}
	if n > maxDescriptions {
		return 0, fmt.Errorf("%w: %s count %d exceeds %d", ErrInvalidTransaction, kind, n, maxDescriptions)
	}
	return n, nil
}

package transaction

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/reddsa"
)

// UnsignedTransaction is a balanced, proved transaction that still lacks its
// spend and mint signatures. It carries the key randomizer so that signing,
// single party or threshold, can happen after the expensive proving work.
type UnsignedTransaction struct {
	version          Version
	expiration       uint32
	randomizedKey    [jubjub.PointSize]byte
	randomizer       *big.Int
	fee              int64
	spends           []*SpendDescription
	outputs          []*OutputDescription
	mints            []*MintDescription
	burns            []*BurnDescription
	bindingSignature [reddsa.SignatureSize]byte
	sigHash          [32]byte
}

// SignatureHash returns the digest every signature must cover.
func (u *UnsignedTransaction) SignatureHash() [32]byte {
	return u.sigHash
}

// RandomizedPublicKey returns the per-transaction verification key.
func (u *UnsignedTransaction) RandomizedPublicKey() [jubjub.PointSize]byte {
	return u.randomizedKey
}

// Randomizer returns the key randomizer. Threshold round two needs it to
// randomize signature shares consistently with the proofs.
func (u *UnsignedTransaction) Randomizer() *big.Int {
	return new(big.Int).Set(u.randomizer)
}

// Sign produces the final transaction with every spend and mint signed by
// the randomized spend authorizing key.
func (u *UnsignedTransaction) Sign(key *keys.SpendingKey) (*Transaction, error) {
	if key == nil {
		return nil, errors.New("missing spending key")
	}
	viewKey := key.ViewKey()
	expected := reddsa.SpendAuth().RandomizePublic(&viewKey.AuthorizingKey, u.randomizer)
	if jubjub.EncodePoint(&expected) != u.randomizedKey {
		return nil, errors.New("spending key does not match the transaction's randomized key")
	}

	rsk := reddsa.RandomizeSecret(key.SpendAuthorizingKey(), u.randomizer)
	for _, s := range u.spends {
		sig, err := reddsa.SpendAuth().Sign(rand.Reader, rsk, u.sigHash[:])
		if err != nil {
			return nil, fmt.Errorf("signing spend: %w", err)
		}
		s.Signature = sig
	}
	for _, m := range u.mints {
		sig, err := reddsa.SpendAuth().Sign(rand.Reader, rsk, u.sigHash[:])
		if err != nil {
			return nil, fmt.Errorf("signing mint: %w", err)
		}
		m.Signature = sig
	}
	return u.finish(), nil
}

// AddSignature fills every spend and mint slot with an externally produced
// signature, the threshold path's aggregate. The signature must already be
// randomized: it has to verify under the transaction's randomized key.
func (u *UnsignedTransaction) AddSignature(sig [reddsa.SignatureSize]byte) (*Transaction, error) {
	if err := reddsa.SpendAuth().Verify(u.randomizedKey[:], u.sigHash[:], sig); err != nil {
		return nil, fmt.Errorf("aggregate signature: %w", err)
	}
	for _, s := range u.spends {
		s.Signature = sig
	}
	for _, m := range u.mints {
		m.Signature = sig
	}
	return u.finish(), nil
}

func (u *UnsignedTransaction) finish() *Transaction {
	return &Transaction{
		version:          u.version,
		expiration:       u.expiration,
		randomizedKey:    u.randomizedKey,
		fee:              u.fee,
		spends:           u.spends,
		outputs:          u.outputs,
		mints:            u.mints,
		burns:            u.burns,
		bindingSignature: u.bindingSignature,
	}
}

// Serialize writes the wire form: the transaction header plus the key
// randomizer, descriptions without their spend/mint signatures, and the
// binding signature.
func (u *UnsignedTransaction) Serialize() ([]byte, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.Write([]byte{byte(u.version)}); err != nil {
		return nil, err
	}
	if err := writeUint32(buf, u.expiration); err != nil {
		return nil, err
	}
	if _, err := buf.Write(u.randomizedKey[:]); err != nil {
		return nil, err
	}
	randomizer := jubjub.ScalarToBytes(u.randomizer)
	if _, err := buf.Write(randomizer[:]); err != nil {
		return nil, err
	}
	if err := writeInt64(buf, u.fee); err != nil {
		return nil, err
	}

	if err := writeUint32(buf, uint32(len(u.spends))); err != nil {
		return nil, err
	}
	for _, s := range u.spends {
		if err := s.serializeSigned(buf); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(buf, uint32(len(u.outputs))); err != nil {
		return nil, err
	}
	for _, o := range u.outputs {
		if err := o.serialize(buf); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(buf, uint32(len(u.mints))); err != nil {
		return nil, err
	}
	for _, m := range u.mints {
		if err := m.serializeSigned(buf, u.version); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(buf, uint32(len(u.burns))); err != nil {
		return nil, err
	}
	for _, b := range u.burns {
		if err := b.serialize(buf); err != nil {
			return nil, err
		}
	}

	if _, err := buf.Write(u.bindingSignature[:]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeUnsignedTransaction reads one unsigned transaction from r and
// recomputes its signature hash.
func DeserializeUnsignedTransaction(r io.Reader) (*UnsignedTransaction, error) {
	u := &UnsignedTransaction{}

	var versionByte [1]byte
	if _, err := io.ReadFull(r, versionByte[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	u.version = Version(versionByte[0])
	if err := u.version.Validate(); err != nil {
		return nil, err
	}

	var err error
	if u.expiration, err = readUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if u.randomizedKey, err = readArray32(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	rawRandomizer, err := readArray32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if u.randomizer, err = jubjub.ScalarFromBytes(rawRandomizer[:]); err != nil {
		return nil, fmt.Errorf("%w: randomizer: %w", ErrInvalidTransaction, err)
	}
	if u.fee, err = readInt64(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	if u.spends, u.outputs, u.mints, u.burns, err = readDescriptions(r, u.version, false); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(r, u.bindingSignature[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	if u.sigHash, err = computeSignatureHash(u.version, u.expiration, u.fee, u.randomizedKey, u.spends, u.outputs, u.mints, u.burns); err != nil {
		return nil, err
	}
	return u, nil
}

package transaction

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shadeledger/shade-go-base/frost"
)

// SigningPackage is what the coordinator hands every signer between the two
// threshold signing rounds: the collected round one commitments, the
// session's signer roster and the unsigned transaction whose signature hash
// and key randomizer drive round two.
type SigningPackage struct {
	commitments []frost.SigningCommitment
	signers     []frost.Identity
	unsigned    *UnsignedTransaction
}

// NewSigningPackage bundles the collected commitments with the signer roster
// for one session. Roster and commitments must match one to one: a commitment
// from outside the roster, or a signer who never committed, fails the session
// here rather than mid round two.
func NewSigningPackage(commitments []frost.SigningCommitment, signers []frost.Identity, unsigned *UnsignedTransaction) (*SigningPackage, error) {
	if unsigned == nil {
		return nil, errors.New("missing unsigned transaction")
	}
	if len(commitments) == 0 {
		return nil, fmt.Errorf("%w: no commitments", frost.ErrInsufficientSigners)
	}
	roster := make(map[frost.Identity]struct{}, len(signers))
	for _, id := range signers {
		if _, ok := roster[id]; ok {
			return nil, fmt.Errorf("%w: %s", frost.ErrDuplicateIdentity, id)
		}
		roster[id] = struct{}{}
	}
	committed := make(map[frost.Identity]struct{}, len(commitments))
	for _, c := range commitments {
		if _, ok := committed[c.Identity]; ok {
			return nil, fmt.Errorf("%w: %s", frost.ErrDuplicateIdentity, c.Identity)
		}
		committed[c.Identity] = struct{}{}
		if _, ok := roster[c.Identity]; !ok {
			return nil, fmt.Errorf("%w: commitment from %s outside the roster", frost.ErrUnknownSigner, c.Identity)
		}
	}
	for _, id := range signers {
		if _, ok := committed[id]; !ok {
			return nil, fmt.Errorf("%w: no commitment from %s", frost.ErrUnknownSigner, id)
		}
	}
	return &SigningPackage{
		commitments: append([]frost.SigningCommitment(nil), commitments...),
		signers:     append([]frost.Identity(nil), signers...),
		unsigned:    unsigned,
	}, nil
}

// Commitments returns the collected round one commitments.
func (sp *SigningPackage) Commitments() []frost.SigningCommitment {
	return append([]frost.SigningCommitment(nil), sp.commitments...)
}

// Signers returns the session roster.
func (sp *SigningPackage) Signers() []frost.Identity {
	return append([]frost.Identity(nil), sp.signers...)
}

// UnsignedTransaction returns the transaction being signed.
func (sp *SigningPackage) UnsignedTransaction() *UnsignedTransaction {
	return sp.unsigned
}

// CreateSignatureShare runs round two for one signer against this package's
// transaction: the message is the signature hash, the randomizer the one the
// proofs were built with. The nonces are the signer's round one nonces for
// this session, recomputable from the same seed.
func (sp *SigningPackage) CreateSignatureShare(kp *frost.KeyPackage, nonces *frost.Nonces) (frost.SignatureShare, error) {
	sigHash := sp.unsigned.SignatureHash()
	return frost.CreateSignatureShare(kp, nonces, sp.commitments, sigHash[:], sp.unsigned.Randomizer())
}

// VerifySignatureShare checks one signer's round two share.
func (sp *SigningPackage) VerifySignatureShare(pub *frost.PublicKeyPackage, share frost.SignatureShare) error {
	sigHash := sp.unsigned.SignatureHash()
	return frost.VerifySignatureShare(pub, share, sp.commitments, sigHash[:], sp.unsigned.Randomizer())
}

// AggregateSignatureShares folds the shares into the aggregate spend
// authorization and finishes the transaction with it.
func (sp *SigningPackage) AggregateSignatureShares(pub *frost.PublicKeyPackage, shares []frost.SignatureShare) (*Transaction, error) {
	sigHash := sp.unsigned.SignatureHash()
	sig, err := frost.Aggregate(pub, sp.commitments, shares, sigHash[:], sp.unsigned.Randomizer())
	if err != nil {
		return nil, err
	}
	return sp.unsigned.AddSignature(sig)
}

// Serialize writes the package: the length prefixed commitment set, the
// roster, then the unsigned transaction running to the end of the stream.
func (sp *SigningPackage) Serialize() ([]byte, error) {
	buf := &bytes.Buffer{}
	frostBytes, err := frost.SerializeCommitments(sp.commitments)
	if err != nil {
		return nil, err
	}
	if err := writeLengthPrefixed(buf, frostBytes); err != nil {
		return nil, err
	}
	if err := writeUint32(buf, uint32(len(sp.signers))); err != nil {
		return nil, err
	}
	for _, id := range sp.signers {
		if _, err := buf.Write(id.Bytes()); err != nil {
			return nil, err
		}
	}
	unsignedBytes, err := sp.unsigned.Serialize()
	if err != nil {
		return nil, err
	}
	if _, err := buf.Write(unsignedBytes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeSigningPackage reads a signing package and revalidates the
// roster against the commitment set.
func DeserializeSigningPackage(data []byte) (*SigningPackage, error) {
	r := bytes.NewReader(data)

	frostBytes, err := readLengthPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	commitments, err := frost.DeserializeCommitments(frostBytes)
	if err != nil {
		return nil, err
	}

	count, err := readCount(r, "signer")
	if err != nil {
		return nil, err
	}
	signers := make([]frost.Identity, 0, count)
	for i := uint32(0); i < count; i++ {
		raw, err := readArray32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: signer %d: %w", ErrInvalidTransaction, i, err)
		}
		id, err := frost.IdentityFromBytes(raw[:])
		if err != nil {
			return nil, err
		}
		signers = append(signers, id)
	}

	unsigned, err := DeserializeUnsignedTransaction(r)
	if err != nil {
		return nil, err
	}
	return NewSigningPackage(commitments, signers, unsigned)
}

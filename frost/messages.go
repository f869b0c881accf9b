package frost

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/shadeledger/shade-go-base/cbor"
)

const (
	round1CommitmentTag cbor.Tag = 1105
	round2ShareTag      cbor.Tag = 1106
)

// Round1Commitment is the transport envelope for a round one commitment: the
// session it belongs to plus the commitment itself. Participants send these
// to the coordinator over any transport; the session ID lets a coordinator
// running several ceremonies route them.
type Round1Commitment struct {
	SessionID  uuid.UUID
	Commitment SigningCommitment
}

// Round2Share is the transport envelope for a round two signature share.
type Round2Share struct {
	SessionID uuid.UUID
	Share     SignatureShare
}

type round1CommitmentWire struct {
	_          struct{} `cbor:",toarray"`
	Version    uint8
	SessionID  []byte
	Commitment []byte
}

type round2ShareWire struct {
	_         struct{} `cbor:",toarray"`
	Version   uint8
	SessionID []byte
	Share     []byte
}

// Serialize encodes the message as a tagged CBOR array.
func (m Round1Commitment) Serialize() ([]byte, error) {
	commitment, err := m.Commitment.Serialize()
	if err != nil {
		return nil, err
	}
	return cbor.MarshalTaggedValue(round1CommitmentTag, &round1CommitmentWire{
		Version:    keyPackageVersion,
		SessionID:  m.SessionID[:],
		Commitment: commitment,
	})
}

// DeserializeRound1Commitment decodes and validates a round one message.
func DeserializeRound1Commitment(data []byte) (Round1Commitment, error) {
	var w round1CommitmentWire
	if err := cbor.UnmarshalTaggedValue(round1CommitmentTag, data, &w); err != nil {
		return Round1Commitment{}, fmt.Errorf("invalid round one message: %w", err)
	}
	if w.Version != keyPackageVersion {
		return Round1Commitment{}, fmt.Errorf("invalid round one message: unsupported version %d", w.Version)
	}
	sessionID, err := uuid.FromBytes(w.SessionID)
	if err != nil {
		return Round1Commitment{}, fmt.Errorf("invalid round one message: session: %w", err)
	}
	commitment, err := DeserializeSigningCommitment(w.Commitment)
	if err != nil {
		return Round1Commitment{}, err
	}
	return Round1Commitment{SessionID: sessionID, Commitment: commitment}, nil
}

// Serialize encodes the message as a tagged CBOR array.
func (m Round2Share) Serialize() ([]byte, error) {
	share, err := m.Share.Serialize()
	if err != nil {
		return nil, err
	}
	return cbor.MarshalTaggedValue(round2ShareTag, &round2ShareWire{
		Version:   keyPackageVersion,
		SessionID: m.SessionID[:],
		Share:     share,
	})
}

// DeserializeRound2Share decodes and validates a round two message.
func DeserializeRound2Share(data []byte) (Round2Share, error) {
	var w round2ShareWire
	if err := cbor.UnmarshalTaggedValue(round2ShareTag, data, &w); err != nil {
		return Round2Share{}, fmt.Errorf("invalid round two message: %w", err)
	}
	if w.Version != keyPackageVersion {
		return Round2Share{}, fmt.Errorf("invalid round two message: unsupported version %d", w.Version)
	}
	sessionID, err := uuid.FromBytes(w.SessionID)
	if err != nil {
		return Round2Share{}, fmt.Errorf("invalid round two message: session: %w", err)
	}
	share, err := DeserializeSignatureShare(w.Share)
	if err != nil {
		return Round2Share{}, err
	}
	return Round2Share{SessionID: sessionID, Share: share}, nil
}

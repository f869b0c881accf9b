package frost

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Ceremony collects one signing session's round messages for a coordinator.
// Participants deliver commitments and shares over whatever transport the
// application uses; waiters block until the threshold is reached. A ceremony
// is single use.
type Ceremony struct {
	sessionID  uuid.UUID
	minSigners int

	mu              sync.Mutex
	commitments     map[Identity]SigningCommitment
	shares          map[Identity]SignatureShare
	commitmentsDone chan struct{}
	sharesDone      chan struct{}
}

// NewCeremony starts a signing session expecting exactly minSigners
// participants.
func NewCeremony(minSigners int) (*Ceremony, error) {
	if minSigners < 2 {
		return nil, fmt.Errorf("min signers must be at least 2, got %d", minSigners)
	}
	return &Ceremony{
		sessionID:       uuid.New(),
		minSigners:      minSigners,
		commitments:     make(map[Identity]SigningCommitment, minSigners),
		shares:          make(map[Identity]SignatureShare, minSigners),
		commitmentsDone: make(chan struct{}),
		sharesDone:      make(chan struct{}),
	}, nil
}

// SessionID identifies the ceremony across transports.
func (c *Ceremony) SessionID() uuid.UUID { return c.sessionID }

// HandleRound1 delivers a transported round one message, rejecting
// commitments addressed to a different session.
func (c *Ceremony) HandleRound1(msg Round1Commitment) error {
	if msg.SessionID != c.sessionID {
		return fmt.Errorf("round one message for session %s, this is %s", msg.SessionID, c.sessionID)
	}
	return c.AddCommitment(msg.Commitment)
}

// HandleRound2 delivers a transported round two message.
func (c *Ceremony) HandleRound2(msg Round2Share) error {
	if msg.SessionID != c.sessionID {
		return fmt.Errorf("round two message for session %s, this is %s", msg.SessionID, c.sessionID)
	}
	return c.AddShare(msg.Share)
}

// AddCommitment records a participant's round one commitment. The
// participant set is the first minSigners distinct committers; once it is
// full, further commitments are rejected.
func (c *Ceremony) AddCommitment(commitment SigningCommitment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.commitments) >= c.minSigners {
		return fmt.Errorf("session %s already has %d commitments", c.sessionID, c.minSigners)
	}
	if _, ok := c.commitments[commitment.Identity]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, commitment.Identity)
	}
	c.commitments[commitment.Identity] = commitment
	if len(c.commitments) == c.minSigners {
		close(c.commitmentsDone)
	}
	return nil
}

// WaitCommitments blocks until the participant set is complete and returns
// it sorted by identity. This is the set every participant must feed into
// CreateSignatureShare.
func (c *Ceremony) WaitCommitments(ctx context.Context) ([]SigningCommitment, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.commitmentsDone:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SigningCommitment, 0, len(c.commitments))
	for _, commitment := range c.commitments {
		out = append(out, commitment)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Identity[:], out[j].Identity[:]) < 0
	})
	return out, nil
}

// AddShare records a participant's round two share. Only committed
// participants may contribute, one share each.
func (c *Ceremony) AddShare(share SignatureShare) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.commitmentsDone:
	default:
		return fmt.Errorf("session %s is still collecting commitments", c.sessionID)
	}
	if _, ok := c.commitments[share.Identity]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, share.Identity)
	}
	if _, ok := c.shares[share.Identity]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, share.Identity)
	}
	c.shares[share.Identity] = share
	if len(c.shares) == c.minSigners {
		close(c.sharesDone)
	}
	return nil
}

// WaitShares blocks until every committed participant has delivered a share
// and returns them sorted by identity, ready for Aggregate.
func (c *Ceremony) WaitShares(ctx context.Context) ([]SignatureShare, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.sharesDone:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SignatureShare, 0, len(c.shares))
	for _, share := range c.shares {
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Identity[:], out[j].Identity[:]) < 0
	})
	return out, nil
}

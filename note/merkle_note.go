package note

import (
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
)

const (
	// EncryptedNoteSize is the owner-audience ciphertext length.
	EncryptedNoteSize = notePlaintextSize + 16
	// NoteEncryptionKeysSize is the spender-audience ciphertext length.
	NoteEncryptionKeysSize = jubjub.ScalarSize + keys.AddressSize + 16
	// MerkleNoteSize is the wire length of a MerkleNote.
	MerkleNoteSize = jubjub.PointSize + CommitmentSize + jubjub.PointSize + EncryptedNoteSize + NoteEncryptionKeysSize
)

const (
	domainSharedSecret   = "shadeledger.note.shared_secret"
	domainOutgoingCipher = "shadeledger.note.outgoing_cipher"
)

// MerkleNote is the transport form of a note: the commitment pair that goes
// into the tree plus two independently keyed ciphertexts, one the owner can
// open with the incoming view key, one the sender can open with the outgoing
// view key.
type MerkleNote struct {
	valueCommitment    [jubjub.PointSize]byte
	noteCommitment     [CommitmentSize]byte
	ephemeralPublicKey [jubjub.PointSize]byte
	encryptedNote      [EncryptedNoteSize]byte
	noteEncryptionKeys [NoteEncryptionKeysSize]byte
}

// NewMerkleNote encrypts n for both audiences. valueCommitment is the
// encoded commitment to the note's value produced by the transaction
// builder; it is bound into the spender-audience key derivation.
func NewMerkleNote(rnd io.Reader, n *Note, valueCommitment [jubjub.PointSize]byte, ovk keys.OutgoingViewKey) (*MerkleNote, error) {
	countAttempt()

	ownerPoint, err := n.owner.Point()
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidNoteData, err)
	}
	esk, err := jubjub.RandomScalar(rnd)
	if err != nil {
		return nil, fmt.Errorf("drawing ephemeral secret: %w", err)
	}
	dhBase := jubjub.DiffieHellmanBase()
	epkPoint := jubjub.Mul(&dhBase, esk)
	epk := jubjub.EncodePoint(&epkPoint)

	cm, err := n.Commitment()
	if err != nil {
		return nil, err
	}

	sharedPoint := jubjub.Mul(&ownerPoint, esk)
	key := sharedSecretKey(&sharedPoint, epk)
	pt := n.plaintext()
	ownerCipher, err := sealNote(key, pt[:])
	if err != nil {
		return nil, err
	}

	ock := hash.Sum256(domainOutgoingCipher, ovk[:], valueCommitment[:], cm[:], epk[:])
	eskBytes := jubjub.ScalarToBytes(esk)
	spenderPlain := make([]byte, 0, jubjub.ScalarSize+keys.AddressSize)
	spenderPlain = append(spenderPlain, eskBytes[:]...)
	spenderPlain = append(spenderPlain, n.owner.Bytes()...)
	spenderCipher, err := sealNote(ock, spenderPlain)
	if err != nil {
		return nil, err
	}

	m := &MerkleNote{
		valueCommitment:    valueCommitment,
		noteCommitment:     cm,
		ephemeralPublicKey: epk,
	}
	copy(m.encryptedNote[:], ownerCipher)
	copy(m.noteEncryptionKeys[:], spenderCipher)

	countSuccess()
	return m, nil
}

// DecryptNoteForOwner opens the owner-audience ciphertext with the incoming
// view key. A key that the note was not addressed to fails with
// ErrNoteDecryptionFailed, which callers should treat as "not mine" rather
// than as a hard error.
func (m *MerkleNote) DecryptNoteForOwner(ivk *keys.IncomingViewKey) (*Note, error) {
	countAttempt()
	if ivk == nil {
		return nil, fmt.Errorf("%w: missing incoming view key", ErrInvalidNoteData)
	}

	epkPoint, err := jubjub.DecodePoint(m.ephemeralPublicKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrNoteDecryptionFailed, err)
	}
	sharedPoint := jubjub.Mul(&epkPoint, ivk.Scalar())
	key := sharedSecretKey(&sharedPoint, m.ephemeralPublicKey)

	pt, err := openNote(key, m.encryptedNote[:])
	if err != nil {
		return nil, err
	}
	n, err := noteFromPlaintext(ivk.PublicAddress(), pt)
	if err != nil {
		return nil, err
	}
	if err := m.checkCommitment(n); err != nil {
		return nil, err
	}

	countSuccess()
	return n, nil
}

// DecryptNoteForSpender recovers the note through the outgoing view key
// path: the spender ciphertext yields the ephemeral secret and the owner
// address, which together unlock the owner ciphertext.
func (m *MerkleNote) DecryptNoteForSpender(ovk keys.OutgoingViewKey) (*Note, error) {
	countAttempt()

	ock := hash.Sum256(domainOutgoingCipher, ovk[:], m.valueCommitment[:], m.noteCommitment[:], m.ephemeralPublicKey[:])
	spenderPlain, err := openNote(ock, m.noteEncryptionKeys[:])
	if err != nil {
		return nil, err
	}
	esk, err := jubjub.ScalarFromBytes(spenderPlain[:jubjub.ScalarSize])
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral secret: %v", ErrInvalidNoteData, err)
	}
	owner, err := keys.AddressFromBytes(spenderPlain[jubjub.ScalarSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidNoteData, err)
	}

	// the recovered secret must reproduce the public ephemeral key
	dhBase := jubjub.DiffieHellmanBase()
	epkPoint := jubjub.Mul(&dhBase, esk)
	if jubjub.EncodePoint(&epkPoint) != m.ephemeralPublicKey {
		return nil, fmt.Errorf("%w: ephemeral key mismatch", ErrInvalidNoteData)
	}

	ownerPoint, err := owner.Point()
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidNoteData, err)
	}
	sharedPoint := jubjub.Mul(&ownerPoint, esk)
	key := sharedSecretKey(&sharedPoint, m.ephemeralPublicKey)
	pt, err := openNote(key, m.encryptedNote[:])
	if err != nil {
		return nil, err
	}
	n, err := noteFromPlaintext(owner, pt)
	if err != nil {
		return nil, err
	}
	if err := m.checkCommitment(n); err != nil {
		return nil, err
	}

	countSuccess()
	return n, nil
}

func (m *MerkleNote) checkCommitment(n *Note) error {
	cm, err := n.Commitment()
	if err != nil {
		return err
	}
	if cm != m.noteCommitment {
		return fmt.Errorf("%w: decrypted note does not match commitment", ErrInvalidNoteData)
	}
	return nil
}

// ValueCommitment returns the encoded value commitment carried by the note.
func (m *MerkleNote) ValueCommitment() [jubjub.PointSize]byte {
	return m.valueCommitment
}

// NoteCommitment returns the note commitment.
func (m *MerkleNote) NoteCommitment() [CommitmentSize]byte {
	return m.noteCommitment
}

// EphemeralPublicKey returns the encryption ephemeral public key.
func (m *MerkleNote) EphemeralPublicKey() [jubjub.PointSize]byte {
	return m.ephemeralPublicKey
}

// MerkleHash returns the tree leaf for this note, its commitment.
func (m *MerkleNote) MerkleHash() [CommitmentSize]byte {
	return m.noteCommitment
}

// Serialize returns the wire encoding: value commitment ‖ note commitment ‖
// ephemeral public key ‖ owner ciphertext ‖ spender ciphertext.
func (m *MerkleNote) Serialize() []byte {
	out := make([]byte, 0, MerkleNoteSize)
	out = append(out, m.valueCommitment[:]...)
	out = append(out, m.noteCommitment[:]...)
	out = append(out, m.ephemeralPublicKey[:]...)
	out = append(out, m.encryptedNote[:]...)
	out = append(out, m.noteEncryptionKeys[:]...)
	return out
}

// DeserializeMerkleNote reads one MerkleNote from r.
func DeserializeMerkleNote(r io.Reader) (*MerkleNote, error) {
	buf := make([]byte, MerkleNoteSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading merkle note: %w", err)
	}
	m := &MerkleNote{}
	offset := copy(m.valueCommitment[:], buf)
	offset += copy(m.noteCommitment[:], buf[offset:])
	offset += copy(m.ephemeralPublicKey[:], buf[offset:])
	offset += copy(m.encryptedNote[:], buf[offset:])
	copy(m.noteEncryptionKeys[:], buf[offset:])
	return m, nil
}

func sharedSecretKey(sharedPoint *jubjub.Point, epk [jubjub.PointSize]byte) [32]byte {
	ssBytes := jubjub.EncodePoint(sharedPoint)
	return hash.Sum256(domainSharedSecret, ssBytes[:], epk[:])
}

// sealNote encrypts plaintext under key. Every key is derived for exactly
// one ciphertext, so a fixed nonce is safe.
func sealNote(key [32]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing note cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

func openNote(key [32]byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing note cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrNoteDecryptionFailed
	}
	return pt, nil
}

package note

import "sync/atomic"

var (
	encryptionAttempts  atomic.Uint64
	encryptionSuccesses atomic.Uint64
)

func countAttempt() { encryptionAttempts.Add(1) }
func countSuccess() { encryptionSuccesses.Add(1) }

// EncryptionStats reports process-wide counters of note encryption and
// decryption attempts and how many of them completed. Decrypting with a key
// a note was not addressed to counts as an attempt without a success, so on
// a scanning wallet the two numbers are expected to diverge.
func EncryptionStats() (attempts, successes uint64) {
	return encryptionAttempts.Load(), encryptionSuccesses.Load()
}

package transaction

import "fmt"

// Version selects the transaction wire format. V2 extends mint descriptions
// with an optional ownership-transfer target; everything else is shared.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2

	// LatestVersion is what new transactions default to.
	LatestVersion = V2
)

// Validate rejects unknown versions.
func (v Version) Validate() error {
	if v < V1 || v > V2 {
		return fmt.Errorf("%w: %d", ErrInvalidTransactionVersion, v)
	}
	return nil
}

// supportsMintTransfer reports whether mints may carry an ownership-transfer
// target at this version.
func (v Version) supportsMintTransfer() bool {
	return v >= V2
}

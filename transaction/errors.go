package transaction

import "errors"

var (
	// ErrInvalidBalance means the per-asset value conservation check failed.
	ErrInvalidBalance = errors.New("transaction is not balanced")
	// ErrIllegalValue means a value is out of the representable or permitted
	// range for its operation.
	ErrIllegalValue = errors.New("illegal value")
	// ErrValueOverflow means accumulating a legal value overflowed a running
	// per-asset total.
	ErrValueOverflow = errors.New("value overflow")
	// ErrInvalidTransactionVersion means the version byte is unknown or the
	// requested feature needs a newer version.
	ErrInvalidTransactionVersion = errors.New("invalid transaction version")
	// ErrInvalidTransaction means the wire data is malformed.
	ErrInvalidTransaction = errors.New("invalid transaction data")
	// ErrInvalidMinersFee means a miners fee transaction does not have the
	// required single-output shape.
	ErrInvalidMinersFee = errors.New("invalid miners fee transaction")
	// ErrInvalidWitness means a spend witness does not verify against the
	// note commitment it is supposed to include.
	ErrInvalidWitness = errors.New("witness does not verify note commitment")

	ErrInvalidSpendProof  = errors.New("invalid spend proof")
	ErrInvalidOutputProof = errors.New("invalid output proof")
	ErrInvalidMintProof   = errors.New("invalid mint proof")
	// ErrVerificationFailed covers transaction-level verification failures
	// that are not attributable to one proof: signatures, binding signature,
	// commitment openings.
	ErrVerificationFailed = errors.New("transaction verification failed")
)

package transaction

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/proof"
	"github.com/shadeledger/shade-go-base/proof/groth16oracle"
	"github.com/shadeledger/shade-go-base/reddsa"
)

// VerifyTransaction checks a transaction with the default proof oracle. It
// needs no key material: proofs, signatures and the binding equation are all
// publicly checkable.
func VerifyTransaction(t *Transaction) error {
	return VerifyTransactionWithOracle(groth16oracle.Shared(), t)
}

// VerifyTransactionWithOracle checks every proof, every signature and the
// binding equation of t against the given verifier. Any single failure fails
// the transaction.
func VerifyTransactionWithOracle(v proof.Verifier, t *Transaction) error {
	if v == nil || t == nil {
		return fmt.Errorf("%w: missing verifier or transaction", ErrVerificationFailed)
	}
	if err := t.version.Validate(); err != nil {
		return err
	}
	rpk, err := jubjub.DecodePoint(t.randomizedKey[:])
	if err != nil {
		return fmt.Errorf("%w: randomized public key: %w", ErrVerificationFailed, err)
	}
	if jubjub.IsIdentity(&rpk) {
		return fmt.Errorf("%w: randomized public key is the identity", ErrVerificationFailed)
	}
	sigHash, err := t.SignatureHash()
	if err != nil {
		return err
	}

	for i, s := range t.spends {
		if err := s.VerifySignature(sigHash, t.randomizedKey); err != nil {
			return fmt.Errorf("%w: spend %d signature: %w", ErrVerificationFailed, i, err)
		}
		if err := s.PartialVerify(v, t.randomizedKey); err != nil {
			return fmt.Errorf("spend %d: %w", i, err)
		}
	}
	for i, o := range t.outputs {
		if err := o.PartialVerify(v, t.randomizedKey); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	for i, m := range t.mints {
		if m.Value == 0 {
			return fmt.Errorf("%w: mint %d has zero value", ErrVerificationFailed, i)
		}
		if m.Asset.ID() == asset.NativeID() {
			return fmt.Errorf("%w: mint %d mints the native asset", ErrVerificationFailed, i)
		}
		if err := m.VerifySignature(sigHash, t.randomizedKey); err != nil {
			return fmt.Errorf("%w: mint %d signature: %w", ErrVerificationFailed, i, err)
		}
		if err := m.PartialVerify(v, t.randomizedKey); err != nil {
			return fmt.Errorf("mint %d: %w", i, err)
		}
	}
	for i, b := range t.burns {
		if b.Value == 0 {
			return fmt.Errorf("%w: burn %d has zero value", ErrVerificationFailed, i)
		}
		if b.AssetID == asset.NativeID() {
			return fmt.Errorf("%w: burn %d burns the native asset", ErrVerificationFailed, i)
		}
		if err := b.VerifyCommitment(); err != nil {
			return fmt.Errorf("burn %d: %w", i, err)
		}
	}

	bvk, err := bindingVerificationKey(t)
	if err != nil {
		return err
	}
	if err := reddsa.Binding().Verify(bvk[:], bindingMessage(sigHash, bvk), t.bindingSignature); err != nil {
		return fmt.Errorf("%w: binding signature: %w", ErrVerificationFailed, err)
	}
	return nil
}

// bindingVerificationKey folds the transaction's value commitments into the
// public binding key: spend and mint value enters positively, output and
// burn value and the fee negatively. When the transaction balances, every
// value generator cancels and the result lies on the randomness base, so the
// binding signature can only have been made with the matching randomness sum.
func bindingVerificationKey(t *Transaction) ([jubjub.PointSize]byte, error) {
	acc := jubjub.Identity()

	for i, s := range t.spends {
		p, err := jubjub.DecodePoint(s.ValueCommitment[:])
		if err != nil {
			return [jubjub.PointSize]byte{}, fmt.Errorf("%w: spend %d value commitment: %w", ErrVerificationFailed, i, err)
		}
		acc = jubjub.Add(&acc, &p)
	}
	for i, o := range t.outputs {
		cv := o.MerkleNote.ValueCommitment()
		p, err := jubjub.DecodePoint(cv[:])
		if err != nil {
			return [jubjub.PointSize]byte{}, fmt.Errorf("%w: output %d value commitment: %w", ErrVerificationFailed, i, err)
		}
		p = jubjub.Neg(&p)
		acc = jubjub.Add(&acc, &p)
	}
	for i, m := range t.mints {
		p, err := assetValuePoint(m.Asset.ID(), m.Value)
		if err != nil {
			return [jubjub.PointSize]byte{}, fmt.Errorf("%w: mint %d: %w", ErrVerificationFailed, i, err)
		}
		acc = jubjub.Add(&acc, &p)
	}
	for i, b := range t.burns {
		p, err := assetValuePoint(b.AssetID, b.Value)
		if err != nil {
			return [jubjub.PointSize]byte{}, fmt.Errorf("%w: burn %d: %w", ErrVerificationFailed, i, err)
		}
		p = jubjub.Neg(&p)
		acc = jubjub.Add(&acc, &p)
	}

	if t.fee != 0 {
		// A positive fee removes native value, a negative one (miner's fee
		// payout) adds it. Scalar multiplication needs the magnitude.
		magnitude := uint64(t.fee)
		if t.fee < 0 {
			magnitude = uint64(-(t.fee + 1)) + 1
		}
		p, err := assetValuePoint(asset.NativeID(), magnitude)
		if err != nil {
			return [jubjub.PointSize]byte{}, fmt.Errorf("%w: fee: %w", ErrVerificationFailed, err)
		}
		if t.fee > 0 {
			p = jubjub.Neg(&p)
		}
		acc = jubjub.Add(&acc, &p)
	}

	return jubjub.EncodePoint(&acc), nil
}

func assetValuePoint(id asset.Identifier, value uint64) (jubjub.Point, error) {
	generator, err := id.ValueCommitmentGenerator()
	if err != nil {
		return jubjub.Point{}, err
	}
	return jubjub.Mul(&generator, new(big.Int).SetUint64(value)), nil
}

// BatchVerifyTransactions verifies a batch concurrently with the default
// proof oracle.
func BatchVerifyTransactions(ctx context.Context, txs []*Transaction) error {
	return BatchVerifyTransactionsWithOracle(ctx, groth16oracle.Shared(), txs)
}

// BatchVerifyTransactionsWithOracle verifies every transaction in the batch
// concurrently and reports every failure, each prefixed with its index. A
// single invalid transaction fails the whole batch.
func BatchVerifyTransactionsWithOracle(ctx context.Context, v proof.Verifier, txs []*Transaction) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	errs := make([]error, len(txs))
	for i, t := range txs {
		i, t := i, t
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := VerifyTransactionWithOracle(v, t); err != nil {
				errs[i] = fmt.Errorf("transaction %d: %w", i, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

package transaction

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/util"
)

// valueLedger accumulates per-asset value deltas while a transaction is
// assembled. Spends and mints add, outputs and burns subtract. Arithmetic is
// checked; an overflow surfaces as ErrValueOverflow instead of wrapping.
type valueLedger struct {
	values map[asset.Identifier]int64
}

func newValueLedger() *valueLedger {
	return &valueLedger{values: map[asset.Identifier]int64{}}
}

func (l *valueLedger) add(id asset.Identifier, value uint64) error {
	v, ok := util.ToInt64(value)
	if !ok {
		return fmt.Errorf("%w: value %d does not fit the ledger", ErrIllegalValue, value)
	}
	sum, ok := util.SafeAddInt64(l.values[id], v)
	if !ok {
		return fmt.Errorf("%w: asset %s balance overflow", ErrValueOverflow, id)
	}
	l.values[id] = sum
	return nil
}

func (l *valueLedger) subtract(id asset.Identifier, value uint64) error {
	v, ok := util.ToInt64(value)
	if !ok {
		return fmt.Errorf("%w: value %d does not fit the ledger", ErrIllegalValue, value)
	}
	diff, ok := util.SafeSubInt64(l.values[id], v)
	if !ok {
		return fmt.Errorf("%w: asset %s balance overflow", ErrValueOverflow, id)
	}
	l.values[id] = diff
	return nil
}

// fee reads the native-asset net. Meaningful only after every description
// has been applied.
func (l *valueLedger) fee() int64 {
	return l.values[asset.NativeID()]
}

// checkBalance enforces the posting invariant: every non-native net is zero
// and the native net equals the declared fee.
func (l *valueLedger) checkBalance(intendedFee int64) error {
	native := asset.NativeID()
	for id, net := range l.values {
		if id == native {
			continue
		}
		if net != 0 {
			return fmt.Errorf("%w: asset %s nets %d", ErrInvalidBalance, id, net)
		}
	}
	if got := l.values[native]; got != intendedFee {
		return fmt.Errorf("%w: native asset nets %d, fee %d declared", ErrInvalidBalance, got, intendedFee)
	}
	return nil
}

// clone returns an independent copy.
func (l *valueLedger) clone() *valueLedger {
	out := newValueLedger()
	for id, net := range l.values {
		out.values[id] = net
	}
	return out
}

// assetIDs returns the ledger's asset identifiers in byte order, so callers
// iterating the ledger behave deterministically.
func (l *valueLedger) assetIDs() []asset.Identifier {
	ids := make([]asset.Identifier, 0, len(l.values))
	for id := range l.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

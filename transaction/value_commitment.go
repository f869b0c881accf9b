package transaction

import (
	"fmt"
	"io"
	"math/big"

	"github.com/shadeledger/shade-go-base/jubjub"
)

// valueCommitment is a hiding commitment to (asset, value):
// value·G_asset + randomness·R. The randomness values of all commitments in
// a transaction sum to the binding signature key.
type valueCommitment struct {
	randomness *big.Int
	point      jubjub.Point
}

func newValueCommitment(rnd io.Reader, value uint64, assetGenerator *jubjub.Point) (*valueCommitment, error) {
	randomness, err := jubjub.RandomScalar(rnd)
	if err != nil {
		return nil, fmt.Errorf("drawing commitment randomness: %w", err)
	}
	return &valueCommitment{
		randomness: randomness,
		point:      commitValue(value, assetGenerator, randomness),
	}, nil
}

func (vc *valueCommitment) encoded() [jubjub.PointSize]byte {
	return jubjub.EncodePoint(&vc.point)
}

func commitValue(value uint64, assetGenerator *jubjub.Point, randomness *big.Int) jubjub.Point {
	valuePart := jubjub.Mul(assetGenerator, new(big.Int).SetUint64(value))
	randomnessBase := jubjub.ValueRandomnessBase()
	blind := jubjub.Mul(&randomnessBase, randomness)
	return jubjub.Add(&valuePart, &blind)
}

// unblindedCommitment is value·G_asset with no randomness, the publicly
// checkable form burns carry.
func unblindedCommitment(value uint64, assetGenerator *jubjub.Point) jubjub.Point {
	return jubjub.Mul(assetGenerator, new(big.Int).SetUint64(value))
}

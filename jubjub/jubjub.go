/*
Package jubjub wraps the twisted Edwards curve embedded into the BLS12-381
scalar field, the group all protocol keys, commitments and signatures live on.

Points are handled in affine form and serialized through their canonical
32 byte compressed encoding. Scalars are big integers reduced modulo the
prime subgroup order.
*/
package jubjub

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
)

// Point is an affine point on the embedded curve.
type Point = twistededwards.PointAffine

const (
	// PointSize is the length of the canonical point encoding.
	PointSize = 32
	// ScalarSize is the length of the canonical scalar encoding.
	ScalarSize = 32
)

var (
	ErrInvalidPoint  = errors.New("invalid curve point encoding")
	ErrInvalidScalar = errors.New("invalid scalar encoding")
)

var (
	curveOnce   sync.Once
	curveParams twistededwards.CurveParams
	cofactorInt big.Int
)

func params() *twistededwards.CurveParams {
	curveOnce.Do(func() {
		curveParams = twistededwards.GetEdwardsCurve()
		curveParams.Cofactor.BigInt(&cofactorInt)
	})
	return &curveParams
}

// Order returns the order of the prime subgroup. The returned value is
// shared, callers must not mutate it.
func Order() *big.Int {
	return &params().Order
}

// Cofactor returns the curve cofactor. The returned value is shared, callers
// must not mutate it.
func Cofactor() *big.Int {
	params()
	return &cofactorInt
}

// EncodePoint returns the canonical 32 byte encoding of p.
func EncodePoint(p *Point) [PointSize]byte {
	return p.Bytes()
}

// DecodePoint parses a canonical point encoding. Values that do not decode
// to a point on the curve are rejected with ErrInvalidPoint.
func DecodePoint(b []byte) (Point, error) {
	var p Point
	if len(b) != PointSize {
		return p, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPoint, PointSize, len(b))
	}
	if _, err := p.SetBytes(b); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	return p, nil
}

// IsIdentity reports whether p is the group identity element.
func IsIdentity(p *Point) bool {
	return p.X.IsZero() && p.Y.IsOne()
}

// Identity returns the group identity element.
func Identity() Point {
	var p Point
	p.X.SetZero()
	p.Y.SetOne()
	return p
}

// ClearCofactor multiplies p by the cofactor, mapping it into the prime
// order subgroup.
func ClearCofactor(p *Point) Point {
	var out Point
	out.ScalarMultiplication(p, Cofactor())
	return out
}

// Add returns p+q.
func Add(p, q *Point) Point {
	var out Point
	out.Add(p, q)
	return out
}

// Neg returns -p.
func Neg(p *Point) Point {
	var out Point
	out.Neg(p)
	return out
}

// Mul returns k·p. The scalar must be non-negative; use the scalar helpers
// to keep values reduced.
func Mul(p *Point, k *big.Int) Point {
	var out Point
	out.ScalarMultiplication(p, k)
	return out
}

// ReduceScalar interprets wide as a big-endian integer and reduces it modulo
// the subgroup order. Inputs should be at least 64 bytes of hash output for
// the result to be uniform.
func ReduceScalar(wide []byte) *big.Int {
	return new(big.Int).Mod(new(big.Int).SetBytes(wide), Order())
}

// RandomScalar draws a uniformly distributed scalar from r.
func RandomScalar(r io.Reader) (*big.Int, error) {
	var buf [64]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("reading scalar randomness: %w", err)
	}
	return ReduceScalar(buf[:]), nil
}

// ScalarToBytes returns the canonical fixed width big-endian encoding of k.
func ScalarToBytes(k *big.Int) [ScalarSize]byte {
	var out [ScalarSize]byte
	k.FillBytes(out[:])
	return out
}

// ScalarFromBytes parses a canonical scalar encoding, rejecting values not
// below the subgroup order.
func ScalarFromBytes(b []byte) (*big.Int, error) {
	if len(b) != ScalarSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidScalar, ScalarSize, len(b))
	}
	k := new(big.Int).SetBytes(b)
	if k.Cmp(Order()) >= 0 {
		return nil, fmt.Errorf("%w: value not reduced", ErrInvalidScalar)
	}
	return k, nil
}

// ScalarAdd returns a+b mod the subgroup order.
func ScalarAdd(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Add(a, b), Order())
}

// ScalarSub returns a-b mod the subgroup order.
func ScalarSub(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Sub(a, b), Order())
}

// ScalarMul returns a·b mod the subgroup order.
func ScalarMul(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Mul(a, b), Order())
}

// ScalarInverse returns a⁻¹ mod the subgroup order.
func ScalarInverse(a *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(a, Order())
	if inv == nil {
		return nil, fmt.Errorf("%w: not invertible", ErrInvalidScalar)
	}
	return inv, nil
}

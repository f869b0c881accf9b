// Package merkle verifies note commitment inclusion against a published tree
// root. Witnesses are normally produced by an external indexer; the package
// also carries a small in-process tree for building them locally.
package merkle

import (
	"fmt"

	"github.com/zeebo/blake3"
)

// HashSize is the length of a tree node hash.
const HashSize = 32

// PathNode is one step of an authentication path. Hash is the sibling node
// at that depth and Left reports whether the sibling is the left child.
type PathNode struct {
	Hash [HashSize]byte
	Left bool
}

// Witness proves that a leaf belongs to a tree with a known root. Verifying
// is pure; implementations must not mutate shared state.
type Witness interface {
	AuthPath() []PathNode
	RootHash() [HashSize]byte
	TreeSize() uint32
	Verify(leaf [HashSize]byte) bool
}

// CombineHash compresses two child hashes into their parent. The depth seeds
// the derivation context, so the same pair of children hashes differently at
// different heights.
func CombineHash(depth int, left, right [HashSize]byte) [HashSize]byte {
	material := make([]byte, 0, 2*HashSize)
	material = append(material, left[:]...)
	material = append(material, right[:]...)
	var out [HashSize]byte
	blake3.DeriveKey(fmt.Sprintf("shadeledger.merkle.combine.%d", depth), material, out[:])
	return out
}

// FoldAuthPath recomputes the root implied by an authentication path,
// starting from leaf at depth zero.
func FoldAuthPath(path []PathNode, leaf [HashSize]byte) [HashSize]byte {
	current := leaf
	for depth, node := range path {
		if node.Left {
			current = CombineHash(depth, node.Hash, current)
		} else {
			current = CombineHash(depth, current, node.Hash)
		}
	}
	return current
}

// WitnessPosition reconstructs the leaf index from the path directions: a
// left sibling at depth d means the witnessed node is the right child there.
func WitnessPosition(w Witness) uint64 {
	var position uint64
	for depth, node := range w.AuthPath() {
		if node.Left {
			position |= 1 << depth
		}
	}
	return position
}

// StaticWitness is a Witness backed by plain data, the form in which an
// external indexer hands paths over.
type StaticWitness struct {
	Path []PathNode
	Root [HashSize]byte
	Size uint32
}

// AuthPath returns the authentication path from leaf to root.
func (w *StaticWitness) AuthPath() []PathNode { return w.Path }

// RootHash returns the root the path claims to reach.
func (w *StaticWitness) RootHash() [HashSize]byte { return w.Root }

// TreeSize returns the leaf count of the witnessed tree.
func (w *StaticWitness) TreeSize() uint32 { return w.Size }

// Verify folds the authentication path over leaf and compares the result to
// the stored root.
func (w *StaticWitness) Verify(leaf [HashSize]byte) bool {
	return FoldAuthPath(w.Path, leaf) == w.Root
}

package merkle

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTree        = errors.New("tree has no leaves")
	ErrIndexOutOfBounds = errors.New("leaf index out of bounds")
)

// Tree is an append-only commitment tree. Leaves are padded to the next
// power of two by repeating the last leaf, so every authentication path in a
// tree of n leaves has length ceil(log2 n).
type Tree struct {
	leaves [][HashSize]byte
}

// NewTree builds a tree over the given leaves.
func NewTree(leaves ...[HashSize]byte) *Tree {
	t := &Tree{leaves: make([][HashSize]byte, 0, len(leaves))}
	t.leaves = append(t.leaves, leaves...)
	return t
}

// Add appends a leaf and returns its position.
func (t *Tree) Add(leaf [HashSize]byte) uint64 {
	t.leaves = append(t.leaves, leaf)
	return uint64(len(t.leaves) - 1)
}

// Size returns the number of leaves added, excluding padding.
func (t *Tree) Size() uint32 {
	return uint32(len(t.leaves))
}

// Root returns the current root hash. A single-leaf tree's root is the leaf
// itself.
func (t *Tree) Root() ([HashSize]byte, error) {
	if len(t.leaves) == 0 {
		return [HashSize]byte{}, ErrEmptyTree
	}
	levels := t.levels()
	return levels[len(levels)-1][0], nil
}

// Witness builds the authentication path for the leaf at index against the
// current root.
func (t *Tree) Witness(index uint64) (*StaticWitness, error) {
	if index >= uint64(len(t.leaves)) {
		return nil, fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfBounds, index, len(t.leaves))
	}
	levels := t.levels()
	path := make([]PathNode, 0, len(levels)-1)
	pos := index
	for depth := 0; depth < len(levels)-1; depth++ {
		sibling := pos ^ 1
		path = append(path, PathNode{Hash: levels[depth][sibling], Left: sibling < pos})
		pos >>= 1
	}
	return &StaticWitness{
		Path: path,
		Root: levels[len(levels)-1][0],
		Size: uint32(len(t.leaves)),
	}, nil
}

// levels materializes the padded tree bottom-up: levels[0] holds the padded
// leaves, the last level holds only the root.
func (t *Tree) levels() [][][HashSize]byte {
	padded := nextPowerOfTwo(len(t.leaves))
	level := make([][HashSize]byte, padded)
	copy(level, t.leaves)
	for i := len(t.leaves); i < padded; i++ {
		level[i] = t.leaves[len(t.leaves)-1]
	}
	levels := [][][HashSize]byte{level}
	for depth := 0; len(level) > 1; depth++ {
		next := make([][HashSize]byte, len(level)/2)
		for i := range next {
			next[i] = CombineHash(depth, level[2*i], level[2*i+1])
		}
		levels = append(levels, next)
		level = next
	}
	return levels
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

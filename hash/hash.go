/*
Package hash provides the domain separated hash functions used across the
protocol. Every digest commits to a fixed ASCII domain tag so that values
hashed for one purpose can never be replayed as values hashed for another.
*/
package hash

import (
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
)

// New returns a streaming blake2b-256 hasher with the domain tag already
// written.
func New(domain string) hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Errorf("initializing blake2b: %w", err))
	}
	writeDomain(h, domain)
	return h
}

// Sum256 returns the domain separated blake2b-256 digest of chunks.
func Sum256(domain string, chunks ...[]byte) [32]byte {
	h := New(domain)
	for _, c := range chunks {
		h.Write(c)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sum512 returns the domain separated blake2b-512 digest of chunks. The wide
// output is meant for unbiased reduction into scalar fields.
func Sum512(domain string, chunks ...[]byte) [64]byte {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(fmt.Errorf("initializing blake2b: %w", err))
	}
	writeDomain(h, domain)
	for _, c := range chunks {
		h.Write(c)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SumBlake2s returns the domain separated blake2s-256 digest of chunks.
func SumBlake2s(domain string, chunks ...[]byte) [32]byte {
	h, err := blake2s.New256(nil)
	if err != nil {
		panic(fmt.Errorf("initializing blake2s: %w", err))
	}
	writeDomain(h, domain)
	for _, c := range chunks {
		h.Write(c)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// writeDomain length-prefixes the tag so that a domain string can never be
// confused with the start of the hashed data.
func writeDomain(h hash.Hash, domain string) {
	if len(domain) > 255 {
		panic(fmt.Errorf("domain tag too long: %d bytes", len(domain)))
	}
	h.Write([]byte{byte(len(domain))})
	h.Write([]byte(domain))
}

package store

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Algorithm names a 256-bit digest used to address objects.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	BLAKE2b256 Algorithm = "blake2b-256"
)

// ParseAlgorithm accepts an algorithm name; "" selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE2b256:
		return BLAKE2b256, nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q", name)
}

func (a Algorithm) hasher() (func() (hash.Hash, error), error) {
	switch a {
	case SHA256:
		return func() (hash.Hash, error) { return sha256.New(), nil }, nil
	case BLAKE2b256:
		return func() (hash.Hash, error) { return blake2b.New256(nil) }, nil
	}
	return nil, fmt.Errorf("unknown hash algorithm %q", string(a))
}

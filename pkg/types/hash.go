package types

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the width in bytes of a content digest.
const HashSize = 32

// Hash is a fixed-width content digest. The zero Hash means "unset".
type Hash [HashSize]byte

// ParseHash decodes a lowercase or uppercase hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(HashSize) {
		return h, InvalidArgument("hash", fmt.Sprintf("%q is not a %d byte hex digest", s, HashSize))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, InvalidArgument("hash", fmt.Sprintf("%q is not a hex digest", s))
	}
	return h, nil
}

// HashFromBytes copies a stored digest.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: digest has %d bytes, want %d", ErrStorage, len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// IsZero reports whether h is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns the digest as a slice for storage.
func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first twelve hex digits, for display.
func (h Hash) Short() string {
	return h.String()[:12]
}

// MarshalText encodes the digest as hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex digest.
func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHash(t *testing.T) {
	valid := strings.Repeat("ab", HashSize)

	h, err := ParseHash(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, h.String())
	assert.Equal(t, valid[:12], h.Short())
	assert.False(t, h.IsZero())

	upper, err := ParseHash(strings.ToUpper(valid))
	require.NoError(t, err)
	assert.Equal(t, h, upper)

	_, err = ParseHash("abc")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseHash(strings.Repeat("zz", HashSize))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHashFromBytes(t *testing.T) {
	b := make([]byte, HashSize)
	b[0] = 0x01
	h, err := HashFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), h[0])
	assert.Equal(t, b, h.Bytes())

	_, err = HashFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrStorage)

	assert.True(t, Hash{}.IsZero())
}

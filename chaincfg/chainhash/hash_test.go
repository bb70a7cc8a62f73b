package chainhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	h := DoubleHashH([]byte("litecoin"))
	str := h.String()

	parsed, err := NewHashFromStr(str)
	require.NoError(t, err)
	require.True(t, h.IsEqual(parsed))
}

func TestHashFromStrTooLong(t *testing.T) {
	long := make([]byte, MaxHashStringSize+2)
	for i := range long {
		long[i] = 'a'
	}
	_, err := NewHashFromStr(string(long))
	require.ErrorIs(t, err, ErrHashStrSize)
}

func TestSetBytesWrongLength(t *testing.T) {
	var h Hash
	err := h.SetBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestIsEqualNil(t *testing.T) {
	var a *Hash
	var b *Hash
	require.True(t, a.IsEqual(b))

	h := DoubleHashH([]byte("x"))
	require.False(t, h.IsEqual(nil))
}

package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocksRoundTrip(t *testing.T) {
	col := make([]uint16, 0, 64)
	col = append(col, 14, 1, 1, 1)
	for i := 0; i < 40; i++ {
		col = append(col, 0)
	}
	col = append(col, 4, 11, 11, 0)

	enc := EncodeBlocks(col)
	got, err := DecodeBlocks(enc, len(col))
	require.NoError(t, err)
	assert.Equal(t, col, got)
	assert.Less(t, len(enc), len(col)*2)
}

func TestDecodeBlocksLength(t *testing.T) {
	enc := EncodeBlocks([]uint16{0, 0, 0, 2})

	_, err := DecodeBlocks(enc, 3)
	assert.ErrorIs(t, err, ErrLength)
	_, err = DecodeBlocks(enc, 5)
	assert.ErrorIs(t, err, ErrLength)
	_, err = DecodeBlocks("not base64!", 4)
	assert.Error(t, err)

	empty, err := DecodeBlocks(EncodeBlocks(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

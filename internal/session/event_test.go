package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmapEvent_DecompressUncompressedPassesThrough(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04}
	event := BitmapEvent{Width: 1, Height: 1, BitsPerPixel: 32, Compressed: false, data: raw}

	out, err := event.Decompress()
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestBitmapEvent_DecompressUnsupportedDepth(t *testing.T) {
	event := BitmapEvent{Width: 1, Height: 1, BitsPerPixel: 8, Compressed: true, data: []byte{0x00}}

	_, err := event.Decompress()
	require.Error(t, err)
}

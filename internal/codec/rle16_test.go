package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode16_White(t *testing.T) {
	// Long-form code (offset=32 path): top nibble 2 -> opcode (2>>1)=1 (white),
	// count = code&0x1f = 4. The bottom row (decoded first) has no previous
	// line, so it is mix (0xFFFF); the top row is prev ^ mix = 0.
	src := []byte{0x24}

	out, err := Decode16(src, 2, 2)
	require.NoError(t, err)
	assert.Len(t, out, 4)
	assert.Equal(t, []uint16{0x0000, 0x0000, 0xFFFF, 0xFFFF}, out)
}

func TestDecode16_Copy(t *testing.T) {
	// opcode 4 (copy raw pixels), 0x5 byte header: top nibble 0 (after >>1
	// shift selects raw count path) - use the long form: count=2, opcode=4.
	// code byte: top nibble = (opcode<<1)|offsetbit; for the 32-offset path
	// opcode = code>>4, then opcode>>=1 must equal 4 so code>>4 == 8 or 9.
	code := byte(0x82) // opcode nibble 8 -> >>1 = 4 (copy), count = code&0x1f = 2
	src := []byte{code, 0x34, 0x12, 0x78, 0x56}

	out, err := Decode16(src, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1234, 0x5678}, out)
}

func TestDecode16_ShortRead(t *testing.T) {
	_, err := Decode16([]byte{0x82}, 2, 1)
	assert.Error(t, err)
}

func TestDecode16_BadDimensions(t *testing.T) {
	_, err := Decode16([]byte{0x00}, 0, 1)
	assert.Error(t, err)
}

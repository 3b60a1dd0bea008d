package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRGB565ToRGB32_White(t *testing.T) {
	out := RGB565ToRGB32([]uint16{0xFFFF})
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, out)
}

func TestRGB565ToRGB32_Black(t *testing.T) {
	out := RGB565ToRGB32([]uint16{0x0000})
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0xFF}, out)
}

func TestRGB565ToRGB32_PureRed(t *testing.T) {
	// Red occupies bits 15-11.
	out := RGB565ToRGB32([]uint16{0xF800})
	assert.Equal(t, byte(0x00), out[0]) // B
	assert.Equal(t, byte(0x00), out[1]) // G
	assert.Equal(t, byte(0xFF), out[2]) // R
	assert.Equal(t, byte(0xFF), out[3])
}

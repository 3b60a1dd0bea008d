package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrame_ShortForm(t *testing.T) {
	// tag 0x30 (SEQUENCE), length 3, content
	input := []byte{0x30, 0x03, 0xAA, 0xBB, 0xCC}
	buf := bytes.NewBuffer(input)

	frame, err := readFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, input, frame)
}

func TestReadFrame_LongForm(t *testing.T) {
	content := bytes.Repeat([]byte{0x01}, 200)
	// tag 0x30, length 0x81 0xC8 (200 in long form, 1 length byte follows)
	input := append([]byte{0x30, 0x81, 0xC8}, content...)
	buf := bytes.NewBuffer(input)

	frame, err := readFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, input, frame)
}

func TestReadFrame_Truncated(t *testing.T) {
	input := []byte{0x30, 0x05, 0xAA}
	buf := bytes.NewBuffer(input)

	_, err := readFrame(buf)
	assert.Error(t, err)
}

package pdu

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func serializeRawRect(t *testing.T, data []byte) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(0)))   // destLeft
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(0)))   // destTop
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(10))) // destRight
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(10))) // destBottom
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(11))) // width
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(11))) // height
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(16))) // bitsPerPixel
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(0)))  // flags: uncompressed
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(len(data))))
	buf.Write(data)
	return buf.Bytes()
}

func TestBitmapData_DeserializeUncompressed(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	wire := bytes.NewReader(serializeRawRect(t, payload))

	var rect BitmapData
	require.NoError(t, rect.Deserialize(wire))

	require.Equal(t, uint16(10), rect.DestRight)
	require.Equal(t, uint16(11), rect.Width)
	require.False(t, rect.Compressed())
	require.Equal(t, payload, rect.BitmapDataSteam)
}

func TestBitmapData_DeserializeCompressedNoHeader(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(0)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(0)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(4)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(4)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(4)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(4)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(16)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, bitmapCompression|noBitmapCompressionHDR))
	payload := []byte{0xaa, 0xbb, 0xcc}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(len(payload))))
	buf.Write(payload)

	var rect BitmapData
	require.NoError(t, rect.Deserialize(bytes.NewReader(buf.Bytes())))

	require.True(t, rect.Compressed())
	require.Equal(t, payload, rect.BitmapDataSteam)
}

func TestBitmapUpdateData_DeserializeMultipleRectangles(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(2)))
	buf.Write(serializeRawRect(t, []byte{0x01}))
	buf.Write(serializeRawRect(t, []byte{0x02, 0x03}))

	var update BitmapUpdateData
	require.NoError(t, update.Deserialize(bytes.NewReader(buf.Bytes())))

	require.Len(t, update.Rectangles, 2)
	require.Equal(t, []byte{0x01}, update.Rectangles[0].BitmapDataSteam)
	require.Equal(t, []byte{0x02, 0x03}, update.Rectangles[1].BitmapDataSteam)
}

package fastpath

import (
	"encoding/binary"
	"io"
)

// Surface command types (MS-RDPBCGR 2.2.9.1.2.1.10.1).
const (
	CmdTypeSurfaceBits       uint16 = 0x0001
	CmdTypeFrameMarker       uint16 = 0x0004
	CmdTypeStreamSurfaceBits uint16 = 0x0006
)

// Frame marker actions (MS-RDPBCGR 2.2.9.1.2.1.9).
const (
	FrameStart uint16 = 0x0000
	FrameEnd   uint16 = 0x0001
)

const setSurfaceBitsHeaderLen = 20

// SurfaceCommand is one unparsed TS_SURFCMD record sliced out of a Surface
// Commands update; Data excludes the cmdType field already read off it.
type SurfaceCommand struct {
	CmdType uint16
	Data    []byte
}

// SetSurfaceBitsCommand is CMDTYPE_SET_SURFACE_BITS / CMDTYPE_STREAM_SURFACE_BITS.
type SetSurfaceBitsCommand struct {
	DestLeft   uint16
	DestTop    uint16
	DestRight  uint16
	DestBottom uint16
	BPP        uint8
	Flags      uint8
	Reserved   uint8
	CodecID    uint8
	Width      uint16
	Height     uint16
	BitmapData []byte
}

// FrameMarkerCommand is CMDTYPE_FRAME_MARKER.
type FrameMarkerCommand struct {
	FrameAction uint16
	FrameID     uint32
}

// ParseSurfaceCommands splits the data section of a UpdateCodeSurfCMDs
// update into its individual TS_SURFCMD records. A record that runs past
// the end of data is dropped rather than erroring: it means the update was
// fragmented and the remainder arrives in the next fast-path PDU.
func ParseSurfaceCommands(data []byte) ([]SurfaceCommand, error) {
	commands := make([]SurfaceCommand, 0)
	pos := 0

	for pos < len(data) {
		if len(data)-pos < 2 {
			break
		}
		cmdType := binary.LittleEndian.Uint16(data[pos : pos+2])

		switch cmdType {
		case CmdTypeFrameMarker:
			const frameMarkerLen = 6
			if len(data)-pos < 2+frameMarkerLen {
				return commands, nil
			}
			commands = append(commands, SurfaceCommand{CmdType: cmdType, Data: data[pos+2 : pos+2+frameMarkerLen]})
			pos += 2 + frameMarkerLen

		case CmdTypeSurfaceBits, CmdTypeStreamSurfaceBits:
			if len(data)-pos < 2+setSurfaceBitsHeaderLen {
				return commands, nil
			}
			bitmapDataLength := binary.LittleEndian.Uint32(data[pos+2+16 : pos+2+setSurfaceBitsHeaderLen])
			total := 2 + setSurfaceBitsHeaderLen + int(bitmapDataLength)
			if len(data)-pos < total {
				return commands, nil
			}
			commands = append(commands, SurfaceCommand{CmdType: cmdType, Data: data[pos+2 : pos+total]})
			pos += total

		default:
			commands = append(commands, SurfaceCommand{CmdType: cmdType, Data: data[pos+2:]})
			pos = len(data)
		}
	}

	return commands, nil
}

// ParseSetSurfaceBits decodes a SetSurfaceBits/StreamSurfaceBits command
// body (the bytes following its cmdType field).
func ParseSetSurfaceBits(data []byte) (*SetSurfaceBitsCommand, error) {
	if len(data) < setSurfaceBitsHeaderLen {
		return nil, io.ErrUnexpectedEOF
	}

	cmd := &SetSurfaceBitsCommand{
		DestLeft:   binary.LittleEndian.Uint16(data[0:2]),
		DestTop:    binary.LittleEndian.Uint16(data[2:4]),
		DestRight:  binary.LittleEndian.Uint16(data[4:6]),
		DestBottom: binary.LittleEndian.Uint16(data[6:8]),
		BPP:        data[8],
		Flags:      data[9],
		Reserved:   data[10],
		CodecID:    data[11],
		Width:      binary.LittleEndian.Uint16(data[12:14]),
		Height:     binary.LittleEndian.Uint16(data[14:16]),
	}

	bitmapDataLength := binary.LittleEndian.Uint32(data[16:20])
	if len(data) < setSurfaceBitsHeaderLen+int(bitmapDataLength) {
		return nil, io.ErrUnexpectedEOF
	}

	cmd.BitmapData = data[setSurfaceBitsHeaderLen : setSurfaceBitsHeaderLen+int(bitmapDataLength)]
	return cmd, nil
}

// ParseFrameMarker decodes a FrameMarker command body.
func ParseFrameMarker(data []byte) (*FrameMarkerCommand, error) {
	if len(data) < 6 {
		return nil, io.ErrUnexpectedEOF
	}

	return &FrameMarkerCommand{
		FrameAction: binary.LittleEndian.Uint16(data[0:2]),
		FrameID:     binary.LittleEndian.Uint32(data[2:6]),
	}, nil
}

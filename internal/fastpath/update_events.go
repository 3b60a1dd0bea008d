package fastpath

import (
	"encoding/binary"
	"io"

	"github.com/ravibrenner/godrp/internal/rdperr"
)

// PaletteEntry is a TS_PALETTE_ENTRY (MS-RDPBCGR 2.2.9.1.1.3.1.2.2): one
// RGB triplet in a palette update.
type PaletteEntry struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

func (e *PaletteEntry) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &e.Red); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &e.Green); err != nil {
		return err
	}
	return binary.Read(wire, binary.LittleEndian, &e.Blue)
}

// paletteUpdateData is TS_UPDATE_PALETTE_DATA (2.2.9.1.1.3.1.2.1).
type paletteUpdateData struct {
	updateType     uint16
	pad            uint16
	numberColors   uint16
	PaletteEntries []PaletteEntry
}

func (d *paletteUpdateData) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &d.updateType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &d.pad); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &d.numberColors); err != nil {
		return err
	}

	d.PaletteEntries = make([]PaletteEntry, 0, d.numberColors)
	for i := uint16(0); i < d.numberColors; i++ {
		entry := PaletteEntry{}
		if err := entry.Deserialize(wire); err != nil {
			return err
		}
		d.PaletteEntries = append(d.PaletteEntries, entry)
	}
	return nil
}

// CompressedDataHeader is a TS_CD_HEADER (2.2.9.1.1.3.1.2.3), prefixed to
// RLE-compressed bitmap data unless BitmapDataFlagNoHDR is set.
type CompressedDataHeader struct {
	CbCompFirstRowSize uint16
	CbCompMainBodySize uint16
	CbScanWidth        uint16
	CbUncompressedSize uint16
}

func (h *CompressedDataHeader) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &h.CbCompFirstRowSize); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &h.CbCompMainBodySize); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &h.CbScanWidth); err != nil {
		return err
	}
	return binary.Read(wire, binary.LittleEndian, &h.CbUncompressedSize)
}

// BitmapDataFlag is a flag in TS_BITMAP_DATA.Flags (2.2.9.1.1.3.1.2.2).
type BitmapDataFlag uint16

const (
	BitmapDataFlagCompression BitmapDataFlag = 0x0001
	BitmapDataFlagNoHDR       BitmapDataFlag = 0x0400
)

// BitmapData is a TS_BITMAP_DATA: one rectangle of a bitmap update.
type BitmapData struct {
	DestLeft         uint16
	DestTop          uint16
	DestRight        uint16
	DestBottom       uint16
	Width            uint16
	Height           uint16
	BitsPerPixel     uint16
	Flags            BitmapDataFlag
	BitmapLength     uint16
	Compressed       *CompressedDataHeader
	BitmapDataStream []byte
}

func (d *BitmapData) Deserialize(wire io.Reader) error {
	fields := []*uint16{
		&d.DestLeft, &d.DestTop, &d.DestRight, &d.DestBottom,
		&d.Width, &d.Height, &d.BitsPerPixel,
	}
	for _, f := range fields {
		if err := binary.Read(wire, binary.LittleEndian, f); err != nil {
			return err
		}
	}

	if err := binary.Read(wire, binary.LittleEndian, &d.Flags); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &d.BitmapLength); err != nil {
		return err
	}

	remaining := int(d.BitmapLength)

	// NO_HDR means the sender left off the TS_CD_HEADER even though the
	// stream is still RLE-compressed.
	if d.Flags&BitmapDataFlagCompression != 0 && d.Flags&BitmapDataFlagNoHDR == 0 {
		d.Compressed = &CompressedDataHeader{}
		if err := d.Compressed.Deserialize(wire); err != nil {
			return err
		}
		remaining -= 8
	}

	if remaining < 0 {
		return rdperr.Wrap(rdperr.InvalidSize, "bitmap data length shorter than its compressed header")
	}

	d.BitmapDataStream = make([]byte, remaining)
	if remaining > 0 {
		if _, err := io.ReadFull(wire, d.BitmapDataStream); err != nil {
			return err
		}
	}
	return nil
}

// bitmapUpdateData is TS_UPDATE_BITMAP_DATA (2.2.9.1.1.3.1.2).
type bitmapUpdateData struct {
	updateType       uint16
	numberRectangles uint16
	Rectangles       []BitmapData
}

func (d *bitmapUpdateData) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &d.updateType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &d.numberRectangles); err != nil {
		return err
	}

	d.Rectangles = make([]BitmapData, 0, d.numberRectangles)
	for i := uint16(0); i < d.numberRectangles; i++ {
		rect := BitmapData{}
		if err := rect.Deserialize(wire); err != nil {
			return err
		}
		d.Rectangles = append(d.Rectangles, rect)
	}
	return nil
}

// pointerPositionUpdateData is TS_POINTER_POSITION_ATTRIBUTE (2.2.9.1.1.4.2).
type pointerPositionUpdateData struct {
	xPos uint16
	yPos uint16
}

func (d *pointerPositionUpdateData) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &d.xPos); err != nil {
		return err
	}
	return binary.Read(wire, binary.LittleEndian, &d.yPos)
}

// colorPointerUpdateData is TS_COLORPOINTERATTRIBUTE (2.2.9.1.1.4.4). On
// the wire the XOR mask precedes the AND mask despite the AND mask's
// length field coming first in the header.
type colorPointerUpdateData struct {
	cacheIndex    uint16
	xPos          uint16
	yPos          uint16
	width         uint16
	height        uint16
	lengthAndMask uint16
	lengthXorMask uint16
	xorMaskData   []byte
	andMaskData   []byte
}

func (d *colorPointerUpdateData) Deserialize(wire io.Reader) error {
	fields := []*uint16{
		&d.cacheIndex, &d.xPos, &d.yPos, &d.width, &d.height,
		&d.lengthAndMask, &d.lengthXorMask,
	}
	for _, f := range fields {
		if err := binary.Read(wire, binary.LittleEndian, f); err != nil {
			return err
		}
	}

	d.xorMaskData = make([]byte, d.lengthXorMask)
	if d.lengthXorMask > 0 {
		if _, err := io.ReadFull(wire, d.xorMaskData); err != nil {
			return err
		}
	}

	d.andMaskData = make([]byte, d.lengthAndMask)
	if d.lengthAndMask > 0 {
		if _, err := io.ReadFull(wire, d.andMaskData); err != nil {
			return err
		}
	}

	// Trailing pad byte; its absence (e.g. in a hand-built test fixture)
	// is not an error since nothing downstream depends on it.
	var padding [1]byte
	_, _ = io.ReadFull(wire, padding[:])

	return nil
}

package codec

import (
	"encoding/binary"

	"github.com/ravibrenner/godrp/internal/rdperr"
)

// Interleaved RLE/FOM order codes for the 16-bpp decoder (MS-RDPBCGR
// 2.2.9.1.1.3.1.2.4, as ported from rdesktop's bitmap_decompress1).
const (
	opBackground = 0x0
	opWhite      = 0x1
	opFillOrMix  = 0x2
	opColour     = 0x3
	opCopy       = 0x4
	// 0x5 unused in the base table
	opMixFOM3 = 0x6
	opMixFOM4 = 0x7
	opBicolour = 0x8
	opFOM3Bit  = 0x9
	opFOM5Bit  = 0xa
	opWhiteSolid = 0xd
	opBlack      = 0xe
)

// Decode16 decompresses RLE/FOM-compressed 16-bpp (RGB565) bitmap data into
// a row-major width*height pixel buffer. The wire image is stored bottom-up;
// the decoder walks the destination buffer from the last row to the first.
func Decode16(src []byte, width, height int) ([]uint16, error) {
	if width <= 0 || height <= 0 {
		return nil, rdperr.Wrap(rdperr.RleDecode, "bad dimensions")
	}

	out := make([]uint16, width*height)

	var (
		pos        int
		lastOpcode uint8 = 0xFF
		insertMix  bool
		x                = width
		line             = -1
		prevLine         = -1
		colour1    uint16
		colour2    uint16
		mix        uint16 = 0xFFFF
		mask       byte
		bicolour   bool
	)

	readU8 := func() (byte, error) {
		if pos >= len(src) {
			return 0, rdperr.Wrap(rdperr.RleDecode, "short read")
		}
		b := src[pos]
		pos++
		return b, nil
	}

	readU16 := func() (uint16, error) {
		if pos+2 > len(src) {
			return 0, rdperr.Wrap(rdperr.RleDecode, "short read")
		}
		v := binary.LittleEndian.Uint16(src[pos:])
		pos += 2
		return v, nil
	}

	for pos < len(src) {
		var fomMask byte

		code, err := readU8()
		if err != nil {
			return nil, err
		}

		opcode := code >> 4

		var count, offset int

		switch {
		case opcode >= 0xC && opcode <= 0xE:
			opcode -= 6
			count, offset = int(code&0xf), 16
		case opcode == 0xF:
			opcode = code & 0xf
			switch {
			case opcode < 9:
				v, err := readU16()
				if err != nil {
					return nil, err
				}
				count = int(v)
			case opcode < 0xb:
				count = 8
			default:
				count = 1
			}
			offset = 0
		default:
			opcode >>= 1
			count, offset = int(code&0x1f), 32
		}

		if offset != 0 {
			isFillOrMix := opcode == opFillOrMix || opcode == opMixFOM4
			if count == 0 {
				b, err := readU8()
				if err != nil {
					return nil, err
				}
				extra := offset
				if isFillOrMix {
					extra = 1
				}
				count = int(b) + extra
			} else if isFillOrMix {
				count <<= 3
			}
		}

		switch opcode {
		case opBackground:
			if lastOpcode == opcode && !(x == width && prevLine < 0) {
				insertMix = true
			}
		case opBicolour:
			if colour1, err = readU16(); err != nil {
				return nil, err
			}
			if colour2, err = readU16(); err != nil {
				return nil, err
			}
		case opColour:
			if colour2, err = readU16(); err != nil {
				return nil, err
			}
		case opMixFOM3, opMixFOM4:
			if mix, err = readU16(); err != nil {
				return nil, err
			}
			opcode -= 5
		case opFOM3Bit:
			mask = 0x03
			opcode = opFillOrMix
			fomMask = 3
		case opFOM5Bit:
			mask = 0x05
			opcode = opFillOrMix
			fomMask = 5
		}
		lastOpcode = opcode

		var mixmask byte

		for count > 0 {
			if x >= width {
				if height == 0 {
					return nil, rdperr.Wrap(rdperr.RleDecode, "ran out of rows with pixels remaining")
				}
				x = 0
				height--
				prevLine = line
				line = height * width
			}

			switch opcode {
			case opBackground:
				if insertMix {
					if prevLine >= 0 {
						out[line+x] = out[prevLine+x] ^ mix
					} else {
						out[line+x] = mix
					}
					insertMix = false
					count--
					x++

					continue
				}

				if prevLine >= 0 {
					out[line+x] = out[prevLine+x]
				} else {
					out[line+x] = 0
				}
				count--
				x++
			case opWhite:
				if prevLine >= 0 {
					out[line+x] = out[prevLine+x] ^ mix
				} else {
					out[line+x] = mix
				}
				count--
				x++
			case opFillOrMix:
				mixmask <<= 1
				if mixmask == 0 {
					if fomMask != 0 {
						mask = fomMask
					} else {
						b, err := readU8()
						if err != nil {
							return nil, err
						}
						mask = b
					}
					mixmask = 1
				}

				set := mask&mixmask != 0
				if prevLine >= 0 {
					if set {
						out[line+x] = out[prevLine+x] ^ mix
					} else {
						out[line+x] = out[prevLine+x]
					}
				} else {
					if set {
						out[line+x] = mix
					} else {
						out[line+x] = 0
					}
				}
				count--
				x++
			case opColour:
				out[line+x] = colour2
				count--
				x++
			case opCopy:
				v, err := readU16()
				if err != nil {
					return nil, err
				}
				out[line+x] = v
				count--
				x++
			case opBicolour:
				if bicolour {
					out[line+x] = colour2
					bicolour = false
				} else {
					out[line+x] = colour1
					bicolour = true
					count++
				}
				count--
				x++
			case opWhiteSolid:
				out[line+x] = 0xFFFF
				count--
				x++
			case opBlack:
				out[line+x] = 0
				count--
				x++
			default:
				return nil, rdperr.Wrap(rdperr.RleDecode, "invalid opcode")
			}
		}
	}

	return out, nil
}

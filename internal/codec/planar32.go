package codec

import (
	"github.com/ravibrenner/godrp/internal/rdperr"
)

// planar32Header is the single marker byte preceding the four RLE planes in
// a 32-bpp update (MS-RDPBCGR interleaved-plane variant used by rdesktop).
const planar32Header = 0x10

// processPlane decodes one 8-bit colour plane into output, where output is a
// width*height*4 buffer and each decoded byte lands at a stride-4 offset
// (so the four calls in Decode32 interleave B, G, R, A into one BGRA image).
// Rows are stored bottom-up on the wire; indexh counts input rows in wire
// order while the destination row moves up from the bottom of the image.
func processPlane(src []byte, pos *int, width, height int, output []byte) error {
	readU8 := func() (byte, error) {
		if *pos >= len(src) {
			return 0, rdperr.Wrap(rdperr.RleDecode, "short read in plane")
		}
		b := src[*pos]
		*pos++
		return b, nil
	}

	lastLine := 0

	for indexh := 0; indexh < height; indexh++ {
		out := (height - indexh - 1) * width * 4
		thisLine := out
		indexw := 0

		if lastLine == 0 {
			var color byte
			for indexw < width {
				code, err := readU8()
				if err != nil {
					return err
				}
				replen := code & 0xf
				collen := (code >> 4) & 0xf
				revcode := (replen << 4) | collen
				if revcode >= 16 && revcode <= 47 {
					replen = revcode
					collen = 0
				}
				for collen > 0 {
					color, err = readU8()
					if err != nil {
						return err
					}
					output[out] = color
					out += 4
					indexw++
					collen--
				}
				for replen > 0 {
					output[out] = color
					out += 4
					indexw++
					replen--
				}
			}
		} else {
			var color int8
			for indexw < width {
				code, err := readU8()
				if err != nil {
					return err
				}
				replen := code & 0xf
				collen := (code >> 4) & 0xf
				revcode := (replen << 4) | collen
				if revcode >= 16 && revcode <= 47 {
					replen = revcode
					collen = 0
				}
				for collen > 0 {
					x, err := readU8()
					if err != nil {
						return err
					}
					if x&1 != 0 {
						color = -int8((x >> 1) + 1)
					} else {
						color = int8(x >> 1)
					}
					v := byte(int32(output[lastLine+indexw*4]) + int32(color))
					output[out] = v
					out += 4
					indexw++
					collen--
				}
				for replen > 0 {
					v := byte(int32(output[lastLine+indexw*4]) + int32(color))
					output[out] = v
					out += 4
					indexw++
					replen--
				}
			}
		}
		lastLine = thisLine
	}

	return nil
}

// Decode32 decompresses a 4-plane (alpha, red, green, blue on the wire,
// stored BGRA in memory) RLE-delta-coded 32-bpp bitmap update into a
// width*height*4 BGRA buffer.
func Decode32(src []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, rdperr.Wrap(rdperr.RleDecode, "bad dimensions")
	}
	if len(src) == 0 || src[0] != planar32Header {
		return nil, rdperr.Wrap(rdperr.RleDecode, "bad header")
	}

	output := make([]byte, width*height*4)
	pos := 1

	// Wire order is alpha, red, green, blue; each call writes into its own
	// byte lane of the BGRA buffer (lane 3, 2, 1, 0 respectively).
	for _, lane := range []int{3, 2, 1, 0} {
		if err := processPlane(src, &pos, width, height, output[lane:]); err != nil {
			return nil, err
		}
	}

	return output, nil
}

package codec

// RGB565ToRGB32 expands a row-major RGB565 pixel buffer into a BGRA32
// buffer, widening each 5/6-bit channel by the scale-and-round
// constants rdesktop uses so full-white (0x1f or 0x3f) round-trips to 0xff.
func RGB565ToRGB32(input []uint16) []byte {
	output := make([]byte, 0, len(input)*4)
	for _, v := range input {
		b := byte((((v & 0x1f) * 527) + 23) >> 6)
		g := byte(((((v >> 5) & 0x3f) * 259) + 33) >> 6)
		r := byte((((v>>11)&0x1f)*527 + 23) >> 6)
		output = append(output, b, g, r, 0xff)
	}
	return output
}

package session

import (
	"github.com/ravibrenner/godrp/internal/codec"
	"github.com/ravibrenner/godrp/internal/rdperr"
)

// RdpEvent is one inbound event Session.Read delivers to its callback. The
// only variant this client produces is BitmapEvent: pointer and keyboard
// updates flow outward only, via Session.TryWrite.
type RdpEvent interface {
	isRdpEvent()
}

// BitmapEvent is one screen rectangle from a bitmap update. It owns its
// wire payload until Decompress is called. For a compressed rectangle
// Decompress allocates and returns a fresh top-down BGRA32 buffer sized
// Width*Height*4; for an uncompressed one it returns the wire payload
// itself, unconverted.
type BitmapEvent struct {
	DestLeft, DestTop, DestRight, DestBottom int
	Width, Height                            int
	BitsPerPixel                             uint16
	Compressed                               bool
	data                                     []byte
}

func (BitmapEvent) isRdpEvent() {}

// Decompress produces the RGB32 pixel buffer for this rectangle,
// dispatching to the 16-bpp RLE/FOM decoder or the 32-bpp plane decoder
// depending on BitsPerPixel, or returning the raw payload directly when
// the server sent it uncompressed.
func (e BitmapEvent) Decompress() ([]byte, error) {
	if !e.Compressed {
		return e.data, nil
	}

	switch e.BitsPerPixel {
	case 16:
		pixels, err := codec.Decode16(e.data, e.Width, e.Height)
		if err != nil {
			return nil, err
		}
		return codec.RGB565ToRGB32(pixels), nil
	case 32:
		return codec.Decode32(e.data, e.Width, e.Height)
	default:
		return nil, rdperr.Wrapf(rdperr.NotImplemented, "bitmap decompression at %d bpp", e.BitsPerPixel)
	}
}

// OutEvent is one outbound input event Session.TryWrite accepts.
type OutEvent interface {
	isOutEvent()
}

// PointerEvent is a mouse move or button transition.
type PointerEvent struct {
	X, Y   uint16
	Button uint8
	Down   bool
}

func (PointerEvent) isOutEvent() {}

// KeyEvent is a keyboard scancode transition.
type KeyEvent struct {
	Scancode uint8
	Extended bool
	Down     bool
}

func (KeyEvent) isOutEvent() {}

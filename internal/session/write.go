package session

import (
	"github.com/ravibrenner/godrp/internal/fastpath"
	"github.com/ravibrenner/godrp/internal/pdu"
	"github.com/ravibrenner/godrp/internal/rdperr"
)

// mouseButtonFlags maps a PointerEvent.Button to its TS_POINTER_EVENT
// pointerFlags bit (MS-RDPBCGR 2.2.8.1.2.2.3); button 0 is left, 1 is
// right, 2 is middle.
var mouseButtonFlags = [3]uint16{
	pdu.PTRFlagsButton1,
	pdu.PTRFlagsButton2,
	pdu.PTRFlagsButton3,
}

// TryWrite sends one outbound input event without blocking: if a Read is
// currently mid-PDU it returns rdperr.WouldBlock immediately instead of
// waiting, so callers can retry on the next UI tick.
func (s *Session) TryWrite(event OutEvent) error {
	if !s.mu.TryLock() {
		return rdperr.Wrap(rdperr.WouldBlock, "session busy")
	}
	defer s.mu.Unlock()

	inputEvent, err := encodeOutEvent(event)
	if err != nil {
		return err
	}

	return s.fastPath.Send(fastpath.NewInputEventPDU(inputEvent.Serialize()))
}

func encodeOutEvent(event OutEvent) (*pdu.InputEvent, error) {
	switch e := event.(type) {
	case PointerEvent:
		return encodePointerEvent(e), nil
	case KeyEvent:
		return encodeKeyEvent(e), nil
	default:
		return nil, rdperr.Wrapf(rdperr.NotImplemented, "unsupported outbound event type %T", event)
	}
}

func encodePointerEvent(e PointerEvent) *pdu.InputEvent {
	var flags uint16
	if int(e.Button) < len(mouseButtonFlags) {
		flags = mouseButtonFlags[e.Button]
	} else {
		flags = pdu.PTRFlagsMove
	}
	if e.Down {
		flags |= pdu.PTRFlagsDown
	}

	return pdu.NewMouseEvent(flags, e.X, e.Y)
}

func encodeKeyEvent(e KeyEvent) *pdu.InputEvent {
	var flags uint8
	if !e.Down {
		flags |= pdu.KBDFlagsRelease
	}
	if e.Extended {
		flags |= pdu.KBDFlagsExtended
	}

	return pdu.NewKeyboardEvent(flags, e.Scancode)
}

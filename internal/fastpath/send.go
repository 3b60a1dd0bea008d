package fastpath

import (
	"bytes"
	"encoding/binary"
	"io"
)

// InputEventPDU is a TS_FP_INPUT_PDU (MS-RDPBCGR 2.2.8.1.2): one or more
// client input events (keyboard, mouse, ...) wrapped in the compact
// fast-path header instead of a full slow-path share-data header.
type InputEventPDU struct {
	action    uint8
	numEvents uint8
	flags     uint8
	eventData []byte
}

// NewInputEventPDU wraps a single already-serialized input event.
func NewInputEventPDU(eventData []byte) *InputEventPDU {
	return &InputEventPDU{
		numEvents: 1,
		eventData: eventData,
	}
}

// Serialize encodes the PDU: a 1-byte fpInputHeader, a 1-or-2-byte length
// field, then the raw event data.
func (p *InputEventPDU) Serialize() []byte {
	buf := new(bytes.Buffer)

	header := p.action | (p.numEvents << 2) | (p.flags << 6)
	buf.WriteByte(header)

	// The length field is self-inclusive: it counts the header byte and
	// itself, not just the event payload.
	_ = p.SerializeLength(1+len(p.eventData), buf)

	buf.Write(p.eventData)
	return buf.Bytes()
}

// SerializeLength writes value encoded as a fast-path length field
// (MS-RDPBCGR 2.2.9.1.2.1.1): a single byte when value fits in 7 bits,
// otherwise two big-endian bytes with the top bit of the first set.
func (p *InputEventPDU) SerializeLength(value int, w io.Writer) error {
	if value <= 0x7f {
		_, err := w.Write([]byte{byte(value + 1)})
		return err
	}

	total := uint16(value+2) | 0x8000
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], total)
	_, err := w.Write(buf[:])
	return err
}

// Send writes an input event PDU to the connection.
func (p *Protocol) Send(pdu *InputEventPDU) error {
	_, err := p.conn.Write(pdu.Serialize())
	return err
}

package fastpath

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/ravibrenner/godrp/internal/rdperr"
)

// UpdatePDUAction is the 2-bit action code in a fpOutputHeader
// (MS-RDPBCGR 2.2.9.1.2.1).
type UpdatePDUAction uint8

const (
	UpdatePDUActionFastPath UpdatePDUAction = 0x0
	UpdatePDUActionX224     UpdatePDUAction = 0x3
)

// UpdatePDUFlag is a bit in the fpOutputHeader flags field.
type UpdatePDUFlag uint8

const (
	UpdatePDUFlagSecureChecksum UpdatePDUFlag = 0x1
	UpdatePDUFlagEncrypted      UpdatePDUFlag = 0x2
)

// maxUpdatePDULength bounds the length field against malformed or hostile
// servers; a real update PDU never approaches this size.
const maxUpdatePDULength = 0x4000

// ErrUnexpectedX224 is returned when a server sends a slow-path (X.224)
// PDU where a fast-path update was expected; callers should fall back to
// the slow-path reader.
var ErrUnexpectedX224 = errors.New("fastpath: unexpected X224 action, slow-path PDU follows")

// UpdatePDU is a TS_FP_UPDATE_PDU: the fast-path envelope a server wraps
// every output update in.
type UpdatePDU struct {
	Action UpdatePDUAction
	Flags  UpdatePDUFlag
	Data   []byte
}

// Deserialize reads and validates the fpOutputHeader and length field,
// then reads the PDU body into Data.
func (pdu *UpdatePDU) Deserialize(wire io.Reader) error {
	var header uint8
	if err := binary.Read(wire, binary.BigEndian, &header); err != nil {
		return err
	}

	pdu.Action = UpdatePDUAction(header & 0x3)
	pdu.Flags = UpdatePDUFlag((header >> 6) & 0x3)

	if pdu.Action == UpdatePDUActionX224 {
		return ErrUnexpectedX224
	}

	if pdu.Flags&UpdatePDUFlagEncrypted != 0 {
		return rdperr.Wrap(rdperr.NotImplemented, "fastpath update: server-side encryption not supported")
	}
	if pdu.Flags&UpdatePDUFlagSecureChecksum != 0 {
		return rdperr.Wrap(rdperr.NotImplemented, "fastpath update: secure checksum not supported")
	}

	var first byte
	if err := binary.Read(wire, binary.BigEndian, &first); err != nil {
		return err
	}

	var length uint16
	if first&0x80 != 0 {
		var second byte
		if err := binary.Read(wire, binary.BigEndian, &second); err != nil {
			return err
		}
		length = uint16(first&0x7f)<<8 | uint16(second)
	} else {
		length = uint16(first)
	}

	if length > maxUpdatePDULength {
		return rdperr.Wrapf(rdperr.InvalidSize, "fastpath update: too big packet (%d bytes)", length)
	}

	pdu.Data = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(wire, pdu.Data); err != nil {
			return err
		}
	}
	return nil
}

// Receive reads one fast-path update PDU from the connection.
func (p *Protocol) Receive() (*UpdatePDU, error) {
	pdu := &UpdatePDU{}
	if err := pdu.Deserialize(p.conn); err != nil {
		return nil, err
	}
	return pdu, nil
}

// UpdateCode identifies the kind of update carried in a fast-path update
// PDU's data (MS-RDPBCGR 2.2.9.1.2.1.1, updateCode).
type UpdateCode uint8

const (
	UpdateCodeOrders       UpdateCode = 0x0
	UpdateCodeBitmap       UpdateCode = 0x1
	UpdateCodePalette      UpdateCode = 0x2
	UpdateCodeSynchronize  UpdateCode = 0x3
	UpdateCodeSurfCMDs     UpdateCode = 0x4
	UpdateCodePTRNull      UpdateCode = 0x5
	UpdateCodePTRDefault   UpdateCode = 0x6
	UpdateCodePTRPosition  UpdateCode = 0x8
	UpdateCodeColor        UpdateCode = 0x9
	UpdateCodeCached       UpdateCode = 0xa
	UpdateCodePointer      UpdateCode = 0xb
	UpdateCodeLargePointer UpdateCode = 0xc
)

// Fragment is the fragmentation state of an update (2.2.9.1.2.1.1,
// fragmentation field).
type Fragment uint8

const (
	FragmentSingle Fragment = 0x0
	FragmentLast   Fragment = 0x1
	FragmentFirst  Fragment = 0x2
	FragmentNext   Fragment = 0x3
)

// Compression marks whether compressionFlags precedes the update's size
// field.
type Compression uint8

const CompressionUsed Compression = 0x2

// Update is one TS_FP_UPDATE: a typed, optionally-fragmented,
// optionally-compressed chunk of output data inside an UpdatePDU.
type Update struct {
	UpdateCode    UpdateCode
	fragmentation Fragment
	compression   Compression
	size          uint16
	Data          []byte
}

// Fragmentation reports this update's fragmentation state, so callers can
// reassemble a sequence of First/Next/Last updates into one logical update.
func (u *Update) Fragmentation() Fragment {
	return u.fragmentation
}

// Deserialize reads one update header and its payload.
func (u *Update) Deserialize(wire io.Reader) error {
	var header uint8
	if err := binary.Read(wire, binary.BigEndian, &header); err != nil {
		return err
	}

	u.UpdateCode = UpdateCode(header & 0x0f)
	u.fragmentation = Fragment((header >> 4) & 0x3)
	u.compression = Compression((header >> 6) & 0x3)

	if u.compression == CompressionUsed {
		var compressionFlags uint8
		if err := binary.Read(wire, binary.LittleEndian, &compressionFlags); err != nil {
			return err
		}
	}

	if err := binary.Read(wire, binary.LittleEndian, &u.size); err != nil {
		return err
	}

	u.Data = make([]byte, u.size)
	if u.size > 0 {
		if _, err := io.ReadFull(wire, u.Data); err != nil {
			return err
		}
	}
	return nil
}

// Package licensing implements the MS-RDPELE licensing exchange this
// client expects to see: either a server license error PDU carrying
// STATUS_VALID_CLIENT/ST_NO_TRANSITION or a New License PDU, either of which
// tells the client no further license negotiation is needed and the
// connection may proceed straight to the capability exchange.
package licensing

import (
	"io"

	"github.com/ravibrenner/godrp/internal/codec"
	"github.com/ravibrenner/godrp/internal/message"
	"github.com/ravibrenner/godrp/internal/rdperr"
)

// Preamble message types (MS-RDPELE 2.2.2.1).
const (
	MsgTypeNewLicense uint8 = 0x03
	MsgTypeErrorAlert uint8 = 0xFF
)

// preambleFlags is the fixed LICENSE_PREAMBLE flags (version) byte
// every preamble this client accepts carries (PREAMBLE_VERSION_3_0).
var preambleFlags = []byte{0x03}

// Error codes and state transitions carried in a LICENSE_ERROR_MESSAGE
// (MS-RDPELE 2.2.1.12.1.3).
const (
	StatusValidClient uint32 = 0x00000007
	StateNoTransition  uint32 = 0x00000002
)

// Security header flags (MS-RDPBCGR 2.2.8.1.1.2.1).
const secLicensePkt uint16 = 0x0080

// BinaryBlob is a LICENSE_BINARY_BLOB (MS-RDPELE 2.2.2.4): a typed,
// length-prefixed opaque blob. Its length is read first and its body's
// size depends on that value, the canonical case a message.Dyn field
// exists for.
type BinaryBlob struct {
	Type uint16
	Data []byte
}

// ReadFrom decodes a LICENSE_BINARY_BLOB.
func (b *BinaryBlob) ReadFrom(r io.Reader) error {
	blobType := &message.U16{}
	blobLen := &message.U16{}

	c := message.NewComponent(
		message.Field{Name: "blobType", Value: blobType},
		message.Field{Name: "blobLen", Value: blobLen},
		message.Field{Name: "blobData", Value: message.Dyn(nil, func(*message.Component) message.Codec {
			return message.NewVarBytes(func() int { return int(blobLen.V) })
		})},
	)

	if err := c.ReadFrom(r); err != nil {
		return err
	}

	dyn, err := message.GetAs[*message.DynOption](c, "blobData")
	if err != nil {
		return err
	}
	body, err := message.Cast[*message.VarBytes](dyn.Value())
	if err != nil {
		return err
	}

	b.Type = blobType.V
	if blobLen.V > 0 {
		b.Data = body.V
	}
	return nil
}

// WriteTo encodes a LICENSE_BINARY_BLOB.
func (b *BinaryBlob) WriteTo(w io.Writer) error {
	c := message.NewComponent(
		message.Field{Name: "blobType", Value: &message.U16{V: b.Type}},
		message.Field{Name: "blobLen", Value: &message.U16{V: uint16(len(b.Data))}}, // #nosec G115
		message.Field{Name: "blobData", Value: &message.VarBytes{V: b.Data}},
	)
	return c.WriteTo(w)
}

func (b *BinaryBlob) Length() (int, error) {
	return 2 + 2 + len(b.Data), nil
}

// ErrorMessage is a LICENSE_ERROR_MESSAGE (MS-RDPELE 2.2.1.12.1.3).
type ErrorMessage struct {
	ErrorCode       uint32
	StateTransition uint32
	ErrorInfo       BinaryBlob
}

func (m *ErrorMessage) ReadFrom(r io.Reader) error {
	errorCode := &message.U32{}
	stateTransition := &message.U32{}

	c := message.NewComponent(
		message.Field{Name: "errorCode", Value: errorCode},
		message.Field{Name: "stateTransition", Value: stateTransition},
		message.Field{Name: "errorInfo", Value: &m.ErrorInfo},
	)

	if err := c.ReadFrom(r); err != nil {
		return err
	}

	m.ErrorCode = errorCode.V
	m.StateTransition = stateTransition.V
	return nil
}

// WriteTo encodes a LICENSE_ERROR_MESSAGE.
func (m *ErrorMessage) WriteTo(w io.Writer) error {
	c := message.NewComponent(
		message.Field{Name: "errorCode", Value: &message.U32{V: m.ErrorCode}},
		message.Field{Name: "stateTransition", Value: &message.U32{V: m.StateTransition}},
		message.Field{Name: "errorInfo", Value: &m.ErrorInfo},
	)
	return c.WriteTo(w)
}

func (m *ErrorMessage) Length() (int, error) {
	blobLen, err := m.ErrorInfo.Length()
	if err != nil {
		return 0, err
	}
	return 4 + 4 + blobLen, nil
}

// Preamble is the LICENSE_PREAMBLE (MS-RDPELE 2.2.2.1) every licensing
// PDU starts with.
type Preamble struct {
	MsgType uint8
	Flags   uint8
	MsgSize uint16
}

func (p *Preamble) ReadFrom(r io.Reader) error {
	msgType := &message.U8{}
	flags := &message.Const{Want: preambleFlags, Kind: rdperr.InvalidConst}
	msgSize := &message.U16{}

	c := message.NewComponent(
		message.Field{Name: "msgType", Value: msgType},
		message.Field{Name: "flags", Value: flags},
		message.Field{Name: "msgSize", Value: msgSize},
	)

	if err := c.ReadFrom(r); err != nil {
		return err
	}

	p.MsgType = msgType.V
	p.Flags = preambleFlags[0]
	p.MsgSize = msgSize.V
	return nil
}

// WriteTo encodes a LICENSE_PREAMBLE.
func (p *Preamble) WriteTo(w io.Writer) error {
	c := message.NewComponent(
		message.Field{Name: "msgType", Value: &message.U8{V: p.MsgType}},
		message.Field{Name: "flags", Value: &message.Const{Want: []byte{p.Flags}}},
		message.Field{Name: "msgSize", Value: &message.U16{V: p.MsgSize}},
	)
	return c.WriteTo(w)
}

func (p *Preamble) Length() (int, error) { return 1 + 1 + 2, nil }

// NewLicenseInfo is the body of a New License PDU (MS-RDPELE 2.2.2.2): an
// encrypted license blob the client could persist and replay on a later
// connection, followed by a MAC over it. This client never reuses a
// license, so it only needs the body to parse cleanly, not its contents.
type NewLicenseInfo struct {
	EncryptedLicenseInfo BinaryBlob
	MACData              []byte
}

func (n *NewLicenseInfo) ReadFrom(r io.Reader) error {
	mac := message.NewFixedBytes(16)

	c := message.NewComponent(
		message.Field{Name: "encryptedLicenseInfo", Value: &n.EncryptedLicenseInfo},
		message.Field{Name: "macData", Value: mac},
	)
	if err := c.ReadFrom(r); err != nil {
		return err
	}

	n.MACData = mac.V
	return nil
}

func (n *NewLicenseInfo) WriteTo(w io.Writer) error {
	c := message.NewComponent(
		message.Field{Name: "encryptedLicenseInfo", Value: &n.EncryptedLicenseInfo},
		message.Field{Name: "macData", Value: &message.FixedBytes{V: n.MACData, N: 16}},
	)
	return c.WriteTo(w)
}

func (n *NewLicenseInfo) Length() (int, error) {
	blobLen, err := n.EncryptedLicenseInfo.Length()
	if err != nil {
		return 0, err
	}
	return blobLen + 16, nil
}

// ServerError is the server's response to the secure settings exchange,
// read off the wire as the Preamble followed by a body whose shape
// depends on Preamble.MsgType: either the server accepting the license
// this client already has (MsgTypeErrorAlert with STATUS_VALID_CLIENT)
// or issuing a brand new one (MsgTypeNewLicense). Either represents "no
// further licensing negotiation needed" and lets the connection proceed
// to the capability exchange; any other outcome this client treats as
// unsupported.
type ServerError struct {
	Preamble       Preamble
	ErrorMessage   ErrorMessage
	NewLicenseInfo NewLicenseInfo
}

// ReadFrom parses the server license response. Some servers (XRDP among
// them) send the standard MCS security header (SEC_LICENSE_PKT, and
// possibly SEC_LICENSE_ENCRYPT_CS) ahead of the preamble even when the
// connection already runs over TLS, so the header is always unwrapped
// rather than made conditional on the transport. The preamble's MsgType
// is read first and the rest of the PDU is parsed accordingly, mirroring
// the original client's own license message dispatch: a NewLicense
// preamble is never followed by an error-message body, so the two shapes
// are never parsed interchangeably.
func (s *ServerError) ReadFrom(r io.Reader) error {
	securityFlag, err := codec.UnwrapSecurityFlag(r)
	if err != nil {
		return err
	}

	if securityFlag&secLicensePkt == 0 {
		return rdperr.Wrap(rdperr.InvalidData, "missing SEC_LICENSE_PKT flag in license header")
	}

	if err := s.Preamble.ReadFrom(r); err != nil {
		return err
	}

	switch s.Preamble.MsgType {
	case MsgTypeNewLicense:
		return s.NewLicenseInfo.ReadFrom(r)
	case MsgTypeErrorAlert:
		return s.ErrorMessage.ReadFrom(r)
	default:
		return rdperr.Wrapf(rdperr.InvalidData, "unexpected license PDU message type %#x", s.Preamble.MsgType)
	}
}

// Accepted reports whether the server's license response represents one
// of the two outcomes this client handles: a brand new license (always
// accepted, since this client has nowhere to store and replay one) or an
// error alert telling the client its connection is already valid.
func (s *ServerError) Accepted() bool {
	switch s.Preamble.MsgType {
	case MsgTypeNewLicense:
		return true
	case MsgTypeErrorAlert:
		return s.ErrorMessage.ErrorCode == StatusValidClient &&
			s.ErrorMessage.StateTransition == StateNoTransition
	default:
		return false
	}
}

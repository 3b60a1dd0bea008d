package x224

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrSmallConnectionConfirmLength is returned when a Connection Confirm
	// TPDU's length indicator does not match the fixed 14-byte header this
	// client expects (6 fixed bytes plus an 8-byte RDP Negotiation Response).
	ErrSmallConnectionConfirmLength = errors.New("small connection confirm length")
	// ErrWrongConnectionConfirmCode is returned when the CRCDT nibble of a
	// Connection Confirm TPDU is not 0xD (MS-RDPBCGR 2.2.1.2).
	ErrWrongConnectionConfirmCode = errors.New("wrong connection confirm code")
	// ErrWrongDataLength is returned when a Data TPDU's length indicator is
	// not the fixed value 2 (MS-RDPBCGR 2.2.1.3).
	ErrWrongDataLength = errors.New("wrong data length")
)

// connectionConfirmLength is the X.224 Connection Confirm TPDU's length
// indicator when it carries an RDP Negotiation Response: 6 header bytes
// (CCCDT, DSTREF, SRCREF, ClassOption) plus 8 bytes of negotiation data.
const connectionConfirmLength = 14

// dataTPDULength is the fixed length indicator of a Data TPDU; unlike a
// Connection Request, user data is not counted in LI for a DT TPDU.
const dataTPDULength = 2

const (
	dtCode   = 0xF0
	eotFlags = 0x80
)

// ConnectionRequest is the client X.224 Connection Request TPDU
// (MS-RDPBCGR 2.2.1.1), carrying the RDP Negotiation Request as UserData.
type ConnectionRequest struct {
	CRCDT        uint8
	DSTREF       uint16
	SRCREF       uint16
	ClassOption  uint8
	VariablePart []byte
	UserData     []byte
}

// Serialize writes the TPDU with its length indicator computed from the
// fixed 6-byte header plus UserData; VariablePart, if ever populated, would
// need its own length accounting and is unused by this client.
func (r ConnectionRequest) Serialize() []byte {
	li := uint8(6 + len(r.UserData))

	buf := make([]byte, 0, 1+int(li))
	buf = append(buf, li, r.CRCDT)
	buf = append(buf, byte(r.DSTREF>>8), byte(r.DSTREF))
	buf = append(buf, byte(r.SRCREF>>8), byte(r.SRCREF))
	buf = append(buf, r.ClassOption)
	buf = append(buf, r.UserData...)
	return buf
}

// ConnectionConfirm is the server X.224 Connection Confirm TPDU
// (MS-RDPBCGR 2.2.1.2). Deserialize only consumes the length indicator and
// the fixed 6-byte header it counts;
// the RDP Negotiation Response that follows is left on wire for the caller
// (pdu.ServerConnectionConfirm) to parse.
type ConnectionConfirm struct {
	LI          uint8
	CCCDT       uint8
	DSTREF      uint16
	SRCREF      uint16
	ClassOption uint8
}

func (c *ConnectionConfirm) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.BigEndian, &c.LI); err != nil {
		return err
	}
	if c.LI != connectionConfirmLength {
		return ErrSmallConnectionConfirmLength
	}

	if err := binary.Read(wire, binary.BigEndian, &c.CCCDT); err != nil {
		return err
	}
	if c.CCCDT&0xF0 != 0xD0 {
		return ErrWrongConnectionConfirmCode
	}

	if err := binary.Read(wire, binary.BigEndian, &c.DSTREF); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.BigEndian, &c.SRCREF); err != nil {
		return err
	}
	return binary.Read(wire, binary.BigEndian, &c.ClassOption)
}

// Data is the X.224 Data TPDU (MS-RDPBCGR 2.2.1.3) that carries every PDU
// after connection negotiation. Deserialize only consumes its fixed 3-byte
// header; UserData is left on wire for the caller (MCS) to parse.
type Data struct {
	LI       uint8
	DTROA    uint8
	NREOT    uint8
	UserData []byte
}

func (d Data) Serialize() []byte {
	buf := make([]byte, 0, 3+len(d.UserData))
	buf = append(buf, d.LI, d.DTROA, d.NREOT)
	buf = append(buf, d.UserData...)
	return buf
}

func (d *Data) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.BigEndian, &d.LI); err != nil {
		return err
	}
	if d.LI != dataTPDULength {
		return ErrWrongDataLength
	}

	if err := binary.Read(wire, binary.BigEndian, &d.DTROA); err != nil {
		return err
	}
	return binary.Read(wire, binary.BigEndian, &d.NREOT)
}

// Connect sends a Connection Request TPDU carrying userData (the RDP
// Negotiation Request) and returns the reader positioned at the start of
// the server's RDP Negotiation Response.
func (p *Protocol) Connect(userData []byte) (io.Reader, error) {
	req := ConnectionRequest{
		CRCDT:    0xE0,
		UserData: userData,
	}

	if err := p.tpktConn.Send(req.Serialize()); err != nil {
		return nil, fmt.Errorf("client connection request: %w", err)
	}

	wire, err := p.tpktConn.Receive()
	if err != nil {
		return nil, fmt.Errorf("recieve connection response: %w", err)
	}

	var confirm ConnectionConfirm
	if err := confirm.Deserialize(wire); err != nil {
		return nil, fmt.Errorf("server connection confirm: %w", err)
	}

	return wire, nil
}

// Send wraps userData in a Data TPDU and writes it to the underlying TPKT
// connection.
func (p *Protocol) Send(userData []byte) error {
	data := Data{
		LI:       dataTPDULength,
		DTROA:    dtCode,
		NREOT:    eotFlags,
		UserData: userData,
	}
	return p.tpktConn.Send(data.Serialize())
}

// Receive reads one Data TPDU and returns the reader positioned just past
// its 3-byte header, ready for the MCS layer to parse.
func (p *Protocol) Receive() (io.Reader, error) {
	wire, err := p.tpktConn.Receive()
	if err != nil {
		return nil, err
	}

	var data Data
	if err := data.Deserialize(wire); err != nil {
		return nil, err
	}
	return wire, nil
}

// Package tpkt implements the TPKT transport protocol (RFC 1006) used as
// the base transport layer for RDP connections.
package tpkt

import (
	"bytes"
	"encoding/binary"
	"io"
)

const (
	headerLen = 4
	version   = 0x03
)

type Protocol struct {
	conn io.ReadWriteCloser
}

func New(conn io.ReadWriteCloser) *Protocol {
	return &Protocol{
		conn: conn,
	}
}

// Send wraps pduData in a TPKT header (RFC 1006 section 6) and writes it to
// the underlying connection.
func (p *Protocol) Send(pduData []byte) error {
	header := []byte{version, 0x00, 0x00, 0x00}
	binary.BigEndian.PutUint16(header[2:4], uint16(headerLen+len(pduData))) // #nosec G115

	packet := make([]byte, 0, len(header)+len(pduData))
	packet = append(packet, header...)
	packet = append(packet, pduData...)

	_, err := p.conn.Write(packet)
	return err
}

// Receive reads one TPKT header and returns a reader over exactly the
// payload bytes it announces.
func (p *Protocol) Receive() (io.Reader, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(p.conn, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint16(header[2:4])
	payload := make([]byte, int(length)-headerLen)
	if len(payload) > 0 {
		if _, err := io.ReadFull(p.conn, payload); err != nil {
			return nil, err
		}
	}

	return bytes.NewReader(payload), nil
}

package mcs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/ravibrenner/godrp/internal/per"
)

var errBadSequenceTag = errors.New("bad ber tag for sequence")

// ConnectPDUApplication is the [APPLICATION n] tag of a T.125 Connect-MCSPDU.
type ConnectPDUApplication uint8

const (
	connectInitial ConnectPDUApplication = iota + 101
	connectResponse
	connectAdditional
	connectResult
)

// ConnectPDU wraps the client Connect-Initial request and the server
// Connect-Response; only the alternative this client uses on each side is
// populated.
type ConnectPDU struct {
	Application           ConnectPDUApplication
	ClientConnectInitial   *ClientMCSConnectInitial
	ServerConnectResponse  *ServerConnectResponse
}

func (pdu *ConnectPDU) Serialize() []byte {
	buf := new(bytes.Buffer)
	var body []byte
	if pdu.ClientConnectInitial != nil {
		body = pdu.ClientConnectInitial.Serialize()
	}
	per.BerWriteApplicationTag(uint8(pdu.Application), len(body), buf)
	buf.Write(body)
	return buf.Bytes()
}

func (pdu *ConnectPDU) Deserialize(wire io.Reader) error {
	tag, err := per.BerReadApplicationTag(wire)
	if err != nil {
		return err
	}
	pdu.Application = ConnectPDUApplication(tag)

	if _, err := per.BerReadLength(wire); err != nil {
		return err
	}

	switch pdu.Application {
	case connectResponse:
		resp := &ServerConnectResponse{}
		if err := resp.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerConnectResponse = resp
		return nil
	default:
		return ErrUnknownConnectApplication
	}
}

// ClientMCSConnectInitial is T.125 Connect-Initial: the client's domain
// selectors, requested domain parameter ranges, and GCC user data.
type ClientMCSConnectInitial struct {
	calledDomainSelector  []byte
	callingDomainSelector []byte
	upwardFlag            bool
	targetParameters      domainParameters
	minimumParameters     domainParameters
	maximumParameters     domainParameters
	userData              []byte
}

// NewClientMCSConnectInitial builds a Connect-Initial with the fixed
// domain parameter ranges every RDP client requests (MS-RDPBCGR 2.2.1.3,
// matching the values xrdp/FreeRDP negotiate).
func NewClientMCSConnectInitial(userData []byte) *ClientMCSConnectInitial {
	return &ClientMCSConnectInitial{
		calledDomainSelector:  []byte{0x01},
		callingDomainSelector: []byte{0x01},
		upwardFlag:            true,
		targetParameters: domainParameters{
			maxChannelIds:   34,
			maxUserIds:      2,
			maxTokenIds:     0,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   65535,
			protocolVersion: 2,
		},
		minimumParameters: domainParameters{
			maxChannelIds:   1,
			maxUserIds:      1,
			maxTokenIds:     1,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   1056,
			protocolVersion: 2,
		},
		maximumParameters: domainParameters{
			maxChannelIds:   65535,
			maxUserIds:      65535,
			maxTokenIds:     65535,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   65535,
			protocolVersion: 2,
		},
		userData: userData,
	}
}

func (c *ClientMCSConnectInitial) Serialize() []byte {
	buf := new(bytes.Buffer)
	per.BerWriteOctetString(c.calledDomainSelector, buf)
	per.BerWriteOctetString(c.callingDomainSelector, buf)
	per.BerWriteBoolean(c.upwardFlag, buf)
	per.BerWriteSequence(c.targetParameters.Serialize(), buf)
	per.BerWriteSequence(c.minimumParameters.Serialize(), buf)
	per.BerWriteSequence(c.maximumParameters.Serialize(), buf)
	per.BerWriteOctetString(c.userData, buf)
	return buf.Bytes()
}

// ServerConnectResponse is T.125 Connect-Response.
type ServerConnectResponse struct {
	Result           uint8
	calledConnectId  int
	domainParameters domainParameters
	userData         []byte
}

func (r *ServerConnectResponse) Deserialize(wire io.Reader) error {
	result, err := per.BerReadEnumerated(wire)
	if err != nil {
		return err
	}
	r.Result = result

	calledConnectID, err := per.BerReadInteger(wire)
	if err != nil {
		return err
	}
	r.calledConnectId = calledConnectID

	if err := readBERSequenceTag(wire); err != nil {
		return err
	}
	if _, err := per.BerReadLength(wire); err != nil {
		return err
	}
	if err := r.domainParameters.Deserialize(wire); err != nil {
		return err
	}

	userData, err := readBEROctetString(wire)
	if err != nil {
		return err
	}
	r.userData = userData
	return nil
}

// readBERSequenceTag consumes a universal constructed SEQUENCE tag
// (0x30); domainParameters.Deserialize itself reads only the integer
// fields, not the tag that introduces the sequence.
func readBERSequenceTag(wire io.Reader) error {
	ok, err := per.BerReadUniversalTag(per.TagSequence, true, wire)
	if err != nil {
		return err
	}
	if !ok {
		return errBadSequenceTag
	}
	return nil
}

func readBEROctetString(wire io.Reader) ([]byte, error) {
	var tag uint8
	if err := binary.Read(wire, binary.BigEndian, &tag); err != nil {
		return nil, err
	}
	if tag != per.TagOctetString {
		return nil, io.ErrUnexpectedEOF
	}

	length, err := per.BerReadLength(wire)
	if err != nil {
		return nil, err
	}

	data := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(wire, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

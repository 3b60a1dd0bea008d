package mcs

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ravibrenner/godrp/internal/per"
)

// DomainPDUApplication is the choice tag of a T.125 DomainMCSPDU.
type DomainPDUApplication uint8

const (
	plumbDomainIndication DomainPDUApplication = iota
	erectDomainRequest
	mergeChannelsRequest
	mergeChannelsConfirm
	purgeChannelsIndication
	mergeTokensRequest
	mergeTokensConfirm
	purgeTokensIndication
	disconnectProviderUltimatum
	rejectMCSPDUUltimatum
	attachUserRequest
	attachUserConfirm
	detachUserRequest
	detachUserIndication
	channelJoinRequest
	channelJoinConfirm
	channelLeaveRequest
	channelConveneRequest
	channelConveneConfirm
	channelDisbandRequest
	channelDisbandIndication
	channelAdmitRequest
	channelAdmitIndication
	channelExpelRequest
	channelExpelIndication
	// SendDataRequest and SendDataIndication are exported: callers outside
	// this package compare against them (mcs.Send/Receive callers, tests).
	SendDataRequest
	SendDataIndication
	uniformSendDataRequest
	uniformSendDataIndication
)

// DomainPDU is a T.125 DomainMCSPDU. Only the choice alternatives this
// client sends or receives (erect domain, attach user, channel join, send
// data, disconnect) are implemented; Serialize/Deserialize dispatch on
// whichever struct pointer is set or on Application, respectively.
type DomainPDU struct {
	Application DomainPDUApplication

	ClientAttachUserRequest  *ClientAttachUserRequest
	ClientErectDomainRequest *ClientErectDomainRequest
	ClientChannelJoinRequest *ClientChannelJoinRequest
	ClientSendDataRequest    *ClientSendDataRequest

	ServerAttachUserConfirm  *ServerAttachUserConfirm
	ServerChannelJoinConfirm *ServerChannelJoinConfirm
	ServerSendDataIndication *ServerSendDataIndication
}

// Serialize packs the choice tag into the high 6 bits of the header byte
// (MCS domain PDUs are PER-aligned with no extension bit in play for the
// alternatives this client uses) and appends the selected alternative's
// own encoding.
func (pdu *DomainPDU) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(pdu.Application) << 2)

	switch {
	case pdu.ClientErectDomainRequest != nil:
		buf.Write(pdu.ClientErectDomainRequest.Serialize())
	case pdu.ClientChannelJoinRequest != nil:
		buf.Write(pdu.ClientChannelJoinRequest.Serialize())
	case pdu.ClientSendDataRequest != nil:
		buf.Write(pdu.ClientSendDataRequest.Serialize())
	case pdu.ClientAttachUserRequest != nil:
		buf.Write(pdu.ClientAttachUserRequest.Serialize())
	}

	return buf.Bytes()
}

func (pdu *DomainPDU) Deserialize(wire io.Reader) error {
	var header uint8
	if err := binary.Read(wire, binary.BigEndian, &header); err != nil {
		return err
	}
	pdu.Application = DomainPDUApplication(header >> 2)

	switch pdu.Application {
	case attachUserConfirm:
		confirm := &ServerAttachUserConfirm{}
		if err := confirm.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerAttachUserConfirm = confirm
	case channelJoinConfirm:
		confirm := &ServerChannelJoinConfirm{}
		if err := confirm.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerChannelJoinConfirm = confirm
	case SendDataIndication:
		ind := &ServerSendDataIndication{}
		if err := ind.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerSendDataIndication = ind
	case SendDataRequest:
		req := &ClientSendDataRequest{}
		if err := req.Deserialize(wire); err != nil {
			return err
		}
		pdu.ClientSendDataRequest = req
	case disconnectProviderUltimatum:
		return ErrDisconnectUltimatum
	default:
		return ErrUnknownDomainApplication
	}

	return nil
}

// ClientAttachUserRequest is Attach-User-Request (MS-RDPBCGR/T.125); it
// carries no fields, so Serialize contributes nothing beyond the DomainPDU
// header byte.
type ClientAttachUserRequest struct{}

func (r *ClientAttachUserRequest) Serialize() []byte {
	return nil
}

// ServerAttachUserConfirm is Attach-User-Confirm.
type ServerAttachUserConfirm struct {
	Result    uint8
	Initiator uint16
}

func (c *ServerAttachUserConfirm) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.BigEndian, &c.Result); err != nil {
		return err
	}

	initiator, err := per.PerReadInteger16(1001, wire)
	if err != nil {
		return err
	}
	c.Initiator = initiator
	return nil
}

// ClientChannelJoinRequest is Channel-Join-Request.
type ClientChannelJoinRequest struct {
	Initiator uint16
	ChannelId uint16
}

func (r *ClientChannelJoinRequest) Serialize() []byte {
	buf := new(bytes.Buffer)
	per.PerWriteInteger16(r.Initiator, 1001, buf)
	per.PerWriteInteger16(r.ChannelId, 0, buf)
	return buf.Bytes()
}

// ServerChannelJoinConfirm is Channel-Join-Confirm. ChannelId is optional
// on the wire when the join was refused; a short read leaves it zero.
type ServerChannelJoinConfirm struct {
	Result    uint8
	Initiator uint16
	Requested uint16
	ChannelId uint16
}

func (c *ServerChannelJoinConfirm) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.BigEndian, &c.Result); err != nil {
		return err
	}

	initiator, err := per.PerReadInteger16(1001, wire)
	if err != nil {
		return err
	}
	c.Initiator = initiator

	requested, err := per.PerReadInteger16(0, wire)
	if err != nil {
		return err
	}
	c.Requested = requested

	channelID, err := per.PerReadInteger16(0, wire)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		return err
	}
	c.ChannelId = channelID
	return nil
}

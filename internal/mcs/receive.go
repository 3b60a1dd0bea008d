package mcs

import (
	"io"

	"github.com/ravibrenner/godrp/internal/per"
)

type ServerSendDataIndication struct {
	Initiator uint16
	ChannelId uint16
}

func (d *ServerSendDataIndication) Deserialize(wire io.Reader) error {
	var err error

	d.Initiator, err = per.PerReadInteger16(1001, wire)
	if err != nil {
		return err
	}

	d.ChannelId, err = per.PerReadInteger16(0, wire)
	if err != nil {
		return err
	}

	_, err = per.PerReadEnumerates(wire)
	if err != nil {
		return err
	}

	_, err = per.BerReadLength(wire)
	if err != nil {
		return err
	}

	return nil
}

// Receive returns the channel ID, a reader positioned at the payload, or an error
func (p *Protocol) Receive() (uint16, io.Reader, error) {
	wire, err := p.x224Conn.Receive()
	if err != nil {
		return 0, nil, err
	}

	var resp DomainPDU
	if err = resp.Deserialize(wire); err != nil {
		return 0, nil, err
	}

	if resp.Application != SendDataIndication {
		// Report a disconnect ultimatum distinctly from other unexpected PDUs
		if resp.Application == disconnectProviderUltimatum {
			return 0, nil, ErrDisconnectUltimatum
		}
		return 0, nil, ErrUnknownDomainApplication
	}

	return resp.ServerSendDataIndication.ChannelId, wire, nil
}

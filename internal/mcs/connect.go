package mcs

import (
	"bytes"
	"fmt"
	"io"
)

// Connect performs the T.125 Connect-Initial/Connect-Response exchange
// carrying the GCC Conference Create request/response as userData, and
// returns a reader positioned at the start of the server's GCC response.
func (p *Protocol) Connect(userData []byte) (io.Reader, error) {
	initial := NewClientMCSConnectInitial(userData)
	req := ConnectPDU{
		Application:          connectInitial,
		ClientConnectInitial: initial,
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return nil, fmt.Errorf("client MCS connect initial: %w", err)
	}

	wire, err := p.x224Conn.Receive()
	if err != nil {
		return nil, fmt.Errorf("receive MCS connect response: %w", err)
	}

	var resp ConnectPDU
	if err := resp.Deserialize(wire); err != nil {
		return nil, fmt.Errorf("server MCS connect response: %w", err)
	}
	if resp.ServerConnectResponse == nil {
		return nil, ErrUnknownConnectApplication
	}
	if resp.ServerConnectResponse.Result != RTSuccessful {
		return nil, ErrMCSConnectRefused
	}

	return bytes.NewReader(resp.ServerConnectResponse.userData), nil
}

// AttachUser sends Attach-User-Request and returns the user ID the server
// assigns in Attach-User-Confirm.
func (p *Protocol) AttachUser() (uint16, error) {
	req := DomainPDU{
		Application:             attachUserRequest,
		ClientAttachUserRequest: &ClientAttachUserRequest{},
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return 0, fmt.Errorf("client MCS attach user request: %w", err)
	}

	wire, err := p.x224Conn.Receive()
	if err != nil {
		return 0, fmt.Errorf("receive attach user confirm: %w", err)
	}

	var resp DomainPDU
	if err := resp.Deserialize(wire); err != nil {
		return 0, fmt.Errorf("server attach user confirm: %w", err)
	}
	if resp.ServerAttachUserConfirm == nil {
		return 0, ErrUnknownDomainApplication
	}
	if resp.ServerAttachUserConfirm.Result != RTSuccessful {
		return 0, ErrAttachUserRefused
	}

	return resp.ServerAttachUserConfirm.Initiator, nil
}

// JoinChannels sends a Channel-Join-Request for every channel in
// channelIDMap and waits for its confirm before moving to the next; the
// server requires channels to be joined one at a time.
func (p *Protocol) JoinChannels(userID uint16, channelIDMap map[string]uint16) error {
	for name, channelID := range channelIDMap {
		req := DomainPDU{
			Application: channelJoinRequest,
			ClientChannelJoinRequest: &ClientChannelJoinRequest{
				Initiator: userID,
				ChannelId: channelID,
			},
		}

		if err := p.x224Conn.Send(req.Serialize()); err != nil {
			return fmt.Errorf("client MCS channel join request for %s: %w", name, err)
		}

		wire, err := p.x224Conn.Receive()
		if err != nil {
			return fmt.Errorf("receive channel join confirm for %s: %w", name, err)
		}

		var resp DomainPDU
		if err := resp.Deserialize(wire); err != nil {
			return fmt.Errorf("server channel join confirm for %s: %w", name, err)
		}
		if resp.ServerChannelJoinConfirm == nil {
			return ErrUnknownDomainApplication
		}
		if resp.ServerChannelJoinConfirm.Result != RTSuccessful {
			return fmt.Errorf("channel join for %s: %w", name, ErrChannelJoinRefused)
		}
	}

	return nil
}

// Disconnect sends Disconnect-Provider-Ultimatum with reason
// rn-user-requested. Unlike the other domain PDUs, its reason field is
// PER-bit-packed across the header byte and one bit of the next.
func (p *Protocol) Disconnect() error {
	reason := RNUserRequested
	header := (byte(disconnectProviderUltimatum) << 2) | (reason >> 1)
	next := (reason & 1) << 7
	return p.x224Conn.Send([]byte{header, next})
}

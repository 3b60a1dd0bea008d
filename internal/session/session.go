// Package session drives one RDP connection end to end: the TPKT/X.224/MCS
// transport stack, the optional TLS/CredSSP security upgrade, the GCC
// conference create exchange, licensing, and the share-control capability
// exchange, culminating in a Session over which bitmap updates flow inward
// and input events flow outward.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ravibrenner/godrp/internal/fastpath"
	"github.com/ravibrenner/godrp/internal/gcc"
	"github.com/ravibrenner/godrp/internal/licensing"
	"github.com/ravibrenner/godrp/internal/mcs"
	"github.com/ravibrenner/godrp/internal/pdu"
	"github.com/ravibrenner/godrp/internal/rdperr"
	"github.com/ravibrenner/godrp/internal/security"
	"github.com/ravibrenner/godrp/internal/tpkt"
	"github.com/ravibrenner/godrp/internal/x224"
)

// pollInterval bounds each unlocked readability poll in Session.Read; when
// it expires Read polls again, so a concurrent TryWrite is never starved.
const pollInterval = 100 * time.Millisecond

// readBufSize sizes the buffered reader multiplexing the slow-path
// (TPKT/X.224/MCS) and fast-path update streams off one socket.
const readBufSize = 64 * 1024

// connAdapter lets tpkt and fastpath share one buffered reader over the
// same stream, the way the teacher's Client exposes its buffReader to
// both layers instead of each owning a private one.
type connAdapter struct {
	r *bufio.Reader
	w io.Writer
	c io.Closer
}

func (a *connAdapter) Read(p []byte) (int, error)  { return a.r.Read(p) }
func (a *connAdapter) Write(p []byte) (int, error) { return a.w.Write(p) }
func (a *connAdapter) Close() error                { return a.c.Close() }

// Options configures Connector.Connect: screen geometry, credentials, and
// the negotiation choices that shape the handshake.
type Options struct {
	Width, Height int
	ColorDepth    int

	// Host names the server for TLS certificate verification; it plays no
	// part in the TCP dial itself, which the caller has already done.
	Host string

	Domain   string
	User     string
	Password string
	// NTHash, if set (16 raw bytes), authenticates via pass-the-hash
	// instead of Password.
	NTHash []byte

	ClientName string
	// RestrictedAdmin only adds the force-encrypted-CS-PDU flag to the
	// Client Info PDU. It does not set the restricted admin flag in the
	// negotiation request, and the NLA handshake still sends the password.
	RestrictedAdmin bool
	AutoLogon       bool
	// BlankCreds connects without sending any credentials at all, for
	// servers that only need the display to come up.
	BlankCreds bool

	UseNLA           bool
	CheckCertificate bool
	LegacyTLS        bool
}

// Connector holds connection Options and produces a Session from a raw
// stream.
type Connector struct {
	opts Options
}

// NewConnector returns a Connector configured with opts.
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts}
}

// Session owns one established RDP connection's transport stack and
// share-control state. All exported methods are safe to call from two
// goroutines: one reading, one writing.
type Session struct {
	mu sync.Mutex

	conn      io.ReadWriteCloser
	bufReader *bufio.Reader
	tpktLayer *tpkt.Protocol
	x224Layer *x224.Protocol
	mcsLayer  *mcs.Protocol
	fastPath  *fastpath.Protocol
	pollConn  net.Conn // non-nil when conn supports read deadlines

	userID       uint16
	shareID      uint32
	channelIDMap map[string]uint16

	selectedProtocol pdu.NegotiationProtocol

	// fragCode/fragBuf accumulate a fast-path update split across
	// First/Next/Last fragments until Last completes it.
	fragCode fastpath.UpdateCode
	fragBuf  []byte
}

// Connect runs the full connection sequence synchronously over stream and
// returns a ready Session: connection initiation, optional TLS/CredSSP
// upgrade, basic settings exchange, channel connection, secure settings
// exchange, licensing, and capability exchange.
func (c *Connector) Connect(ctx context.Context, stream net.Conn) (*Session, error) {
	opts := c.opts

	requestedProtocol := pdu.NegotiationProtocolRDP
	if opts.UseNLA {
		requestedProtocol = pdu.NegotiationProtocolSSL | pdu.NegotiationProtocolHybrid
	}

	s := &Session{
		conn:     stream,
		pollConn: stream,
	}

	s.tpktLayer = tpkt.New(stream)
	s.x224Layer = x224.New(s.tpktLayer)

	selected, err := connectionInitiation(s.x224Layer, requestedProtocol)
	if err != nil {
		return nil, fmt.Errorf("connection initiation: %w", err)
	}
	s.selectedProtocol = selected

	upgraded, err := security.Upgrade(ctx, stream, security.Options{
		Protocol: selected,
		Creds: security.Credentials{
			Domain:   opts.Domain,
			User:     opts.User,
			Password: opts.Password,
			NTHash:   opts.NTHash,
		},
		ServerName:       opts.Host,
		CheckCertificate: opts.CheckCertificate,
		LegacyTLS:        opts.LegacyTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("security upgrade: %w", err)
	}
	s.conn = upgraded
	if nc, ok := upgraded.(net.Conn); ok {
		s.pollConn = nc
	}

	s.bufReader = bufio.NewReaderSize(upgraded, readBufSize)
	adapter := &connAdapter{r: s.bufReader, w: upgraded, c: upgraded}

	s.tpktLayer = tpkt.New(adapter)
	s.x224Layer = x224.New(s.tpktLayer)
	s.mcsLayer = mcs.New(s.x224Layer)
	s.fastPath = fastpath.New(adapter)

	channelIDMap, err := basicSettingsExchange(s.mcsLayer, opts, uint32(selected))
	if err != nil {
		return nil, fmt.Errorf("basic settings exchange: %w", err)
	}
	s.channelIDMap = channelIDMap

	if err := channelConnection(s.mcsLayer, s.channelIDMap, &s.userID); err != nil {
		return nil, fmt.Errorf("channel connection: %w", err)
	}

	useEnhancedSecurity := selected.IsSSL() || selected.IsHybrid() || selected.IsHybridEx()
	if err := secureSettingsExchange(s.mcsLayer, opts, s.userID, s.channelIDMap, useEnhancedSecurity); err != nil {
		return nil, fmt.Errorf("secure settings exchange: %w", err)
	}

	if err := runLicensing(s.mcsLayer, useEnhancedSecurity); err != nil {
		return nil, fmt.Errorf("licensing: %w", err)
	}

	if err := s.capabilitiesExchange(opts); err != nil {
		return nil, fmt.Errorf("capabilities exchange: %w", err)
	}

	if err := s.connectionFinalization(); err != nil {
		return nil, fmt.Errorf("connection finalization: %w", err)
	}

	return s, nil
}

func connectionInitiation(x224Layer *x224.Protocol, requestedProtocol pdu.NegotiationProtocol) (pdu.NegotiationProtocol, error) {
	req := pdu.ClientConnectionRequest{
		NegotiationRequest: pdu.NegotiationRequest{RequestedProtocols: requestedProtocol},
	}

	wire, err := x224Layer.Connect(req.Serialize())
	if err != nil {
		return 0, err
	}

	var resp pdu.ServerConnectionConfirm
	if err := resp.Deserialize(wire); err != nil {
		return 0, err
	}

	if resp.Type.IsFailure() {
		return 0, rdperr.Wrapf(rdperr.InvalidRespond, "server refused negotiation: %s", resp.FailureCode())
	}

	return resp.SelectedProtocol(), nil
}

func basicSettingsExchange(mcsLayer *mcs.Protocol, opts Options, selectedProtocol uint32) (map[string]uint16, error) {
	clientUserData := pdu.NewClientUserDataSet(
		selectedProtocol,
		uint16(opts.Width), uint16(opts.Height), //nolint:gosec
		opts.ColorDepth,
		[]string{},
	)

	req := gcc.NewConferenceCreateRequest(clientUserData.Serialize())
	wire, err := mcsLayer.Connect(req.Serialize())
	if err != nil {
		return nil, err
	}

	var resp gcc.ConferenceCreateResponse
	if err := resp.Deserialize(wire); err != nil {
		return nil, err
	}

	var serverUserData pdu.ServerUserData
	if err := serverUserData.Deserialize(wire); err != nil {
		return nil, err
	}

	channelIDMap := map[string]uint16{
		"global": serverUserData.ServerNetworkData.MCSChannelId,
	}
	return channelIDMap, nil
}

func channelConnection(mcsLayer *mcs.Protocol, channelIDMap map[string]uint16, userID *uint16) error {
	if err := mcsLayer.ErectDomain(); err != nil {
		return err
	}

	id, err := mcsLayer.AttachUser()
	if err != nil {
		return err
	}
	*userID = id
	channelIDMap["user"] = id

	return mcsLayer.JoinChannels(id, channelIDMap)
}

func secureSettingsExchange(mcsLayer *mcs.Protocol, opts Options, userID uint16, channelIDMap map[string]uint16, useEnhancedSecurity bool) error {
	if opts.BlankCreds {
		return nil
	}

	clientInfo := pdu.NewClientInfo(opts.Domain, opts.User, opts.Password)
	if opts.AutoLogon {
		clientInfo.Flags |= pdu.InfoFlagAutoLogon
	}
	if opts.RestrictedAdmin {
		clientInfo.Flags |= pdu.InfoFlagForceEncryptedCSPDU
	}

	data := clientInfo.Serialize(useEnhancedSecurity)
	return mcsLayer.Send(userID, channelIDMap["global"], data)
}

func runLicensing(mcsLayer *mcs.Protocol, useEnhancedSecurity bool) error {
	_, wire, err := mcsLayer.Receive()
	if err != nil {
		return err
	}

	var resp licensing.ServerError
	if err := resp.ReadFrom(wire); err != nil {
		return err
	}

	if !resp.Accepted() {
		return rdperr.Wrap(rdperr.InvalidRespond, "server did not accept license")
	}
	return nil
}

// capabilitiesExchange receives the server's Demand Active PDU and answers
// with a Confirm Active PDU advertising this client's (raw-bitmap-only)
// capability sets.
func (s *Session) capabilitiesExchange(opts Options) error {
	_, wire, err := s.mcsLayer.Receive()
	if err != nil {
		return err
	}

	var header pdu.ShareControlHeader
	if err := header.Deserialize(wire); err != nil {
		return err
	}
	if !header.PDUType.IsDemandActive() {
		return rdperr.Wrapf(rdperr.InvalidRespond, "expected Demand Active PDU, got type %#x", uint16(header.PDUType))
	}

	var demandActive pdu.ServerDemandActive
	if err := demandActive.Deserialize(wire); err != nil {
		return err
	}
	s.shareID = demandActive.ShareID

	confirmActive := pdu.NewClientConfirmActive(s.shareID, s.userID, opts.Width, opts.Height, false)
	if err := s.mcsLayer.Send(s.userID, s.channelIDMap["global"], confirmActive.Serialize()); err != nil {
		return err
	}

	return nil
}

// connectionFinalization sends the client's synchronize, control-cooperate,
// control-request-control, and font-list PDUs in sequence (MS-RDPBCGR
// 2.2.1.14 - 2.2.1.18).
func (s *Session) connectionFinalization() error {
	global := s.channelIDMap["global"]

	steps := []*pdu.Data{
		pdu.NewSynchronize(s.shareID, s.userID),
		pdu.NewControl(s.shareID, s.userID, pdu.ControlActionCooperate),
		pdu.NewControl(s.shareID, s.userID, pdu.ControlActionRequestControl),
		pdu.NewFontList(s.shareID, s.userID),
	}

	for _, step := range steps {
		if err := s.mcsLayer.Send(s.userID, global, step.Serialize()); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown sends an MCS disconnect ultimatum and closes the underlying
// stream. It is safe to call more than once.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var disconnectErr error
	if s.mcsLayer != nil {
		disconnectErr = s.mcsLayer.Disconnect()
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return err
		}
	}
	return disconnectErr
}

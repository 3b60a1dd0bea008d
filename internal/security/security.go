// Package security decides, from the negotiated X.224 security protocol,
// how to upgrade a raw TCP connection before the RDP connection sequence
// continues: plain (no upgrade), TLS only, or TLS followed by a CredSSP/NLA
// handshake.
package security

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"

	legacytls "github.com/icodeface/tls"
	"github.com/ravibrenner/godrp/internal/auth"
	"github.com/ravibrenner/godrp/internal/pdu"
	"github.com/ravibrenner/godrp/internal/rdperr"
)

// Credentials carries what the CredSSP/NLA handshake needs to authenticate.
type Credentials struct {
	Domain   string
	User     string
	Password string
	// NTHash, if set, is used instead of Password (pass-the-hash).
	NTHash []byte
}

// Options controls how Upgrade performs the TLS/CredSSP step.
type Options struct {
	Protocol         pdu.NegotiationProtocol
	Creds            Credentials
	ServerName       string
	CheckCertificate bool
	// LegacyTLS selects icodeface/tls (export-cipher capable) instead of
	// crypto/tls, for servers predating modern cipher suite support.
	LegacyTLS bool
}

// Upgrade performs whatever transport upgrade the negotiated protocol
// requires and returns the stream the rest of the connection sequence
// should use in place of conn.
func Upgrade(ctx context.Context, conn net.Conn, opts Options) (io.ReadWriteCloser, error) {
	switch {
	case opts.Protocol.IsRDP():
		return conn, nil

	case opts.Protocol.IsSSL():
		return upgradeTLS(conn, opts)

	case opts.Protocol.IsHybrid(), opts.Protocol.IsHybridEx():
		tlsConn, err := upgradeTLS(conn, opts)
		if err != nil {
			return nil, err
		}
		if err := performCredSSP(ctx, tlsConn, opts.Creds); err != nil {
			return nil, err
		}
		return tlsConn, nil

	default:
		return nil, rdperr.Wrapf(rdperr.NotImplemented, "security protocol %#x", uint32(opts.Protocol))
	}
}

func upgradeTLS(conn net.Conn, opts Options) (io.ReadWriteCloser, error) {
	if opts.LegacyTLS {
		cfg := &legacytls.Config{InsecureSkipVerify: !opts.CheckCertificate, ServerName: opts.ServerName} // #nosec G402
		c := legacytls.Client(conn, cfg)
		if err := c.Handshake(); err != nil {
			return nil, rdperr.Wrapf(rdperr.Unknown, "legacy TLS handshake: %v", err)
		}
		return c, nil
	}

	cfg := &tls.Config{InsecureSkipVerify: !opts.CheckCertificate, ServerName: opts.ServerName, MinVersion: tls.VersionTLS10} // #nosec G402
	c := tls.Client(conn, cfg)
	if err := c.HandshakeContext(context.Background()); err != nil {
		return nil, rdperr.Wrapf(rdperr.Unknown, "TLS handshake: %v", err)
	}
	return c, nil
}

// publicKeyer exposes the peer leaf certificate's raw public key, which is
// what CredSSP's pubKeyAuth step binds the NTLM session key to.
type publicKeyer interface {
	ConnectionState() tls.ConnectionState
}

func leafPublicKey(stream io.ReadWriteCloser) ([]byte, error) {
	pk, ok := stream.(publicKeyer)
	if !ok {
		return nil, rdperr.Wrap(rdperr.NotImplemented, "CredSSP requires a TLS stream to bind the public key to")
	}
	state := pk.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, rdperr.Wrap(rdperr.InvalidData, "no server certificate to bind CredSSP public key to")
	}
	return state.PeerCertificates[0].RawSubjectPublicKeyInfo, nil
}

// performCredSSP runs the MS-CSSP NTLMv2-over-CredSSP exchange: negotiate,
// authenticate, public-key binding, then delivers the logon credentials.
func performCredSSP(ctx context.Context, stream io.ReadWriteCloser, creds Credentials) error {
	pubKey, err := leafPublicKey(stream)
	if err != nil {
		return err
	}

	var ntlm *auth.NTLMv2
	if len(creds.NTHash) > 0 {
		ntlm, err = auth.NewNTLMv2FromHash(creds.Domain, creds.User, fmt.Sprintf("%x", creds.NTHash))
		if err != nil {
			return rdperr.Wrapf(rdperr.InvalidData, "NT hash: %v", err)
		}
	} else {
		ntlm = auth.NewNTLMv2(creds.Domain, creds.User, creds.Password)
	}

	negotiate := auth.EncodeTSRequest([][]byte{ntlm.GetNegotiateMessage()}, nil, nil)
	if err := writeFrame(stream, negotiate); err != nil {
		return err
	}

	challengeFrame, err := readFrame(stream)
	if err != nil {
		return rdperr.Wrapf(rdperr.Unknown, "CredSSP challenge: %v", err)
	}
	challengeReq, err := auth.DecodeTSRequest(challengeFrame)
	if err != nil {
		return err
	}
	if len(challengeReq.NegoTokens) == 0 {
		return rdperr.Wrap(rdperr.InvalidData, "CredSSP server sent no NTLM challenge")
	}

	authMsg, sec := ntlm.GetAuthenticateMessage(challengeReq.NegoTokens[0].Data)
	if sec == nil {
		return rdperr.Wrap(rdperr.InvalidData, "failed to process NTLM challenge")
	}

	clientPubKeyAuth := auth.ComputeClientPubKeyAuth(6, pubKey, nil)
	authenticate := auth.EncodeTSRequest([][]byte{authMsg}, nil, sec.GssEncrypt(clientPubKeyAuth))
	if err := writeFrame(stream, authenticate); err != nil {
		return err
	}

	pubKeyFrame, err := readFrame(stream)
	if err != nil {
		return rdperr.Wrapf(rdperr.Unknown, "CredSSP pubkey response: %v", err)
	}
	pubKeyResp, err := auth.DecodeTSRequest(pubKeyFrame)
	if err != nil {
		return err
	}
	serverPubKeyAuth := sec.GssDecrypt(pubKeyResp.PubKeyAuth)
	if !auth.VerifyServerPubKeyAuth(6, serverPubKeyAuth, pubKey, nil) {
		return rdperr.Wrap(rdperr.InvalidRespond, "CredSSP server public key binding mismatch")
	}

	credBlob := auth.EncodeCredentials([]byte(creds.Domain), []byte(creds.User), []byte(creds.Password))
	final := auth.EncodeTSRequest(nil, sec.GssEncrypt(credBlob), nil)
	if err := writeFrame(stream, final); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// writeFrame writes a complete BER-encoded TSRequest.
func writeFrame(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// readFrame reads one complete BER-encoded TSRequest: a SEQUENCE tag
// followed by its length and that many bytes of content.
func readFrame(r io.Reader) ([]byte, error) {
	var tagByte [1]byte
	if _, err := io.ReadFull(r, tagByte[:]); err != nil {
		return nil, err
	}

	length, lengthBytes, err := readBERLength(r)
	if err != nil {
		return nil, err
	}

	content := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, content); err != nil {
			return nil, err
		}
	}

	frame := make([]byte, 0, 1+len(lengthBytes)+len(content))
	frame = append(frame, tagByte[0])
	frame = append(frame, lengthBytes...)
	frame = append(frame, content...)
	return frame, nil
}

// readBERLength reads a BER length octet (or long form) and returns both
// the decoded length and the raw bytes read, since the caller needs to
// reassemble the full TLV for asn1ber.Unmarshal.
func readBERLength(r io.Reader) (int, []byte, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, nil, err
	}

	if first[0]&0x80 == 0 {
		return int(first[0]), first[:], nil
	}

	numBytes := int(first[0] &^ 0x80)
	if numBytes == 0 || numBytes > 4 {
		return 0, nil, rdperr.Wrap(rdperr.InvalidSize, "unsupported BER length form")
	}

	rest := make([]byte, numBytes)
	if _, err := io.ReadFull(r, rest); err != nil {
		return 0, nil, err
	}

	length := 0
	for _, b := range rest {
		length = length<<8 | int(b)
	}

	return length, append(first[:], rest...), nil
}

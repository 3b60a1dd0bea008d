package auth

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/huin/asn1ber"
)

// TSRequest represents a decoded CredSSP request
type TSRequest struct {
	Version      int
	NegoTokens   []NegoToken
	AuthInfo     []byte
	PubKeyAuth   []byte
	ClientNonce  []byte // For version 5+
	ErrorCode    uint32 // For version 3+
	ServerNonce  []byte // Received from server in version 5+
}

// Magic strings for CredSSP version 5+ public key hashing (includes null terminator)
var (
	ClientServerHashMagic = []byte("CredSSP Client-To-Server Binding Hash\x00")
	ServerClientHashMagic = []byte("CredSSP Server-To-Client Binding Hash\x00")
)

// ComputeClientPubKeyAuth computes the pubKeyAuth for the client
// For version 2-4: just encrypt the public key
// For version 5+: compute SHA256(magic || nonce || pubKey) and encrypt
func ComputeClientPubKeyAuth(version int, pubKey, nonce []byte) []byte {
	if version >= 5 && len(nonce) > 0 {
		// Version 5+: Hash-based binding
		// Per FreeRDP: SHA256(ClientServerHashMagic || ClientNonce || SubjectPublicKey)
		h := sha256.New()
		h.Write(ClientServerHashMagic)
		h.Write(nonce)
		h.Write(pubKey)
		return h.Sum(nil)
	}
	// Version 2-4: Direct public key (will be encrypted by caller)
	return pubKey
}

// VerifyServerPubKeyAuth verifies the server's pubKeyAuth response
// For version 2-4: server sends pubKey with first byte incremented by 1
// For version 5+: server sends SHA256(ServerClientHashMagic || nonce || pubKey)
func VerifyServerPubKeyAuth(version int, serverPubKeyAuth, clientPubKey, nonce []byte) bool {
	if version >= 5 && len(nonce) > 0 {
		// Version 5+: Hash-based verification
		h := sha256.New()
		h.Write(ServerClientHashMagic)
		h.Write(nonce)
		h.Write(clientPubKey)
		expected := h.Sum(nil)
		return bytes.Equal(serverPubKeyAuth, expected)
	}
	// Version 2-4: Server sends pubKey with first byte + 1
	if len(serverPubKeyAuth) != len(clientPubKey) {
		return false
	}
	expected := make([]byte, len(clientPubKey))
	copy(expected, clientPubKey)
	expected[0]++
	return bytes.Equal(serverPubKeyAuth, expected)
}

// NegoToken wraps an NTLM message.
type NegoToken struct {
	Data []byte `asn1ber:"explicit,tag:0"`
}

// negoDataItem is the SEQUENCE wrapper asn1ber needs for a SEQUENCE OF member.
type negoDataItem struct {
	NegoToken NegoToken
}

// tsRequestWire is the ASN.1 shape of TSRequest per MS-CSSP 2.2.1.1, encoded
// with asn1ber the way the teacher's go.mod already depends on it for BER.
//
//	TSRequest ::= SEQUENCE {
//	   version    [0] INTEGER,
//	   negoTokens [1] NegoData OPTIONAL,
//	   authInfo   [2] OCTET STRING OPTIONAL,
//	   pubKeyAuth [3] OCTET STRING OPTIONAL,
//	   errorCode  [4] INTEGER OPTIONAL,       -- version 3+
//	   clientNonce [5] OCTET STRING OPTIONAL, -- version 5+
//	}
type tsRequestWire struct {
	Version     int            `asn1ber:"explicit,tag:0"`
	NegoTokens  []negoDataItem `asn1ber:"explicit,tag:1,optional"`
	AuthInfo    []byte         `asn1ber:"explicit,tag:2,optional"`
	PubKeyAuth  []byte         `asn1ber:"explicit,tag:3,optional"`
	ErrorCode   int            `asn1ber:"explicit,tag:4,optional"`
	ClientNonce []byte         `asn1ber:"explicit,tag:5,optional"`
}

// tsCredentialsWire and tsPasswordCredsWire mirror MS-CSSP 2.2.1.2's
// TSCredentials/TSPasswordCreds for password-based logon.
type tsCredentialsWire struct {
	CredType    int    `asn1ber:"explicit,tag:0"`
	Credentials []byte `asn1ber:"explicit,tag:1"`
}

type tsPasswordCredsWire struct {
	DomainName []byte `asn1ber:"explicit,tag:0"`
	UserName   []byte `asn1ber:"explicit,tag:1"`
	Password   []byte `asn1ber:"explicit,tag:2"`
}

// EncodeTSRequest encodes a TSRequest with NTLM messages, auth info, and/or public key auth.
func EncodeTSRequest(ntlmMessages [][]byte, authInfo []byte, pubKeyAuth []byte) []byte {
	return EncodeTSRequestWithNonce(ntlmMessages, authInfo, pubKeyAuth, nil)
}

// EncodeTSRequestWithNonce encodes a TSRequest with an optional client nonce (version 5+).
func EncodeTSRequestWithNonce(ntlmMessages [][]byte, authInfo []byte, pubKeyAuth []byte, clientNonce []byte) []byte {
	return EncodeTSRequestWithVersion(6, ntlmMessages, authInfo, pubKeyAuth, clientNonce)
}

// EncodeTSRequestWithVersion encodes a TSRequest with explicit version control.
func EncodeTSRequestWithVersion(version int, ntlmMessages [][]byte, authInfo []byte, pubKeyAuth []byte, clientNonce []byte) []byte {
	wire := tsRequestWire{
		Version:     version,
		AuthInfo:    authInfo,
		PubKeyAuth:  pubKeyAuth,
		ClientNonce: clientNonce,
	}
	for _, msg := range ntlmMessages {
		wire.NegoTokens = append(wire.NegoTokens, negoDataItem{NegoToken: NegoToken{Data: msg}})
	}

	out, err := asn1ber.Marshal(wire)
	if err != nil {
		// Marshalling a well-formed tsRequestWire cannot fail; surface an
		// empty TSRequest rather than panicking a connection goroutine.
		return nil
	}
	return out
}

// DecodeTSRequest decodes a TSRequest from BER/DER bytes.
func DecodeTSRequest(data []byte) (*TSRequest, error) {
	var wire tsRequestWire
	if _, err := asn1ber.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode TSRequest: %w", err)
	}

	req := &TSRequest{
		Version:     wire.Version,
		AuthInfo:    wire.AuthInfo,
		PubKeyAuth:  wire.PubKeyAuth,
		ErrorCode:   uint32(wire.ErrorCode),
		ServerNonce: wire.ClientNonce,
	}
	for _, item := range wire.NegoTokens {
		req.NegoTokens = append(req.NegoTokens, item.NegoToken)
	}
	return req, nil
}

// EncodeCredentials encodes TSCredentials with password authentication.
func EncodeCredentials(domain, username, password []byte) []byte {
	passCreds, err := asn1ber.Marshal(tsPasswordCredsWire{
		DomainName: domain,
		UserName:   username,
		Password:   password,
	})
	if err != nil {
		return nil
	}

	creds, err := asn1ber.Marshal(tsCredentialsWire{
		CredType:    1, // password
		Credentials: passCreds,
	})
	if err != nil {
		return nil
	}
	return creds
}

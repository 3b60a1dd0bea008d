package auth

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTSRequest_RoundTrip(t *testing.T) {
	negoMsg := []byte{0x01, 0x02, 0x03}
	nonce := make([]byte, 32)

	wire := EncodeTSRequestWithNonce([][]byte{negoMsg}, nil, nil, nonce)
	require.NotEmpty(t, wire)

	req, err := DecodeTSRequest(wire)
	require.NoError(t, err)
	assert.Equal(t, 6, req.Version)
	require.Len(t, req.NegoTokens, 1)
	assert.Equal(t, negoMsg, req.NegoTokens[0].Data)
	assert.Equal(t, nonce, req.ServerNonce)
}

func TestEncodeDecodeTSRequest_AuthInfoAndPubKey(t *testing.T) {
	authInfo := []byte{0xAA, 0xBB}
	pubKey := []byte{0xCC, 0xDD, 0xEE}

	wire := EncodeTSRequest(nil, authInfo, pubKey)
	req, err := DecodeTSRequest(wire)
	require.NoError(t, err)

	assert.Equal(t, authInfo, req.AuthInfo)
	assert.Equal(t, pubKey, req.PubKeyAuth)
	assert.Empty(t, req.NegoTokens)
}

func TestEncodeCredentials(t *testing.T) {
	out := EncodeCredentials([]byte("DOMAIN"), []byte("user"), []byte("pass"))
	assert.NotEmpty(t, out)
}

func TestComputeClientPubKeyAuth_V5(t *testing.T) {
	pubKey := []byte{1, 2, 3, 4}
	nonce := []byte{5, 6, 7, 8}

	hash := ComputeClientPubKeyAuth(5, pubKey, nonce)
	assert.NotEqual(t, hash, pubKey)
	assert.Len(t, hash, sha256.Size)
}

func TestVerifyServerPubKeyAuth_V5(t *testing.T) {
	pubKey := []byte{1, 2, 3, 4}
	nonce := []byte{5, 6, 7, 8}

	h := sha256.New()
	h.Write(ServerClientHashMagic)
	h.Write(nonce)
	h.Write(pubKey)
	serverHash := h.Sum(nil)

	assert.True(t, VerifyServerPubKeyAuth(5, serverHash, pubKey, nonce))
}

func TestVerifyServerPubKeyAuth_LegacyVersion(t *testing.T) {
	clientPubKey := []byte{1, 2, 3}
	serverPubKeyAuth := []byte{2, 2, 3} // first byte + 1

	assert.True(t, VerifyServerPubKeyAuth(2, serverPubKeyAuth, clientPubKey, nil))
}

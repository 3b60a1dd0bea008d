package pdu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientInfo(t *testing.T) {
	info := NewClientInfo("CORP", "alice", "hunter2")

	require.Equal(t, "CORP", info.Domain)
	require.Equal(t, "alice", info.UserName)
	require.Equal(t, "hunter2", info.Password)
	require.NotZero(t, info.Flags&InfoFlagMouse)
	require.NotZero(t, info.Flags&InfoFlagUnicode)
}

func TestClientInfo_SerializeWithoutEnhancedSecurity(t *testing.T) {
	info := NewClientInfo("", "bob", "secret")

	data := info.Serialize(false)

	require.Equal(t, uint16(secInfoPkt), uint16(data[0])|uint16(data[1])<<8)
	require.Greater(t, len(data), 4)
}

func TestClientInfo_SerializeWithEnhancedSecurity(t *testing.T) {
	info := NewClientInfo("", "bob", "secret")

	withSec := info.Serialize(false)
	withoutSec := info.Serialize(true)

	require.Equal(t, len(withSec), len(withoutSec)+4)
}

func TestClientInfo_SerializeContainsEncodedUsername(t *testing.T) {
	info := NewClientInfo("", "alice", "")

	data := info.Serialize(true)

	encoded := unicodeZ("alice")
	require.Contains(t, string(data), string(encoded[:len(encoded)-2]))
}

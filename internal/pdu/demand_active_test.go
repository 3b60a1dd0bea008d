package pdu

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerDemandActive_Deserialize(t *testing.T) {
	general := NewGeneralCapabilitySet()
	capSet := general.Serialize()

	buf := new(bytes.Buffer)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint32(0x1234))) // ShareID
	source := []byte("RDP")
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(len(source))))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(len(capSet)+4)))
	buf.Write(source)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(1))) // numberCapabilities
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(0))) // pad2Octets
	buf.Write(capSet)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint32(7))) // SessionID

	var demandActive ServerDemandActive
	require.NoError(t, demandActive.Deserialize(bytes.NewReader(buf.Bytes())))

	require.Equal(t, uint32(0x1234), demandActive.ShareID)
	require.Equal(t, source, demandActive.SourceDescriptor)
	require.Len(t, demandActive.CapabilitySets, 1)
	require.Equal(t, uint32(7), demandActive.SessionID)
	require.NotNil(t, demandActive.CapabilitySet(CapabilitySetTypeGeneral))
}

package licensing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinaryBlob_ReadFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantType uint16
		wantData []byte
	}{
		{
			name:     "empty blob",
			input:    []byte{0x01, 0x00, 0x00, 0x00},
			wantType: 1,
		},
		{
			name:     "blob with data",
			input:    []byte{0x02, 0x00, 0x04, 0x00, 0xDE, 0xAD, 0xBE, 0xEF},
			wantType: 2,
			wantData: []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := &BinaryBlob{}
			require.NoError(t, blob.ReadFrom(bytes.NewReader(tt.input)))
			require.Equal(t, tt.wantType, blob.Type)
			require.Equal(t, tt.wantData, blob.Data)
		})
	}
}

func TestErrorMessage_ReadFrom(t *testing.T) {
	input := []byte{
		0x07, 0x00, 0x00, 0x00, // ErrorCode = STATUS_VALID_CLIENT
		0x02, 0x00, 0x00, 0x00, // StateTransition = ST_NO_TRANSITION
		0x00, 0x00, // BlobType
		0x00, 0x00, // BlobLen = 0
	}

	msg := &ErrorMessage{}
	require.NoError(t, msg.ReadFrom(bytes.NewReader(input)))
	require.Equal(t, StatusValidClient, msg.ErrorCode)
	require.Equal(t, StateNoTransition, msg.StateTransition)
}

func TestPreamble_ReadFrom(t *testing.T) {
	input := []byte{0xFF, 0x03, 0x10, 0x00}

	preamble := &Preamble{}
	require.NoError(t, preamble.ReadFrom(bytes.NewReader(input)))
	require.Equal(t, MsgTypeErrorAlert, preamble.MsgType)
	require.Equal(t, uint8(0x03), preamble.Flags)
	require.Equal(t, uint16(16), preamble.MsgSize)
}

func TestServerError_ReadFrom_Accepted(t *testing.T) {
	input := []byte{
		0x80, 0x00, 0x00, 0x00, // security header: SEC_LICENSE_PKT
		0xFF, 0x03, 0x10, 0x00, // preamble
		0x07, 0x00, 0x00, 0x00, // ErrorCode
		0x02, 0x00, 0x00, 0x00, // StateTransition
		0x00, 0x00, // BlobType
		0x00, 0x00, // BlobLen
	}

	s := &ServerError{}
	require.NoError(t, s.ReadFrom(bytes.NewReader(input)))
	require.True(t, s.Accepted())
}

func TestServerError_ReadFrom_MissingLicensePktFlag(t *testing.T) {
	input := []byte{0x00, 0x00, 0x00, 0x00}

	s := &ServerError{}
	err := s.ReadFrom(bytes.NewReader(input))
	require.Error(t, err)
}

func TestServerError_NotAccepted_OtherErrorCode(t *testing.T) {
	s := &ServerError{
		Preamble:     Preamble{MsgType: MsgTypeErrorAlert},
		ErrorMessage: ErrorMessage{ErrorCode: 0x02, StateTransition: StateNoTransition},
	}
	require.False(t, s.Accepted())
}

func TestServerError_ReadFrom_NewLicense(t *testing.T) {
	input := []byte{
		0x80, 0x00, 0x00, 0x00, // security header: SEC_LICENSE_PKT
		0x03, 0x03, 0x00, 0x00, // preamble: MsgTypeNewLicense
		0x01, 0x00, 0x02, 0x00, 0xAB, 0xCD, // EncryptedLicenseInfo blob
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // MACData
	}

	s := &ServerError{}
	require.NoError(t, s.ReadFrom(bytes.NewReader(input)))
	require.True(t, s.Accepted())
	require.Equal(t, []byte{0xAB, 0xCD}, s.NewLicenseInfo.EncryptedLicenseInfo.Data)
}

func TestPreamble_ReadFrom_BadVersion(t *testing.T) {
	input := []byte{0xFF, 0x02, 0x10, 0x00}

	preamble := &Preamble{}
	require.Error(t, preamble.ReadFrom(bytes.NewReader(input)))
}

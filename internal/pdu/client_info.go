package pdu

import (
	"bytes"
	"encoding/binary"

	"github.com/ravibrenner/godrp/internal/codec"
)

// secInfoPkt marks a security header as wrapping a Client Info PDU
// (MS-RDPBCGR 2.2.8.1.1.2.2, SEC_INFO_PKT).
const secInfoPkt uint16 = 0x0040

// InfoFlag is a bit in the TS_INFO_PACKET flags field (MS-RDPBCGR
// 2.2.1.11.1.1).
type InfoFlag uint32

const (
	InfoFlagMouse               InfoFlag = 0x00000001
	InfoFlagDisableCtrlAltDel   InfoFlag = 0x00000002
	InfoFlagAutoLogon           InfoFlag = 0x00000008
	InfoFlagUnicode             InfoFlag = 0x00000010
	InfoFlagMaximizeShell       InfoFlag = 0x00000020
	InfoFlagLogonNotify         InfoFlag = 0x00000040
	InfoFlagCompression         InfoFlag = 0x00000080
	InfoFlagEnableWindowsKey    InfoFlag = 0x00000100
	InfoFlagMouseHasWheel       InfoFlag = 0x00020000
	InfoFlagPasswordIsScPin     InfoFlag = 0x00040000
	InfoFlagNoAudioPlayback     InfoFlag = 0x00080000
	InfoFlagUsingSavedCreds     InfoFlag = 0x00100000
	InfoFlagAudioCapture        InfoFlag = 0x00200000
	InfoFlagVideoDisable        InfoFlag = 0x00400000
	InfoFlagForceEncryptedCSPDU InfoFlag = 0x00004000
	InfoFlagRail                InfoFlag = 0x00008000
)

// ClientInfo is the CLIENTINFO_PDU (MS-RDPBCGR 2.2.1.11), carrying logon
// credentials and client settings during the Secure Settings Exchange
// phase. It wraps a TS_INFO_PACKET.
type ClientInfo struct {
	CodePage       uint32
	Flags          InfoFlag
	Domain         string
	UserName       string
	Password       string
	AlternateShell string
	WorkingDir     string
}

// NewClientInfo builds a ClientInfo with the flags a non-console,
// non-autologon client sends: mouse, Unicode strings, disabled
// Ctrl+Alt+Del interception, windows-key passthrough disabled, logon
// notification, and a maximized shell.
func NewClientInfo(domain, username, password string) ClientInfo {
	return ClientInfo{
		CodePage: 0,
		Flags: InfoFlagMouse | InfoFlagUnicode | InfoFlagDisableCtrlAltDel |
			InfoFlagLogonNotify | InfoFlagMaximizeShell,
		Domain:   domain,
		UserName: username,
		Password: password,
	}
}

// unicodeZ encodes s to UTF-16LE with a trailing null terminator.
func unicodeZ(s string) []byte {
	return append(codec.Encode(s), 0x00, 0x00)
}

// Serialize encodes the Client Info PDU. When useEnhancedSecurity is
// false, the standard RDP security header (SEC_INFO_PKT) precedes the
// TS_INFO_PACKET body; Enhanced RDP Security (TLS or CredSSP) carries no
// MCS security header of its own (MS-RDPBCGR 2.2.1.11.1.1).
func (info ClientInfo) Serialize(useEnhancedSecurity bool) []byte {
	domain := unicodeZ(info.Domain)
	userName := unicodeZ(info.UserName)
	password := unicodeZ(info.Password)
	altShell := unicodeZ(info.AlternateShell)
	workingDir := unicodeZ(info.WorkingDir)

	body := new(bytes.Buffer)
	_ = binary.Write(body, binary.LittleEndian, info.CodePage)
	_ = binary.Write(body, binary.LittleEndian, uint32(info.Flags))
	_ = binary.Write(body, binary.LittleEndian, uint16(len(domain)-2))
	_ = binary.Write(body, binary.LittleEndian, uint16(len(userName)-2))
	_ = binary.Write(body, binary.LittleEndian, uint16(len(password)-2))
	_ = binary.Write(body, binary.LittleEndian, uint16(len(altShell)-2))
	_ = binary.Write(body, binary.LittleEndian, uint16(len(workingDir)-2))
	body.Write(domain)
	body.Write(userName)
	body.Write(password)
	body.Write(altShell)
	body.Write(workingDir)

	body.Write(extendedInfoPacket())

	if useEnhancedSecurity {
		return body.Bytes()
	}

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, secInfoPkt)
	buf.Write([]byte{0x00, 0x00}) // flagsHi
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// afInet is the clientAddressFamily value for IPv4 (MS-RDPBCGR 2.2.1.11.1.1.1).
const afInet uint16 = 0x0002

// extendedInfoPacket encodes a TS_EXTENDED_INFO_PACKET with an empty
// client address and directory, a zeroed (unused) client time zone, and
// no auto-reconnect cookie.
func extendedInfoPacket() []byte {
	emptyAddress := unicodeZ("")
	emptyDir := unicodeZ("")

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, afInet)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(emptyAddress)))
	buf.Write(emptyAddress)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(emptyDir)))
	buf.Write(emptyDir)
	buf.Write(make([]byte, 172)) // TS_TIME_ZONE_INFORMATION, unused
	_ = binary.Write(buf, binary.LittleEndian, uint32(0)) // clientSessionId, reserved by server
	_ = binary.Write(buf, binary.LittleEndian, uint32(0)) // performanceFlags
	_ = binary.Write(buf, binary.LittleEndian, uint16(0)) // cbAutoReconnectCookie
	_ = binary.Write(buf, binary.LittleEndian, uint16(0)) // reserved1
	_ = binary.Write(buf, binary.LittleEndian, uint16(0)) // reserved2
	return buf.Bytes()
}

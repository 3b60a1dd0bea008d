// Package gcc implements Generic Conference Control (T.124) structures
// used in RDP connection sequence as specified in MS-RDPBCGR.
package gcc

import (
	"bytes"

	"github.com/ravibrenner/godrp/internal/per"
)

var (
	t124_02_98_oid = [6]byte{0, 0, 20, 124, 0, 1}
	h221CSKey      = "Duca"
	h221SCKey      = "McDn"
)

type ConferenceCreateRequest struct {
	UserData []byte
}

func NewConferenceCreateRequest(userData []byte) *ConferenceCreateRequest {
	return &ConferenceCreateRequest{
		UserData: userData,
	}
}

func (r *ConferenceCreateRequest) Serialize() []byte {
	buf := new(bytes.Buffer)

	per.PerWriteChoice(0, buf)
	per.PerWriteObjectIdentifier(t124_02_98_oid, buf)
	per.PerWriteLength(uint16(14+len(r.UserData)), buf) // #nosec G115

	per.PerWriteChoice(0, buf)
	per.PerWriteSelection(0x08, buf)

	per.PerWriteNumericString("1", 1, buf)
	per.PerWritePadding(1, buf)
	per.PerWriteNumberOfSet(1, buf)
	per.PerWriteChoice(0xc0, buf)
	per.PerWriteOctetStream(h221CSKey, 4, buf)
	per.PerWriteOctetStream(string(r.UserData), 0, buf)

	return buf.Bytes()
}

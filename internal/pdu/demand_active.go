package pdu

import (
	"encoding/binary"
	"io"
)

// ServerDemandActive is the TS_DEMAND_ACTIVE_PDU (MS-RDPBCGR 2.2.1.13.1) a
// server sends to open the capability exchange: a source descriptor plus
// the capability sets it supports, followed by the session ID it assigns.
type ServerDemandActive struct {
	ShareID          uint32
	SourceDescriptor []byte
	CapabilitySets   []CapabilitySet
	SessionID        uint32
}

// CapabilitySet returns the first capability set of the given type, or nil
// if the server didn't advertise one.
func (pdu *ServerDemandActive) CapabilitySet(t CapabilitySetType) *CapabilitySet {
	for i := range pdu.CapabilitySets {
		if pdu.CapabilitySets[i].CapabilitySetType == t {
			return &pdu.CapabilitySets[i]
		}
	}
	return nil
}

// Deserialize decodes the PDU from wire format. The caller is expected to
// have already consumed the ShareControlHeader to identify the PDU as
// Demand Active.
func (pdu *ServerDemandActive) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &pdu.ShareID); err != nil {
		return err
	}

	var lengthSourceDescriptor, lengthCombinedCapabilities uint16
	if err := binary.Read(wire, binary.LittleEndian, &lengthSourceDescriptor); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &lengthCombinedCapabilities); err != nil {
		return err
	}

	pdu.SourceDescriptor = make([]byte, lengthSourceDescriptor)
	if lengthSourceDescriptor > 0 {
		if _, err := io.ReadFull(wire, pdu.SourceDescriptor); err != nil {
			return err
		}
	}

	var numberCapabilities, pad2Octets uint16
	if err := binary.Read(wire, binary.LittleEndian, &numberCapabilities); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pad2Octets); err != nil {
		return err
	}

	pdu.CapabilitySets = make([]CapabilitySet, numberCapabilities)
	for i := range pdu.CapabilitySets {
		if err := pdu.CapabilitySets[i].Deserialize(wire); err != nil {
			return err
		}
	}

	return binary.Read(wire, binary.LittleEndian, &pdu.SessionID)
}

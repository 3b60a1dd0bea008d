package pdu

import (
	"bytes"
	"encoding/binary"
	"io"
)

// CapabilitySetType is the Type field of a TS_CAPABILITYSETHEADER (MS-RDPBCGR 2.2.7.1).
type CapabilitySetType uint16

const (
	CapabilitySetTypeGeneral                 CapabilitySetType = 0x0001
	CapabilitySetTypeBitmap                  CapabilitySetType = 0x0002
	CapabilitySetTypeOrder                   CapabilitySetType = 0x0003
	CapabilitySetTypeBitmapCache             CapabilitySetType = 0x0004
	CapabilitySetTypeControl                 CapabilitySetType = 0x0005
	CapabilitySetTypeActivation              CapabilitySetType = 0x0007
	CapabilitySetTypePointer                 CapabilitySetType = 0x0008
	CapabilitySetTypeShare                   CapabilitySetType = 0x0009
	CapabilitySetTypeColorCache              CapabilitySetType = 0x000a
	CapabilitySetTypeSound                    CapabilitySetType = 0x000c
	CapabilitySetTypeInput                   CapabilitySetType = 0x000d
	CapabilitySetTypeFont                    CapabilitySetType = 0x000e
	CapabilitySetTypeBrush                   CapabilitySetType = 0x000f
	CapabilitySetTypeGlyphCache              CapabilitySetType = 0x0010
	CapabilitySetTypeOffscreenBitmapCache    CapabilitySetType = 0x0011
	CapabilitySetTypeBitmapCacheHostSupport  CapabilitySetType = 0x0012
	CapabilitySetTypeBitmapCacheRev2         CapabilitySetType = 0x0013
	CapabilitySetTypeVirtualChannel          CapabilitySetType = 0x0014
	CapabilitySetTypeDrawNineGridCache       CapabilitySetType = 0x0015
	CapabilitySetTypeDrawGDIPlus             CapabilitySetType = 0x0016
	CapabilitySetTypeRail                    CapabilitySetType = 0x0017
	CapabilitySetTypeWindowList               CapabilitySetType = 0x0018
	CapabilitySetTypeDesktopComposition       CapabilitySetType = 0x0019
	CapabilitySetTypeMultifragmentUpdate      CapabilitySetType = 0x001a
	CapabilitySetTypeLargePointer             CapabilitySetType = 0x001b
	CapabilitySetTypeSurfaceCommands          CapabilitySetType = 0x001c
	CapabilitySetTypeBitmapCodecs             CapabilitySetType = 0x001d
	CapabilitySetTypeFrameAcknowledge         CapabilitySetType = 0x001e
)

// CapabilitySet is a TS_CAPABILITYSETHEADER plus the single capability set
// alternative it carries; only one of the pointer fields is non-nil at a
// time, matching CapabilitySetType.
type CapabilitySet struct {
	CapabilitySetType CapabilitySetType

	GeneralCapabilitySet                 *GeneralCapabilitySet
	BitmapCapabilitySet                  *BitmapCapabilitySet
	OrderCapabilitySet                   *OrderCapabilitySet
	BitmapCacheCapabilitySetRev1         *BitmapCacheCapabilitySetRev1
	BitmapCacheCapabilitySetRev2         *BitmapCacheCapabilitySetRev2
	ColorCacheCapabilitySet              *ColorCacheCapabilitySet
	WindowActivationCapabilitySet        *WindowActivationCapabilitySet
	ControlCapabilitySet                 *ControlCapabilitySet
	PointerCapabilitySet                 *PointerCapabilitySet
	ShareCapabilitySet                   *ShareCapabilitySet
	InputCapabilitySet                   *InputCapabilitySet
	SoundCapabilitySet                   *SoundCapabilitySet
	FontCapabilitySet                    *FontCapabilitySet
	GlyphCacheCapabilitySet              *GlyphCacheCapabilitySet
	BrushCapabilitySet                   *BrushCapabilitySet
	OffscreenBitmapCacheCapabilitySet    *OffscreenBitmapCacheCapabilitySet
	BitmapCacheHostSupportCapabilitySet  *BitmapCacheHostSupportCapabilitySet
	VirtualChannelCapabilitySet          *VirtualChannelCapabilitySet
	DrawNineGridCacheCapabilitySet       *DrawNineGridCacheCapabilitySet
	DrawGDIPlusCapabilitySet             *DrawGDIPlusCapabilitySet
	RailCapabilitySet                    *RailCapabilitySet
	WindowListCapabilitySet              *WindowListCapabilitySet
	DesktopCompositionCapabilitySet      *DesktopCompositionCapabilitySet
	MultifragmentUpdateCapabilitySet     *MultifragmentUpdateCapabilitySet
	LargePointerCapabilitySet            *LargePointerCapabilitySet
	SurfaceCommandsCapabilitySet         *SurfaceCommandsCapabilitySet
	BitmapCodecsCapabilitySet            *BitmapCodecsCapabilitySet
	FrameAcknowledgeCapabilitySet        *FrameAcknowledgeCapabilitySet
}

// Serialize encodes the header and whichever alternative is populated.
func (s *CapabilitySet) Serialize() []byte {
	var body []byte

	switch {
	case s.GeneralCapabilitySet != nil:
		body = s.GeneralCapabilitySet.Serialize()
	case s.BitmapCapabilitySet != nil:
		body = s.BitmapCapabilitySet.Serialize()
	case s.OrderCapabilitySet != nil:
		body = s.OrderCapabilitySet.Serialize()
	case s.BitmapCacheCapabilitySetRev1 != nil:
		body = s.BitmapCacheCapabilitySetRev1.Serialize()
	case s.BitmapCacheCapabilitySetRev2 != nil:
		body = s.BitmapCacheCapabilitySetRev2.Serialize()
	case s.ColorCacheCapabilitySet != nil:
		body = s.ColorCacheCapabilitySet.Serialize()
	case s.WindowActivationCapabilitySet != nil:
		body = s.WindowActivationCapabilitySet.Serialize()
	case s.ControlCapabilitySet != nil:
		body = s.ControlCapabilitySet.Serialize()
	case s.PointerCapabilitySet != nil:
		body = s.PointerCapabilitySet.Serialize()
	case s.ShareCapabilitySet != nil:
		body = s.ShareCapabilitySet.Serialize()
	case s.InputCapabilitySet != nil:
		body = s.InputCapabilitySet.Serialize()
	case s.SoundCapabilitySet != nil:
		body = s.SoundCapabilitySet.Serialize()
	case s.FontCapabilitySet != nil:
		body = s.FontCapabilitySet.Serialize()
	case s.GlyphCacheCapabilitySet != nil:
		body = s.GlyphCacheCapabilitySet.Serialize()
	case s.BrushCapabilitySet != nil:
		body = s.BrushCapabilitySet.Serialize()
	case s.OffscreenBitmapCacheCapabilitySet != nil:
		body = s.OffscreenBitmapCacheCapabilitySet.Serialize()
	case s.BitmapCacheHostSupportCapabilitySet != nil:
		body = s.BitmapCacheHostSupportCapabilitySet.Serialize()
	case s.VirtualChannelCapabilitySet != nil:
		body = s.VirtualChannelCapabilitySet.Serialize()
	case s.DrawNineGridCacheCapabilitySet != nil:
		body = s.DrawNineGridCacheCapabilitySet.Serialize()
	case s.DrawGDIPlusCapabilitySet != nil:
		body = s.DrawGDIPlusCapabilitySet.Serialize()
	case s.RailCapabilitySet != nil:
		body = s.RailCapabilitySet.Serialize()
	case s.WindowListCapabilitySet != nil:
		body = s.WindowListCapabilitySet.Serialize()
	case s.DesktopCompositionCapabilitySet != nil:
		body = s.DesktopCompositionCapabilitySet.Serialize()
	case s.MultifragmentUpdateCapabilitySet != nil:
		body = s.MultifragmentUpdateCapabilitySet.Serialize()
	case s.LargePointerCapabilitySet != nil:
		body = s.LargePointerCapabilitySet.Serialize()
	case s.SurfaceCommandsCapabilitySet != nil:
		body = s.SurfaceCommandsCapabilitySet.Serialize()
	case s.BitmapCodecsCapabilitySet != nil:
		body = s.BitmapCodecsCapabilitySet.Serialize()
	case s.FrameAcknowledgeCapabilitySet != nil:
		body = s.FrameAcknowledgeCapabilitySet.Serialize()
	}

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, uint16(s.CapabilitySetType))
	_ = binary.Write(buf, binary.LittleEndian, uint16(4+len(body)))
	buf.Write(body)

	return buf.Bytes()
}

// Deserialize reads the header and decodes the matching alternative in
// full; an unrecognized type is tolerated by skipping its body.
func (s *CapabilitySet) Deserialize(wire io.Reader) error {
	var capType, length uint16
	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &length); err != nil {
		return err
	}
	s.CapabilitySetType = CapabilitySetType(capType)

	switch s.CapabilitySetType {
	case CapabilitySetTypeGeneral:
		b := &GeneralCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.GeneralCapabilitySet = b
	case CapabilitySetTypeBitmap:
		b := &BitmapCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.BitmapCapabilitySet = b
	case CapabilitySetTypeOrder:
		b := &OrderCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.OrderCapabilitySet = b
	case CapabilitySetTypeBitmapCache:
		b := &BitmapCacheCapabilitySetRev1{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.BitmapCacheCapabilitySetRev1 = b
	case CapabilitySetTypeBitmapCacheRev2:
		b := &BitmapCacheCapabilitySetRev2{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.BitmapCacheCapabilitySetRev2 = b
	case CapabilitySetTypeColorCache:
		b := &ColorCacheCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.ColorCacheCapabilitySet = b
	case CapabilitySetTypeActivation:
		b := &WindowActivationCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.WindowActivationCapabilitySet = b
	case CapabilitySetTypeControl:
		b := &ControlCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.ControlCapabilitySet = b
	case CapabilitySetTypePointer:
		b := &PointerCapabilitySet{lengthCapability: length - 4}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.PointerCapabilitySet = b
	case CapabilitySetTypeShare:
		b := &ShareCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.ShareCapabilitySet = b
	case CapabilitySetTypeInput:
		b := &InputCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.InputCapabilitySet = b
	case CapabilitySetTypeSound:
		b := &SoundCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.SoundCapabilitySet = b
	case CapabilitySetTypeFont:
		b := &FontCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.FontCapabilitySet = b
	case CapabilitySetTypeGlyphCache:
		b := &GlyphCacheCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.GlyphCacheCapabilitySet = b
	case CapabilitySetTypeBrush:
		b := &BrushCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.BrushCapabilitySet = b
	case CapabilitySetTypeOffscreenBitmapCache:
		b := &OffscreenBitmapCacheCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.OffscreenBitmapCacheCapabilitySet = b
	case CapabilitySetTypeBitmapCacheHostSupport:
		b := &BitmapCacheHostSupportCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.BitmapCacheHostSupportCapabilitySet = b
	case CapabilitySetTypeVirtualChannel:
		b := &VirtualChannelCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.VirtualChannelCapabilitySet = b
	case CapabilitySetTypeDrawNineGridCache:
		b := &DrawNineGridCacheCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.DrawNineGridCacheCapabilitySet = b
	case CapabilitySetTypeDrawGDIPlus:
		b := &DrawGDIPlusCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.DrawGDIPlusCapabilitySet = b
	case CapabilitySetTypeRail:
		b := &RailCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.RailCapabilitySet = b
	case CapabilitySetTypeWindowList:
		b := &WindowListCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.WindowListCapabilitySet = b
	case CapabilitySetTypeDesktopComposition:
		b := &DesktopCompositionCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.DesktopCompositionCapabilitySet = b
	case CapabilitySetTypeMultifragmentUpdate:
		b := &MultifragmentUpdateCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.MultifragmentUpdateCapabilitySet = b
	case CapabilitySetTypeLargePointer:
		b := &LargePointerCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.LargePointerCapabilitySet = b
	case CapabilitySetTypeSurfaceCommands:
		b := &SurfaceCommandsCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.SurfaceCommandsCapabilitySet = b
	case CapabilitySetTypeBitmapCodecs:
		b := &BitmapCodecsCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.BitmapCodecsCapabilitySet = b
	case CapabilitySetTypeFrameAcknowledge:
		b := &FrameAcknowledgeCapabilitySet{}
		if err := b.Deserialize(wire); err != nil {
			return err
		}
		s.FrameAcknowledgeCapabilitySet = b
	default:
		if length > 4 {
			if _, err := io.CopyN(io.Discard, wire, int64(length-4)); err != nil {
				return err
			}
		}
	}

	return nil
}

// DeserializeQuick reads only the header, identifying the capability set's
// type and skipping its body without decoding it.
func (s *CapabilitySet) DeserializeQuick(wire io.Reader) error {
	var capType, length uint16
	if err := binary.Read(wire, binary.LittleEndian, &capType); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &length); err != nil {
		return err
	}
	s.CapabilitySetType = CapabilitySetType(capType)

	if length > 4 {
		if _, err := io.CopyN(io.Discard, wire, int64(length-4)); err != nil {
			return err
		}
	}
	return nil
}

// Serialize encodes the capability set to wire format.
func (s *BitmapCacheHostSupportCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, uint8(1)) // cacheVersion
	_ = binary.Write(buf, binary.LittleEndian, uint8(0)) // padding
	_ = binary.Write(buf, binary.LittleEndian, uint16(0)) // padding

	return buf.Bytes()
}

// FrameAcknowledgeCapabilitySet represents the TS_FRAME_ACKNOWLEDGE_CAPABILITYSET
// structure (a FreeRDP/xrdp extension carried alongside MS-RDPBCGR capability sets).
type FrameAcknowledgeCapabilitySet struct {
	MaxUnacknowledgedFrames uint32
}

// NewFrameAcknowledgeCapabilitySet creates a Frame Acknowledge Capability Set.
func NewFrameAcknowledgeCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeFrameAcknowledge,
		FrameAcknowledgeCapabilitySet: &FrameAcknowledgeCapabilitySet{
			MaxUnacknowledgedFrames: 2,
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *FrameAcknowledgeCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.MaxUnacknowledgedFrames)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *FrameAcknowledgeCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.MaxUnacknowledgedFrames)
}

// Surface command flags for SurfaceCommandsCapabilitySet (MS-RDPBCGR 2.2.7.2.7).
const (
	SurfCmdSetSurfaceBits  uint32 = 0x00000002
	SurfCmdFrameMarker     uint32 = 0x00000010
	SurfCmdStreamSurfBits  uint32 = 0x00000040
)

// SurfaceCommandsCapabilitySet represents the TS_SURFCMDS_CAPABILITYSET
// structure (MS-RDPBCGR 2.2.7.2.7).
type SurfaceCommandsCapabilitySet struct {
	CmdFlags uint32
}

// NewSurfaceCommandsCapabilitySet creates a Surface Commands Capability Set
// advertising SetSurfaceBits, FrameMarker, and StreamSurfaceBits support.
func NewSurfaceCommandsCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeSurfaceCommands,
		SurfaceCommandsCapabilitySet: &SurfaceCommandsCapabilitySet{
			CmdFlags: SurfCmdSetSurfaceBits | SurfCmdFrameMarker | SurfCmdStreamSurfBits,
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *SurfaceCommandsCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.CmdFlags)
	_ = binary.Write(buf, binary.LittleEndian, uint32(0)) // reserved
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *SurfaceCommandsCapabilitySet) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &s.CmdFlags); err != nil {
		return err
	}
	var reserved uint32
	return binary.Read(wire, binary.LittleEndian, &reserved)
}

// MultifragmentUpdateCapabilitySet represents the TS_MULTIFRAGMENTUPDATE_CAPABILITYSET
// structure (MS-RDPBCGR 2.2.7.2.6).
type MultifragmentUpdateCapabilitySet struct {
	MaxRequestSize uint32
}

// NewMultifragmentUpdateCapabilitySet creates a Multifragment Update Capability Set.
func NewMultifragmentUpdateCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeMultifragmentUpdate,
		MultifragmentUpdateCapabilitySet: &MultifragmentUpdateCapabilitySet{
			MaxRequestSize: 65536,
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *MultifragmentUpdateCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.MaxRequestSize)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *MultifragmentUpdateCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.MaxRequestSize)
}

// LargePointerCapabilitySet represents the TS_LARGE_POINTER_CAPABILITYSET
// structure (MS-RDPBCGR 2.2.7.2.7... large pointer variant).
type LargePointerCapabilitySet struct {
	LargePointerSupportFlags uint16
}

// Serialize encodes the capability set to wire format.
func (s *LargePointerCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.LargePointerSupportFlags)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *LargePointerCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.LargePointerSupportFlags)
}

// DesktopCompositionCapabilitySet represents the TS_COMPDESK_CAPABILITYSET
// structure (MS-RDPBCGR 2.2.7.2.8).
type DesktopCompositionCapabilitySet struct {
	CompDeskSupportLevel uint16
}

// Serialize encodes the capability set to wire format.
func (s *DesktopCompositionCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.CompDeskSupportLevel)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *DesktopCompositionCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.CompDeskSupportLevel)
}

// GUID is a 16-byte Microsoft GUID in its mixed-endian wire layout.
type GUID [16]byte

// NSCodecGUID identifies the NSCodec bitmap codec (MS-RDPBCGR 2.2.7.2.10.1.1):
// {CA8D1BB9-000F-154F-589F-AE2D1A87E2D6}.
var NSCodecGUID = GUID{
	0xb9, 0x1b, 0x8d, 0xca, 0x0f, 0x00, 0x4f, 0x15,
	0x58, 0x9f, 0xae, 0x2d, 0x1a, 0x87, 0xe2, 0xd6,
}

// NSCodecCapabilitySet is the codec-specific property payload carried in a
// BitmapCodec entry for the NSCodec (MS-RDPBCGR 2.2.7.2.10.1.1).
type NSCodecCapabilitySet struct {
	FAllowDynamicFidelity uint8
	FAllowSubsampling     uint8
	ColorLossLevel        uint8
}

// Serialize encodes the property set to wire format.
func (s NSCodecCapabilitySet) Serialize() []byte {
	return []byte{s.FAllowDynamicFidelity, s.FAllowSubsampling, s.ColorLossLevel}
}

// Deserialize decodes the property set from wire format.
func (s *NSCodecCapabilitySet) Deserialize(wire io.Reader) error {
	data := make([]byte, 3)
	if _, err := io.ReadFull(wire, data); err != nil {
		return err
	}
	s.FAllowDynamicFidelity = data[0]
	s.FAllowSubsampling = data[1]
	s.ColorLossLevel = data[2]
	return nil
}

// BitmapCodec is one TS_BITMAPCODEC entry (MS-RDPBCGR 2.2.7.2.10.1).
type BitmapCodec struct {
	CodecGUID       GUID
	CodecID         uint8
	CodecProperties []byte
}

// Serialize encodes the codec entry to wire format.
func (c *BitmapCodec) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.Write(c.CodecGUID[:])
	_ = binary.Write(buf, binary.LittleEndian, c.CodecID)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(c.CodecProperties)))
	buf.Write(c.CodecProperties)
	return buf.Bytes()
}

// Deserialize decodes the codec entry from wire format.
func (c *BitmapCodec) Deserialize(wire io.Reader) error {
	if _, err := io.ReadFull(wire, c.CodecGUID[:]); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &c.CodecID); err != nil {
		return err
	}
	var length uint16
	if err := binary.Read(wire, binary.LittleEndian, &length); err != nil {
		return err
	}
	c.CodecProperties = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(wire, c.CodecProperties); err != nil {
			return err
		}
	}
	return nil
}

// BitmapCodecsCapabilitySet represents the TS_BITMAP_CODECS_CAPABILITYSET
// structure (MS-RDPBCGR 2.2.7.2.10).
type BitmapCodecsCapabilitySet struct {
	BitmapCodecArray []BitmapCodec
}

// NewBitmapCodecsCapabilitySet creates a Bitmap Codecs Capability Set
// advertising NSCodec support.
func NewBitmapCodecsCapabilitySet() CapabilitySet {
	codec := BitmapCodec{
		CodecGUID: NSCodecGUID,
		CodecID:   1,
		CodecProperties: NSCodecCapabilitySet{
			FAllowDynamicFidelity: 0,
			FAllowSubsampling:     1,
			ColorLossLevel:        3,
		}.Serialize(),
	}
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeBitmapCodecs,
		BitmapCodecsCapabilitySet: &BitmapCodecsCapabilitySet{
			BitmapCodecArray: []BitmapCodec{codec},
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *BitmapCodecsCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(uint8(len(s.BitmapCodecArray))) // #nosec G115
	for i := range s.BitmapCodecArray {
		buf.Write(s.BitmapCodecArray[i].Serialize())
	}
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *BitmapCodecsCapabilitySet) Deserialize(wire io.Reader) error {
	var count uint8
	if err := binary.Read(wire, binary.LittleEndian, &count); err != nil {
		return err
	}
	s.BitmapCodecArray = make([]BitmapCodec, count)
	for i := range s.BitmapCodecArray {
		if err := s.BitmapCodecArray[i].Deserialize(wire); err != nil {
			return err
		}
	}
	return nil
}

// RailCapabilitySet represents the TS_RAIL_CAPABILITYSET structure
// (MS-RDPERP 2.2.1.1.1); carried only when RemoteApp is in use.
type RailCapabilitySet struct {
	RailSupportLevel uint32
}

// NewRailCapabilitySet creates a Rail Capability Set.
func NewRailCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeRail,
		RailCapabilitySet: &RailCapabilitySet{
			RailSupportLevel: 1, // TS_RAIL_LEVEL_SUPPORTED
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *RailCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.RailSupportLevel)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *RailCapabilitySet) Deserialize(wire io.Reader) error {
	return binary.Read(wire, binary.LittleEndian, &s.RailSupportLevel)
}

// WindowListCapabilitySet represents the TS_WINDOW_LIST_CAPABILITYSET
// structure (MS-RDPERP 2.2.1.1.2); carried only when RemoteApp is in use.
type WindowListCapabilitySet struct {
	WndSupportLevel      uint32
	NumIconCaches        uint8
	NumIconCacheEntries  uint16
}

// NewWindowListCapabilitySet creates a Window List Capability Set.
func NewWindowListCapabilitySet() CapabilitySet {
	return CapabilitySet{
		CapabilitySetType: CapabilitySetTypeWindowList,
		WindowListCapabilitySet: &WindowListCapabilitySet{
			WndSupportLevel:     1, // TS_WINDOW_LEVEL_SUPPORTED
			NumIconCaches:       3,
			NumIconCacheEntries: 12,
		},
	}
}

// Serialize encodes the capability set to wire format.
func (s *WindowListCapabilitySet) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, s.WndSupportLevel)
	_ = binary.Write(buf, binary.LittleEndian, s.NumIconCaches)
	_ = binary.Write(buf, binary.LittleEndian, s.NumIconCacheEntries)
	return buf.Bytes()
}

// Deserialize decodes the capability set from wire format.
func (s *WindowListCapabilitySet) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.LittleEndian, &s.WndSupportLevel); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &s.NumIconCaches); err != nil {
		return err
	}
	return binary.Read(wire, binary.LittleEndian, &s.NumIconCacheEntries)
}

// clientCapabilitySets builds the capability set list a client advertises in
// Confirm Active, optionally adding the RemoteApp-only sets.
func clientCapabilitySets(width, height int, remoteApp bool) []CapabilitySet {
	sets := []CapabilitySet{
		NewGeneralCapabilitySet(),
		NewBitmapCapabilitySet(uint16(width), uint16(height)), // #nosec G115
		NewOrderCapabilitySet(),
		NewBitmapCacheCapabilitySetRev1(),
		NewPointerCapabilitySet(),
		NewInputCapabilitySet(),
		NewBrushCapabilitySet(),
		NewGlyphCacheCapabilitySet(),
		NewOffscreenBitmapCacheCapabilitySet(),
		NewVirtualChannelCapabilitySet(),
		NewSoundCapabilitySet(),
		NewMultifragmentUpdateCapabilitySet(),
		NewFrameAcknowledgeCapabilitySet(),
		NewSurfaceCommandsCapabilitySet(),
		NewBitmapCodecsCapabilitySet(),
	}
	if remoteApp {
		sets = append(sets, NewRailCapabilitySet(), NewWindowListCapabilitySet())
	}
	return sets
}

// ClientConfirmActive is the client's TS_CONFIRM_ACTIVE_PDU (MS-RDPBCGR
// 2.2.1.13.2), sent in response to the server's Demand Active PDU.
type ClientConfirmActive struct {
	ShareID          uint32
	OriginatorID     uint16
	SourceDescriptor []byte
	CapabilitySets   []CapabilitySet
}

// NewClientConfirmActive builds a Confirm Active PDU advertising the
// capability sets this client supports for a desktop of the given size.
func NewClientConfirmActive(shareID uint32, originatorID uint16, width, height int, remoteApp bool) ClientConfirmActive {
	return ClientConfirmActive{
		ShareID:          shareID,
		OriginatorID:     originatorID,
		SourceDescriptor: []byte("godrp\x00"),
		CapabilitySets:   clientCapabilitySets(width, height, remoteApp),
	}
}

// Serialize encodes the PDU to wire format.
func (pdu *ClientConfirmActive) Serialize() []byte {
	var caps bytes.Buffer
	for i := range pdu.CapabilitySets {
		caps.Write(pdu.CapabilitySets[i].Serialize())
	}

	payload := new(bytes.Buffer)
	_ = binary.Write(payload, binary.LittleEndian, pdu.ShareID)
	_ = binary.Write(payload, binary.LittleEndian, pdu.OriginatorID)
	_ = binary.Write(payload, binary.LittleEndian, uint16(len(pdu.SourceDescriptor)))
	_ = binary.Write(payload, binary.LittleEndian, uint16(4+caps.Len()))
	payload.Write(pdu.SourceDescriptor)
	_ = binary.Write(payload, binary.LittleEndian, uint16(len(pdu.CapabilitySets)))
	_ = binary.Write(payload, binary.LittleEndian, uint16(0)) // pad2Octets
	payload.Write(caps.Bytes())

	header := ShareControlHeader{
		TotalLength: uint16(6 + payload.Len()), // #nosec G115
		PDUType:     TypeConfirmActive,
		PDUSource:   pdu.OriginatorID,
	}

	buf := new(bytes.Buffer)
	buf.Write(header.Serialize())
	buf.Write(payload.Bytes())

	return buf.Bytes()
}

// Deserialize decodes the PDU from wire format.
func (pdu *ClientConfirmActive) Deserialize(wire io.Reader) error {
	var header ShareControlHeader
	if err := header.Deserialize(wire); err != nil {
		return err
	}

	if err := binary.Read(wire, binary.LittleEndian, &pdu.ShareID); err != nil {
		return err
	}
	if err := binary.Read(wire, binary.LittleEndian, &pdu.OriginatorID); err != nil {
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

	return nil
}

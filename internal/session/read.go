package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"

	"github.com/ravibrenner/godrp/internal/fastpath"
	"github.com/ravibrenner/godrp/internal/mcs"
	"github.com/ravibrenner/godrp/internal/pdu"
)

// tpktVersion is the version byte every TPKT (slow-path) header begins
// with; any other leading byte on the wire is a fast-path update header
// (MS-RDPBCGR 2.2.9.1.2.1.1 puts the action code in the low two bits of
// that byte, and 0x03 there is the X.224 action, which a fast-path update
// header never carries, so a one-byte peek is enough to tell them apart).
const tpktVersion = 0x03

// Read blocks until one inbound PDU arrives, decodes it, and invokes
// callback once per BitmapEvent rectangle the PDU carries; non-graphics
// PDUs (synchronize acks, font map, ...) produce no callback invocation.
// It returns when the connection closes or a protocol error occurs.
func (s *Session) Read(callback func(RdpEvent)) error {
	for {
		events, err := s.readOnePDU()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		for _, e := range events {
			callback(e)
		}
	}
}

// readOnePDU polls for readability with a bounded deadline before taking
// the lock, so an idle reader never starves a concurrent TryWrite: the
// deadline-bound Peek that waits for the next byte runs unlocked, and the
// lock is only taken once a byte has actually arrived, for the one PDU's
// worth of bytes that follow it.
func (s *Session) readOnePDU() ([]RdpEvent, error) {
	if s.pollConn != nil {
		if err := s.pollConn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return nil, err
		}
	}

	isSlowPath, err := s.peekIsSlowPath()
	if err != nil {
		return nil, err
	}

	if s.pollConn != nil {
		if err := s.pollConn.SetReadDeadline(time.Time{}); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if isSlowPath {
		return s.readSlowPathUpdate()
	}
	return s.readFastPathUpdate()
}

func (s *Session) peekIsSlowPath() (bool, error) {
	b, err := s.bufReader.Peek(1)
	if err != nil {
		return false, err
	}
	return b[0] == tpktVersion, nil
}

// readSlowPathUpdate receives one MCS-wrapped share-data PDU and, if it is
// a bitmap graphics update, decodes its rectangles.
func (s *Session) readSlowPathUpdate() ([]RdpEvent, error) {
	channelID, wire, err := s.mcsLayer.Receive()
	if err != nil {
		if errors.Is(err, mcs.ErrDisconnectUltimatum) {
			return nil, io.EOF
		}
		return nil, err
	}

	if channelID != s.channelIDMap["global"] {
		return nil, nil
	}

	var data pdu.Data
	if err := data.Deserialize(wire); err != nil {
		if errors.Is(err, pdu.ErrDeactivateAll) {
			return nil, io.EOF
		}
		return nil, err
	}

	if !data.ShareDataHeader.PDUType2.IsUpdate() {
		return nil, nil
	}

	var updateType uint16
	if err := binary.Read(wire, binary.LittleEndian, &updateType); err != nil {
		return nil, err
	}
	if pdu.BitmapUpdateType(updateType) != pdu.BitmapUpdateTypeBitmap {
		return nil, nil
	}

	var bitmapUpdate pdu.BitmapUpdateData
	if err := bitmapUpdate.Deserialize(wire); err != nil {
		return nil, err
	}

	return bitmapEvents(bitmapUpdate), nil
}

// readFastPathUpdate receives one fast-path update PDU, reassembling
// First/Next/Last fragments before decoding.
func (s *Session) readFastPathUpdate() ([]RdpEvent, error) {
	fpUpdate, err := s.fastPath.Receive()
	if err != nil {
		return nil, err
	}

	reader := bytes.NewReader(fpUpdate.Data)
	var events []RdpEvent

	for reader.Len() > 0 {
		var update fastpath.Update
		if err := update.Deserialize(reader); err != nil {
			return nil, err
		}

		data, ready := s.reassemble(update)
		if !ready {
			continue
		}

		if update.UpdateCode != fastpath.UpdateCodeBitmap {
			continue
		}

		var bitmapUpdate pdu.BitmapUpdateData
		if err := bitmapUpdate.Deserialize(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		events = append(events, bitmapEvents(bitmapUpdate)...)
	}

	return events, nil
}

// reassemble accumulates fragmented updates and returns the complete
// payload once the Last fragment arrives (or immediately for an
// unfragmented Single update).
func (s *Session) reassemble(update fastpath.Update) ([]byte, bool) {
	switch update.Fragmentation() {
	case fastpath.FragmentSingle:
		return update.Data, true
	case fastpath.FragmentFirst:
		s.fragCode = update.UpdateCode
		s.fragBuf = append([]byte(nil), update.Data...)
		return nil, false
	case fastpath.FragmentNext:
		s.fragBuf = append(s.fragBuf, update.Data...)
		return nil, false
	case fastpath.FragmentLast:
		s.fragBuf = append(s.fragBuf, update.Data...)
		data := s.fragBuf
		s.fragBuf = nil
		return data, true
	default:
		return nil, false
	}
}

// bitmapEvents converts a decoded bitmap update into one RdpEvent per
// rectangle, deferring actual pixel decompression to BitmapEvent.Decompress.
func bitmapEvents(update pdu.BitmapUpdateData) []RdpEvent {
	events := make([]RdpEvent, 0, len(update.Rectangles))
	for _, rect := range update.Rectangles {
		events = append(events, BitmapEvent{
			DestLeft:     int(rect.DestLeft),
			DestTop:      int(rect.DestTop),
			DestRight:    int(rect.DestRight),
			DestBottom:   int(rect.DestBottom),
			Width:        int(rect.Width),
			Height:       int(rect.Height),
			BitsPerPixel: rect.BitsPerPixel,
			Compressed:   rect.Compressed(),
			data:         rect.BitmapDataSteam,
		})
	}
	return events
}

// Package shell exposes a single established session.Session over a
// WebSocket preview surface: a static canvas page plus a binary frame
// protocol, in place of a native SDL/GUI window.
package shell

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/ravibrenner/godrp/internal/logging"
	"github.com/ravibrenner/godrp/internal/scancode"
	"github.com/ravibrenner/godrp/internal/session"
)

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2
)

// frameHeader is the fixed-size prefix this shell puts in front of each
// decompressed bitmap rectangle it forwards to the browser: four
// rectangle corners and a bit depth, all little-endian uint16, followed
// by DestRight-DestLeft * DestBottom-DestTop * 4 raw BGRA bytes.
type frameHeader struct {
	DestLeft, DestTop, DestRight, DestBottom uint16
	BitsPerPixel                             uint16
}

// clientMessage is the shape of an inbound WebSocket JSON control
// message: either a mouse move/click or a keyboard event identified by
// its browser KeyboardEvent.code.
type clientMessage struct {
	Type     string `json:"type"`
	X        uint16 `json:"x"`
	Y        uint16 `json:"y"`
	Button   uint8  `json:"button"`
	Down     bool   `json:"down"`
	KeyCode  string `json:"code"`
}

// Handler serves the preview page at "/" and the live session at "/ws"
// for one already-connected Session.
func Handler(sess *session.Session) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", serveIndex)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveSession(sess, w, r)
	})
	return mux
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  webSocketReadBufferSize,
	WriteBufferSize: webSocketWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func serveSession(sess *session.Session, w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("shell: upgrade websocket: %v", err)
		return
	}
	defer func() { _ = wsConn.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wsToSession(sess, wsConn)
	}()

	sessionToWs(sess, wsConn)
	<-done
}

// sessionToWs drains decompressed bitmap rectangles from the session and
// forwards each as one binary WebSocket frame.
func sessionToWs(sess *session.Session, wsConn *websocket.Conn) {
	err := sess.Read(func(event session.RdpEvent) {
		bitmap, ok := event.(session.BitmapEvent)
		if !ok {
			return
		}

		pixels, err := bitmap.Decompress()
		if err != nil {
			logging.Error("shell: decompress bitmap: %v", err)
			return
		}

		frame := encodeFrame(bitmap, pixels)
		if err := wsConn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				logging.Debug("shell: write frame: %v", err)
			}
		}
	})
	if err != nil {
		logging.Info("shell: session read ended: %v", err)
	}
}

func encodeFrame(e session.BitmapEvent, pixels []byte) []byte {
	header := frameHeader{
		DestLeft:     uint16(e.DestLeft),     //nolint:gosec
		DestTop:      uint16(e.DestTop),      //nolint:gosec
		DestRight:    uint16(e.DestRight),    //nolint:gosec
		DestBottom:   uint16(e.DestBottom),   //nolint:gosec
		BitsPerPixel: e.BitsPerPixel,
	}

	buf := make([]byte, 10+len(pixels))
	binary.LittleEndian.PutUint16(buf[0:2], header.DestLeft)
	binary.LittleEndian.PutUint16(buf[2:4], header.DestTop)
	binary.LittleEndian.PutUint16(buf[4:6], header.DestRight)
	binary.LittleEndian.PutUint16(buf[6:8], header.DestBottom)
	binary.LittleEndian.PutUint16(buf[8:10], header.BitsPerPixel)
	copy(buf[10:], pixels)
	return buf
}

// wsToSession reads JSON control messages from the browser and relays
// them as outbound input events. An event that TryWrite rejects is logged
// and dropped, without a retry.
func wsToSession(sess *session.Session, wsConn *websocket.Conn) {
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if !strings.Contains(err.Error(), "use of closed network connection") {
				logging.Debug("shell: read message: %v", err)
			}
			return
		}

		event, ok := decodeClientMessage(data)
		if !ok {
			continue
		}

		if err := sess.TryWrite(event); err != nil {
			logging.Debug("shell: dropped input event: %v", err)
		}
	}
}

func decodeClientMessage(data []byte) (session.OutEvent, bool) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}

	switch msg.Type {
	case "mouse":
		return session.PointerEvent{X: msg.X, Y: msg.Y, Button: msg.Button, Down: msg.Down}, true
	case "key":
		sc, ok := scancode.ToScancode(msg.KeyCode)
		if !ok {
			return nil, false
		}
		extended := sc&0xFF00 == 0xE000
		return session.KeyEvent{Scancode: uint8(sc), Extended: extended, Down: msg.Down}, true //nolint:gosec
	default:
		return nil, false
	}
}

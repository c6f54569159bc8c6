package stream

import (
	"context"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// readLimit caps incoming WebSocket message size on both sides.
const readLimit = 32768

// wsJSONWriter adapts a WebSocket connection into an io.Writer for process
// output. Each Write is wrapped into a response message by writeMsg and sent
// as JSON, chunked so the encoded message stays under the peer's read limit.
type wsJSONWriter struct {
	log  *zap.SugaredLogger
	ctx  context.Context
	conn *websocket.Conn

	writeMsg func(b []byte) any
}

func (w *wsJSONWriter) Write(b []byte) (int, error) {
	// the limit is conservative: the chunk is base64-expanded and wrapped in
	// the JSON envelope before hitting the wire
	writeLimit := readLimit / 3
	left := b
	for {
		chunk := left
		more := false
		if len(chunk) > writeLimit {
			chunk = chunk[:writeLimit]
			left = left[writeLimit:]
			more = true
		}

		msg := w.writeMsg(chunk)
		if err := wsjson.Write(w.ctx, w.conn, &msg); err != nil {
			w.log.Debugf("output writer got error: %s", err)
			return 0, err
		}
		if !more {
			return len(b), nil
		}
	}
}

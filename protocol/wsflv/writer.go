package wsflv

import (
	"github.com/gorilla/websocket"
)

// Writer adapts a websocket connection to io.Writer so an FLV byte
// stream can ride on it, one binary message per write.
type Writer struct {
	conn *websocket.Conn
}

func NewWriter(conn *websocket.Conn) *Writer {
	return &Writer{conn: conn}
}

func (w *Writer) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}

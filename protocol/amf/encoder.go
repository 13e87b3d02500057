package amf

import (
	"bytes"
	"io"

	"github.com/zijiren233/stream"
)

type Encoder struct{}

// Encode writes one value and reports the number of bytes written,
// which always equals v.Size() on success.
func (e *Encoder) Encode(w io.Writer, v Value) (int, error) {
	if err := v.Encode(stream.NewWriter(w, stream.BigEndian)); err != nil {
		return 0, err
	}
	return v.Size(), nil
}

// EncodeBatch writes values back to back, the layout of RTMP command
// message bodies and script-data tag bodies.
func (e *Encoder) EncodeBatch(w io.Writer, vs ...Value) (int, error) {
	sw := stream.NewWriter(w, stream.BigEndian)
	n := 0
	for _, v := range vs {
		if err := v.Encode(sw); err != nil {
			return n, err
		}
		n += v.Size()
	}
	return n, nil
}

// EncodeBytes renders values into a fresh buffer sized from the
// declared value sizes, so no growth happens during the write.
func EncodeBytes(vs ...Value) ([]byte, error) {
	size := 0
	for _, v := range vs {
		size += v.Size()
	}
	buf := bytes.NewBuffer(make([]byte, 0, size))
	var e Encoder
	if _, err := e.EncodeBatch(buf, vs...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package amf

import (
	"io"

	"github.com/flvkit/flvkit/utils/pio"
)

func ReadByte(r io.Reader) (byte, error) {
	b, err := ReadBytes(r, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readUint16(r io.Reader) (uint16, error) {
	b, err := ReadBytes(r, 2)
	if err != nil {
		return 0, err
	}
	return pio.U16BE(b), nil
}

func readUint32(r io.Reader) (uint32, error) {
	b, err := ReadBytes(r, 4)
	if err != nil {
		return 0, err
	}
	return pio.U32BE(b), nil
}

func readUint64(r io.Reader) (uint64, error) {
	b, err := ReadBytes(r, 8)
	if err != nil {
		return 0, err
	}
	return pio.U64BE(b), nil
}

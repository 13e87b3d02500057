package amf

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Decoder reads AMF0 values back into the typed model. It exists for
// the RTMP command exchange and for script-data rewriting; FLV files
// themselves are never parsed here.
type Decoder struct{}

// DecodeBatch reads values until the reader is exhausted. A clean EOF
// on a value boundary is not an error.
func (d *Decoder) DecodeBatch(r io.Reader) ([]Value, error) {
	var vs []Value
	for {
		v, err := d.Decode(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return vs, nil
			}
			return vs, err
		}
		vs = append(vs, v)
	}
}

func (d *Decoder) Decode(r io.Reader) (Value, error) {
	marker, err := ReadByte(r)
	if err != nil {
		return nil, err
	}
	switch marker {
	case MarkerNumber:
		return d.decodeNumber(r)
	case MarkerBoolean:
		b, err := ReadByte(r)
		if err != nil {
			return nil, err
		}
		return Boolean(b != 0), nil
	case MarkerString:
		return d.decodeString(r)
	case MarkerLongString:
		return d.decodeLongString(r)
	case MarkerObject:
		return d.decodeObject(r)
	case MarkerEcmaArray:
		// Peers emit metadata as ecma arrays; the entry layout matches
		// an object after the 4-byte associative count.
		if _, err := readUint32(r); err != nil {
			return nil, err
		}
		return d.decodeObject(r)
	case MarkerStrictArray:
		return d.decodeStrictArray(r)
	case MarkerNull:
		return Null{}, nil
	case MarkerUndefined:
		return Undefined{}, nil
	case MarkerDate:
		return d.decodeDate(r)
	case MarkerObjectEnd:
		return nil, ErrObjectEnd
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedTag, marker)
	}
}

func (d *Decoder) decodeNumber(r io.Reader) (Number, error) {
	bits, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return Number(math.Float64frombits(bits)), nil
}

func (d *Decoder) decodeString(r io.Reader) (String, error) {
	n, err := readUint16(r)
	if err != nil {
		return "", err
	}
	b, err := ReadBytes(r, int(n))
	if err != nil {
		return "", err
	}
	return String(b), nil
}

func (d *Decoder) decodeLongString(r io.Reader) (String, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	b, err := ReadBytes(r, int(n))
	if err != nil {
		return "", err
	}
	return String(b), nil
}

func (d *Decoder) decodeObject(r io.Reader) (Object, error) {
	obj := Object{}
	for {
		n, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		key, err := ReadBytes(r, int(n))
		if err != nil {
			return nil, err
		}
		v, err := d.Decode(r)
		if err != nil {
			if errors.Is(err, ErrObjectEnd) && n == 0 {
				return obj, nil
			}
			return nil, err
		}
		obj = append(obj, ObjectEntry{Key: string(key), Value: v})
	}
}

func (d *Decoder) decodeStrictArray(r io.Reader) (StrictArray, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	arr := make(StrictArray, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := d.Decode(r)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func (d *Decoder) decodeDate(r io.Reader) (Date, error) {
	bits, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	// Timezone offset, present on the wire but meaningless.
	if _, err := readUint16(r); err != nil {
		return 0, err
	}
	return Date(math.Float64frombits(bits)), nil
}

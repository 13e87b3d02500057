package amf

import (
	"math"

	"github.com/zijiren233/stream"
)

// Value is one self-describing AMF0 value. Size reports the exact
// number of bytes Encode will write, type marker included; the two must
// agree or every length field framed around the value is corrupt, so
// the equality is covered by tests rather than a runtime check.
type Value interface {
	Size() int
	Encode(w *stream.Writer) error
}

type Number float64

func (v Number) Size() int { return 1 + 8 }

func (v Number) Encode(w *stream.Writer) error {
	return w.U8(MarkerNumber).U64(math.Float64bits(float64(v))).Error()
}

type Boolean bool

func (v Boolean) Size() int { return 1 + 1 }

func (v Boolean) Encode(w *stream.Writer) error {
	b := uint8(0x00)
	if v {
		b = 0x01
	}
	return w.U8(MarkerBoolean).U8(b).Error()
}

// shortStringMax is the largest byte length a 2-byte length prefix can
// carry; anything longer must use the long-string form.
const shortStringMax = 0xffff

type String string

func (v String) Size() int {
	if len(v) > shortStringMax {
		return 1 + 4 + len(v)
	}
	return 1 + 2 + len(v)
}

func (v String) Encode(w *stream.Writer) error {
	if uint64(len(v)) > math.MaxUint32 {
		return ErrStringTooLong
	}
	if len(v) > shortStringMax {
		return w.U8(MarkerLongString).U32(uint32(len(v))).Bytes([]byte(v)).Error()
	}
	return w.U8(MarkerString).U16(uint16(len(v))).Bytes([]byte(v)).Error()
}

type Null struct{}

func (Null) Size() int { return 1 }

func (Null) Encode(w *stream.Writer) error {
	return w.U8(MarkerNull).Error()
}

type Undefined struct{}

func (Undefined) Size() int { return 1 }

func (Undefined) Encode(w *stream.Writer) error {
	return w.U8(MarkerUndefined).Error()
}

// ObjectEntry is one key/value pair of an Object. Keys are always
// short strings on the wire.
type ObjectEntry struct {
	Key   string
	Value Value
}

// Object is an ordered key/value mapping. Entry order is what gets
// written, and decoders that preserve key order observe it, so the
// slice representation is a correctness requirement rather than a
// convenience.
type Object []ObjectEntry

// With appends the pair, replacing the value in place when the key is
// already present. It returns the updated object for chaining.
func (v Object) With(key string, val Value) Object {
	for i := range v {
		if v[i].Key == key {
			v[i].Value = val
			return v
		}
	}
	return append(v, ObjectEntry{Key: key, Value: val})
}

func (v Object) Get(key string) (Value, bool) {
	for i := range v {
		if v[i].Key == key {
			return v[i].Value, true
		}
	}
	return nil, false
}

func (v Object) Size() int {
	n := 1
	for i := range v {
		n += 2 + len(v[i].Key) + v[i].Value.Size()
	}
	return n + len(objectEndBytes)
}

func (v Object) Encode(w *stream.Writer) error {
	if err := w.U8(MarkerObject).Error(); err != nil {
		return err
	}
	for i := range v {
		if len(v[i].Key) > shortStringMax {
			return ErrStringTooLong
		}
		if err := w.U16(uint16(len(v[i].Key))).Bytes([]byte(v[i].Key)).Error(); err != nil {
			return err
		}
		if err := v[i].Value.Encode(w); err != nil {
			return err
		}
	}
	return w.Bytes(objectEndBytes).Error()
}

type StrictArray []Value

func (v StrictArray) Size() int {
	n := 1 + 4
	for i := range v {
		n += v[i].Size()
	}
	return n
}

func (v StrictArray) Encode(w *stream.Writer) error {
	if err := w.U8(MarkerStrictArray).U32(uint32(len(v))).Error(); err != nil {
		return err
	}
	for i := range v {
		if err := v[i].Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// Date is a millisecond unix timestamp. The trailing timezone offset
// field is always written as 0 per the AMF0 spec recommendation.
type Date float64

func (v Date) Size() int { return 1 + 8 + 2 }

func (v Date) Encode(w *stream.Writer) error {
	return w.U8(MarkerDate).U64(math.Float64bits(float64(v))).U16(0).Error()
}

// Int32 is a non-standard extension: a bare 4-byte big-endian integer
// with no type marker, used for size and offset placeholders inside
// hand-built script payloads. It must never be emitted as a top-level
// value to a strict AMF0 decoder.
type Int32 int32

func (v Int32) Size() int { return 4 }

func (v Int32) Encode(w *stream.Writer) error {
	return w.U32(uint32(v)).Error()
}

// Package amf implements the AMF0 value model used by FLV script-data
// tags and RTMP command messages. Every value knows its exact encoded
// byte length ahead of time, so callers can fill in length-prefixed
// framing (FLV tag headers, chunk message lengths) before writing the
// payload.
package amf

import "errors"

const (
	MarkerNumber      uint8 = 0x00
	MarkerBoolean     uint8 = 0x01
	MarkerString      uint8 = 0x02
	MarkerObject      uint8 = 0x03
	MarkerMovieclip   uint8 = 0x04
	MarkerNull        uint8 = 0x05
	MarkerUndefined   uint8 = 0x06
	MarkerReference   uint8 = 0x07
	MarkerEcmaArray   uint8 = 0x08
	MarkerObjectEnd   uint8 = 0x09
	MarkerStrictArray uint8 = 0x0a
	MarkerDate        uint8 = 0x0b
	MarkerLongString  uint8 = 0x0c
	MarkerUnsupported uint8 = 0x0d
	MarkerRecordset   uint8 = 0x0e
	MarkerXmlDocument uint8 = 0x0f
	MarkerTypedObject uint8 = 0x10
)

// Object end is not a value, it is the fixed 3-byte terminator written
// after the last key/value pair of an object or ecma array.
var objectEndBytes = []byte{0x00, 0x00, MarkerObjectEnd}

var (
	ErrStringTooLong  = errors.New("amf: string exceeds the 4-byte length limit")
	ErrUnsupportedTag = errors.New("amf: unsupported type marker")
	ErrObjectEnd      = errors.New("amf: unexpected object end")
)

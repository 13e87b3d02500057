package amf

import (
	"bytes"
	"fmt"
)

const (
	SetDataFrame = "@setDataFrame"
	OnMetaData   = "onMetaData"
)

const (
	ADD = 0x1
	DEL = 0x2
)

// MetaDataReform converts a script-data payload between its RTMP form
// (prefixed with the @setDataFrame command string) and its FLV form
// (starting directly at the metadata name). ADD inserts the prefix,
// DEL strips it; payloads already in the requested form pass through
// untouched.
func MetaDataReform(p []byte, flag uint8) ([]byte, error) {
	r := bytes.NewReader(p)
	var d Decoder
	v, err := d.Decode(r)
	if err != nil {
		return nil, err
	}
	name, ok := v.(String)
	if !ok {
		return nil, fmt.Errorf("metadata does not start with a string value")
	}
	switch flag {
	case ADD:
		if name == SetDataFrame {
			return p, nil
		}
		prefix, err := EncodeBytes(String(SetDataFrame))
		if err != nil {
			return nil, err
		}
		return append(prefix, p...), nil
	case DEL:
		if name != SetDataFrame {
			return p, nil
		}
		return p[len(p)-r.Len():], nil
	default:
		return nil, fmt.Errorf("invalid metadata reform flag: %d", flag)
	}
}

package flv

import (
	"errors"
	"io"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/protocol/amf"
	"github.com/zijiren233/stream"
)

var (
	FlvHeader          = []byte{0x46, 0x4c, 0x56, 0x01, 0x05, 0x00, 0x00, 0x00, 0x09}
	FlvFirstPreTagSize = []byte{0x00, 0x00, 0x00, 0x00}
	FlvFirstHeader     = append(FlvHeader, FlvFirstPreTagSize...)
)

const headerLen = 11

var ErrSequence = errors.New("flv: call out of sequence")

const (
	stateUninitialized = iota
	stateStarted
	stateStreaming
	stateClosed
)

// Muxer frames raw, already-encoded access units into an FLV byte
// stream: file header, onMetaData script tag, then interleaved
// audio/video tags. One muxer drives one output stream and must be
// called from a single goroutine; the caller serializes its capture
// callbacks.
//
// Lifecycle: Start exactly once, then WriteVideoTag/WriteAudioTag, then
// Close. Calls outside that order fail with ErrSequence. Sink write
// errors are returned as-is and never retried; after one the stream is
// corrupt and the session should be closed.
type Muxer struct {
	w     *stream.Writer
	meta  Metadata
	state int

	baseTimestamp uint32
	baseSet       bool
	prevTagSize   uint32
}

func NewMuxer(w io.Writer) *Muxer {
	return &Muxer{
		w: stream.NewWriter(w, stream.BigEndian),
	}
}

// Start writes the FLV file header, the zero previousTagSize, and the
// onMetaData script-data tag built from meta.
func (m *Muxer) Start(meta Metadata) error {
	if m.state != stateUninitialized {
		return ErrSequence
	}
	m.meta = meta

	flags := uint8(0)
	if meta.HasAudio {
		flags |= 0x04
	}
	if meta.HasVideo {
		flags |= 0x01
	}
	if err := m.w.
		Bytes([]byte{'F', 'L', 'V', 0x01, flags}).
		U32(9).
		U32(0).
		Error(); err != nil {
		return err
	}

	body, err := amf.EncodeBytes(amf.String(amf.OnMetaData), meta.Object())
	if err != nil {
		return err
	}
	if err := m.writeTag(av.TAG_SCRIPTDATAAMF0, 0, body); err != nil {
		return err
	}
	m.state = stateStarted
	return nil
}

// WriteVideoTag frames one video access unit. The payload is opaque,
// already in tag-body form minus the codec prefix: a decoder
// configuration record when isSeqHeader is set, length-prefixed NALs
// otherwise.
func (m *Muxer) WriteVideoTag(payload []byte, timestampMs uint32, isKeyFrame, isSeqHeader bool) error {
	if m.state != stateStarted && m.state != stateStreaming {
		return ErrSequence
	}
	ts := m.normalize(timestampMs)
	body := VideoBody(m.meta.VideoCodecID, isKeyFrame, isSeqHeader, 0, payload)
	if err := m.writeTag(av.TAG_VIDEO, ts, body); err != nil {
		return err
	}
	m.state = stateStreaming
	return nil
}

// WriteAudioTag frames one audio access unit.
func (m *Muxer) WriteAudioTag(payload []byte, timestampMs uint32, isSeqHeader bool) error {
	if m.state != stateStarted && m.state != stateStreaming {
		return ErrSequence
	}
	ts := m.normalize(timestampMs)
	soundType := uint8(av.SOUND_MONO)
	if m.meta.Stereo {
		soundType = av.SOUND_STEREO
	}
	body := AudioBody(
		m.meta.AudioCodecID,
		SoundRateIndex(m.meta.AudioSampleRate),
		av.SOUND_16BIT,
		soundType,
		isSeqHeader,
		payload,
	)
	if err := m.writeTag(av.TAG_AUDIO, ts, body); err != nil {
		return err
	}
	m.state = stateStreaming
	return nil
}

func (m *Muxer) Close() error {
	if m.state == stateUninitialized || m.state == stateClosed {
		return ErrSequence
	}
	m.state = stateClosed
	return nil
}

// normalize latches the first access unit's timestamp of either stream
// as the base and rebases everything onto it. Out-of-order timestamps
// before the base clamp to 0 so the 24-bit field never goes negative.
func (m *Muxer) normalize(timestampMs uint32) uint32 {
	if !m.baseSet {
		m.baseTimestamp = timestampMs
		m.baseSet = true
	}
	if timestampMs < m.baseTimestamp {
		return 0
	}
	return timestampMs - m.baseTimestamp
}

// writeTag emits header, body and the trailing previousTagSize for one
// tag. The body is fully built before the first byte hits the sink, so
// the 24-bit length field is exact.
func (m *Muxer) writeTag(typeID uint8, timestamp uint32, body []byte) error {
	if err := m.w.
		U8(typeID).
		U24(uint32(len(body))).
		U24(timestamp & 0xffffff).
		U8(uint8(timestamp >> 24)).
		U24(0).
		Bytes(body).
		U32(uint32(len(body) + headerLen)).
		Error(); err != nil {
		return err
	}
	m.prevTagSize = uint32(len(body) + headerLen)
	return nil
}

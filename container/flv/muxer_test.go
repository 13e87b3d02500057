package flv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/protocol/amf"
)

func testMetadata() Metadata {
	return Metadata{
		Width:           1280,
		Height:          720,
		VideoDataRate:   2500,
		FrameRate:       25,
		VideoCodecID:    av.CODEC_AVC,
		AudioSampleRate: 44100,
		AudioSampleSize: 16,
		Stereo:          true,
		AudioCodecID:    av.SOUND_AAC,
		HasVideo:        true,
		HasAudio:        true,
	}
}

type parsedTag struct {
	typeID      uint8
	timestamp   uint32
	streamID    uint32
	body        []byte
	prevTagSize uint32
}

// parseStream walks a complete FLV byte stream and returns its tags.
func parseStream(t *testing.T, b []byte) []parsedTag {
	t.Helper()
	if len(b) < 13 {
		t.Fatalf("stream too short: %d bytes", len(b))
	}
	if !bytes.Equal(b[:3], []byte{'F', 'L', 'V'}) || b[3] != 0x01 {
		t.Fatalf("bad signature: % x", b[:4])
	}
	if binary.BigEndian.Uint32(b[5:9]) != 9 {
		t.Fatalf("bad data offset: % x", b[5:9])
	}
	if binary.BigEndian.Uint32(b[9:13]) != 0 {
		t.Fatalf("first previousTagSize: % x", b[9:13])
	}

	var tags []parsedTag
	rest := b[13:]
	for len(rest) > 0 {
		if len(rest) < 11 {
			t.Fatalf("truncated tag header: %d bytes left", len(rest))
		}
		dataSize := uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])
		ts := uint32(rest[4])<<16 | uint32(rest[5])<<8 | uint32(rest[6]) | uint32(rest[7])<<24
		streamID := uint32(rest[8])<<16 | uint32(rest[9])<<8 | uint32(rest[10])
		if uint32(len(rest)) < 11+dataSize+4 {
			t.Fatalf("truncated tag body: need %d, have %d", 11+dataSize+4, len(rest))
		}
		tags = append(tags, parsedTag{
			typeID:      rest[0],
			timestamp:   ts,
			streamID:    streamID,
			body:        rest[11 : 11+dataSize],
			prevTagSize: binary.BigEndian.Uint32(rest[11+dataSize : 11+dataSize+4]),
		})
		rest = rest[11+dataSize+4:]
	}
	return tags
}

func TestMuxerStartHeader(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}

	b := buf.Bytes()
	if !bytes.Equal(b[:13], FlvFirstHeader) {
		t.Errorf("preamble=% x, want % x", b[:13], FlvFirstHeader)
	}

	tags := parseStream(t, b)
	if len(tags) != 1 {
		t.Fatalf("tags=%d, want 1", len(tags))
	}
	meta := tags[0]
	if meta.typeID != av.TAG_SCRIPTDATAAMF0 {
		t.Errorf("typeID=0x%02x", meta.typeID)
	}
	if meta.timestamp != 0 || meta.streamID != 0 {
		t.Errorf("ts=%d streamID=%d, want 0 0", meta.timestamp, meta.streamID)
	}
	if meta.prevTagSize != uint32(len(meta.body))+11 {
		t.Errorf("prevTagSize=%d", meta.prevTagSize)
	}
}

func TestMuxerHeaderFlags(t *testing.T) {
	for _, tc := range []struct {
		hasAudio, hasVideo bool
		want               byte
	}{
		{true, true, 0x05},
		{true, false, 0x04},
		{false, true, 0x01},
	} {
		var buf bytes.Buffer
		m := NewMuxer(&buf)
		meta := testMetadata()
		meta.HasAudio = tc.hasAudio
		meta.HasVideo = tc.hasVideo
		if err := m.Start(meta); err != nil {
			t.Fatal(err)
		}
		if got := buf.Bytes()[4]; got != tc.want {
			t.Errorf("audio=%v video=%v: flags=0x%02x, want 0x%02x",
				tc.hasAudio, tc.hasVideo, got, tc.want)
		}
	}
}

func TestMuxerMetadataBody(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	tags := parseStream(t, buf.Bytes())

	var d amf.Decoder
	vs, err := d.DecodeBatch(bytes.NewReader(tags[0].body))
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 {
		t.Fatalf("script values=%d, want 2", len(vs))
	}
	if vs[0] != amf.String(amf.OnMetaData) {
		t.Errorf("name=%v", vs[0])
	}
	obj, ok := vs[1].(amf.Object)
	if !ok {
		t.Fatalf("value is %T", vs[1])
	}
	wantKeys := []string{
		"duration", "width", "height", "videodatarate", "framerate",
		"videocodecid", "audiosamplerate", "audiosamplesize", "stereo",
		"audiocodecid",
	}
	if len(obj) != len(wantKeys) {
		t.Fatalf("keys=%d, want %d", len(obj), len(wantKeys))
	}
	for i, k := range wantKeys {
		if obj[i].Key != k {
			t.Errorf("key[%d]=%q, want %q", i, obj[i].Key, k)
		}
	}
	if w, _ := obj.Get("width"); w != amf.Number(1280) {
		t.Errorf("width=%v", w)
	}
	if s, _ := obj.Get("stereo"); s != amf.Boolean(true) {
		t.Errorf("stereo=%v", s)
	}
}

func TestMuxerTimestampRebase(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	for _, ts := range []uint32{1000, 1040, 1080} {
		if err := m.WriteVideoTag([]byte{0xde, 0xad}, ts, false, false); err != nil {
			t.Fatal(err)
		}
	}
	tags := parseStream(t, buf.Bytes())
	want := []uint32{0, 40, 80}
	for i, w := range want {
		if got := tags[i+1].timestamp; got != w {
			t.Errorf("tag[%d] ts=%d, want %d", i+1, got, w)
		}
	}
}

func TestMuxerTimestampClampBeforeBase(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteVideoTag([]byte{1}, 500, true, false); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteAudioTag([]byte{2}, 400, false); err != nil {
		t.Fatal(err)
	}
	tags := parseStream(t, buf.Bytes())
	if tags[1].timestamp != 0 {
		t.Errorf("first tag ts=%d, want 0", tags[1].timestamp)
	}
	if tags[2].timestamp != 0 {
		t.Errorf("pre-base tag ts=%d, want clamp to 0", tags[2].timestamp)
	}
}

func TestMuxerExtendedTimestamp(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteVideoTag([]byte{1}, 0, true, false); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteVideoTag([]byte{2}, 0x01000028, false, false); err != nil {
		t.Fatal(err)
	}
	tags := parseStream(t, buf.Bytes())
	if got := tags[2].timestamp; got != 0x01000028 {
		t.Errorf("ts=0x%08x, want 0x01000028", got)
	}
}

func TestMuxerPrevTagSizeChain(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	m.WriteVideoTag(make([]byte, 100), 0, true, true)
	m.WriteAudioTag(make([]byte, 7), 0, true)
	m.WriteVideoTag(make([]byte, 321), 40, false, false)

	for i, tag := range parseStream(t, buf.Bytes()) {
		if want := uint32(len(tag.body)) + 11; tag.prevTagSize != want {
			t.Errorf("tag[%d] prevTagSize=%d, want %d", i, tag.prevTagSize, want)
		}
	}
}

func TestMuxerSequence(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)

	if err := m.WriteVideoTag([]byte{1}, 0, true, false); !errors.Is(err, ErrSequence) {
		t.Errorf("write before start: %v", err)
	}
	if err := m.Close(); !errors.Is(err, ErrSequence) {
		t.Errorf("close before start: %v", err)
	}
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(testMetadata()); !errors.Is(err, ErrSequence) {
		t.Errorf("second start: %v", err)
	}
	if err := m.WriteAudioTag([]byte{1}, 0, true); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteAudioTag([]byte{1}, 0, false); !errors.Is(err, ErrSequence) {
		t.Errorf("write after close: %v", err)
	}
	if err := m.Close(); !errors.Is(err, ErrSequence) {
		t.Errorf("second close: %v", err)
	}
}

func TestMuxerVideoBodyPrefix(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	seq := []byte{0x01, 0x64, 0x00, 0x1f}
	m.WriteVideoTag(seq, 0, false, true)
	m.WriteVideoTag([]byte{0xaa}, 40, true, false)
	m.WriteVideoTag([]byte{0xbb}, 80, false, false)

	tags := parseStream(t, buf.Bytes())

	seqBody := tags[1].body
	if seqBody[0] != 0x17 || seqBody[1] != av.AVC_SEQHDR {
		t.Errorf("seq header prefix=% x", seqBody[:2])
	}
	if !bytes.Equal(seqBody[2:5], []byte{0, 0, 0}) {
		t.Errorf("composition time=% x", seqBody[2:5])
	}
	if !bytes.Equal(seqBody[5:], seq) {
		t.Errorf("payload=% x", seqBody[5:])
	}

	if key := tags[2].body; key[0] != 0x17 || key[1] != av.AVC_NALU {
		t.Errorf("keyframe prefix=% x", key[:2])
	}
	if inter := tags[3].body; inter[0] != 0x27 || inter[1] != av.AVC_NALU {
		t.Errorf("inter frame prefix=% x", inter[:2])
	}
}

func TestMuxerAudioBodyPrefix(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	asc := []byte{0x12, 0x10}
	m.WriteAudioTag(asc, 0, true)
	m.WriteAudioTag([]byte{0x21}, 23, false)

	tags := parseStream(t, buf.Bytes())

	// AAC, 44 kHz, 16 bit, stereo
	seqBody := tags[1].body
	if seqBody[0] != 0xaf || seqBody[1] != av.AAC_SEQHDR {
		t.Errorf("aac seq prefix=% x", seqBody[:2])
	}
	if !bytes.Equal(seqBody[2:], asc) {
		t.Errorf("payload=% x", seqBody[2:])
	}
	if raw := tags[2].body; raw[0] != 0xaf || raw[1] != av.AAC_RAW {
		t.Errorf("aac raw prefix=% x", raw[:2])
	}
}

func TestMuxerEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(&buf)
	if err := m.Start(testMetadata()); err != nil {
		t.Fatal(err)
	}
	m.WriteVideoTag([]byte{0x01}, 1000, false, true)
	m.WriteAudioTag([]byte{0x12, 0x10}, 1000, true)
	m.WriteVideoTag(make([]byte, 64), 1000, true, false)
	m.WriteAudioTag(make([]byte, 16), 1012, false)
	m.WriteVideoTag(make([]byte, 32), 1040, false, false)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	tags := parseStream(t, buf.Bytes())
	wantTypes := []uint8{
		av.TAG_SCRIPTDATAAMF0,
		av.TAG_VIDEO, av.TAG_AUDIO, av.TAG_VIDEO, av.TAG_AUDIO, av.TAG_VIDEO,
	}
	if len(tags) != len(wantTypes) {
		t.Fatalf("tags=%d, want %d", len(tags), len(wantTypes))
	}
	for i, w := range wantTypes {
		if tags[i].typeID != w {
			t.Errorf("tag[%d] type=0x%02x, want 0x%02x", i, tags[i].typeID, w)
		}
	}
	wantTs := []uint32{0, 0, 0, 0, 12, 40}
	for i, w := range wantTs {
		if tags[i].timestamp != w {
			t.Errorf("tag[%d] ts=%d, want %d", i, tags[i].timestamp, w)
		}
	}
	for i, tag := range tags {
		if tag.streamID != 0 {
			t.Errorf("tag[%d] streamID=%d", i, tag.streamID)
		}
	}
}

package flv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/flvkit/flvkit/av"
)

func TestMediaHeaderParseVideo(t *testing.T) {
	body := VideoBody(av.CODEC_AVC, true, false, 80, []byte{0xaa, 0xbb})

	var h MediaHeader
	n, err := h.Parse(body, true)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("n=%d, want 5", n)
	}
	if !h.IsKeyFrame() {
		t.Error("keyframe not detected")
	}
	if h.IsSeq() {
		t.Error("frame misdetected as sequence header")
	}
	if h.CodecID() != av.CODEC_AVC {
		t.Errorf("codec=%d", h.CodecID())
	}
	if h.CompositionTime() != 80 {
		t.Errorf("cts=%d, want 80", h.CompositionTime())
	}
}

func TestMediaHeaderParseVideoSeqHeader(t *testing.T) {
	body := VideoBody(av.CODEC_HEVC, false, true, 0, []byte{0x01})

	var h MediaHeader
	if _, err := h.Parse(body, true); err != nil {
		t.Fatal(err)
	}
	if !h.IsSeq() || !h.IsKeyFrame() {
		t.Error("sequence header not detected")
	}
	if h.CodecID() != av.CODEC_HEVC {
		t.Errorf("codec=%d, want %d", h.CodecID(), av.CODEC_HEVC)
	}
}

func TestMediaHeaderParseAudio(t *testing.T) {
	body := AudioBody(av.SOUND_AAC, av.SOUND_44Khz, av.SOUND_16BIT, av.SOUND_STEREO, true, []byte{0x12, 0x10})

	var h MediaHeader
	n, err := h.Parse(body, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("n=%d, want 2", n)
	}
	if h.SoundFormat() != av.SOUND_AAC {
		t.Errorf("format=%d", h.SoundFormat())
	}
	if h.AACPacketType() != av.AAC_SEQHDR {
		t.Errorf("aac packet type=%d", h.AACPacketType())
	}
}

func TestMediaHeaderParseMP3(t *testing.T) {
	body := AudioBody(av.SOUND_MP3, av.SOUND_44Khz, av.SOUND_16BIT, av.SOUND_MONO, false, []byte{0xff})

	var h MediaHeader
	n, err := h.Parse(body, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("n=%d, want 1", n)
	}
	if h.SoundFormat() != av.SOUND_MP3 {
		t.Errorf("format=%d", h.SoundFormat())
	}
}

func TestMediaHeaderParseErrors(t *testing.T) {
	var h MediaHeader
	if _, err := h.Parse(nil, true); !errors.Is(err, ErrInvalidVideoData) {
		t.Errorf("empty video: %v", err)
	}
	if _, err := h.Parse(nil, false); !errors.Is(err, ErrInvalidAudioData) {
		t.Errorf("empty audio: %v", err)
	}
	// AVC keyframe byte with no packet type or composition time.
	if _, err := h.Parse([]byte{0x17}, true); !errors.Is(err, ErrInvalidVideoData) {
		t.Errorf("truncated avc: %v", err)
	}
	// AAC flags byte with no packet type.
	if _, err := h.Parse([]byte{0xaf}, false); !errors.Is(err, ErrInvalidAudioData) {
		t.Errorf("truncated aac: %v", err)
	}
}

func TestSoundRateIndex(t *testing.T) {
	for _, tc := range []struct {
		hz   int
		want uint8
	}{
		{5500, av.SOUND_5_5Khz},
		{11025, av.SOUND_11Khz},
		{22050, av.SOUND_22Khz},
		{44100, av.SOUND_44Khz},
		{48000, av.SOUND_44Khz},
	} {
		if got := SoundRateIndex(tc.hz); got != tc.want {
			t.Errorf("%d Hz: got %d, want %d", tc.hz, got, tc.want)
		}
	}
}

func TestNewVideoPacket(t *testing.T) {
	p := NewVideoPacket([]byte{0x01, 0x02}, 40, av.CODEC_AVC, true, false)
	if !p.IsVideo || p.TimeStamp != 40 {
		t.Errorf("packet: %+v", p)
	}
	vh, ok := p.Header.(av.VideoPacketHeader)
	if !ok {
		t.Fatalf("header is %T", p.Header)
	}
	if !vh.IsKeyFrame() || vh.IsSeq() {
		t.Error("header flags wrong")
	}
	if !bytes.Equal(p.Data[5:], []byte{0x01, 0x02}) {
		t.Errorf("data=% x", p.Data)
	}
}

func TestNewAudioPacket(t *testing.T) {
	p := NewAudioPacket([]byte{0x12, 0x10}, 0, av.SOUND_AAC, 44100, true, true)
	if !p.IsAudio {
		t.Errorf("packet: %+v", p)
	}
	ah, ok := p.Header.(av.AudioPacketHeader)
	if !ok {
		t.Fatalf("header is %T", p.Header)
	}
	if ah.SoundFormat() != av.SOUND_AAC || ah.AACPacketType() != av.AAC_SEQHDR {
		t.Error("header flags wrong")
	}
	if p.Data[0] != 0xaf {
		t.Errorf("flags byte=0x%02x", p.Data[0])
	}
}

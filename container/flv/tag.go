package flv

import (
	"fmt"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/utils/pio"
)

// MediaHeader is the parsed 1-5 byte codec prefix at the front of an
// audio or video tag body. The relay path parses it to spot keyframes
// and sequence headers; the muxer path builds it with VideoBody and
// AudioBody below.
type MediaHeader struct {
	/*
		SoundFormat: UB[4]
		2 = MP3, 10 = AAC, 11 = Speex; see av.SOUND_*
	*/
	soundFormat uint8

	/*
		SoundRate: UB[2]
		0 = 5.5-kHz, 1 = 11-kHz, 2 = 22-kHz, 3 = 44-kHz
		For AAC: always 3
	*/
	soundRate uint8

	/*
		SoundSize: UB[1]
		0 = snd8Bit, 1 = snd16Bit
		Compressed formats always decode to 16 bits internally.
	*/
	soundSize uint8

	/*
		SoundType: UB[1]
		0 = sndMono, 1 = sndStereo
		For AAC: always 1
	*/
	soundType uint8

	/*
		0: AAC sequence header
		1: AAC raw
	*/
	aacPacketType uint8

	/*
		1: keyframe (for AVC, a seekable frame)
		2: inter frame (for AVC, a non-seekable frame)
		3: disposable inter frame (H.263 only)
	*/
	frameType uint8

	/*
		7: AVC, 12: HEVC; see av.CODEC_*
	*/
	codecID uint8

	/*
		0: AVC sequence header
		1: AVC NALU
		2: AVC end of sequence
	*/
	avcPacketType uint8

	compositionTime int32
}

func (h *MediaHeader) SoundFormat() uint8 {
	return h.soundFormat
}

func (h *MediaHeader) AACPacketType() uint8 {
	return h.aacPacketType
}

func (h *MediaHeader) IsKeyFrame() bool {
	return h.frameType == av.FRAME_KEY
}

func (h *MediaHeader) IsSeq() bool {
	return h.frameType == av.FRAME_KEY &&
		h.avcPacketType == av.AVC_SEQHDR
}

func (h *MediaHeader) CodecID() uint8 {
	return h.codecID
}

func (h *MediaHeader) CompositionTime() int32 {
	return h.compositionTime
}

var ErrInvalidAudioData = fmt.Errorf("invalid audio data")
var ErrInvalidVideoData = fmt.Errorf("invalid video data")

// Parse reads the codec prefix of a tag body and reports how many
// bytes it occupied.
func (h *MediaHeader) Parse(b []byte, isVideo bool) (n int, err error) {
	if isVideo {
		return h.parseVideo(b)
	}
	return h.parseAudio(b)
}

func (h *MediaHeader) parseAudio(b []byte) (n int, err error) {
	if len(b) < 1 {
		return 0, ErrInvalidAudioData
	}
	flags := b[0]
	h.soundFormat = flags >> 4
	h.soundRate = (flags >> 2) & 0x3
	h.soundSize = (flags >> 1) & 0x1
	h.soundType = flags & 0x1
	n++
	if h.soundFormat == av.SOUND_AAC {
		if len(b) < 2 {
			return 1, ErrInvalidAudioData
		}
		h.aacPacketType = b[1]
		n++
	}
	return
}

func (h *MediaHeader) parseVideo(b []byte) (n int, err error) {
	if len(b) < 1 {
		return 0, ErrInvalidVideoData
	}
	flags := b[0]
	h.frameType = flags >> 4
	h.codecID = flags & 0x0f
	n++
	if h.frameType != av.FRAME_INTER && h.frameType != av.FRAME_KEY {
		return
	}
	switch h.codecID {
	case av.CODEC_AVC, av.CODEC_HEVC:
		if len(b) < 5 {
			return 1, ErrInvalidVideoData
		}
		h.avcPacketType = b[1]
		n++
		for _, v := range b[2:5] {
			h.compositionTime = h.compositionTime<<8 + int32(v)
			n++
		}
	}
	return
}

// VideoBody builds a video tag body: frame-type/codec-id byte, then for
// AVC/HEVC the packet type and composition time, then the access unit.
// The payload is opaque: length-prefixed NALs for frames, a decoder
// configuration record for sequence headers.
func VideoBody(codecID uint8, isKeyFrame, isSeqHeader bool, compositionTime int32, payload []byte) []byte {
	frameType := uint8(av.FRAME_INTER)
	if isKeyFrame || isSeqHeader {
		frameType = av.FRAME_KEY
	}
	switch codecID {
	case av.CODEC_AVC, av.CODEC_HEVC:
		b := make([]byte, 5+len(payload))
		b[0] = frameType<<4 | codecID
		if isSeqHeader {
			b[1] = av.AVC_SEQHDR
		} else {
			b[1] = av.AVC_NALU
		}
		pio.PutI24BE(b[2:5], compositionTime)
		copy(b[5:], payload)
		return b
	default:
		b := make([]byte, 1+len(payload))
		b[0] = frameType<<4 | codecID
		copy(b[1:], payload)
		return b
	}
}

// AudioBody builds an audio tag body: the format/rate/size/type byte,
// the AAC packet type when applicable, then the access unit.
func AudioBody(soundFormat, soundRate, soundSize, soundType uint8, isSeqHeader bool, payload []byte) []byte {
	flags := soundFormat<<4 | soundRate<<2 | soundSize<<1 | soundType
	if soundFormat == av.SOUND_AAC {
		b := make([]byte, 2+len(payload))
		b[0] = flags
		if isSeqHeader {
			b[1] = av.AAC_SEQHDR
		} else {
			b[1] = av.AAC_RAW
		}
		copy(b[2:], payload)
		return b
	}
	b := make([]byte, 1+len(payload))
	b[0] = flags
	copy(b[1:], payload)
	return b
}

// SoundRateIndex maps a sample rate in Hz to the 2-bit SoundRate
// field. AAC is always signalled as 44 kHz regardless of the real
// rate, which rides in the sequence header instead.
func SoundRateIndex(sampleRate int) uint8 {
	switch sampleRate {
	case 5500:
		return av.SOUND_5_5Khz
	case 11025:
		return av.SOUND_11Khz
	case 22050:
		return av.SOUND_22Khz
	default:
		return av.SOUND_44Khz
	}
}

// NewVideoPacket wraps a raw access unit into a packet carrying a full
// video tag body, ready for the RTMP publish path.
func NewVideoPacket(payload []byte, timestamp uint32, codecID uint8, isKeyFrame, isSeqHeader bool) *av.Packet {
	h := &MediaHeader{
		frameType: av.FRAME_INTER,
		codecID:   codecID,
	}
	if isKeyFrame || isSeqHeader {
		h.frameType = av.FRAME_KEY
	}
	if isSeqHeader {
		h.avcPacketType = av.AVC_SEQHDR
	} else {
		h.avcPacketType = av.AVC_NALU
	}
	return &av.Packet{
		IsVideo:   true,
		TimeStamp: timestamp,
		Header:    h,
		Data:      VideoBody(codecID, isKeyFrame, isSeqHeader, 0, payload),
	}
}

// NewAudioPacket wraps a raw access unit into a packet carrying a full
// audio tag body.
func NewAudioPacket(payload []byte, timestamp uint32, soundFormat uint8, sampleRate int, stereo, isSeqHeader bool) *av.Packet {
	soundType := uint8(av.SOUND_MONO)
	if stereo {
		soundType = av.SOUND_STEREO
	}
	h := &MediaHeader{
		soundFormat: soundFormat,
		soundRate:   SoundRateIndex(sampleRate),
		soundSize:   av.SOUND_16BIT,
		soundType:   soundType,
	}
	if soundFormat == av.SOUND_AAC && isSeqHeader {
		h.aacPacketType = av.AAC_SEQHDR
	} else {
		h.aacPacketType = av.AAC_RAW
	}
	return &av.Packet{
		IsAudio:   true,
		TimeStamp: timestamp,
		Header:    h,
		Data:      AudioBody(h.soundFormat, h.soundRate, h.soundSize, h.soundType, isSeqHeader, payload),
	}
}

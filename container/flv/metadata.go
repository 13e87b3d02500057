package flv

import "github.com/flvkit/flvkit/protocol/amf"

// Metadata describes the stream once at start time. It becomes the
// onMetaData script-data object; the key set and order below are a
// compatibility contract with downstream players.
type Metadata struct {
	Duration        float64 // seconds, 0 for live
	Width           int
	Height          int
	VideoDataRate   float64 // kbps
	FrameRate       float64
	VideoCodecID    uint8
	AudioSampleRate int
	AudioSampleSize int
	Stereo          bool
	AudioCodecID    uint8

	HasVideo bool
	HasAudio bool
}

// Object renders the metadata as an ordered AMF0 object. Players key
// off at least width/height/videocodecid/audiocodecid; the rest is
// advisory but conventional.
func (m Metadata) Object() amf.Object {
	return amf.Object{}.
		With("duration", amf.Number(m.Duration)).
		With("width", amf.Number(m.Width)).
		With("height", amf.Number(m.Height)).
		With("videodatarate", amf.Number(m.VideoDataRate)).
		With("framerate", amf.Number(m.FrameRate)).
		With("videocodecid", amf.Number(m.VideoCodecID)).
		With("audiosamplerate", amf.Number(m.AudioSampleRate)).
		With("audiosamplesize", amf.Number(m.AudioSampleSize)).
		With("stereo", amf.Boolean(m.Stereo)).
		With("audiocodecid", amf.Number(m.AudioCodecID))
}

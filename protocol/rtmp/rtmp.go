package rtmp

import (
	"io"
	"time"

	"github.com/flvkit/flvkit/protocol/rtmp/core"
)

const (
	maxQueueNum         = 1024
	saveStaticsInterval = 5000
)

type ChunkReader interface {
	Read() (*core.ChunkStream, error)
}

type ChunkReadCloser interface {
	io.Closer
	ChunkReader
}

type ChunkWriter interface {
	Write(*core.ChunkStream) error
	Flush() error
}

type ChunkWriteCloser interface {
	io.Closer
	ChunkWriter
}

type ChunkReadWriteCloser interface {
	io.Closer
	ChunkReader
	ChunkWriter
}

// StaticsBW tracks per-stream bandwidth, sampled every
// saveStaticsInterval milliseconds.
type StaticsBW struct {
	StreamId               uint32
	VideoDatainBytes       uint64
	LastVideoDatainBytes   uint64
	VideoSpeedInBytesperMS uint64

	AudioDatainBytes       uint64
	LastAudioDatainBytes   uint64
	AudioSpeedInBytesperMS uint64

	LastTimestamp int64
}

func (s *StaticsBW) Save(streamID uint32, length uint64, isVideo bool) {
	nowInMS := time.Now().UnixNano() / 1e6

	s.StreamId = streamID
	if isVideo {
		s.VideoDatainBytes += length
	} else {
		s.AudioDatainBytes += length
	}

	if s.LastTimestamp == 0 {
		s.LastTimestamp = nowInMS
		return
	}
	if nowInMS-s.LastTimestamp >= saveStaticsInterval {
		diffSec := (nowInMS - s.LastTimestamp) / 1000
		s.VideoSpeedInBytesperMS = (s.VideoDatainBytes - s.LastVideoDatainBytes) * 8 / uint64(diffSec) / 1000
		s.AudioSpeedInBytesperMS = (s.AudioDatainBytes - s.LastAudioDatainBytes) * 8 / uint64(diffSec) / 1000

		s.LastVideoDatainBytes = s.VideoDatainBytes
		s.LastAudioDatainBytes = s.AudioDatainBytes
		s.LastTimestamp = nowInMS
	}
}

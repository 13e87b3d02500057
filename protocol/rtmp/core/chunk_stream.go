package core

import (
	"fmt"

	"github.com/flvkit/flvkit/av"
)

// ChunkStream is one RTMP message plus the per-chunk-stream assembly
// state used while its chunks arrive.
type ChunkStream struct {
	Format    uint32
	CSID      uint32
	Timestamp uint32
	Length    uint32
	TypeID    uint32
	StreamID  uint32
	timeDelta uint32
	exted     bool
	index     uint32
	remain    uint32
	got       bool
	tmpFormat uint32
	Data      []byte
}

func (cs *ChunkStream) full() bool {
	return cs.got
}

func (cs *ChunkStream) init() {
	cs.got = false
	cs.index = 0
	cs.remain = cs.Length
	cs.Data = make([]byte, cs.Length)
}

func (cs *ChunkStream) writeHeader(w *ReadWriter) error {
	// Chunk Basic Header
	h := cs.Format << 6
	switch {
	case cs.CSID < 64:
		h |= cs.CSID
		if err := w.WriteUintBE(h, 1); err != nil {
			return err
		}
	case cs.CSID-64 < 256:
		if err := w.WriteUintBE(h, 1); err != nil {
			return err
		}
		if err := w.WriteUintLE(cs.CSID-64, 1); err != nil {
			return err
		}
	case cs.CSID-64 < 65536:
		h |= 1
		if err := w.WriteUintBE(h, 1); err != nil {
			return err
		}
		if err := w.WriteUintLE(cs.CSID-64, 2); err != nil {
			return err
		}
	}
	if cs.Format == 3 {
		return cs.writeExtendedTimestamp(w)
	}
	// Chunk Message Header
	ts := cs.Timestamp
	if ts > 0xffffff {
		ts = 0xffffff
	}
	if err := w.WriteUintBE(ts, 3); err != nil {
		return err
	}
	if cs.Format == 2 {
		return cs.writeExtendedTimestamp(w)
	}
	if cs.Length > 0xffffff {
		return fmt.Errorf("length=%d", cs.Length)
	}
	if err := w.WriteUintBE(cs.Length, 3); err != nil {
		return err
	}
	if err := w.WriteUintBE(cs.TypeID, 1); err != nil {
		return err
	}
	if cs.Format == 1 {
		return cs.writeExtendedTimestamp(w)
	}
	if err := w.WriteUintLE(cs.StreamID, 4); err != nil {
		return err
	}
	return cs.writeExtendedTimestamp(w)
}

func (cs *ChunkStream) writeExtendedTimestamp(w *ReadWriter) error {
	if cs.Timestamp >= 0xffffff {
		return w.WriteUintBE(cs.Timestamp, 4)
	}
	return nil
}

func (cs *ChunkStream) writeChunk(w *ReadWriter, chunkSize uint32) error {
	switch cs.TypeID {
	case av.TAG_AUDIO:
		cs.CSID = 4
	case av.TAG_VIDEO, av.TAG_SCRIPTDATAAMF0, av.TAG_SCRIPTDATAAMF3:
		cs.CSID = 6
	}

	totalLen := uint32(0)
	numChunks := cs.Length / chunkSize
	for i := uint32(0); i <= numChunks; i++ {
		if totalLen == cs.Length {
			break
		}
		if i == 0 {
			cs.Format = 0
		} else {
			cs.Format = 3
		}
		if err := cs.writeHeader(w); err != nil {
			return err
		}
		inc := chunkSize
		start := i * chunkSize
		if uint32(len(cs.Data))-start <= inc {
			inc = uint32(len(cs.Data)) - start
		}
		totalLen += inc
		if _, err := w.Write(cs.Data[start : start+inc]); err != nil {
			return err
		}
	}
	return nil
}

package rtmp

import (
	"sync/atomic"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/container/flv"
	"github.com/flvkit/flvkit/protocol/rtmp/core"
)

// Reader turns the media chunk streams of a connection into packets,
// parsing the codec prefix so downstream caches can spot keyframes and
// sequence headers.
type Reader struct {
	*av.RWBaser
	conn       ChunkReader
	ReadBWInfo StaticsBW

	closed uint32
}

func NewReader(conn ChunkReader) *Reader {
	return &Reader{
		conn:    conn,
		RWBaser: av.NewRWBaser(),
	}
}

func (v *Reader) Read() (p *av.Packet, err error) {
	if v.Closed() {
		return nil, av.ErrClosed
	}
	var cs *core.ChunkStream
	for {
		cs, err = v.conn.Read()
		if err != nil {
			return nil, err
		}
		if cs.TypeID == av.TAG_AUDIO ||
			cs.TypeID == av.TAG_VIDEO ||
			cs.TypeID == av.TAG_SCRIPTDATAAMF0 ||
			cs.TypeID == av.TAG_SCRIPTDATAAMF3 {
			break
		}
	}
	p = &av.Packet{
		IsAudio:    cs.TypeID == av.TAG_AUDIO,
		IsVideo:    cs.TypeID == av.TAG_VIDEO,
		IsMetadata: cs.TypeID == av.TAG_SCRIPTDATAAMF0 || cs.TypeID == av.TAG_SCRIPTDATAAMF3,
		StreamID:   cs.StreamID,
		Data:       cs.Data,
		TimeStamp:  cs.Timestamp,
	}

	v.ReadBWInfo.Save(p.StreamID, uint64(len(p.Data)), p.IsVideo)

	if p.IsAudio || p.IsVideo {
		h := &flv.MediaHeader{}
		if _, err := h.Parse(p.Data, p.IsVideo); err != nil {
			return nil, err
		}
		p.Header = h
	}
	return p, nil
}

func (v *Reader) Closed() bool {
	return atomic.LoadUint32(&v.closed) == 1
}

func (v *Reader) Close() error {
	if atomic.CompareAndSwapUint32(&v.closed, 0, 1) {
		return nil
	}
	return av.ErrClosed
}

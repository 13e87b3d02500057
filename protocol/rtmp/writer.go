package rtmp

import (
	"context"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/protocol/rtmp/core"
)

// Writer queues packets and pushes them to a peer as chunk streams.
// The queue sheds old packets when the peer cannot keep up.
type Writer struct {
	ctx    context.Context
	cancel context.CancelFunc
	*av.RWBaser
	conn        ChunkWriter
	packetQueue chan *av.Packet
	WriteBWInfo StaticsBW
}

func NewWriter(ctx context.Context, conn ChunkWriter) *Writer {
	ret := &Writer{
		conn:        conn,
		RWBaser:     av.NewRWBaser(),
		packetQueue: make(chan *av.Packet, maxQueueNum),
	}
	ret.ctx, ret.cancel = context.WithCancel(ctx)

	return ret
}

func (v *Writer) Write(p *av.Packet) (err error) {
	select {
	case <-v.ctx.Done():
		return v.ctx.Err()
	case v.packetQueue <- p:
	default:
		av.DropPacket(v.packetQueue)
	}

	return
}

func (v *Writer) SendPacket() error {
	cs := new(core.ChunkStream)
	for {
		select {
		case <-v.ctx.Done():
			return v.ctx.Err()
		case p, ok := <-v.packetQueue:
			if !ok {
				return nil
			}
			cs.Data = p.Data
			cs.Length = uint32(len(p.Data))
			cs.StreamID = p.StreamID
			cs.Timestamp = p.TimeStamp + v.BaseTimeStamp()
			cs.TypeID = uint32(p.Type())

			v.WriteBWInfo.Save(p.StreamID, uint64(cs.Length), p.IsVideo)
			v.RecTimeStamp(cs.Timestamp, cs.TypeID)
			if err := v.conn.Write(cs); err != nil {
				return err
			}
			if err := v.conn.Flush(); err != nil {
				return err
			}
		}
	}
}

func (v *Writer) Closed() bool {
	select {
	case <-v.ctx.Done():
		return true
	default:
		return false
	}
}

func (v *Writer) Close() error {
	if !v.Closed() {
		close(v.packetQueue)
		v.cancel()
	}
	return v.ctx.Err()
}

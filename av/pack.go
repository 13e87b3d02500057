package av

import "errors"

var ErrClosed = errors.New("channel closed")

// Packet is one access unit with its already-built FLV tag body.
// Header can be converted to AudioPacketHeader or VideoPacketHeader.
type Packet struct {
	IsAudio    bool
	IsVideo    bool
	IsMetadata bool
	TimeStamp  uint32 // dts in ms
	StreamID   uint32
	Header     PacketHeader
	Data       []byte
}

func (p *Packet) Type() int {
	if p.IsVideo {
		return TAG_VIDEO
	} else if p.IsMetadata {
		return TAG_SCRIPTDATAAMF0
	}
	return TAG_AUDIO
}

func (p *Packet) Clone() *Packet {
	tp := *p
	tp.Data = make([]byte, len(p.Data))
	copy(tp.Data, p.Data)
	return &tp
}

const DropDefaultNum = 256

func DropPacket(pktQue chan *Packet) (n int) {
	return DropNPacket(pktQue, DropDefaultNum)
}

// DropNPacket drains up to dn queued packets so a slow consumer sheds
// load instead of blocking the publisher.
func DropNPacket(pktQue chan *Packet, dn int) (n int) {
	for {
		select {
		case _, ok := <-pktQue:
			if !ok {
				return n
			}
			n++
			if n == dn {
				return n
			}
		default:
			return n
		}
	}
}

type PacketHeader interface{}

type AudioPacketHeader interface {
	PacketHeader
	SoundFormat() uint8
	AACPacketType() uint8
}

type VideoPacketHeader interface {
	PacketHeader
	IsKeyFrame() bool
	IsSeq() bool
	CodecID() uint8
	CompositionTime() int32
}

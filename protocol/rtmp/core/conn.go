package core

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/flvkit/flvkit/utils/pio"
	"github.com/zijiren233/ksync"
)

const (
	_ = iota
	idSetChunkSize
	idAbortMessage
	idAck
	idUserControlMessages
	idWindowAckSize
	idSetPeerBandwidth
)

type Conn struct {
	net.Conn
	chunkSize           uint32
	remoteChunkSize     uint32
	windowAckSize       uint32
	remoteWindowAckSize uint32
	received            uint32
	ackReceived         uint32
	rw                  *ReadWriter
	lock                *ksync.Kmutex
	chunks              map[uint32]*ChunkStream
}

func NewConn(c net.Conn, bufferSize int) *Conn {
	return &Conn{
		Conn:                c,
		chunkSize:           128,
		remoteChunkSize:     128,
		windowAckSize:       2500000,
		remoteWindowAckSize: 2500000,
		rw:                  NewReadWriter(c, bufferSize),
		lock:                ksync.NewKmutex(),
		chunks:              make(map[uint32]*ChunkStream),
	}
}

func (conn *Conn) Read() (c *ChunkStream, err error) {
	for {
		c, err = conn.readNextChunk()
		if err != nil {
			return nil, err
		}
		if c.full() {
			break
		}
	}

	conn.handleControlMsg(c)
	conn.ack(c.Length)

	return
}

func (conn *Conn) readNextChunk() (cs *ChunkStream, err error) {
	h, err := conn.rw.ReadUintBE(1)
	if err != nil {
		return nil, err
	}
	format := h >> 6
	csid := h & 0x3f
	conn.lock.Lock(csid)
	defer conn.lock.Unlock(csid)
	cs, ok := conn.chunks[csid]
	if !ok {
		cs = &ChunkStream{CSID: csid}
		conn.chunks[csid] = cs
	}
	cs.tmpFormat = format
	if cs.remain != 0 && cs.tmpFormat != 3 {
		return nil, fmt.Errorf("invalid remain = %d", cs.remain)
	}
	switch cs.CSID {
	case 0:
		id, err := conn.rw.ReadUintLE(1)
		if err != nil {
			return cs, err
		}
		cs.CSID = id + 64
	case 1:
		id, err := conn.rw.ReadUintLE(2)
		if err != nil {
			return cs, err
		}
		cs.CSID = id + 64
	}

	switch cs.tmpFormat {
	case 0:
		cs.Format = cs.tmpFormat
		cs.Timestamp, err = conn.rw.ReadUintBE(3)
		if err != nil {
			return cs, err
		}
		cs.Length, err = conn.rw.ReadUintBE(3)
		if err != nil {
			return cs, err
		}
		cs.TypeID, err = conn.rw.ReadUintBE(1)
		if err != nil {
			return cs, err
		}
		cs.StreamID, err = conn.rw.ReadUintLE(4)
		if err != nil {
			return cs, err
		}
		if cs.Timestamp == 0xffffff {
			cs.Timestamp, err = conn.rw.ReadUintBE(4)
			if err != nil {
				return cs, err
			}
			cs.exted = true
		} else {
			cs.exted = false
		}
		cs.init()
	case 1:
		cs.Format = cs.tmpFormat
		timeStamp, err := conn.rw.ReadUintBE(3)
		if err != nil {
			return cs, err
		}
		cs.Length, err = conn.rw.ReadUintBE(3)
		if err != nil {
			return cs, err
		}
		cs.TypeID, err = conn.rw.ReadUintBE(1)
		if err != nil {
			return cs, err
		}
		if timeStamp == 0xffffff {
			timeStamp, err = conn.rw.ReadUintBE(4)
			if err != nil {
				return cs, err
			}
			cs.exted = true
		} else {
			cs.exted = false
		}
		cs.timeDelta = timeStamp
		cs.Timestamp += timeStamp
		cs.init()
	case 2:
		cs.Format = cs.tmpFormat
		timeStamp, err := conn.rw.ReadUintBE(3)
		if err != nil {
			return cs, err
		}
		if timeStamp == 0xffffff {
			timeStamp, err = conn.rw.ReadUintBE(4)
			if err != nil {
				return cs, err
			}
			cs.exted = true
		} else {
			cs.exted = false
		}
		cs.timeDelta = timeStamp
		cs.Timestamp += timeStamp
		cs.init()
	case 3:
		if cs.remain == 0 {
			switch cs.Format {
			case 0:
				if cs.exted {
					timestamp, err := conn.rw.ReadUintBE(4)
					if err != nil {
						return cs, err
					}
					cs.Timestamp = timestamp
				}
			case 1, 2:
				var timeDelta uint32
				if cs.exted {
					timeDelta, err = conn.rw.ReadUintBE(4)
					if err != nil {
						return cs, err
					}
				} else {
					timeDelta = cs.timeDelta
				}
				cs.Timestamp += timeDelta
			}
			cs.init()
		} else if cs.exted {
			// The peer may or may not repeat the extended timestamp on
			// continuation chunks; swallow it only when it matches.
			b, err := conn.rw.Peek(4)
			if err != nil {
				return cs, err
			}
			if binary.BigEndian.Uint32(b) == cs.Timestamp {
				if _, err := conn.rw.Discard(4); err != nil {
					return cs, err
				}
			}
		}
	default:
		return cs, fmt.Errorf("invalid format=%d", cs.Format)
	}

	size := cs.remain
	chunkSize := atomic.LoadUint32(&conn.remoteChunkSize)
	if size > chunkSize {
		size = chunkSize
	}
	buf := cs.Data[cs.index : cs.index+size]
	n, err := conn.rw.Read(buf)
	if err != nil {
		return cs, err
	}
	cs.index += uint32(n)
	cs.remain -= uint32(n)
	if cs.remain == 0 {
		cs.got = true
	}

	return cs, nil
}

func (conn *Conn) Write(c *ChunkStream) error {
	if c.TypeID == idSetChunkSize {
		atomic.StoreUint32(&conn.chunkSize, binary.BigEndian.Uint32(c.Data))
	}
	return c.writeChunk(conn.rw, atomic.LoadUint32(&conn.chunkSize))
}

func (conn *Conn) Flush() error {
	return conn.rw.Flush()
}

func (conn *Conn) Close() error {
	return conn.Conn.Close()
}

func (conn *Conn) RemoteAddr() net.Addr {
	return conn.Conn.RemoteAddr()
}

func (conn *Conn) LocalAddr() net.Addr {
	return conn.Conn.LocalAddr()
}

func (conn *Conn) SetDeadline(t time.Time) error {
	return conn.Conn.SetDeadline(t)
}

func (conn *Conn) NewAck(size uint32) *ChunkStream {
	return initControlMsg(idAck, 4, size)
}

func (conn *Conn) NewSetChunkSize(size uint32) *ChunkStream {
	return initControlMsg(idSetChunkSize, 4, size)
}

func (conn *Conn) NewWindowAckSize(size uint32) *ChunkStream {
	return initControlMsg(idWindowAckSize, 4, size)
}

func (conn *Conn) NewSetPeerBandwidth(size uint32) *ChunkStream {
	ret := initControlMsg(idSetPeerBandwidth, 5, size)
	ret.Data[4] = 2
	return ret
}

func (conn *Conn) handleControlMsg(c *ChunkStream) {
	if c.TypeID == idSetChunkSize {
		atomic.StoreUint32(&conn.remoteChunkSize, binary.BigEndian.Uint32(c.Data))
	} else if c.TypeID == idWindowAckSize {
		atomic.StoreUint32(&conn.remoteWindowAckSize, binary.BigEndian.Uint32(c.Data))
	}
}

func (conn *Conn) ack(size uint32) {
	atomic.AddUint32(&conn.ackReceived, size)
	current := atomic.AddUint32(&conn.received, size)
	if current >= 0xf0000000 {
		atomic.CompareAndSwapUint32(&conn.received, current, 0)
	}
	if ackReceived := atomic.LoadUint32(&conn.ackReceived); ackReceived >= atomic.LoadUint32(&conn.remoteWindowAckSize) {
		cs := conn.NewAck(ackReceived)
		cs.writeChunk(conn.rw, atomic.LoadUint32(&conn.chunkSize))
		atomic.CompareAndSwapUint32(&conn.ackReceived, ackReceived, 0)
	}
}

func initControlMsg(id, size, value uint32) *ChunkStream {
	ret := &ChunkStream{
		Format:   0,
		CSID:     2,
		TypeID:   id,
		StreamID: 0,
		Length:   size,
		Data:     make([]byte, size),
	}
	pio.PutU32BE(ret.Data[:size], value)
	return ret
}

const (
	streamBegin      uint32 = 0
	streamEOF        uint32 = 1
	streamDry        uint32 = 2
	setBufferLen     uint32 = 3
	streamIsRecorded uint32 = 4
	pingRequest      uint32 = 6
	pingResponse     uint32 = 7
)

/*
+------------------------------+-------------------------
|     Event Type ( 2- bytes )  | Event Data
+------------------------------+-------------------------
Payload for the 'User Control Message'.
*/
func (conn *Conn) userControlMsg(eventType, buflen uint32) ChunkStream {
	buflen += 2
	ret := ChunkStream{
		Format:   0,
		CSID:     2,
		TypeID:   idUserControlMessages,
		StreamID: 1,
		Length:   buflen,
		Data:     make([]byte, buflen),
	}
	ret.Data[0] = byte(eventType >> 8 & 0xff)
	ret.Data[1] = byte(eventType & 0xff)
	return ret
}

func (conn *Conn) SetBegin() {
	ret := conn.userControlMsg(streamBegin, 4)
	pio.PutU32BE(ret.Data[2:6], 1)
	conn.Write(&ret)
}

func (conn *Conn) SetRecorded() {
	ret := conn.userControlMsg(streamIsRecorded, 4)
	pio.PutU32BE(ret.Data[2:6], 1)
	conn.Write(&ret)
}

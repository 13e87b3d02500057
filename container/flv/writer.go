package flv

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/protocol/amf"
	"github.com/zijiren233/stream"
)

// Writer frames already-built tag bodies (av.Packet.Data) into an FLV
// byte stream. It is the fan-out counterpart of Muxer: relay players
// and recorders receive packets whose codec prefixes were built at the
// ingest edge.
type Writer struct {
	*av.RWBaser
	buf     *bufio.Writer
	w       *stream.Writer
	inited  bool
	bufSize int

	ctx    context.Context
	cancel context.CancelFunc
	lock   sync.RWMutex
}

type WriterConf func(*Writer)

func WithWriterBuffer(size int) WriterConf {
	return func(w *Writer) {
		w.bufSize = size
	}
}

func NewWriter(ctx context.Context, w io.Writer, conf ...WriterConf) *Writer {
	writer := &Writer{
		RWBaser: av.NewRWBaser(),
		bufSize: 1024,
	}
	for _, fc := range conf {
		fc(writer)
	}
	writer.ctx, writer.cancel = context.WithCancel(ctx)
	writer.buf = bufio.NewWriterSize(w, writer.bufSize)
	writer.w = stream.NewWriter(writer.buf, stream.BigEndian)
	return writer
}

func (w *Writer) Write(p *av.Packet) error {
	w.lock.RLock()
	if w.closed() {
		w.lock.RUnlock()
		return errors.New("flv writer closed")
	}
	w.lock.RUnlock()
	if !w.inited {
		if err := w.w.Bytes(FlvFirstHeader).Error(); err != nil {
			return err
		}
		w.inited = true
	}

	var typeID uint8
	switch {
	case p.IsVideo:
		typeID = av.TAG_VIDEO
	case p.IsMetadata:
		var err error
		typeID = av.TAG_SCRIPTDATAAMF0
		p = p.Clone()
		p.Data, err = amf.MetaDataReform(p.Data, amf.DEL)
		if err != nil {
			return err
		}
	case p.IsAudio:
		typeID = av.TAG_AUDIO
	default:
		return nil
	}

	dataLen := len(p.Data)
	timestamp := p.TimeStamp + w.BaseTimeStamp()
	w.RecTimeStamp(timestamp, uint32(typeID))

	if err := w.w.
		U8(typeID).
		U24(uint32(dataLen)).
		U24(timestamp & 0xffffff).
		U8(uint8(timestamp >> 24)).
		U24(0).
		Bytes(p.Data).
		U32(uint32(dataLen + headerLen)).
		Error(); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *Writer) Closed() bool {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.closed()
}

func (w *Writer) closed() bool {
	select {
	case <-w.ctx.Done():
		return true
	default:
		return false
	}
}

func (w *Writer) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed() {
		return av.ErrClosed
	}
	w.cancel()
	return nil
}

func (w *Writer) Wait() {
	<-w.ctx.Done()
}

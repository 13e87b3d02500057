package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/protocol/amf"
)

const (
	publishLive = "live"
)

// Command (20) and AMF3-wrapped command (17) message type ids.
const (
	typeCommandAMF3 = 17
	typeCommandAMF0 = 20
)

var ErrReq = fmt.Errorf("req error")

const (
	cmdConnect       = "connect"
	cmdFcpublish     = "FCPublish"
	cmdReleaseStream = "releaseStream"
	cmdCreateStream  = "createStream"
	cmdPublish       = "publish"
	cmdFCUnpublish   = "FCUnpublish"
	cmdDeleteStream  = "deleteStream"
	cmdPlay          = "play"
)

type ConnectInfo struct {
	App            string
	Flashver       string
	TcUrl          string
	ObjectEncoding int
}

type PublishInfo struct {
	Name string
	Type string
}

// ConnServer answers the server half of the RTMP command exchange for
// one accepted connection, up to the point where the peer is a known
// publisher or player.
type ConnServer struct {
	done          bool
	streamID      int
	isPublisher   bool
	conn          *Conn
	transactionID int
	ConnInfo      ConnectInfo
	PublishInfo   PublishInfo
	decoder       *amf.Decoder
	encoder       *amf.Encoder
	bytesw        *bytes.Buffer
}

func NewConnServer(conn *Conn) *ConnServer {
	return &ConnServer{
		conn:     conn,
		streamID: 1,
		bytesw:   bytes.NewBuffer(nil),
		decoder:  &amf.Decoder{},
		encoder:  &amf.Encoder{},
	}
}

func (cs *ConnServer) writeMsg(csid, streamID uint32, args ...amf.Value) error {
	cs.bytesw.Reset()
	if _, err := cs.encoder.EncodeBatch(cs.bytesw, args...); err != nil {
		return err
	}
	msg := cs.bytesw.Bytes()
	c := ChunkStream{
		Format:    0,
		CSID:      csid,
		Timestamp: 0,
		TypeID:    typeCommandAMF0,
		StreamID:  streamID,
		Length:    uint32(len(msg)),
		Data:      msg,
	}
	if err := cs.conn.Write(&c); err != nil {
		return err
	}
	return cs.conn.Flush()
}

func (cs *ConnServer) connect(vs []amf.Value) error {
	for _, v := range vs {
		switch v := v.(type) {
		case amf.Number:
			if int(v) != 1 {
				return ErrReq
			}
			cs.transactionID = int(v)
		case amf.Object:
			if app, ok := v.Get("app"); ok {
				if s, ok := app.(amf.String); ok {
					cs.ConnInfo.App = string(s)
				}
			}
			if flashVer, ok := v.Get("flashVer"); ok {
				if s, ok := flashVer.(amf.String); ok {
					cs.ConnInfo.Flashver = string(s)
				}
			}
			if tcurl, ok := v.Get("tcUrl"); ok {
				if s, ok := tcurl.(amf.String); ok {
					cs.ConnInfo.TcUrl = string(s)
				}
			}
			if encoding, ok := v.Get("objectEncoding"); ok {
				if n, ok := encoding.(amf.Number); ok {
					cs.ConnInfo.ObjectEncoding = int(n)
				}
			}
		}
	}
	return nil
}

func (cs *ConnServer) connectResp(csid, streamID uint32) error {
	if err := cs.conn.Write(cs.conn.NewWindowAckSize(2500000)); err != nil {
		return err
	}
	if err := cs.conn.Write(cs.conn.NewSetPeerBandwidth(2500000)); err != nil {
		return err
	}
	if err := cs.conn.Write(cs.conn.NewSetChunkSize(1024)); err != nil {
		return err
	}

	resp := amf.Object{}.
		With("fmsVer", amf.String("FMS/3,0,1,123")).
		With("capabilities", amf.Number(31))
	event := amf.Object{}.
		With("level", amf.String("status")).
		With("code", amf.String(connectSuccess)).
		With("description", amf.String("Connection succeeded.")).
		With("objectEncoding", amf.Number(cs.ConnInfo.ObjectEncoding))
	return cs.writeMsg(csid, streamID,
		amf.String(respResult), amf.Number(cs.transactionID), resp, event)
}

func (cs *ConnServer) createStream(vs []amf.Value) error {
	for _, v := range vs {
		if n, ok := v.(amf.Number); ok {
			cs.transactionID = int(n)
		}
	}
	return nil
}

func (cs *ConnServer) createStreamResp(csid, streamID uint32) error {
	return cs.writeMsg(csid, streamID,
		amf.String(respResult), amf.Number(cs.transactionID), amf.Null{}, amf.Number(cs.streamID))
}

func (cs *ConnServer) publishOrPlay(vs []amf.Value) error {
	for k, v := range vs {
		switch v := v.(type) {
		case amf.String:
			if k == 2 {
				cs.PublishInfo.Name = string(v)
			} else if k == 3 {
				cs.PublishInfo.Type = string(v)
			}
		case amf.Number:
			cs.transactionID = int(v)
		}
	}
	return nil
}

func (cs *ConnServer) onStatusResp(csid, streamID uint32, code, description string) error {
	event := amf.Object{}.
		With("level", amf.String("status")).
		With("code", amf.String(code)).
		With("description", amf.String(description))
	return cs.writeMsg(csid, streamID,
		amf.String(onStatus), amf.Number(0), amf.Null{}, event)
}

func (cs *ConnServer) publishResp(csid, streamID uint32) error {
	return cs.onStatusResp(csid, streamID, publishStart, "Start publishing.")
}

func (cs *ConnServer) playResp(csid, streamID uint32) error {
	cs.conn.SetRecorded()
	cs.conn.SetBegin()

	for _, resp := range [][2]string{
		{"NetStream.Play.Reset", "Playing and resetting stream."},
		{"NetStream.Play.Start", "Started playing stream."},
		{"NetStream.Data.Start", "Started playing stream."},
		{"NetStream.Play.PublishNotify", "Started playing notify."},
	} {
		if err := cs.onStatusResp(csid, streamID, resp[0], resp[1]); err != nil {
			return err
		}
	}
	return cs.conn.Flush()
}

func (cs *ConnServer) handleCmdMsg(c *ChunkStream) error {
	if c.TypeID == typeCommandAMF3 {
		c.Data = c.Data[1:]
	}
	r := bytes.NewReader(c.Data)
	vs, err := cs.decoder.DecodeBatch(r)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if len(vs) == 0 {
		return ErrReq
	}

	cmd, ok := vs[0].(amf.String)
	if !ok {
		return nil
	}
	switch string(cmd) {
	case cmdConnect:
		if err = cs.connect(vs[1:]); err != nil {
			return err
		}
		if err = cs.connectResp(c.CSID, c.StreamID); err != nil {
			return err
		}
	case cmdCreateStream:
		if err = cs.createStream(vs[1:]); err != nil {
			return err
		}
		if err = cs.createStreamResp(c.CSID, c.StreamID); err != nil {
			return err
		}
	case cmdPublish:
		if err = cs.publishOrPlay(vs[1:]); err != nil {
			return err
		}
		if err = cs.publishResp(c.CSID, c.StreamID); err != nil {
			return err
		}
		cs.done = true
		cs.isPublisher = true
	case cmdPlay:
		if err = cs.publishOrPlay(vs[1:]); err != nil {
			return err
		}
		if err = cs.playResp(c.CSID, c.StreamID); err != nil {
			return err
		}
		cs.done = true
		cs.isPublisher = false
	case cmdFcpublish, cmdReleaseStream, cmdFCUnpublish, cmdDeleteStream:
		// Optional encoder chatter, no response required.
	}

	return nil
}

// ReadInitMsg pumps command messages until the peer has declared
// itself a publisher or player.
func (cs *ConnServer) ReadInitMsg() error {
	for {
		c, err := cs.Read()
		if err != nil {
			return err
		}
		switch c.TypeID {
		case typeCommandAMF0, typeCommandAMF3:
			if err := cs.handleCmdMsg(c); err != nil {
				return err
			}
		}
		if cs.done {
			return nil
		}
	}
}

func (cs *ConnServer) IsPublisher() bool {
	return cs.isPublisher
}

func (cs *ConnServer) Write(c *ChunkStream) error {
	if c.TypeID == av.TAG_SCRIPTDATAAMF0 ||
		c.TypeID == av.TAG_SCRIPTDATAAMF3 {
		var err error
		if c.Data, err = amf.MetaDataReform(c.Data, amf.DEL); err != nil {
			return err
		}
		c.Length = uint32(len(c.Data))
	}
	return cs.conn.Write(c)
}

func (cs *ConnServer) Flush() error {
	return cs.conn.Flush()
}

func (cs *ConnServer) Read() (*ChunkStream, error) {
	return cs.conn.Read()
}

func (cs *ConnServer) GetInfo() (app string, name string) {
	return cs.ConnInfo.App, cs.PublishInfo.Name
}

func (cs *ConnServer) Close() error {
	return cs.conn.Close()
}

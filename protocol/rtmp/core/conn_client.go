package core

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/protocol/amf"
)

const (
	respResult     = "_result"
	onStatus       = "onStatus"
	publishStart   = "NetStream.Publish.Start"
	connectSuccess = "NetConnection.Connect.Success"
)

var ErrFail = errors.New("response err")

// ConnClient drives the client half of the RTMP command exchange:
// handshake, connect, createStream, then publish or play.
type ConnClient struct {
	transID    int
	url        string
	app        string
	title      string
	curcmdName string
	streamid   uint32
	isRTMPS    bool
	conn       *Conn
	encoder    *amf.Encoder
	decoder    *amf.Decoder
	bytesw     *bytes.Buffer
}

func NewConnClient() *ConnClient {
	return &ConnClient{
		transID: 1,
		bytesw:  bytes.NewBuffer(nil),
		encoder: new(amf.Encoder),
		decoder: new(amf.Decoder),
	}
}

func (cc *ConnClient) readRespMsg() error {
	for {
		rc, err := cc.conn.Read()
		if err != nil {
			return err
		}
		switch rc.TypeID {
		case typeCommandAMF0, typeCommandAMF3:
			r := bytes.NewReader(rc.Data)
			vs, _ := cc.decoder.DecodeBatch(r)

			for k, v := range vs {
				switch v := v.(type) {
				case amf.String:
					switch cc.curcmdName {
					case cmdConnect, cmdCreateStream:
						if string(v) != respResult {
							return errors.New(string(v))
						}
					case cmdPublish:
						if string(v) != onStatus {
							return ErrFail
						}
					}
				case amf.Number:
					switch cc.curcmdName {
					case cmdConnect, cmdCreateStream:
						id := int(v)
						switch k {
						case 1:
							if id != cc.transID {
								return ErrFail
							}
						case 3:
							cc.streamid = uint32(id)
						}
					case cmdPublish:
						if int(v) != 0 {
							return ErrFail
						}
					}
				case amf.Object:
					code, ok := v.Get("code")
					if !ok {
						continue
					}
					switch cc.curcmdName {
					case cmdConnect:
						if s, ok := code.(amf.String); ok && string(s) != connectSuccess {
							return ErrFail
						}
					case cmdPublish:
						if s, ok := code.(amf.String); ok && string(s) != publishStart {
							return ErrFail
						}
					}
				}
			}

			return nil
		}
	}
}

func (cc *ConnClient) writeMsg(args ...amf.Value) error {
	cc.bytesw.Reset()
	if _, err := cc.encoder.EncodeBatch(cc.bytesw, args...); err != nil {
		return err
	}
	msg := cc.bytesw.Bytes()
	c := &ChunkStream{
		Format:    0,
		CSID:      3,
		Timestamp: 0,
		TypeID:    typeCommandAMF0,
		StreamID:  cc.streamid,
		Length:    uint32(len(msg)),
		Data:      msg,
	}
	if err := cc.conn.Write(c); err != nil {
		return err
	}
	return cc.conn.Flush()
}

func (cc *ConnClient) writeConnectMsg() error {
	event := amf.Object{}.
		With("app", amf.String(cc.app)).
		With("type", amf.String("nonprivate")).
		With("flashVer", amf.String("FMS.3.1")).
		With("tcUrl", amf.String(cc.url))
	cc.curcmdName = cmdConnect

	if err := cc.writeMsg(amf.String(cmdConnect), amf.Number(cc.transID), event); err != nil {
		return err
	}
	return cc.readRespMsg()
}

func (cc *ConnClient) writeCreateStreamMsg() error {
	cc.transID++
	cc.curcmdName = cmdCreateStream

	if err := cc.writeMsg(amf.String(cmdCreateStream), amf.Number(cc.transID), amf.Null{}); err != nil {
		return err
	}

	for {
		err := cc.readRespMsg()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrFail) {
			return err
		}
	}
}

func (cc *ConnClient) writePublishMsg() error {
	cc.transID++
	cc.curcmdName = cmdPublish
	if err := cc.writeMsg(
		amf.String(cmdPublish), amf.Number(cc.transID), amf.Null{},
		amf.String(cc.title), amf.String(publishLive),
	); err != nil {
		return err
	}
	return cc.readRespMsg()
}

func (cc *ConnClient) writePlayMsg() error {
	cc.transID++
	cc.curcmdName = cmdPlay
	if err := cc.writeMsg(
		amf.String(cmdPlay), amf.Number(0), amf.Null{},
		amf.String(cc.title),
	); err != nil {
		return err
	}
	return cc.readRespMsg()
}

func (cc *ConnClient) Start(rtmpURL, method string) error {
	u, err := neturl.Parse(rtmpURL)
	if err != nil {
		return err
	}
	cc.url = rtmpURL
	path := strings.TrimLeft(u.Path, "/")
	ps := strings.SplitN(path, "/", 2)
	if len(ps) != 2 {
		return fmt.Errorf("u path err: %s", path)
	}
	cc.app = ps[0]
	cc.title = ps[1]
	if u.RawQuery != "" {
		cc.title += "?" + u.RawQuery
	}
	if !strings.HasPrefix(u.Scheme, "rtmp") {
		return fmt.Errorf("rtmp url err: %s", rtmpURL)
	}
	cc.isRTMPS = strings.EqualFold(u.Scheme, "rtmps")

	var conn net.Conn
	if cc.isRTMPS {
		conn, err = tls.Dial("tcp", u.Host, &tls.Config{InsecureSkipVerify: true})
		if err != nil {
			return err
		}
	} else {
		conn, err = net.Dial("tcp", u.Host)
		if err != nil {
			return err
		}
	}

	cc.conn = NewConn(conn, 4*1024)

	if err := cc.conn.HandshakeClient(); err != nil {
		return err
	}

	if err := cc.writeConnectMsg(); err != nil {
		return err
	}
	if err := cc.writeCreateStreamMsg(); err != nil {
		return err
	}

	switch method {
	case av.PUBLISH:
		if err := cc.writePublishMsg(); err != nil {
			return err
		}
	case av.PLAY:
		if err := cc.writePlayMsg(); err != nil {
			return err
		}
	}

	return nil
}

func (cc *ConnClient) Write(c *ChunkStream) error {
	if c.TypeID == av.TAG_SCRIPTDATAAMF0 ||
		c.TypeID == av.TAG_SCRIPTDATAAMF3 {
		var err error
		if c.Data, err = amf.MetaDataReform(c.Data, amf.ADD); err != nil {
			return err
		}
		c.Length = uint32(len(c.Data))
	}
	return cc.conn.Write(c)
}

func (cc *ConnClient) Flush() error {
	return cc.conn.Flush()
}

func (cc *ConnClient) Read() (*ChunkStream, error) {
	return cc.conn.Read()
}

func (cc *ConnClient) GetInfo() (app, name, url string) {
	return cc.app, cc.title, cc.url
}

func (cc *ConnClient) GetStreamId() uint32 {
	return cc.streamid
}

func (cc *ConnClient) Close() error {
	return cc.conn.Close()
}

package server

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/zijiren233/gencontainer/rwmap"

	"github.com/flvkit/flvkit/protocol/rtmp"
	"github.com/flvkit/flvkit/protocol/rtmp/core"
)

// Server accepts RTMP connections and routes publishers and players to
// channels, keyed by application name then channel name.
type Server struct {
	apps                   rwmap.RWMap[string, *App]
	connBufferSize         int32
	parseChannelFunc       parseChannelFunc
	autoCreateAppOrChannel bool
}

type parseChannelFunc func(reqAppName, reqChannelName string, isPublisher bool) (trueAppName, trueChannelName string, err error)

func DefaultRtmpServer() *Server {
	return &Server{
		connBufferSize:         4096,
		autoCreateAppOrChannel: false,
	}
}

type ServerConf func(*Server)

func WithParseChannelFunc(f parseChannelFunc) ServerConf {
	return func(s *Server) {
		s.parseChannelFunc = f
	}
}

func WithConnBufferSize(bufferSize int32) ServerConf {
	return func(s *Server) {
		s.connBufferSize = bufferSize
	}
}

func WithAutoCreateAppOrChannel(auto bool) ServerConf {
	return func(s *Server) {
		s.autoCreateAppOrChannel = auto
	}
}

func NewRtmpServer(c ...ServerConf) *Server {
	s := DefaultRtmpServer()
	for _, conf := range c {
		conf(s)
	}
	return s
}

func (s *Server) SetParseChannelFunc(f parseChannelFunc) {
	s.parseChannelFunc = f
}

func (s *Server) SetConnBufferSize(bufferSize int32) {
	atomic.StoreInt32(&s.connBufferSize, bufferSize)
}

var ErrAppAlreadyExists = errors.New("app already exists")

func (s *Server) NewApp(appName string) (*App, error) {
	a := NewApp(appName)
	_, loaded := s.apps.LoadOrStore(appName, a)
	if loaded {
		return nil, ErrAppAlreadyExists
	}
	return a, nil
}

func (s *Server) GetOrNewApp(appName string) *App {
	a, _ := s.apps.LoadOrStore(appName, NewApp(appName))
	return a
}

var ErrAppNotFound = errors.New("app not found")

func (s *Server) GetApp(appName string) (*App, error) {
	a, ok := s.apps.Load(appName)
	if !ok {
		return nil, ErrAppNotFound
	}
	return a, nil
}

func (s *Server) DelApp(appName string) error {
	a, loaded := s.apps.LoadAndDelete(appName)
	if !loaded {
		return ErrAppNotFound
	}
	return a.Close()
}

func (s *Server) GetChannelWithApp(appName, channelName string) (*Channel, error) {
	a, err := s.GetApp(appName)
	if err != nil {
		return nil, err
	}
	return a.GetChannel(channelName)
}

func (s *Server) GetOrNewChannelWithApp(appName, channelName string) *Channel {
	return s.GetOrNewApp(appName).GetOrNewChannel(channelName)
}

func (s *Server) Serve(l net.Listener) error {
	for {
		netconn, err := l.Accept()
		if err != nil {
			return err
		}
		conn := core.NewConn(netconn, int(atomic.LoadInt32(&s.connBufferSize)))
		go func() {
			if err := s.handleConn(conn); err != nil {
				logrus.Debugf("rtmp: conn %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

func (s *Server) handleConn(conn *core.Conn) (err error) {
	if err := conn.HandshakeServer(); err != nil {
		conn.Close()
		return err
	}
	connServer := core.NewConnServer(conn)
	defer connServer.Close()

	if err = connServer.ReadInitMsg(); err != nil {
		return
	}
	app, name := connServer.GetInfo()
	if s.parseChannelFunc != nil {
		app, name, err = s.parseChannelFunc(app, name, connServer.IsPublisher())
		if err != nil {
			return err
		}
	}
	var channel *Channel
	if s.autoCreateAppOrChannel {
		channel = s.GetOrNewChannelWithApp(app, name)
	} else {
		channel, err = s.GetChannelWithApp(app, name)
		if err != nil {
			return err
		}
	}
	if connServer.IsPublisher() {
		logrus.Infof("rtmp: publish start: %s/%s from %s", app, name, conn.RemoteAddr())
		reader := rtmp.NewReader(connServer)
		defer reader.Close()
		err = channel.PushStart(reader)
		logrus.Infof("rtmp: publish stop: %s/%s", app, name)
		return err
	}

	logrus.Infof("rtmp: play start: %s/%s from %s", app, name, conn.RemoteAddr())
	writer := rtmp.NewWriter(context.Background(), connServer)
	defer writer.Close()
	if err := channel.AddPlayer(writer); err != nil {
		return err
	}
	return writer.SendPacket()
}

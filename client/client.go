package client

import (
	"context"
	"errors"

	"github.com/zijiren233/gencontainer/dllist"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/cache"
	"github.com/flvkit/flvkit/protocol/rtmp"
	"github.com/flvkit/flvkit/protocol/rtmp/core"
)

// Client publishes a local packet source to a remote RTMP server, or
// pulls a remote stream and fans it out to local players.
type Client struct {
	connClient *core.ConnClient
	method     string

	pulling, inPublication bool

	playerList *dllist.Dllist[*packWriter]
	cache      *cache.Cache

	pusher *rtmp.Writer
	puller *rtmp.Reader
}

func NewRtmpClient(method string) (*Client, error) {
	if method != av.PUBLISH && method != av.PLAY {
		return nil, ErrMethodNotSupport
	}
	c := &Client{method: method}
	if method == av.PLAY {
		c.cache = cache.NewCache()
		c.playerList = dllist.New[*packWriter]()
	}
	return c, nil
}

var ErrAlreadyDialed = errors.New("already dialed")
var ErrMethodNotSupport = errors.New("method not support")

func (c *Client) Dial(ctx context.Context, url string) error {
	if c.connClient != nil {
		return ErrAlreadyDialed
	}
	connClient := core.NewConnClient()
	if err := connClient.Start(url, c.method); err != nil {
		return err
	}
	c.connClient = connClient
	switch c.method {
	case av.PUBLISH:
		c.pusher = rtmp.NewWriter(ctx, c.connClient)
		go c.pusher.SendPacket()
	case av.PLAY:
		c.puller = rtmp.NewReader(c.connClient)
	}
	return nil
}

func (c *Client) Close() error {
	if c.pusher != nil {
		c.pusher.Close()
	}
	if c.puller != nil {
		c.puller.Close()
	}
	return c.connClient.Close()
}

func (c *Client) Flush() error {
	return c.connClient.Flush()
}

type packWriter struct {
	init bool
	w    av.WriteCloser
}

func newPackWriterCloser(w av.WriteCloser) *packWriter {
	return &packWriter{
		w: w,
	}
}

func (p *packWriter) GetWriter() av.WriteCloser {
	return p.w
}

func (p *packWriter) Init() {
	p.init = true
}

func (p *packWriter) Inited() bool {
	return p.init
}

func (c *Client) PullStart(ctx context.Context) (err error) {
	if c.method != av.PLAY {
		return ErrMethodNotSupport
	}

	if c.pulling {
		return ErrAlreadyDialed
	}

	c.pulling = true
	defer func() { c.pulling = false }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p, err := c.puller.Read()
		if err != nil {
			return err
		}

		c.cache.Write(p)

		for e := c.playerList.Front(); e != nil; {
			player := e.Value
			next := e.Next()
			if !player.Inited() {
				if err := c.cache.Send(player.GetWriter()); err != nil {
					c.playerList.Remove(e)
					player.GetWriter().Close()
					e = next
					continue
				}
				player.Init()
			} else if err := player.GetWriter().Write(p); err != nil {
				c.playerList.Remove(e)
				player.GetWriter().Close()
			}
			e = next
		}
	}
}

func (c *Client) AddPlayer(player av.WriteCloser) (*dllist.Element[*packWriter], error) {
	if c.method != av.PLAY {
		return nil, ErrMethodNotSupport
	}
	return c.playerList.PushBack(newPackWriterCloser(player)), nil
}

func (c *Client) DelPlayer(e *dllist.Element[*packWriter]) error {
	if c.method != av.PLAY {
		return ErrMethodNotSupport
	}
	if pw := e.Value; pw != nil {
		pw.GetWriter().Close()
	}
	c.playerList.Remove(e)
	return nil
}

var ErrAlreadyInPublication = errors.New("already in publication")

func (c *Client) PushStart(ctx context.Context, src av.ReadCloser) error {
	if c.method != av.PUBLISH {
		return ErrMethodNotSupport
	}

	if c.inPublication {
		return ErrAlreadyInPublication
	}

	c.inPublication = true
	defer func() { c.inPublication = false }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p, err := src.Read()
		if err != nil {
			return err
		}
		if err := c.pusher.Write(p); err != nil {
			return err
		}
	}
}

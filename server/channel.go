package server

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zijiren233/gencontainer/rwmap"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/cache"
)

// Channel is one live stream: a single publisher fanning out to any
// number of players. New players first receive the cached metadata,
// sequence headers and current gop, then live packets.
type Channel struct {
	channelName   string
	inPublication bool
	players       rwmap.RWMap[av.WriteCloser, *packWriter]

	mu     sync.RWMutex
	closed bool
}

func NewChannel(channelName string) *Channel {
	return &Channel{channelName: channelName}
}

func (c *Channel) Name() string {
	return c.channelName
}

var (
	ErrPusherAlreadyInPublication = errors.New("pusher already in publication")
	ErrPusherNotInPublication     = errors.New("pusher not in publication")
)

// packWriter tracks whether a player has already been primed with the
// cache; live packets only make sense after that.
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

var (
	ErrPusherIsNil = errors.New("pusher is nil")
	ErrClosed      = errors.New("channel closed")
)

func (c *Channel) PushStart(pusher av.Reader) error {
	if pusher == nil {
		return ErrPusherIsNil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.inPublication {
		c.mu.Unlock()
		return ErrPusherAlreadyInPublication
	}
	c.inPublication = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.kickAllPlayers()
		c.inPublication = false
	}()

	cache := cache.NewCache()

	for {
		if c.Closed() {
			return nil
		}
		p, err := pusher.Read()
		if err != nil {
			return err
		}
		if c.Closed() {
			return nil
		}

		cache.Write(p)

		c.players.Range(func(w av.WriteCloser, player *packWriter) bool {
			if !player.Inited() {
				if err := cache.Send(player.GetWriter()); err != nil {
					logrus.Debugf("channel %s: drop player: %v", c.channelName, err)
					c.players.Delete(w)
					player.GetWriter().Close()
					return true
				}
				player.Init()
				return true
			}
			if err := player.GetWriter().Write(p); err != nil {
				logrus.Debugf("channel %s: drop player: %v", c.channelName, err)
				c.players.Delete(w)
				player.GetWriter().Close()
			}
			return true
		})
	}
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true

	c.kickAllPlayers()
	return nil
}

func (c *Channel) kickAllPlayers() {
	c.players.Range(func(w av.WriteCloser, player *packWriter) bool {
		c.players.Delete(w)
		player.GetWriter().Close()
		return true
	})
}

func (c *Channel) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Channel) InPublication() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inPublication
}

func (c *Channel) AddPlayer(w av.WriteCloser) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.inPublication {
		return ErrPusherNotInPublication
	}
	_, loaded := c.players.LoadOrStore(w, newPackWriterCloser(w))
	if loaded {
		return errors.New("player already exists")
	}
	return nil
}

func (c *Channel) DelPlayer(w av.WriteCloser) bool {
	pw, loaded := c.players.LoadAndDelete(w)
	if loaded {
		pw.GetWriter().Close()
	}
	return loaded
}

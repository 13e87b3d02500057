package server

import (
	"errors"

	"github.com/zijiren233/ksync"
)

// App groups channels under one application name, the first path
// segment of a stream url.
type App struct {
	appName      string
	channelsLock *ksync.Kmutex
	channels     map[string]*Channel
	closed       bool
}

func NewApp(appName string) *App {
	return &App{
		appName:      appName,
		channelsLock: ksync.NewKmutex(),
		channels:     make(map[string]*Channel),
	}
}

func (a *App) Name() string {
	return a.appName
}

func (a *App) GetOrNewChannel(channelName string) *Channel {
	a.channelsLock.Lock(channelName)
	defer a.channelsLock.Unlock(channelName)
	return a.getOrNewChannel(channelName)
}

func (a *App) getOrNewChannel(channelName string) *Channel {
	if c, ok := a.channels[channelName]; ok {
		return c
	}
	c := NewChannel(channelName)
	a.channels[channelName] = c
	return c
}

var ErrChannelNotFound = errors.New("channel not found")

func (a *App) GetChannel(channelName string) (*Channel, error) {
	a.channelsLock.Lock(channelName)
	defer a.channelsLock.Unlock(channelName)
	if c, ok := a.channels[channelName]; ok {
		return c, nil
	}
	return nil, ErrChannelNotFound
}

func (a *App) GetChannels() map[string]*Channel {
	return a.channels
}

func (a *App) DelChannel(channelName string) error {
	a.channelsLock.Lock(channelName)
	defer a.channelsLock.Unlock(channelName)
	return a.delChannel(channelName)
}

func (a *App) delChannel(channelName string) error {
	if c, ok := a.channels[channelName]; ok {
		c.Close()
		delete(a.channels, channelName)
		return nil
	}
	return ErrChannelNotFound
}

func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	for k := range a.channels {
		a.delChannel(k)
	}
	return nil
}

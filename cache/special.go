package cache

import (
	"github.com/flvkit/flvkit/av"
)

// SpecialCache keeps the single most recent packet of a kind that must
// be replayed to every new player, such as a sequence header.
type SpecialCache struct {
	p          *av.Packet
	isComplete bool
}

func NewSpecialCache() *SpecialCache {
	return &SpecialCache{}
}

func (s *SpecialCache) Write(p *av.Packet) {
	s.isComplete = true
	s.p = p
}

func (s *SpecialCache) Send(w av.WriteCloser) error {
	if !s.isComplete {
		return nil
	}

	return w.Write(s.p)
}

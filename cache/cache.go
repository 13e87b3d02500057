package cache

import (
	"github.com/flvkit/flvkit/av"
)

// Cache remembers what a late-joining player needs before live data
// makes sense: metadata, the audio and video sequence headers, and the
// current group of pictures.
type Cache struct {
	gop      *GopCache
	videoSeq *SpecialCache
	audioSeq *SpecialCache
	metadata *SpecialCache
}

func NewCache() *Cache {
	return &Cache{
		gop:      NewGopCache(),
		videoSeq: NewSpecialCache(),
		audioSeq: NewSpecialCache(),
		metadata: NewSpecialCache(),
	}
}

func (cache *Cache) Write(p *av.Packet) {
	switch {
	case p.IsMetadata:
		cache.metadata.Write(p)
	case p.IsAudio:
		ah, ok := p.Header.(av.AudioPacketHeader)
		if ok &&
			ah.SoundFormat() == av.SOUND_AAC &&
			ah.AACPacketType() == av.AAC_SEQHDR {
			cache.audioSeq.Write(p)
		}
	case p.IsVideo:
		vh, ok := p.Header.(av.VideoPacketHeader)
		if ok && vh.IsSeq() {
			cache.videoSeq.Write(p)
			return
		}
		cache.gop.Write(p)
	}
}

func (cache *Cache) Send(w av.WriteCloser) error {
	if err := cache.metadata.Send(w); err != nil {
		return err
	}

	if err := cache.videoSeq.Send(w); err != nil {
		return err
	}

	if err := cache.audioSeq.Send(w); err != nil {
		return err
	}

	return cache.gop.Send(w)
}

package cache

import (
	"testing"

	"github.com/flvkit/flvkit/av"
	"github.com/flvkit/flvkit/container/flv"
)

type recordWriter struct {
	packets []*av.Packet
}

func (w *recordWriter) Write(p *av.Packet) error {
	w.packets = append(w.packets, p)
	return nil
}

func (w *recordWriter) Close() error { return nil }

func metadataPacket() *av.Packet {
	return &av.Packet{IsMetadata: true, Data: []byte{0x02}}
}

func TestCachePrimesLateJoiner(t *testing.T) {
	c := NewCache()

	c.Write(metadataPacket())
	c.Write(flv.NewVideoPacket([]byte{0x01}, 0, av.CODEC_AVC, false, true))
	c.Write(flv.NewAudioPacket([]byte{0x12, 0x10}, 0, av.SOUND_AAC, 44100, true, true))
	c.Write(flv.NewVideoPacket([]byte{0xaa}, 40, av.CODEC_AVC, true, false))
	c.Write(flv.NewVideoPacket([]byte{0xbb}, 80, av.CODEC_AVC, false, false))

	w := &recordWriter{}
	if err := c.Send(w); err != nil {
		t.Fatal(err)
	}

	// metadata, video seq, audio seq, then the gop
	if len(w.packets) != 5 {
		t.Fatalf("packets=%d, want 5", len(w.packets))
	}
	if !w.packets[0].IsMetadata {
		t.Error("first replayed packet is not metadata")
	}
	if vh := w.packets[1].Header.(av.VideoPacketHeader); !vh.IsSeq() {
		t.Error("second replayed packet is not the video sequence header")
	}
	if ah := w.packets[2].Header.(av.AudioPacketHeader); ah.AACPacketType() != av.AAC_SEQHDR {
		t.Error("third replayed packet is not the audio sequence header")
	}
	if vh := w.packets[3].Header.(av.VideoPacketHeader); !vh.IsKeyFrame() {
		t.Error("gop replay does not start at a keyframe")
	}
}

func TestGopCacheRestartsOnKeyframe(t *testing.T) {
	g := NewGopCache()
	g.Write(flv.NewVideoPacket([]byte{1}, 0, av.CODEC_AVC, true, false))
	g.Write(flv.NewVideoPacket([]byte{2}, 40, av.CODEC_AVC, false, false))
	g.Write(flv.NewVideoPacket([]byte{3}, 80, av.CODEC_AVC, true, false))

	w := &recordWriter{}
	if err := g.Send(w); err != nil {
		t.Fatal(err)
	}
	if len(w.packets) != 1 {
		t.Fatalf("packets=%d, want 1 (new gop)", len(w.packets))
	}
	if w.packets[0].TimeStamp != 80 {
		t.Errorf("gop starts at ts=%d, want 80", w.packets[0].TimeStamp)
	}
}

func TestGopCacheWaitsForKeyframe(t *testing.T) {
	g := NewGopCache()
	g.Write(flv.NewVideoPacket([]byte{1}, 0, av.CODEC_AVC, false, false))

	w := &recordWriter{}
	if err := g.Send(w); err != nil {
		t.Fatal(err)
	}
	if len(w.packets) != 0 {
		t.Errorf("incomplete gop replayed %d packets", len(w.packets))
	}
}

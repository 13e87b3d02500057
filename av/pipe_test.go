package av

import (
	"errors"
	"testing"
)

func TestPipeOrder(t *testing.T) {
	p := NewPipe(4)
	for i := uint32(0); i < 3; i++ {
		if err := p.Write(&Packet{TimeStamp: i}); err != nil {
			t.Fatal(err)
		}
	}
	for i := uint32(0); i < 3; i++ {
		pkt, err := p.Read()
		if err != nil {
			t.Fatal(err)
		}
		if pkt.TimeStamp != i {
			t.Errorf("got ts=%d, want %d", pkt.TimeStamp, i)
		}
	}
}

func TestPipeShedsWhenFull(t *testing.T) {
	p := NewPipe(2)
	for i := uint32(0); i < 5; i++ {
		if err := p.Write(&Packet{TimeStamp: i}); err != nil {
			t.Fatal(err)
		}
	}
	pkt, err := p.Read()
	if err != nil {
		t.Fatal(err)
	}
	if pkt.TimeStamp == 0 {
		t.Error("oldest packet was not shed")
	}
}

func TestPipeClose(t *testing.T) {
	p := NewPipe(1)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Write(&Packet{}); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close: %v", err)
	}
	if _, err := p.Read(); !errors.Is(err, ErrClosed) {
		t.Errorf("read after close: %v", err)
	}
	if err := p.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second close: %v", err)
	}
}

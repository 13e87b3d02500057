package av

import "sync"

// Pipe couples a WriteCloser to a ReadCloser through a bounded queue,
// shedding old packets when the reader falls behind. It bridges a pull
// client's fan-out to a push client's source.
type Pipe struct {
	ch     chan *Packet
	mu     sync.Mutex
	closed bool
}

func NewPipe(size int) *Pipe {
	return &Pipe{ch: make(chan *Packet, size)}
}

func (p *Pipe) Write(pkt *Packet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	for {
		select {
		case p.ch <- pkt:
			return nil
		default:
			DropPacket(p.ch)
		}
	}
}

func (p *Pipe) Read() (*Packet, error) {
	pkt, ok := <-p.ch
	if !ok {
		return nil, ErrClosed
	}
	return pkt, nil
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	close(p.ch)
	return nil
}

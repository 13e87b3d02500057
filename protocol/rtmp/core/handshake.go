package core

import (
	"crypto/rand"
	"errors"
	"io"
	"time"

	"github.com/flvkit/flvkit/utils/pio"
)

// Simple (non-digest) handshake: C0/S0 carry the protocol version,
// C1/S1 carry time + 1528 random bytes, C2/S2 echo the peer's chunk.
const (
	handshakeVersion = 0x03
	c0c1Len          = 1537
	c1Len            = 1536
	s0s1s2Len        = 3073
)

var ErrHandshake = errors.New("rtmp handshake failed")

func (conn *Conn) HandshakeClient() error {
	c0c1 := make([]byte, c0c1Len)
	c0c1[0] = handshakeVersion
	pio.PutU32BE(c0c1[1:5], uint32(time.Now().Unix()))
	if _, err := rand.Read(c0c1[9:]); err != nil {
		return err
	}
	if _, err := conn.rw.Write(c0c1); err != nil {
		return err
	}
	if err := conn.rw.Flush(); err != nil {
		return err
	}

	s0s1s2 := make([]byte, s0s1s2Len)
	if _, err := io.ReadFull(conn.rw.ReadWriter, s0s1s2); err != nil {
		return err
	}
	if s0s1s2[0] != handshakeVersion {
		return ErrHandshake
	}

	// C2 echoes S1.
	if _, err := conn.rw.Write(s0s1s2[1 : 1+c1Len]); err != nil {
		return err
	}
	return conn.rw.Flush()
}

func (conn *Conn) HandshakeServer() error {
	c0c1 := make([]byte, c0c1Len)
	if _, err := io.ReadFull(conn.rw.ReadWriter, c0c1); err != nil {
		return err
	}
	if c0c1[0] != handshakeVersion {
		return ErrHandshake
	}

	s0s1s2 := make([]byte, s0s1s2Len)
	s0s1s2[0] = handshakeVersion
	pio.PutU32BE(s0s1s2[1:5], uint32(time.Now().Unix()))
	if _, err := rand.Read(s0s1s2[9 : 1+c1Len]); err != nil {
		return err
	}
	// S2 echoes C1.
	copy(s0s1s2[1+c1Len:], c0c1[1:])
	if _, err := conn.rw.Write(s0s1s2); err != nil {
		return err
	}
	if err := conn.rw.Flush(); err != nil {
		return err
	}

	c2 := make([]byte, c1Len)
	_, err := io.ReadFull(conn.rw.ReadWriter, c2)
	return err
}

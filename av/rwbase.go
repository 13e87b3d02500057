package av

import "sync"

// RWBaser keeps per-stream timestamp bookkeeping shared by packet
// readers and writers: the last seen audio/video timestamps and a base
// offset added when a publisher restarts mid-session.
type RWBaser struct {
	lock               sync.Mutex
	baseTimestamp      uint32
	lastVideoTimestamp uint32
	lastAudioTimestamp uint32
}

func NewRWBaser() *RWBaser {
	return &RWBaser{}
}

func (rw *RWBaser) BaseTimeStamp() uint32 {
	rw.lock.Lock()
	defer rw.lock.Unlock()
	return rw.baseTimestamp
}

// CalcBaseTimestamp latches the newest seen timestamp as the base so a
// fresh zero-based stream continues monotonically.
func (rw *RWBaser) CalcBaseTimestamp() {
	rw.lock.Lock()
	defer rw.lock.Unlock()
	if rw.lastAudioTimestamp > rw.lastVideoTimestamp {
		rw.baseTimestamp = rw.lastAudioTimestamp
	} else {
		rw.baseTimestamp = rw.lastVideoTimestamp
	}
}

func (rw *RWBaser) RecTimeStamp(timestamp, typeID uint32) {
	rw.lock.Lock()
	defer rw.lock.Unlock()
	switch typeID {
	case TAG_VIDEO:
		rw.lastVideoTimestamp = timestamp
	case TAG_AUDIO:
		rw.lastAudioTimestamp = timestamp
	}
}

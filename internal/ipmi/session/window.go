package session

// ReplayWindow is the 16-entry sliding window used to validate inbound
// session sequence numbers. A sequence is accepted when it is ahead of the
// window (which then slides forward) or inside the window and not yet
// seen. Everything else is a replay or too old and is dropped.
type ReplayWindow struct {
	highest uint32
	seen    uint16 // bit i set = (highest - i) already accepted
	started bool
}

// WindowSize is the number of sequence numbers the window covers.
const WindowSize = 16

// Accept validates seq and records it when valid. It returns false when
// the packet must be dropped.
func (w *ReplayWindow) Accept(seq uint32) bool {
	if !w.started {
		w.highest = seq
		w.seen = 1
		w.started = true
		return true
	}

	if seq > w.highest {
		shift := seq - w.highest
		if shift >= WindowSize {
			w.seen = 1
		} else {
			w.seen = w.seen<<shift | 1
		}
		w.highest = seq
		return true
	}

	back := w.highest - seq
	if back >= WindowSize {
		return false
	}
	bit := uint16(1) << back
	if w.seen&bit != 0 {
		return false
	}
	w.seen |= bit
	return true
}

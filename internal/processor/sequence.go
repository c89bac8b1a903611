package processor

import "sync"

// Sequencer tracks the highest event sequence number seen on a stream.
// AdvanceSeq never lowers the watermark.
type Sequencer interface {
	CurrentSeq() int64
	AdvanceSeq(seq int64)
}

// Sequence is a standalone Sequencer for offline replay and tests.
type Sequence struct {
	mu  sync.Mutex
	seq int64
}

// NewSequence returns a watermark starting at seq.
func NewSequence(seq int64) *Sequence {
	return &Sequence{seq: seq}
}

func (s *Sequence) CurrentSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *Sequence) AdvanceSeq(seq int64) {
	s.mu.Lock()
	if seq > s.seq {
		s.seq = seq
	}
	s.mu.Unlock()
}

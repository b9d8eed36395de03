package checkout

import "sync/atomic"

// Sequencer provides monotonically increasing order numbers.
type Sequencer struct{ n atomic.Uint64 }

// Seed moves the sequence forward to at least n.
func (s *Sequencer) Seed(n uint64) {
	for {
		cur := s.n.Load()
		if cur >= n || s.n.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }

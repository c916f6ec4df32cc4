package device

import (
	"sync"

	"github.com/danmuck/sumoctl/internal/arsdk/frame"
)

// Sequencer hands out per-buffer sequence numbers, wrapping after 255.
type Sequencer struct {
	mu   sync.Mutex
	next map[frame.BufferID]uint8
}

func NewSequencer() *Sequencer {
	return &Sequencer{next: make(map[frame.BufferID]uint8)}
}

func (s *Sequencer) Next(id frame.BufferID) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.next[id]
	s.next[id] = seq + 1
	return seq
}

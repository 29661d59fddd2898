package testutil

import (
	"fmt"
	"sync"
)

// IDSequence hands out predictable surrogate IDs for tests.
//
// IDs have the form "<prefix>-0001", "<prefix>-0002", ... and sort in the
// order they were issued, like the UUIDv7 IDs used in production.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type IDSequence struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewIDSequence creates a sequence. The first call to Next returns
// "<prefix>-0001".
func NewIDSequence(prefix string) *IDSequence {
	if prefix == "" {
		prefix = "id"
	}
	return &IDSequence{prefix: prefix}
}

// Next returns the next ID.
func (s *IDSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("%s-%04d", s.prefix, s.seq)
}

// Issued returns how many IDs have been handed out.
func (s *IDSequence) Issued() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset restarts the sequence so a scenario can be replayed with the same
// IDs.
func (s *IDSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}

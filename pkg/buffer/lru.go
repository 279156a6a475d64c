package buffer

import "sync"

// seenIDs is a fixed-capacity FIFO set of message ids. Once full, recording a
// new id evicts the oldest, so the set always covers the most recent ids.
type seenIDs struct {
	mu    sync.Mutex
	cap   int
	set   map[string]struct{}
	order []string
	head  int
}

func newSeenIDs(capacity int) *seenIDs {
	return &seenIDs{
		cap:   capacity,
		set:   make(map[string]struct{}, capacity),
		order: make([]string, capacity),
	}
}

// Record returns false when id was already present; otherwise it records the
// id and returns true.
func (s *seenIDs) Record(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; ok {
		return false
	}
	if old := s.order[s.head]; old != "" {
		delete(s.set, old)
	}
	s.order[s.head] = id
	s.head = (s.head + 1) % s.cap
	s.set[id] = struct{}{}
	return true
}

package state

// Sequence hands out order ids from a single monotonically increasing
// counter shared by all markets. An id is consumed only when an order
// actually rests on a book: fully matched orders never take one, which
// keeps id assignment reproducible across replays.
type Sequence struct {
	next uint64
}

// NewSequence creates a sequence whose first id will be next.
func NewSequence(next uint64) *Sequence {
	return &Sequence{next: next}
}

// Next returns the current id and advances the counter.
func (s *Sequence) Next() uint64 {
	id := s.next
	s.next++
	return id
}

// Peek returns the id the next call to Next will hand out.
func (s *Sequence) Peek() uint64 {
	return s.next
}

// Restore rewinds (or forwards) the counter. Used by undo and by snapshot
// restore.
func (s *Sequence) Restore(next uint64) {
	s.next = next
}

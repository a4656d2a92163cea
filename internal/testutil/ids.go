package testutil

import (
	"sync"
	"time"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
)

// SequenceSource returns preset ids in order.
//
// It does not check ordering, so tests can feed ids that a real generator
// would never produce.
//
// Thread-safety: safe for concurrent use.
type SequenceSource struct {
	mu  sync.Mutex
	ids []tid.ID
}

// NewSequenceSource creates a source that returns ids in order.
func NewSequenceSource(ids ...tid.ID) *SequenceSource {
	return &SequenceSource{ids: ids}
}

// Push appends ids to the sequence.
func (s *SequenceSource) Push(ids ...tid.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, ids...)
}

// Next returns the next preset id. Running out is an ID_EXHAUSTED error.
//
// Implements tid.Source.
func (s *SequenceSource) Next() (tid.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return tid.Empty, ir.Errorf(ir.CodeIDExhausted, "sequence source is empty")
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, nil
}

// IDAt returns the least id of second n after Epoch.
func IDAt(n int) tid.ID {
	return tid.FromTime(Epoch.Add(time.Duration(n) * time.Second))
}

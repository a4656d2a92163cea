package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/tempo/internal/dataset"
	"github.com/roach88/tempo/internal/tid"
)

// MemStore is an in-memory dataset.Store that also records which datasets
// each Latest call consulted.
//
// Thread-safety: safe for concurrent use.
type MemStore struct {
	mu       sync.Mutex
	versions []dataset.Version
	queried  []tid.ID
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Latest implements dataset.Store.
func (s *MemStore) Latest(_ context.Context, typ, key string, ds tid.ID, cutoff *tid.ID) (*dataset.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queried = append(s.queried, ds)

	var best *dataset.Version
	for i := range s.versions {
		v := &s.versions[i]
		if v.Type != typ || v.Key != key || v.Dataset != ds {
			continue
		}
		if cutoff != nil && cutoff.Less(v.ID) {
			continue
		}
		if best == nil || best.ID.Less(v.ID) {
			best = v
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

// Insert implements dataset.Store. Ids are unique per type.
func (s *MemStore) Insert(_ context.Context, v dataset.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.versions {
		if existing.Type == v.Type && existing.ID == v.ID {
			return fmt.Errorf("duplicate %s version %s", v.Type, v.ID)
		}
	}
	s.versions = append(s.versions, v)
	return nil
}

// ByID implements dataset.Store.
func (s *MemStore) ByID(_ context.Context, typ string, id tid.ID) (*dataset.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.Type == typ && v.ID == id {
			out := v
			return &out, nil
		}
	}
	return nil, nil
}

// Prune implements dataset.Pruner.
func (s *MemStore) Prune(_ context.Context, typ, key string, ds, keep tid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.versions[:0]
	for _, v := range s.versions {
		if v.Type == typ && v.Key == key && v.Dataset == ds && v.ID.Less(keep) {
			continue
		}
		kept = append(kept, v)
	}
	s.versions = kept
	return nil
}

// History implements dataset.Historian.
func (s *MemStore) History(_ context.Context, typ, key string, ds tid.ID) ([]dataset.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []dataset.Version
	for _, v := range s.versions {
		if v.Type == typ && v.Key == key && v.Dataset == ds {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].ID.Less(out[i].ID) })
	return out, nil
}

// Len returns the number of stored versions.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions)
}

// Queried returns the datasets consulted by Latest calls since the last
// ResetQueried, in call order.
func (s *MemStore) Queried() []tid.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tid.ID(nil), s.queried...)
}

// ResetQueried clears the record of Latest calls.
func (s *MemStore) ResetQueried() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queried = nil
}

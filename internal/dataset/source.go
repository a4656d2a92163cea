package dataset

import (
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/tempo/internal/tid"
)

// DefaultCacheSize bounds each of the dataset, detail, and lookup list caches.
const DefaultCacheSize = 1024

// Source loads and saves temporal records through a Store.
//
// Thread-safety: safe for concurrent use. Caches are internally locked and
// id minting is lock-free.
type Source struct {
	store  Store
	gen    tid.Source
	logger *slog.Logger

	// cutoff is the source-wide historical view, nil for the live view.
	cutoff   *tid.ID
	readOnly bool

	// prefetch is the number of concurrent per-dataset reads issued by a
	// lookup; 0 or 1 reads sequentially.
	prefetch  int
	cacheSize int

	datasets *lru.Cache[tid.ID, *Dataset]
	details  *lru.Cache[tid.ID, detailEntry]
	lookups  *lru.Cache[lookupKey, []tid.ID]
	names    *lru.Cache[nameKey, tid.ID]
}

// detailEntry caches a detail lookup, including the absence of a detail.
type detailEntry struct {
	detail *Detail
}

type lookupKey struct {
	start         tid.ID
	cutoff        tid.ID
	bound         bool
	importsCutoff tid.ID
	importsBound  bool
}

type nameKey struct {
	name     string
	loadFrom tid.ID
}

// Option configures a Source.
type Option func(*Source)

// WithGenerator sets the id source used by Save and Delete. The default is
// the process-wide tid.Default.
func WithGenerator(gen tid.Source) Option {
	return func(s *Source) { s.gen = gen }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// WithCutoff makes the source a historical view as of cutoff.
// Writes through such a source fail with READ_ONLY.
func WithCutoff(cutoff tid.ID) Option {
	return func(s *Source) { s.cutoff = tid.Ptr(cutoff) }
}

// WithReadOnly rejects every write.
func WithReadOnly() Option {
	return func(s *Source) { s.readOnly = true }
}

// WithPrefetch reads up to n datasets of a lookup list concurrently.
func WithPrefetch(n int) Option {
	return func(s *Source) { s.prefetch = n }
}

// WithCacheSize sets the entry limit of each cache.
func WithCacheSize(n int) Option {
	return func(s *Source) { s.cacheSize = n }
}

// New creates a Source over store.
func New(store Store, opts ...Option) (*Source, error) {
	s := &Source{
		store:     store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen == nil {
		s.gen = tid.Default()
	}

	var err error
	if s.datasets, err = lru.New[tid.ID, *Dataset](s.cacheSize); err != nil {
		return nil, fmt.Errorf("dataset cache: %w", err)
	}
	if s.details, err = lru.New[tid.ID, detailEntry](s.cacheSize); err != nil {
		return nil, fmt.Errorf("detail cache: %w", err)
	}
	if s.lookups, err = lru.New[lookupKey, []tid.ID](s.cacheSize); err != nil {
		return nil, fmt.Errorf("lookup cache: %w", err)
	}
	if s.names, err = lru.New[nameKey, tid.ID](s.cacheSize); err != nil {
		return nil, fmt.Errorf("name cache: %w", err)
	}
	return s, nil
}

// Cutoff returns the source-wide cutoff, or nil.
func (s *Source) Cutoff() *tid.ID { return s.cutoff }

// Purge drops every cached dataset, detail, and lookup list.
func (s *Source) Purge() {
	s.datasets.Purge()
	s.details.Purge()
	s.lookups.Purge()
	s.names.Purge()
}

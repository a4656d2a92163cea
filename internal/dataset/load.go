package dataset

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/tempo/internal/bsontree"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/objtree"
	"github.com/roach88/tempo/internal/tid"
)

// LoadOrNull returns the current version of the record of type t with the
// given key, as seen from loadFrom at cutoff, or nil.
//
// The first dataset in the lookup list that holds any version of the key at
// or before its cutoff decides the result. If that version is a delete
// marker the result is nil and later datasets are not consulted.
func (s *Source) LoadOrNull(ctx context.Context, t *meta.Type, key string, loadFrom tid.ID, cutoff *tid.ID) (any, error) {
	v, err := s.Resolve(ctx, t.Name, key, loadFrom, cutoff)
	if err != nil || v == nil || v.Deleted {
		return nil, err
	}
	return decode(t, v)
}

// Resolve returns the winning version of key, which may be a delete marker,
// or nil when no dataset in the lookup list holds the key.
func (s *Source) Resolve(ctx context.Context, typ, key string, loadFrom tid.ID, cutoff *tid.ID) (*Version, error) {
	l, err := s.limits(ctx, loadFrom, cutoff)
	if err != nil {
		return nil, err
	}
	list, err := s.lookupList(ctx, loadFrom, l)
	if err != nil {
		return nil, err
	}
	if s.prefetch > 1 && len(list) > 1 {
		return s.resolveConcurrent(ctx, typ, key, loadFrom, list, l)
	}
	for _, ds := range list {
		v, err := s.store.Latest(ctx, typ, key, ds, l.of(loadFrom, ds))
		if err != nil {
			return nil, fmt.Errorf("load %s %q from %s: %w", typ, key, ds, err)
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

// resolveConcurrent reads every dataset of the list ahead of time and then
// picks the first non-empty one in list order. A failed read only fails the
// lookup when no earlier dataset holds the key.
func (s *Source) resolveConcurrent(ctx context.Context, typ, key string, loadFrom tid.ID, list []tid.ID, l limits) (*Version, error) {
	found := make([]*Version, len(list))
	errs := make([]error, len(list))
	var g errgroup.Group
	g.SetLimit(s.prefetch)
	for i, ds := range list {
		g.Go(func() error {
			v, err := s.store.Latest(ctx, typ, key, ds, l.of(loadFrom, ds))
			if err != nil {
				errs[i] = fmt.Errorf("load %s %q from %s: %w", typ, key, ds, err)
				return nil
			}
			found[i] = v
			return nil
		})
	}
	_ = g.Wait()
	for i, v := range found {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

// LoadByID returns the record of type t saved with version id, or nil when
// it does not exist, is a delete marker, or lies after the cutoff in force
// for its dataset.
func (s *Source) LoadByID(ctx context.Context, t *meta.Type, id tid.ID) (any, error) {
	if s.cutoff != nil && s.cutoff.Less(id) {
		return nil, nil
	}
	v, err := s.store.ByID(ctx, t.Name, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", t.Name, id, err)
	}
	if v == nil || v.Deleted {
		return nil, nil
	}
	l, err := s.limits(ctx, v.Dataset, nil)
	if err != nil {
		return nil, err
	}
	if l.own != nil && l.own.Less(id) {
		return nil, nil
	}
	return decode(t, v)
}

// History returns the versions of key saved in dataset, newest first,
// including delete markers. Versions after the cutoff in force for the
// dataset are left out.
func (s *Source) History(ctx context.Context, typ, key string, dataset tid.ID) ([]Version, error) {
	h, ok := s.store.(Historian)
	if !ok {
		return nil, fmt.Errorf("store %T does not keep history", s.store)
	}
	l, err := s.limits(ctx, dataset, nil)
	if err != nil {
		return nil, err
	}
	versions, err := h.History(ctx, typ, key, dataset)
	if err != nil {
		return nil, fmt.Errorf("history of %s %q: %w", typ, key, err)
	}
	out := versions[:0]
	for _, v := range versions {
		if l.own == nil || !l.own.Less(v.ID) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Decode returns the record held by a live version.
func Decode(t *meta.Type, v *Version) (any, error) {
	return decode(t, v)
}

func decode(t *meta.Type, v *Version) (any, error) {
	obj, err := objtree.Decode(t, bsontree.NewReader(v.Doc, t.Name))
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", t.Name, v.ID, err)
	}
	if r, ok := obj.(Stamped); ok {
		r.SetRecordID(v.ID)
	}
	if r, ok := obj.(Placed); ok {
		r.SetRecordDataset(v.Dataset)
	}
	return obj, nil
}

package dataset

import (
	"context"
	"fmt"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
)

// LookupList returns the datasets searched by a lookup starting at start, in
// search order: start, then its imports depth-first with duplicates and
// cycles removed, then the root. A dataset whose id is greater than the
// effective cutoff is left out together with its imports.
//
// The effective cutoff is the earliest of the source cutoff, the cutoff in
// the detail of start, and cutoff. Imported datasets are further limited by
// the imports cutoff in the detail of start.
func (s *Source) LookupList(ctx context.Context, start tid.ID, cutoff *tid.ID) ([]tid.ID, error) {
	limits, err := s.limits(ctx, start, cutoff)
	if err != nil {
		return nil, err
	}
	return s.lookupList(ctx, start, limits)
}

// limits holds the cutoffs in force for one lookup.
type limits struct {
	// own bounds the start dataset and the records stored in it.
	own *tid.ID

	// imports bounds every other dataset in the list and its records.
	imports *tid.ID
}

func (l limits) of(start, dataset tid.ID) *tid.ID {
	if dataset == start {
		return l.own
	}
	return l.imports
}

func (s *Source) limits(ctx context.Context, start tid.ID, cutoff *tid.ID) (limits, error) {
	detail, err := s.Detail(ctx, start)
	if err != nil {
		return limits{}, err
	}
	own := tid.MinOf(s.cutoff, cutoff)
	var importsCutoff *tid.ID
	if detail != nil {
		own = tid.MinOf(own, detail.CutoffTime)
		importsCutoff = detail.ImportsCutoffTime
	}
	return limits{own: own, imports: tid.MinOf(own, importsCutoff)}, nil
}

func (s *Source) lookupList(ctx context.Context, start tid.ID, l limits) ([]tid.ID, error) {
	k := lookupKey{start: start}
	if l.own != nil {
		k.cutoff, k.bound = *l.own, true
	}
	if l.imports != nil {
		k.importsCutoff, k.importsBound = *l.imports, true
	}
	if list, ok := s.lookups.Get(k); ok {
		return list, nil
	}

	var list []tid.ID
	seen := map[tid.ID]bool{tid.Empty: true}
	var visit func(id tid.ID, limit *tid.ID) error
	visit = func(id tid.ID, limit *tid.ID) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		if limit != nil && limit.Less(id) {
			return nil
		}
		ds, err := s.datasetByID(ctx, id)
		if err != nil {
			return err
		}
		list = append(list, id)
		for _, imp := range ds.Imports {
			if err := visit(imp, l.imports); err != nil {
				return fmt.Errorf("import of %s: %w", ds.Name, err)
			}
		}
		return nil
	}
	if err := visit(start, l.own); err != nil {
		return nil, err
	}
	list = append(list, tid.Empty)

	s.logger.Debug("resolved lookup list", "dataset", start.String(), "datasets", len(list))
	s.lookups.Add(k, list)
	return list, nil
}

// datasetByID returns the dataset record with the given id.
func (s *Source) datasetByID(ctx context.Context, id tid.ID) (*Dataset, error) {
	if ds, ok := s.datasets.Get(id); ok {
		return ds, nil
	}
	v, err := s.store.ByID(ctx, DatasetType.Name, id)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", id, err)
	}
	if v == nil || v.Deleted {
		return nil, ir.Errorf(ir.CodeDatasetNotFound, "dataset with id %s is not found", id)
	}
	obj, err := decode(DatasetType, v)
	if err != nil {
		return nil, err
	}
	ds := obj.(*Dataset)
	s.datasets.Add(id, ds)
	return ds, nil
}

// Dataset returns the dataset record with the given id. The root has no
// record.
func (s *Source) Dataset(ctx context.Context, id tid.ID) (*Dataset, error) {
	if id.IsEmpty() {
		return nil, ir.Errorf(ir.CodeDatasetNotFound, "the root dataset has no record")
	}
	return s.datasetByID(ctx, id)
}

// Detail returns the detail record of a dataset, or nil when it has none.
// The detail is looked up in the parent of the dataset.
func (s *Source) Detail(ctx context.Context, datasetID tid.ID) (*Detail, error) {
	if datasetID.IsEmpty() {
		return nil, nil
	}
	if e, ok := s.details.Get(datasetID); ok {
		return e.detail, nil
	}
	ds, err := s.datasetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	obj, err := s.LoadOrNull(ctx, DetailType, datasetID.String(), ds.Parent, nil)
	if err != nil {
		return nil, fmt.Errorf("load detail of %s: %w", ds.Name, err)
	}
	var detail *Detail
	if obj != nil {
		detail = obj.(*Detail)
	}
	s.details.Add(datasetID, detailEntry{detail: detail})
	return detail, nil
}

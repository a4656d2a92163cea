package dataset

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tempo/internal/bsontree"
	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/key"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/objtree"
	"github.com/roach88/tempo/internal/tid"
)

// Save writes obj, an instance of t, as a new version in saveTo and returns
// the version id. The id is always freshly minted; an id already carried by
// obj is ignored and replaced when obj implements Stamped.
func (s *Source) Save(ctx context.Context, t *meta.Type, obj any, saveTo tid.ID) (tid.ID, error) {
	return s.save(ctx, t, obj, saveTo, nil)
}

func (s *Source) save(ctx context.Context, t *meta.Type, obj any, saveTo tid.ID, check func(tid.ID) error) (tid.ID, error) {
	if err := s.checkWritable(ctx, saveTo); err != nil {
		return tid.Empty, err
	}
	k, err := key.Format(t, obj)
	if err != nil {
		return tid.Empty, fmt.Errorf("save %s: %w", t.Name, err)
	}
	id, err := s.mint(saveTo)
	if err != nil {
		return tid.Empty, err
	}
	if check != nil {
		if err := check(id); err != nil {
			return tid.Empty, err
		}
	}

	w := bsontree.NewWriter()
	if err := objtree.Walk(t, obj, w,
		objtree.Element{Name: "_id", Value: id},
		objtree.Element{Name: "_key", Value: k},
	); err != nil {
		return tid.Empty, fmt.Errorf("save %s %q: %w", t.Name, k, err)
	}
	v := Version{ID: id, Dataset: saveTo, Type: t.Name, Key: k, Doc: w.Bytes()}
	if err := s.store.Insert(ctx, v); err != nil {
		return tid.Empty, fmt.Errorf("save %s %q: %w", t.Name, k, err)
	}
	s.forget(t)
	if r, ok := obj.(Stamped); ok {
		r.SetRecordID(id)
	}
	if r, ok := obj.(Placed); ok {
		r.SetRecordDataset(saveTo)
	}

	if err := s.pruneIfNonTemporal(ctx, t.Name, k, saveTo, id); err != nil {
		return tid.Empty, err
	}
	return id, nil
}

// Delete writes a delete marker for key in deleteIn. The marker is written
// whether or not a live version exists anywhere.
func (s *Source) Delete(ctx context.Context, t *meta.Type, keyString string, deleteIn tid.ID) (tid.ID, error) {
	if err := s.checkWritable(ctx, deleteIn); err != nil {
		return tid.Empty, err
	}
	if _, err := key.Parse(t, keyString); err != nil {
		return tid.Empty, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	id, err := s.mint(deleteIn)
	if err != nil {
		return tid.Empty, err
	}
	v := Version{ID: id, Dataset: deleteIn, Type: t.Name, Key: keyString, Deleted: true}
	if err := s.store.Insert(ctx, v); err != nil {
		return tid.Empty, fmt.Errorf("delete %s %q: %w", t.Name, keyString, err)
	}
	s.forget(t)
	if err := s.pruneIfNonTemporal(ctx, t.Name, keyString, deleteIn, id); err != nil {
		return tid.Empty, err
	}
	return id, nil
}

// forget drops cached lookups that a new version of t may invalidate.
func (s *Source) forget(t *meta.Type) {
	switch t {
	case DatasetType:
		s.names.Purge()
	case DetailType:
		s.details.Purge()
		s.lookups.Purge()
		s.names.Purge()
	}
}

// mint returns a new id, which must be greater than the id of the dataset
// the version is written to.
func (s *Source) mint(dataset tid.ID) (tid.ID, error) {
	id, err := s.gen.Next()
	if err != nil {
		return tid.Empty, err
	}
	if !dataset.Less(id) {
		return tid.Empty, ir.Errorf(ir.CodeIDOrder,
			"id %s of a record must be greater than id %s of the dataset it is saved in", id, dataset)
	}
	return id, nil
}

func (s *Source) checkWritable(ctx context.Context, dataset tid.ID) error {
	if s.readOnly {
		return ir.Errorf(ir.CodeReadOnly, "write through a read-only source")
	}
	if s.cutoff != nil {
		return ir.Errorf(ir.CodeReadOnly, "write through a source with cutoff %s", s.cutoff)
	}
	detail, err := s.Detail(ctx, dataset)
	if err != nil {
		return err
	}
	if detail == nil {
		return nil
	}
	if detail.ReadOnly {
		return ir.Errorf(ir.CodeReadOnly, "dataset %s is read-only", dataset)
	}
	if detail.CutoffTime != nil {
		return ir.Errorf(ir.CodeReadOnly, "dataset %s has cutoff %s", dataset, detail.CutoffTime)
	}
	return nil
}

func (s *Source) pruneIfNonTemporal(ctx context.Context, typ, k string, dataset, keep tid.ID) error {
	if dataset.IsEmpty() {
		return nil
	}
	ds, err := s.datasetByID(ctx, dataset)
	if err != nil {
		return err
	}
	if !ds.NonTemporal {
		return nil
	}
	p, ok := s.store.(Pruner)
	if !ok {
		s.logger.Warn("store cannot prune non-temporal dataset", "dataset", ds.Name)
		return nil
	}
	if err := p.Prune(ctx, typ, k, dataset, keep); err != nil {
		return fmt.Errorf("prune %s %q in %s: %w", typ, k, ds.Name, err)
	}
	return nil
}

// CreateOptions configures CreateDataset.
type CreateOptions struct {
	// Parent is the dataset the DataSet record is saved in. Empty means root.
	Parent tid.ID

	// Imports lists the imported datasets in lookup order. Nil imports the
	// parent; a non-nil empty slice imports nothing.
	Imports []tid.ID

	NonTemporal bool
}

// CreateDataset saves a new DataSet record and returns it.
// Every import must exist; the new dataset id is greater than all of them.
func (s *Source) CreateDataset(ctx context.Context, name string, opts CreateOptions) (*Dataset, error) {
	name = norm.NFC.String(name)
	imports := opts.Imports
	if imports == nil {
		imports = []tid.ID{}
		if !opts.Parent.IsEmpty() {
			imports = append(imports, opts.Parent)
		}
	}
	for _, imp := range imports {
		if imp.IsEmpty() {
			continue
		}
		if _, err := s.datasetByID(ctx, imp); err != nil {
			return nil, fmt.Errorf("create dataset %s: %w", name, err)
		}
	}

	ds := &Dataset{Name: name, Imports: imports, NonTemporal: opts.NonTemporal}
	id, err := s.save(ctx, DatasetType, ds, opts.Parent, func(id tid.ID) error {
		for _, imp := range imports {
			if !imp.Less(id) {
				return ir.Errorf(ir.CodeInvalidImport,
					"dataset %s with id %s cannot import %s", name, id, imp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create dataset %s: %w", name, err)
	}

	s.datasets.Add(id, ds)
	s.names.Add(nameKey{name: name, loadFrom: opts.Parent}, id)
	s.logger.Info("created dataset", "name", name, "id", id.String(), "imports", len(imports))
	return ds, nil
}

// CreateCommon creates the Common dataset in the root.
func (s *Source) CreateCommon(ctx context.Context) (*Dataset, error) {
	return s.CreateDataset(ctx, CommonName, CreateOptions{})
}

// GetDataset returns the id of the named dataset as seen from loadFrom.
func (s *Source) GetDataset(ctx context.Context, name string, loadFrom tid.ID) (tid.ID, error) {
	id, err := s.GetDatasetOrEmpty(ctx, name, loadFrom)
	if err != nil {
		return tid.Empty, err
	}
	if id.IsEmpty() {
		return tid.Empty, ir.Errorf(ir.CodeDatasetNotFound, "dataset %s is not found in %s", name, loadFrom)
	}
	return id, nil
}

// GetDatasetOrEmpty returns the id of the named dataset as seen from
// loadFrom, or Empty when there is none.
func (s *Source) GetDatasetOrEmpty(ctx context.Context, name string, loadFrom tid.ID) (tid.ID, error) {
	name = norm.NFC.String(name)
	nk := nameKey{name: name, loadFrom: loadFrom}
	if id, ok := s.names.Get(nk); ok {
		return id, nil
	}
	obj, err := s.LoadOrNull(ctx, DatasetType, name, loadFrom, nil)
	if err != nil {
		return tid.Empty, err
	}
	if obj == nil {
		return tid.Empty, nil
	}
	ds := obj.(*Dataset)
	s.datasets.Add(ds.ID, ds)
	s.names.Add(nk, ds.ID)
	return ds.ID, nil
}

// SaveDetail saves the detail record of a dataset in the dataset's parent
// and returns the version id.
func (s *Source) SaveDetail(ctx context.Context, d *Detail) (tid.ID, error) {
	ds, err := s.datasetByID(ctx, d.DatasetID)
	if err != nil {
		return tid.Empty, err
	}
	return s.Save(ctx, DetailType, d, ds.Parent)
}

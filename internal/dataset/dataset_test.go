package dataset_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempo/internal/bsontree"
	"github.com/roach88/tempo/internal/dataset"
	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/objtree"
	"github.com/roach88/tempo/internal/testutil"
	"github.com/roach88/tempo/internal/tid"
)

type quote struct {
	ID     tid.ID
	Ticker string
	Price  float64
}

func (q *quote) SetRecordID(id tid.ID) { q.ID = id }

var quoteType = meta.NewType("Quote", func() any { return &quote{} },
	meta.Value("Ticker", ir.KindString, func(q *quote) *string { return &q.Ticker }),
	meta.Value("Price", ir.KindDouble, func(q *quote) *float64 { return &q.Price }),
).WithKey("Ticker")

func newSource(t *testing.T, st dataset.Store, opts ...dataset.Option) *dataset.Source {
	t.Helper()
	gen := testutil.NewGenerator(testutil.NewSteppingClock(testutil.Epoch, time.Second))
	s, err := dataset.New(st, append([]dataset.Option{dataset.WithGenerator(gen)}, opts...)...)
	require.NoError(t, err)
	return s
}

func save(t *testing.T, s *dataset.Source, ticker string, price float64, to tid.ID) tid.ID {
	t.Helper()
	id, err := s.Save(context.Background(), quoteType, &quote{Ticker: ticker, Price: price}, to)
	require.NoError(t, err)
	return id
}

func load(t *testing.T, s *dataset.Source, ticker string, from tid.ID, cutoff *tid.ID) *quote {
	t.Helper()
	obj, err := s.LoadOrNull(context.Background(), quoteType, ticker, from, cutoff)
	require.NoError(t, err)
	if obj == nil {
		return nil
	}
	return obj.(*quote)
}

func create(t *testing.T, s *dataset.Source, name string, opts dataset.CreateOptions) *dataset.Dataset {
	t.Helper()
	ds, err := s.CreateDataset(context.Background(), name, opts)
	require.NoError(t, err)
	return ds
}

// insertDataset stores a DataSet record directly, bypassing import checks.
func insertDataset(t *testing.T, st *testutil.MemStore, id tid.ID, name string, imports ...tid.ID) {
	t.Helper()
	w := bsontree.NewWriter()
	require.NoError(t, objtree.Walk(dataset.DatasetType, &dataset.Dataset{Name: name, Imports: imports}, w))
	require.NoError(t, st.Insert(context.Background(), dataset.Version{
		ID: id, Type: dataset.DatasetType.Name, Key: name, Doc: w.Bytes(),
	}))
}

func TestScenario_VersionsAndCutoff(t *testing.T) {
	s := newSource(t, testutil.NewMemStore())
	common, err := s.CreateCommon(context.Background())
	require.NoError(t, err)

	t1 := save(t, s, "K", 1, common.ID)
	t2 := save(t, s, "K", 2, common.ID)
	require.True(t, t1.Less(t2))

	got := load(t, s, "K", common.ID, nil)
	require.NotNil(t, got)
	assert.Equal(t, 2.0, got.Price)
	assert.Equal(t, t2, got.ID)

	got = load(t, s, "K", common.ID, &t1)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Price)
	assert.Equal(t, t1, got.ID)
}

func TestLoadOrNull_DeleteMarkerShortCircuits(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMemStore()
	s := newSource(t, st)

	d1 := create(t, s, "D1", dataset.CreateOptions{})
	d2 := create(t, s, "D2", dataset.CreateOptions{Imports: []tid.ID{d1.ID}})
	save(t, s, "K", 7, tid.Empty)
	_, err := s.Delete(ctx, quoteType, "K", d1.ID)
	require.NoError(t, err)

	assert.Nil(t, load(t, s, "K", d2.ID, nil))

	st.ResetQueried()
	assert.Nil(t, load(t, s, "K", d2.ID, nil))
	assert.Equal(t, []tid.ID{d2.ID, d1.ID}, st.Queried(), "root must not be consulted")

	assert.Nil(t, load(t, s, "K", d1.ID, nil))
	root := load(t, s, "K", tid.Empty, nil)
	require.NotNil(t, root)
	assert.Equal(t, 7.0, root.Price)
}

func TestLoadOrNull_PrefetchKeepsWinner(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMemStore()
	s := newSource(t, st, dataset.WithPrefetch(4))

	d1 := create(t, s, "D1", dataset.CreateOptions{})
	d2 := create(t, s, "D2", dataset.CreateOptions{Imports: []tid.ID{d1.ID}})
	save(t, s, "K", 7, tid.Empty)
	save(t, s, "L", 1, tid.Empty)
	save(t, s, "L", 2, d1.ID)
	_, err := s.Delete(ctx, quoteType, "K", d1.ID)
	require.NoError(t, err)

	assert.Nil(t, load(t, s, "K", d2.ID, nil))
	got := load(t, s, "L", d2.ID, nil)
	require.NotNil(t, got)
	assert.Equal(t, 2.0, got.Price)
}

// flakyStore fails quote reads from one dataset.
type flakyStore struct {
	*testutil.MemStore
	bad tid.ID
}

func (f *flakyStore) Latest(ctx context.Context, typ, key string, ds tid.ID, cutoff *tid.ID) (*dataset.Version, error) {
	if typ == quoteType.Name && ds == f.bad {
		return nil, errors.New("read failed")
	}
	return f.MemStore.Latest(ctx, typ, key, ds, cutoff)
}

func TestLoadOrNull_PrefetchErrorOrder(t *testing.T) {
	st := &flakyStore{MemStore: testutil.NewMemStore()}
	s := newSource(t, st, dataset.WithPrefetch(4))
	d1 := create(t, s, "D1", dataset.CreateOptions{})
	d2 := create(t, s, "D2", dataset.CreateOptions{Imports: []tid.ID{d1.ID}})
	save(t, s, "K", 1, d2.ID)
	save(t, s, "L", 2, d1.ID)

	// A failure after the winner does not hide it.
	st.bad = d1.ID
	got := load(t, s, "K", d2.ID, nil)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Price)

	// A failure before the winner does.
	st.bad = d2.ID
	_, err := s.LoadOrNull(context.Background(), quoteType, "L", d2.ID, nil)
	assert.ErrorContains(t, err, "read failed")
}

func TestLoadOrNull_FirstNonEmptyDatasetWins(t *testing.T) {
	s := newSource(t, testutil.NewMemStore())
	d1 := create(t, s, "D1", dataset.CreateOptions{})
	d2 := create(t, s, "D2", dataset.CreateOptions{Imports: []tid.ID{d1.ID}})

	// The version in D2 is older than the one in D1 but D2 comes first.
	save(t, s, "K", 1, d2.ID)
	save(t, s, "K", 2, d1.ID)

	got := load(t, s, "K", d2.ID, nil)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Price)
	assert.Nil(t, load(t, s, "Missing", d2.ID, nil))
}

func TestLookupList_DepthFirstWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	c1 := create(t, s, "C1", dataset.CreateOptions{})
	c2 := create(t, s, "C2", dataset.CreateOptions{Imports: []tid.ID{c1.ID}})
	c3 := create(t, s, "C3", dataset.CreateOptions{Imports: []tid.ID{c2.ID, c1.ID}})

	list, err := s.LookupList(ctx, c3.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []tid.ID{c3.ID, c2.ID, c1.ID, tid.Empty}, list)

	list, err = s.LookupList(ctx, tid.Empty, nil)
	require.NoError(t, err)
	assert.Equal(t, []tid.ID{tid.Empty}, list)
}

func TestLookupList_CycleTolerance(t *testing.T) {
	st := testutil.NewMemStore()
	a, b := testutil.IDAt(1), testutil.IDAt(2)
	insertDataset(t, st, a, "A", b)
	insertDataset(t, st, b, "B", a, b)

	s := newSource(t, st)
	list, err := s.LookupList(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, []tid.ID{a, b, tid.Empty}, list)
}

func TestLookupList_CutoffPrunesWithImports(t *testing.T) {
	st := testutil.NewMemStore()
	a, y, start, x := testutil.IDAt(1), testutil.IDAt(2), testutil.IDAt(5), testutil.IDAt(9)
	insertDataset(t, st, a, "A")
	insertDataset(t, st, y, "Y")
	insertDataset(t, st, x, "X", y)
	insertDataset(t, st, start, "S", x, a)

	s := newSource(t, st)
	ctx := context.Background()

	list, err := s.LookupList(ctx, start, nil)
	require.NoError(t, err)
	assert.Equal(t, []tid.ID{start, x, y, a, tid.Empty}, list)

	cutoff := testutil.IDAt(6)
	list, err = s.LookupList(ctx, start, &cutoff)
	require.NoError(t, err)
	assert.Equal(t, []tid.ID{start, a, tid.Empty}, list)

	early := testutil.IDAt(3)
	list, err = s.LookupList(ctx, start, &early)
	require.NoError(t, err)
	assert.Equal(t, []tid.ID{tid.Empty}, list)
}

func TestLookupList_MissingImport(t *testing.T) {
	st := testutil.NewMemStore()
	insertDataset(t, st, testutil.IDAt(5), "S", testutil.IDAt(1))

	s := newSource(t, st)
	_, err := s.LookupList(context.Background(), testutil.IDAt(5), nil)
	assert.True(t, ir.Is(err, ir.CodeDatasetNotFound), "got %v", err)
}

func TestCreateDataset_ImportsParentByDefault(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	common, err := s.CreateCommon(ctx)
	require.NoError(t, err)
	child := create(t, s, "Child", dataset.CreateOptions{Parent: common.ID})

	assert.Equal(t, []tid.ID{common.ID}, child.Imports)
	assert.Equal(t, common.ID, child.Parent)
	assert.Empty(t, common.Imports)

	id, err := s.GetDataset(ctx, "Child", common.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, id)

	_, err = s.GetDataset(ctx, "Child", tid.Empty)
	assert.True(t, ir.Is(err, ir.CodeDatasetNotFound))

	id, err = s.GetDatasetOrEmpty(ctx, "Child", tid.Empty)
	require.NoError(t, err)
	assert.True(t, id.IsEmpty())
}

func TestCreateDataset_ReloadedFromStore(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMemStore()
	s := newSource(t, st)
	common, err := s.CreateCommon(ctx)
	require.NoError(t, err)
	child := create(t, s, "Child", dataset.CreateOptions{Parent: common.ID, NonTemporal: true})

	fresh, err := dataset.New(st)
	require.NoError(t, err)
	got, err := fresh.Dataset(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child, got)

	id, err := fresh.GetDataset(ctx, dataset.CommonName, tid.Empty)
	require.NoError(t, err)
	assert.Equal(t, common.ID, id)
}

func TestCreateDataset_NormalizesName(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	ds := create(t, s, "Cafe\u0301", dataset.CreateOptions{})

	assert.Equal(t, "Caf\u00e9", ds.Name)
	id, err := s.GetDataset(ctx, "Caf\u00e9", tid.Empty)
	require.NoError(t, err)
	assert.Equal(t, ds.ID, id)
}

func TestCreateDataset_Errors(t *testing.T) {
	ctx := context.Background()
	seq := testutil.NewSequenceSource(testutil.IDAt(5), testutil.IDAt(3), testutil.IDAt(4))
	s, err := dataset.New(testutil.NewMemStore(), dataset.WithGenerator(seq))
	require.NoError(t, err)

	a := create(t, s, "A", dataset.CreateOptions{})

	_, err = s.CreateDataset(ctx, "B", dataset.CreateOptions{Imports: []tid.ID{a.ID}})
	assert.True(t, ir.Is(err, ir.CodeInvalidImport), "got %v", err)

	_, err = s.Save(ctx, quoteType, &quote{Ticker: "K"}, a.ID)
	assert.ErrorContains(t, err, "must be greater than")

	_, err = s.CreateDataset(ctx, "C", dataset.CreateOptions{Imports: []tid.ID{testutil.IDAt(1)}})
	assert.True(t, ir.Is(err, ir.CodeDatasetNotFound), "got %v", err)

	_, err = s.CreateDataset(ctx, "a;b", dataset.CreateOptions{})
	assert.True(t, ir.Is(err, ir.CodeInvalidKeyToken), "got %v", err)
}

func TestSave_StampsFreshID(t *testing.T) {
	s := newSource(t, testutil.NewMemStore())
	q := &quote{ID: testutil.IDAt(100), Ticker: "K"}
	id, err := s.Save(context.Background(), quoteType, q, tid.Empty)
	require.NoError(t, err)
	assert.Equal(t, id, q.ID)
	assert.NotEqual(t, testutil.IDAt(100), id)
}

func TestDelete_WithoutExistingVersion(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMemStore()
	s := newSource(t, st)

	_, err := s.Delete(ctx, quoteType, "Nothing", tid.Empty)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())

	_, err = s.Delete(ctx, quoteType, "a;b", tid.Empty)
	assert.True(t, ir.Is(err, ir.CodeFormatError), "got %v", err)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("source flag", func(t *testing.T) {
		s := newSource(t, testutil.NewMemStore(), dataset.WithReadOnly())
		_, err := s.Save(ctx, quoteType, &quote{Ticker: "K"}, tid.Empty)
		assert.True(t, ir.Is(err, ir.CodeReadOnly))
		_, err = s.Delete(ctx, quoteType, "K", tid.Empty)
		assert.True(t, ir.Is(err, ir.CodeReadOnly))
	})

	t.Run("source cutoff", func(t *testing.T) {
		s := newSource(t, testutil.NewMemStore(), dataset.WithCutoff(testutil.IDAt(1000)))
		_, err := s.Save(ctx, quoteType, &quote{Ticker: "K"}, tid.Empty)
		assert.True(t, ir.Is(err, ir.CodeReadOnly))
	})

	t.Run("detail flag", func(t *testing.T) {
		s := newSource(t, testutil.NewMemStore())
		ds := create(t, s, "D", dataset.CreateOptions{})
		save(t, s, "K", 1, ds.ID)
		_, err := s.SaveDetail(ctx, &dataset.Detail{DatasetID: ds.ID, ReadOnly: true})
		require.NoError(t, err)

		_, err = s.Save(ctx, quoteType, &quote{Ticker: "K"}, ds.ID)
		assert.True(t, ir.Is(err, ir.CodeReadOnly))
		assert.NotNil(t, load(t, s, "K", ds.ID, nil))
	})
}

func TestDetail_CutoffTime(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	ds := create(t, s, "D", dataset.CreateOptions{})
	v1 := save(t, s, "K", 1, ds.ID)
	save(t, s, "K", 2, ds.ID)

	_, err := s.SaveDetail(ctx, &dataset.Detail{DatasetID: ds.ID, CutoffTime: &v1})
	require.NoError(t, err)

	detail, err := s.Detail(ctx, ds.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, v1, *detail.CutoffTime)

	got := load(t, s, "K", ds.ID, nil)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Price)

	_, err = s.Save(ctx, quoteType, &quote{Ticker: "K"}, ds.ID)
	assert.True(t, ir.Is(err, ir.CodeReadOnly))
}

func TestDetail_ImportsCutoffTime(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	common, err := s.CreateCommon(ctx)
	require.NoError(t, err)
	v1 := save(t, s, "K", 1, common.ID)
	save(t, s, "K", 2, common.ID)
	d := create(t, s, "D", dataset.CreateOptions{Parent: common.ID})
	save(t, s, "Own", 3, d.ID)

	_, err = s.SaveDetail(ctx, &dataset.Detail{DatasetID: d.ID, ImportsCutoffTime: &v1})
	require.NoError(t, err)

	got := load(t, s, "K", d.ID, nil)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Price)

	own := load(t, s, "Own", d.ID, nil)
	require.NotNil(t, own, "records in the dataset itself are not limited")

	// Still writable: only CutoffTime freezes a dataset.
	save(t, s, "Own", 4, d.ID)
}

func TestNonTemporal_PrunesEarlierVersions(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMemStore()
	s := newSource(t, st)
	nt := create(t, s, "NT", dataset.CreateOptions{NonTemporal: true})

	save(t, s, "K", 1, nt.ID)
	save(t, s, "K", 2, nt.ID)
	last := save(t, s, "K", 3, nt.ID)

	versions, err := s.History(ctx, quoteType.Name, "K", nt.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, last, versions[0].ID)
}

func TestHistory_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	v1 := save(t, s, "K", 1, tid.Empty)
	v2 := save(t, s, "K", 2, tid.Empty)
	del, err := s.Delete(ctx, quoteType, "K", tid.Empty)
	require.NoError(t, err)

	versions, err := s.History(ctx, quoteType.Name, "K", tid.Empty)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []tid.ID{del, v2, v1}, []tid.ID{versions[0].ID, versions[1].ID, versions[2].ID})
	assert.True(t, versions[0].Deleted)

	obj, err := dataset.Decode(quoteType, &versions[1])
	require.NoError(t, err)
	assert.Equal(t, 2.0, obj.(*quote).Price)
}

func TestLoadByID(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewMemStore()
	s := newSource(t, st)
	v1 := save(t, s, "K", 1, tid.Empty)
	v2 := save(t, s, "K", 2, tid.Empty)
	del, err := s.Delete(ctx, quoteType, "K", tid.Empty)
	require.NoError(t, err)

	obj, err := s.LoadByID(ctx, quoteType, v1)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, 1.0, obj.(*quote).Price)
	assert.Equal(t, v1, obj.(*quote).ID)

	obj, err = s.LoadByID(ctx, quoteType, del)
	require.NoError(t, err)
	assert.Nil(t, obj)

	obj, err = s.LoadByID(ctx, quoteType, testutil.IDAt(999))
	require.NoError(t, err)
	assert.Nil(t, obj)

	historical := newSource(t, st, dataset.WithCutoff(v1))
	obj, err = historical.LoadByID(ctx, quoteType, v2)
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestSourceCutoff_HistoricalView(t *testing.T) {
	st := testutil.NewMemStore()
	s := newSource(t, st)
	v1 := save(t, s, "K", 1, tid.Empty)
	save(t, s, "K", 2, tid.Empty)

	historical := newSource(t, st, dataset.WithCutoff(v1))
	got := load(t, historical, "K", tid.Empty, nil)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Price)

	later := testutil.IDAt(1000)
	got = load(t, historical, "K", tid.Empty, &later)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Price, "the earlier of the two cutoffs applies")
}

func TestSave_SourcesShareProcessOrdering(t *testing.T) {
	st := testutil.NewMemStore()
	a, err := dataset.New(st)
	require.NoError(t, err)
	b, err := dataset.New(st)
	require.NoError(t, err)

	common, err := a.CreateCommon(context.Background())
	require.NoError(t, err)

	prev := common.ID
	for i := 0; i < 100; i++ {
		s := a
		if i%2 == 1 {
			s = b
		}
		id := save(t, s, "K", float64(i), common.ID)
		require.True(t, prev.Less(id), "save %d: %s <= %s", i, id, prev)
		prev = id
	}
	assert.Equal(t, 99.0, load(t, b, "K", common.ID, nil).Price)
}

func TestGetDataset_DeletedDatasetNotCached(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	common, err := s.CreateCommon(ctx)
	require.NoError(t, err)
	x := create(t, s, "X", dataset.CreateOptions{Parent: common.ID})

	id, err := s.GetDatasetOrEmpty(ctx, "X", common.ID)
	require.NoError(t, err)
	assert.Equal(t, x.ID, id)

	_, err = s.Delete(ctx, dataset.DatasetType, "X", common.ID)
	require.NoError(t, err)

	id, err = s.GetDatasetOrEmpty(ctx, "X", common.ID)
	require.NoError(t, err)
	assert.True(t, id.IsEmpty(), "got %s", id)
}

func TestGetDataset_DetailCutoffNotCached(t *testing.T) {
	ctx := context.Background()
	s := newSource(t, testutil.NewMemStore())
	common, err := s.CreateCommon(ctx)
	require.NoError(t, err)
	before := save(t, s, "K", 1, common.ID)
	late := create(t, s, "Late", dataset.CreateOptions{Parent: common.ID})

	id, err := s.GetDatasetOrEmpty(ctx, "Late", common.ID)
	require.NoError(t, err)
	assert.Equal(t, late.ID, id)

	_, err = s.SaveDetail(ctx, &dataset.Detail{DatasetID: common.ID, CutoffTime: &before})
	require.NoError(t, err)

	id, err = s.GetDatasetOrEmpty(ctx, "Late", common.ID)
	require.NoError(t, err)
	assert.True(t, id.IsEmpty(), "dataset created after the cutoff resolved to %s", id)
}

func TestSave_IDNotAfterDataset(t *testing.T) {
	st := testutil.NewMemStore()
	insertDataset(t, st, testutil.IDAt(50), "Future")
	s, err := dataset.New(st, dataset.WithGenerator(testutil.NewSequenceSource(testutil.IDAt(10))))
	require.NoError(t, err)

	_, err = s.Save(context.Background(), quoteType, &quote{Ticker: "K"}, testutil.IDAt(50))
	assert.True(t, ir.Is(err, ir.CodeIDOrder), "got %v", err)
	assert.Equal(t, 1, st.Len())
}

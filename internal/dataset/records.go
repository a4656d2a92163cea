package dataset

import (
	"context"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/tid"
)

// CommonName is the name of the conventional top-level dataset.
const CommonName = "Common"

// Version is one stored version of a record.
type Version struct {
	ID      tid.ID
	Dataset tid.ID
	Type    string
	Key     string

	// Deleted marks a delete marker. Doc is nil for delete markers.
	Deleted bool

	// Doc is the record body in binary document form.
	Doc []byte
}

// Store is the version store the resolution engine reads and appends to.
type Store interface {
	// Latest returns the highest-id version of key in dataset whose id does
	// not exceed cutoff, or nil. A nil cutoff means no limit.
	Latest(ctx context.Context, typ, key string, dataset tid.ID, cutoff *tid.ID) (*Version, error)

	// Insert appends a version.
	Insert(ctx context.Context, v Version) error

	// ByID returns the version of type typ with the given id, or nil.
	ByID(ctx context.Context, typ string, id tid.ID) (*Version, error)
}

// Pruner is implemented by stores that can drop superseded versions.
type Pruner interface {
	// Prune deletes the versions of key in dataset with ids below keep.
	Prune(ctx context.Context, typ, key string, dataset, keep tid.ID) error
}

// Historian is implemented by stores that can list every version of a key.
type Historian interface {
	// History returns the versions of key in dataset, newest first.
	History(ctx context.Context, typ, key string, dataset tid.ID) ([]Version, error)
}

// Stamped is implemented by records that carry their own version id.
type Stamped interface {
	SetRecordID(id tid.ID)
}

// Placed is implemented by records that carry the dataset they were saved in.
type Placed interface {
	SetRecordDataset(id tid.ID)
}

// Dataset is the DataSet record.
type Dataset struct {
	// ID is the version id of the record and the identity of the dataset.
	ID tid.ID

	// Parent is the dataset the record is stored in; Empty for the root.
	Parent tid.ID

	Name        string
	Imports     []tid.ID
	NonTemporal bool
}

func (d *Dataset) SetRecordID(id tid.ID)      { d.ID = id }
func (d *Dataset) SetRecordDataset(id tid.ID) { d.Parent = id }

// DatasetType describes Dataset records.
var DatasetType = meta.NewType("DataSet", func() any { return &Dataset{} },
	meta.Value("DataSetName", ir.KindString, func(d *Dataset) *string { return &d.Name }),
	meta.List("Imports", ir.KindTemporalID, func(d *Dataset) *[]tid.ID { return &d.Imports }),
	meta.Value("NonTemporal", ir.KindBool, func(d *Dataset) *bool { return &d.NonTemporal }),
).WithKey("DataSetName")

// Detail is the DataSetDetail record of a dataset.
type Detail struct {
	ID        tid.ID
	DatasetID tid.ID
	ReadOnly  bool

	// CutoffTime hides records and imports with later ids from every lookup
	// through the dataset.
	CutoffTime *tid.ID

	// ImportsCutoffTime applies the same limit to imported datasets only.
	ImportsCutoffTime *tid.ID
}

func (d *Detail) SetRecordID(id tid.ID) { d.ID = id }

// DetailType describes Detail records.
var DetailType = meta.NewType("DataSetDetail", func() any { return &Detail{} },
	meta.Value("DataSetId", ir.KindTemporalID, func(d *Detail) *tid.ID { return &d.DatasetID }),
	meta.Value("ReadOnly", ir.KindBool, func(d *Detail) *bool { return &d.ReadOnly }),
	meta.Nullable("CutoffTime", ir.KindTemporalID, func(d *Detail) **tid.ID { return &d.CutoffTime }),
	meta.Nullable("ImportsCutoffTime", ir.KindTemporalID, func(d *Detail) **tid.ID { return &d.ImportsCutoffTime }),
).WithKey("DataSetId")

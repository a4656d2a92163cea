package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/tempo/internal/config"
	"github.com/roach88/tempo/internal/dataset"
	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/schema"
	"github.com/roach88/tempo/internal/store"
	"github.com/roach88/tempo/internal/tid"
)

// RootName addresses the root dataset on the command line.
const RootName = "root"

// env is the opened store and source a command works against.
type env struct {
	cfg    *config.Config
	store  *store.Store
	source *dataset.Source
	types  *meta.Registry
}

// openEnv opens the configured database. Record types are compiled from
// the schema directory when withTypes is set.
func (o *RootOptions) openEnv(withTypes bool) (*env, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	if withTypes {
		if cfg.Schema == "" {
			return nil, NewExitError(ExitCommandError, "no schema directory configured (use --schema)")
		}
		if e.types, err = schema.Load(cfg.Schema); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
		}
	}

	if e.store, err = store.Open(cfg.Database); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	opts, err := cfg.SourceOptions()
	if err != nil {
		e.Close()
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts = append(opts, dataset.WithLogger(slog.Default()))
	if e.source, err = dataset.New(e.store, opts...); err != nil {
		e.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create source", err)
	}
	slog.Debug("opened database", "path", cfg.Database, "dataset", cfg.Dataset)
	return e, nil
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// recordType returns the named schema type.
func (e *env) recordType(name string) (*meta.Type, error) {
	t, ok := e.types.Lookup(name)
	if !ok {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("unknown record type %q (known: %s)", name, strings.Join(e.types.Names(), ", ")))
	}
	return t, nil
}

// resolveDataset maps a dataset path to its id. Each element of a path
// such as Common/Scenario is looked up from the dataset before it,
// starting at the root.
func (e *env) resolveDataset(ctx context.Context, path string) (tid.ID, error) {
	if path == RootName {
		return tid.Empty, nil
	}
	id := tid.Empty
	for _, name := range strings.Split(path, "/") {
		next, err := e.source.GetDataset(ctx, name, id)
		if err != nil {
			return tid.Empty, err
		}
		id = next
	}
	return id, nil
}

// target resolves the configured dataset for writing. The Common dataset is
// created on first use.
func (e *env) target(ctx context.Context) (tid.ID, error) {
	id, err := e.resolveDataset(ctx, e.cfg.Dataset)
	if ir.Is(err, ir.CodeDatasetNotFound) && e.cfg.Dataset == dataset.CommonName {
		ds, err := e.source.CreateCommon(ctx)
		if err != nil {
			return tid.Empty, err
		}
		return ds.ID, nil
	}
	return id, err
}

// datasetName returns the display name of a dataset id.
func (e *env) datasetName(ctx context.Context, id tid.ID) string {
	if id.IsEmpty() {
		return RootName
	}
	ds, err := e.source.Dataset(ctx, id)
	if err != nil {
		return id.String()
	}
	return ds.Name
}

// failure wraps a domain error as an operation failure.
func failure(message string, err error) error {
	return WrapExitError(ExitFailure, message, err)
}

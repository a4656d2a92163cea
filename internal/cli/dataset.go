package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/dataset"
	"github.com/roach88/tempo/internal/tid"
)

// DatasetInfo describes one dataset in command output.
type DatasetInfo struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// NewDatasetCommand creates the dataset command group.
func NewDatasetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Create and inspect datasets",
	}
	cmd.AddCommand(newDatasetCreateCommand(rootOpts))
	cmd.AddCommand(newDatasetLookupCommand(rootOpts))
	cmd.AddCommand(newDatasetListCommand(rootOpts))
	cmd.AddCommand(newDatasetDetailCommand(rootOpts))
	return cmd
}

func newDatasetCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		parent      string
		imports     []string
		noImports   bool
		nonTemporal bool
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a dataset",
		Long: `Create a dataset.

The dataset record is saved in --parent (the root by default). Without
--import the dataset imports its parent; --no-imports creates a dataset
that imports nothing.

Examples:
  tempo dataset create Common
  tempo dataset create Scenario --parent Common
  tempo dataset create Blend --parent Common --import Common/A --import Common/B`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noImports && len(imports) > 0 {
				return NewExitError(ExitCommandError, "--import and --no-imports are mutually exclusive")
			}
			e, err := rootOpts.openEnv(false)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			opts := dataset.CreateOptions{NonTemporal: nonTemporal}
			if parent != "" {
				if opts.Parent, err = e.resolveDataset(ctx, parent); err != nil {
					return failure("parent dataset", err)
				}
			}
			if noImports {
				opts.Imports = []tid.ID{}
			}
			for _, path := range imports {
				id, err := e.resolveDataset(ctx, path)
				if err != nil {
					return failure("imported dataset", err)
				}
				opts.Imports = append(opts.Imports, id)
			}

			ds, err := e.source.CreateDataset(ctx, args[0], opts)
			if err != nil {
				return failure("failed to create dataset", err)
			}
			info := DatasetInfo{Name: ds.Name, ID: ds.ID.String()}
			return rootOpts.formatter(cmd).Success(info, func(w io.Writer) {
				fmt.Fprintln(w, info.ID)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "dataset path the new dataset is saved in")
	cmd.Flags().StringArrayVar(&imports, "import", nil, "imported dataset path, in lookup order (repeatable)")
	cmd.Flags().BoolVar(&noImports, "no-imports", false, "import nothing")
	cmd.Flags().BoolVar(&nonTemporal, "non-temporal", false, "keep only the latest version of each record")
	return cmd
}

func newDatasetLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <dataset>",
		Short: "Print the lookup list of a dataset",
		Long: `Print the datasets a load from <dataset> consults, in order.

The global --cutoff limits the list to datasets that existed at that id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.openEnv(false)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			start, err := e.resolveDataset(ctx, args[0])
			if err != nil {
				return failure("dataset", err)
			}
			cutoff, err := e.cfg.CutoffID()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid cutoff", err)
			}
			list, err := e.source.LookupList(ctx, start, cutoff)
			if err != nil {
				return failure("failed to resolve lookup list", err)
			}

			infos := make([]DatasetInfo, 0, len(list))
			for _, id := range list {
				infos = append(infos, DatasetInfo{Name: e.datasetName(ctx, id), ID: id.String()})
			}
			return rootOpts.formatter(cmd).Success(infos, func(w io.Writer) {
				for _, info := range infos {
					fmt.Fprintf(w, "%-20s %s\n", info.Name, info.ID)
				}
			})
		},
	}
}

func newDatasetListCommand(rootOpts *RootOptions) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the datasets saved in a dataset (the root by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.openEnv(false)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			in := tid.Empty
			if parent != "" {
				if in, err = e.resolveDataset(ctx, parent); err != nil {
					return failure("dataset", err)
				}
			}
			names, err := e.store.Keys(ctx, dataset.DatasetType.Name, in)
			if err != nil {
				return failure("failed to list datasets", err)
			}
			infos := make([]DatasetInfo, 0, len(names))
			for _, name := range names {
				id, err := e.source.GetDatasetOrEmpty(ctx, name, in)
				if err != nil {
					return failure("dataset "+name, err)
				}
				if id.IsEmpty() {
					continue
				}
				infos = append(infos, DatasetInfo{Name: name, ID: id.String()})
			}
			return rootOpts.formatter(cmd).Success(infos, func(w io.Writer) {
				for _, info := range infos {
					fmt.Fprintf(w, "%-20s %s\n", info.Name, info.ID)
				}
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "dataset path to list")
	return cmd
}

func newDatasetDetailCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		readOnly      bool
		cutoff        string
		importsCutoff string
	)
	cmd := &cobra.Command{
		Use:   "detail <dataset>",
		Short: "Set the read-only flag and cutoffs of a dataset",
		Long: `Save a dataset detail record.

--read-only refuses writes to the dataset. --cutoff hides records and
imports with later ids and also refuses writes. --imports-cutoff hides
later records in imported datasets only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.openEnv(false)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			id, err := e.resolveDataset(ctx, args[0])
			if err != nil {
				return failure("dataset", err)
			}
			d := &dataset.Detail{DatasetID: id, ReadOnly: readOnly}
			if d.CutoffTime, err = parseOptionalID(cutoff); err != nil {
				return WrapExitError(ExitCommandError, "invalid --cutoff", err)
			}
			if d.ImportsCutoffTime, err = parseOptionalID(importsCutoff); err != nil {
				return WrapExitError(ExitCommandError, "invalid --imports-cutoff", err)
			}
			version, err := e.source.SaveDetail(ctx, d)
			if err != nil {
				return failure("failed to save detail", err)
			}
			return rootOpts.formatter(cmd).Success(version.String(), nil)
		},
	}
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "refuse writes to the dataset")
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "dataset cutoff id")
	cmd.Flags().StringVar(&importsCutoff, "imports-cutoff", "", "cutoff id for imported datasets")
	return cmd
}

func parseOptionalID(s string) (*tid.ID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := tid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/config"
)

// RootOptions holds global flags for all commands. Non-empty flag values
// override the configuration file.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Dataset    string
	Schema     string
	Cutoff     string
	ReadOnly   bool
	Prefetch   int

	// Now is the wall clock used for relative ages; nil means time.Now.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tempo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tempo",
		Short: "tempo - temporal record store",
		Long: `A temporal record store with dataset inheritance.

Records are immutable versions identified by temporal ids. Datasets import
other datasets, and a load resolves a key through the import graph as of
an optional cutoff.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			level := cfg.Level()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigPath, "config", "", "configuration file")
	pf.StringVar(&opts.Database, "db", "", "database path (default "+config.DefaultDatabase+")")
	pf.StringVar(&opts.Dataset, "dataset", "", "dataset path, e.g. Common or Common/Scenario")
	pf.StringVar(&opts.Schema, "schema", "", "directory of CUE record schemas")
	pf.StringVar(&opts.Cutoff, "cutoff", "", "read as of this temporal id (read-only)")
	pf.BoolVar(&opts.ReadOnly, "read-only", false, "refuse writes")
	pf.IntVar(&opts.Prefetch, "prefetch", 0, "datasets read concurrently during resolution")

	cmd.AddCommand(NewIDCommand(opts))
	cmd.AddCommand(NewDatasetCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the root command with args and returns the process exit
// code. Errors are written to stderr, or to stdout as a JSON envelope when
// --format json is selected.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	f := &OutputFormatter{Format: "text", Writer: stderr}
	if format, _ := cmd.PersistentFlags().GetString("format"); format == "json" {
		f = &OutputFormatter{Format: format, Writer: stdout}
	}
	f.Error(err)
	return GetExitCode(err)
}

// config loads the configuration file and applies flag overrides.
func (o *RootOptions) config() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Dataset != "" {
		cfg.Dataset = o.Dataset
	}
	if o.Schema != "" {
		cfg.Schema = o.Schema
	}
	if o.Cutoff != "" {
		cfg.Cutoff = o.Cutoff
	}
	if o.ReadOnly {
		cfg.ReadOnly = true
	}
	if o.Prefetch > 0 {
		cfg.Prefetch = o.Prefetch
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

func (o *RootOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

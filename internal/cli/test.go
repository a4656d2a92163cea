package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/harness"
)

// ScenarioReport is the outcome of one scenario file.
type ScenarioReport struct {
	File   string   `json:"file"`
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		goldenDir string
		update    bool
	)
	cmd := &cobra.Command{
		Use:   "test <scenario.yaml>...",
		Short: "Run resolution scenarios",
		Long: `Run scenario files against fresh in-memory databases.

With --golden each trace is compared against <dir>/<name>.golden;
--update rewrites the golden files instead.

Examples:
  tempo test testdata/scenarios/*.yaml
  tempo test --golden testdata/golden testdata/scenarios/import_chain.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if update && goldenDir == "" {
				return NewExitError(ExitCommandError, "--update requires --golden")
			}

			reports := make([]ScenarioReport, 0, len(args))
			failed := 0
			for _, path := range args {
				report, err := runScenarioFile(path, goldenDir, update)
				if err != nil {
					return WrapExitError(ExitCommandError, path, err)
				}
				if !report.Pass {
					failed++
				}
				slog.Debug("scenario finished", "file", path, "pass", report.Pass)
				reports = append(reports, report)
			}

			err := rootOpts.formatter(cmd).Success(reports, func(w io.Writer) {
				for _, r := range reports {
					status := "PASS"
					if !r.Pass {
						status = "FAIL"
					}
					fmt.Fprintf(w, "%s  %s (%s)\n", status, r.Name, r.File)
					for _, msg := range r.Errors {
						fmt.Fprintf(w, "      %s\n", msg)
					}
				}
				fmt.Fprintf(w, "\n%d passed, %d failed\n", len(reports)-failed, failed)
			})
			if err != nil {
				return err
			}
			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failed, len(reports)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&goldenDir, "golden", "", "directory of golden trace files")
	cmd.Flags().BoolVar(&update, "update", false, "rewrite golden files")
	return cmd
}

// runScenarioFile runs one scenario. The returned error is for files that
// cannot be run at all.
func runScenarioFile(path, goldenDir string, update bool) (ScenarioReport, error) {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return ScenarioReport{}, err
	}
	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioReport{}, err
	}
	report := ScenarioReport{File: path, Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	if goldenDir == "" {
		return report, nil
	}

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return ScenarioReport{}, err
	}
	golden := filepath.Join(goldenDir, scenario.Name+".golden")
	if update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			return ScenarioReport{}, err
		}
		return report, os.WriteFile(golden, snapshot, 0o644)
	}

	want, err := os.ReadFile(golden)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		report.Pass = false
		report.Errors = append(report.Errors, fmt.Sprintf("golden file %s does not exist (run with --update)", golden))
	case err != nil:
		return ScenarioReport{}, err
	case !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(snapshot)):
		report.Pass = false
		report.Errors = append(report.Errors, fmt.Sprintf("trace differs from %s", golden))
	}
	return report, nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/jsontree"
	"github.com/roach88/tempo/internal/key"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/objtree"
	"github.com/roach88/tempo/internal/tid"
	"github.com/roach88/tempo/internal/tupletree"
)

// SaveResult reports a saved version.
type SaveResult struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <type> <json|->",
		Short: "Save a record version",
		Long: `Save a record into the configured dataset.

The record is a JSON object whose elements are the fields of <type>. Use -
to read it from stdin.

Examples:
  tempo save Trade '{"Ticker":"AAPL","Venue":"XNAS","Price":187.5}'
  cat trade.json | tempo save Trade - --dataset Common/Scenario`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.openEnv(true)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			t, err := e.recordType(args[0])
			if err != nil {
				return err
			}
			data := []byte(args[1])
			if args[1] == "-" {
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return WrapExitError(ExitCommandError, "failed to read stdin", err)
				}
			}
			obj, err := objtree.Decode(t, jsontree.Decode(data, t.Name))
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid record", err)
			}
			k, err := key.Format(t, obj)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid record key", err)
			}

			into, err := e.target(ctx)
			if err != nil {
				return failure("dataset", err)
			}
			id, err := e.source.Save(ctx, t, obj, into)
			if err != nil {
				return failure("failed to save record", err)
			}
			res := SaveResult{ID: id.String(), Key: k}
			return rootOpts.formatter(cmd).Success(res, func(w io.Writer) {
				fmt.Fprintln(w, res.ID)
			})
		},
	}
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		columns []string
		id      string
	)
	cmd := &cobra.Command{
		Use:   "load <type> [key]",
		Short: "Load a record",
		Long: `Load the record with <key> as seen from the configured dataset.

The key is the record's key fields joined with ';'. With --id the exact
version is loaded instead and no key is given. --columns prints only the
named fields.

Examples:
  tempo load Trade 'AAPL;XNAS'
  tempo load Trade 'AAPL;XNAS' --cutoff 2024-03-01T00:00:00.000Z0000000000000000
  tempo load Trade --id 2024-03-01T09:30:00.000Z0a1b2c03e8000001 --columns Price`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 2) == (id != "") {
				return NewExitError(ExitCommandError, "give either a key or --id")
			}
			e, err := rootOpts.openEnv(true)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			t, err := e.recordType(args[0])
			if err != nil {
				return err
			}
			var cols []tupletree.Column
			if len(columns) > 0 {
				if cols, err = tupletree.Columns(t, columns...); err != nil {
					return WrapExitError(ExitCommandError, "invalid --columns", err)
				}
			}

			var obj any
			if id != "" {
				version, err := tid.Parse(id)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --id", err)
				}
				if obj, err = e.source.LoadByID(ctx, t, version); err != nil {
					return failure("failed to load record", err)
				}
			} else {
				from, err := e.resolveDataset(ctx, e.cfg.Dataset)
				if err != nil {
					return failure("dataset", err)
				}
				cutoff, err := e.cfg.CutoffID()
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid cutoff", err)
				}
				if obj, err = e.source.LoadOrNull(ctx, t, args[1], from, cutoff); err != nil {
					return failure("failed to load record", err)
				}
			}
			if obj == nil {
				return NewExitError(ExitFailure, "record not found")
			}

			f := rootOpts.formatter(cmd)
			if cols != nil {
				row, err := project(t, cols, obj)
				if err != nil {
					return failure("failed to project record", err)
				}
				return f.Success(row, func(w io.Writer) {
					for _, c := range cols {
						fmt.Fprintf(w, "%-20s %s\n", c.Name, display(row[c.Name]))
					}
				})
			}
			doc, err := recordJSON(t, obj)
			if err != nil {
				return failure("failed to encode record", err)
			}
			return f.Success(doc, func(w io.Writer) {
				fmt.Fprintln(w, string(doc))
			})
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "fields to print, comma separated")
	cmd.Flags().StringVar(&id, "id", "", "load this exact version")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <key>",
		Short: "Delete a record from the configured dataset",
		Long: `Write a delete marker for <key> in the configured dataset.

Earlier versions stay readable with a cutoff before the marker. The marker
also hides versions of the key in imported datasets.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.openEnv(true)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			t, err := e.recordType(args[0])
			if err != nil {
				return err
			}
			in, err := e.target(ctx)
			if err != nil {
				return failure("dataset", err)
			}
			id, err := e.source.Delete(ctx, t, args[1], in)
			if err != nil {
				return failure("failed to delete record", err)
			}
			res := SaveResult{ID: id.String(), Key: args[1]}
			return rootOpts.formatter(cmd).Success(res, func(w io.Writer) {
				fmt.Fprintln(w, res.ID)
			})
		},
	}
}

// HistoryEntry is one stored version in history output.
type HistoryEntry struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Deleted bool   `json:"deleted,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <type> <key>",
		Short: "List the versions of a record in the configured dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.openEnv(true)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			t, err := e.recordType(args[0])
			if err != nil {
				return err
			}
			in, err := e.resolveDataset(ctx, e.cfg.Dataset)
			if err != nil {
				return failure("dataset", err)
			}
			versions, err := e.source.History(ctx, t.Name, args[1], in)
			if err != nil {
				return failure("failed to read history", err)
			}

			now := rootOpts.now()
			entries := make([]HistoryEntry, 0, len(versions))
			for _, v := range versions {
				entries = append(entries, HistoryEntry{
					ID:      v.ID.String(),
					Time:    humanize.RelTime(v.ID.CreationTime(), now, "ago", "from now"),
					Deleted: v.Deleted,
				})
			}
			return rootOpts.formatter(cmd).Success(entries, func(w io.Writer) {
				for _, h := range entries {
					mark := ""
					if h.Deleted {
						mark = "  deleted"
					}
					fmt.Fprintf(w, "%s  %-16s%s\n", h.ID, h.Time, mark)
				}
			})
		},
	}
}

// recordJSON renders a record as a JSON object.
func recordJSON(t *meta.Type, obj any) (json.RawMessage, error) {
	w := jsontree.NewWriter()
	if err := objtree.Walk(t, obj, w); err != nil {
		return nil, err
	}
	return json.RawMessage(w.Bytes()), nil
}

// project returns the named columns of a record.
func project(t *meta.Type, cols []tupletree.Column, obj any) (map[string]any, error) {
	r, err := objtree.NewReader(t, obj)
	if err != nil {
		return nil, err
	}
	cells, err := tupletree.Project(cols, r)
	if err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		if row[c.Name], err = cellValue(c, cells[i]); err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
	}
	return row, nil
}

// cellValue converts a projected cell to a JSON-friendly value.
func cellValue(c tupletree.Column, v any) (any, error) {
	if items, ok := v.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := cellValue(tupletree.Column{Name: c.Name, Kind: c.Kind, Type: c.Type}, item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	if v == nil {
		return nil, nil
	}
	switch {
	case c.Kind == ir.KindData:
		if text, ok := v.(string); ok {
			return json.RawMessage(text), nil
		}
	case c.Kind == ir.KindKey && c.Type != nil:
		return key.Format(c.Type, v)
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return v, nil
}

func display(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case json.RawMessage:
		return string(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = display(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

package cli

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/tid"
)

// IDInfo is the decoded form of a temporal id.
type IDInfo struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Machine string `json:"machine"`
	PID     uint16 `json:"pid"`
	Counter uint32 `json:"counter"`
}

func describeID(id tid.ID) IDInfo {
	return IDInfo{
		ID:      id.String(),
		Time:    id.CreationTime().Format(time.RFC3339),
		Machine: hex.EncodeToString(id[4:7]),
		PID:     binary.BigEndian.Uint16(id[7:9]),
		Counter: uint32(id[9])<<16 | uint32(id[10])<<8 | uint32(id[11]),
	}
}

// NewIDCommand creates the id command group.
func NewIDCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Mint and inspect temporal ids",
	}
	cmd.AddCommand(newIDNewCommand(rootOpts))
	cmd.AddCommand(newIDParseCommand(rootOpts))
	cmd.AddCommand(newIDAtCommand(rootOpts))
	return cmd
}

func newIDNewCommand(rootOpts *RootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Mint new temporal ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return NewExitError(ExitCommandError, "--count must be positive")
			}
			gen := tid.Default()
			ids := make([]string, 0, count)
			for range count {
				id, err := gen.Next()
				if err != nil {
					return failure("failed to mint id", err)
				}
				ids = append(ids, id.String())
			}
			return rootOpts.formatter(cmd).Success(ids, func(w io.Writer) {
				for _, id := range ids {
					fmt.Fprintln(w, id)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ids to mint")
	return cmd
}

func newIDParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <id>",
		Short: "Decode a temporal id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := tid.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid id", err)
			}
			info := describeID(id)
			return rootOpts.formatter(cmd).Success(info, func(w io.Writer) {
				fmt.Fprintf(w, "time     %s\n", info.Time)
				fmt.Fprintf(w, "machine  %s\n", info.Machine)
				fmt.Fprintf(w, "pid      %d\n", info.PID)
				fmt.Fprintf(w, "counter  %d\n", info.Counter)
			})
		},
	}
}

func newIDAtCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "at <time>",
		Short: "Print the least id of an RFC 3339 time, for use as a cutoff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := time.Parse(time.RFC3339, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid time", err)
			}
			id := tid.FromTime(t).String()
			return rootOpts.formatter(cmd).Success(id, nil)
		},
	}
}

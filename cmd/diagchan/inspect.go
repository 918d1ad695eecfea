package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wippyai/diagchan/channel"
	"github.com/wippyai/diagchan/subscriber"
)

var inspectAll bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot>",
	Short: "Print the channels stored in a realm snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVarP(&inspectAll, "all", "a", false, "Include channels without subscribers")
}

func runInspect(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap channel.Snapshot
	if err := snap.UnmarshalBinary(data); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	return printSnapshot(os.Stdout, &snap, inspectAll)
}

func printSnapshot(w io.Writer, snap *channel.Snapshot, all bool) error {
	table := subscriber.NewTable()
	if err := table.Deserialize(snap.Subscribers); err != nil {
		return err
	}

	fmt.Fprintf(w, "Snapshot v%d, %d channels\n\n", snap.Version, len(snap.Names))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tCHANNEL\tSUBSCRIBERS")
	for i, name := range snap.Names {
		n := table.Count(uint32(i))
		if n == 0 && !all {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i, name, n)
	}
	return tw.Flush()
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/diagchan/internal/config"
)

var (
	snapshotOut    string
	snapshotRounds int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Publish each scenario channel and write a realm snapshot",
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "realm.snap", "Snapshot file to write")
	snapshotCmd.Flags().IntVarP(&snapshotRounds, "rounds", "r", 1, "Publish rounds before the snapshot")
}

func runSnapshot(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	runErr := make(chan error, 1)
	go func() { runErr <- a.Runner().Run(ctx) }()

	data, err := takeSnapshot(ctx, a.Runner(), a.Config().Scenario.Channels, snapshotRounds)
	cancel()
	if rerr := <-runErr; err == nil {
		err = rerr
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(snapshotOut, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", snapshotOut, len(data))
	return nil
}

type snapshotter interface {
	Emit(ctx context.Context, name string) error
	Snapshot(ctx context.Context) ([]byte, error)
}

// takeSnapshot publishes every channel rounds times, then snapshots.
func takeSnapshot(ctx context.Context, s snapshotter, channels []config.ChannelConfig, rounds int) ([]byte, error) {
	for i := 0; i < rounds; i++ {
		for _, ch := range channels {
			if err := s.Emit(ctx, ch.Name); err != nil {
				return nil, fmt.Errorf("emit %s: %w", ch.Name, err)
			}
		}
	}
	return s.Snapshot(ctx)
}

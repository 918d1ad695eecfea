package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/diagchan/internal/metrics"
)

var runDuration time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured scenario",
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "Stop after this long (0 runs until interrupted)")
}

func runScenario(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	logger := a.Logger()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Runner().Run(gctx)
	})
	if addr := a.Config().Metrics.Addr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, addr, a.Gatherer(), logger)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats, err := a.Runner().Stats(context.Background())
	if err == nil {
		for _, c := range stats.Channels {
			logger.Info("channel summary",
				zap.String("channel", c.Name),
				zap.Uint64("published", c.Published),
				zap.Uint64("received", c.Received))
		}
	}
	return nil
}

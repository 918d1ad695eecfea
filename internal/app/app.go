// Package app wires diagchan's services with go.uber.org/dig.
package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/wippyai/diagchan/guest"
	"github.com/wippyai/diagchan/internal/config"
	"github.com/wippyai/diagchan/internal/logging"
	"github.com/wippyai/diagchan/internal/metrics"
	"github.com/wippyai/diagchan/internal/scenario"
	"github.com/wippyai/diagchan/realm"
)

// App holds the resolved services.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	guest    *guest.Guest
	realm    *realm.Realm
	runner   *scenario.Runner
}

func (a *App) Config() *config.Config        { return a.cfg }
func (a *App) Logger() *zap.Logger           { return a.logger }
func (a *App) Gatherer() prometheus.Gatherer { return a.registry }
func (a *App) Metrics() *metrics.Collector   { return a.metrics }
func (a *App) Guest() *guest.Guest           { return a.guest }
func (a *App) Realm() *realm.Realm           { return a.realm }
func (a *App) Runner() *scenario.Runner      { return a.runner }

// guestHandle lets dig carry an optional guest.
type guestHandle struct{ *guest.Guest }

// New builds every service from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		newLogger,
		prometheus.NewRegistry,
		newMetrics,
		func(cfg *config.Config) (guestHandle, error) { return newGuest(ctx, cfg) },
		newRealm,
		newRunner,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *App
	err := d.Invoke(func(
		logger *zap.Logger,
		registry *prometheus.Registry,
		collector *metrics.Collector,
		g guestHandle,
		rlm *realm.Realm,
		runner *scenario.Runner,
	) {
		result = &App{
			cfg:      cfg,
			logger:   logger,
			registry: registry,
			metrics:  collector,
			guest:    g.Guest,
			realm:    rlm,
			runner:   runner,
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases the guest runtime, if any, and flushes the logger.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.guest != nil {
		err = a.guest.Close(ctx)
	}
	_ = a.logger.Sync()
	return err
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logging.Install(logger)
	return logger, nil
}

func newMetrics(cfg *config.Config, reg *prometheus.Registry) (*metrics.Collector, error) {
	return metrics.New(cfg.Metrics.Namespace, reg)
}

func newGuest(ctx context.Context, cfg *config.Config) (guestHandle, error) {
	if cfg.Realm.Backend != config.BackendWasm {
		return guestHandle{}, nil
	}
	g, err := guest.New(ctx)
	if err != nil {
		return guestHandle{}, err
	}
	return guestHandle{g}, nil
}

func newRealm(logger *zap.Logger, collector *metrics.Collector, g guestHandle) *realm.Realm {
	opts := []realm.Option{
		realm.WithLogger(logger.Named("realm")),
		realm.WithObserver(collector),
	}
	if g.Guest != nil {
		opts = append(opts, realm.WithTable(g.Table()))
	}
	rlm := realm.New(opts...)
	if g.Guest != nil {
		g.Bind(rlm.Registry())
	}
	return rlm
}

func newRunner(cfg *config.Config, rlm *realm.Realm, logger *zap.Logger, g guestHandle) (*scenario.Runner, error) {
	var opts []scenario.Option
	if g.Guest != nil {
		opts = append(opts, scenario.WithResolver(g.Resolve))
	}
	return scenario.New(cfg.Scenario, rlm, logger.Named("scenario"), opts...)
}

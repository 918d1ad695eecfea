// Package metrics exports channel activity as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wippyai/diagchan/channel"
)

// Collector counts channel lifecycle and publish events. It implements
// channel.Observer.
type Collector struct {
	created   prometheus.Counter
	linked    *prometheus.CounterVec
	unlinked  prometheus.Counter
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

var _ channel.Observer = (*Collector)(nil)

// New creates a collector and registers its metrics with reg.
func New(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "created_total",
			Help:      "Native channel objects created.",
		}),
		linked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "linked_total",
			Help:      "Channels linked to a script counterpart, by publish resolution mode.",
		}, []string{"mode"}),
		unlinked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "unlinked_total",
			Help:      "Channels unlinked from their script counterpart.",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "delivered_total",
			Help:      "Messages handed to a script counterpart.",
		}, []string{"channel"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "dropped_total",
			Help:      "Messages with subscribers that could not be delivered.",
		}, []string{"channel", "reason"}),
	}

	for _, col := range []prometheus.Collector{c.created, c.linked, c.unlinked, c.delivered, c.dropped} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) ChannelCreated(string, uint32) {
	c.created.Inc()
}

func (c *Collector) ChannelLinked(_ string, eager bool) {
	mode := "deferred"
	if eager {
		mode = "eager"
	}
	c.linked.WithLabelValues(mode).Inc()
}

func (c *Collector) ChannelUnlinked(string) {
	c.unlinked.Inc()
}

func (c *Collector) Delivered(name string) {
	c.delivered.WithLabelValues(name).Inc()
}

func (c *Collector) Dropped(name string, reason channel.DropReason) {
	c.dropped.WithLabelValues(name, reason.String()).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Package scenario drives synthetic traffic through a realm. A single loop
// goroutine owns the realm; cron-scheduled emitters and callers talk to it
// through a request channel.
package scenario

import (
	"context"
	"errors"
	"sync"

	robfigcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wippyai/diagchan/internal/config"
	"github.com/wippyai/diagchan/realm"
	"github.com/wippyai/diagchan/script"
)

// ErrStopped is returned once the runner's loop has exited.
var ErrStopped = errors.New("scenario: runner stopped")

// ErrUnknownChannel is returned by Emit for a channel not in the scenario.
var ErrUnknownChannel = errors.New("scenario: unknown channel")

// Resolver registers a channel name before the scenario starts, e.g. through
// a wasm guest.
type Resolver func(ctx context.Context, name string) (uint32, error)

// ChannelStats describes one scenario channel.
type ChannelStats struct {
	Name        string
	Index       uint32
	Subscribers uint32
	Linked      bool
	Tracing     bool
	Published   uint64
	Received    uint64
	Traced      uint64
}

// Stats is a point-in-time view of the runner.
type Stats struct {
	RealmID  string
	Channels []ChannelStats
	Errors   uint64
}

type emitter struct {
	cfg       config.ChannelConfig
	published uint64
	received  uint64
	traced    uint64
}

type request struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Runner publishes configured payloads on configured schedules.
type Runner struct {
	realm    *realm.Realm
	logger   *zap.Logger
	cron     *robfigcron.Cron
	resolve  Resolver
	emitters []*emitter
	byName   map[string]*emitter
	requests chan request
	stopped  chan struct{}
	failures uint64
	once     sync.Once
}

// Option configures a Runner.
type Option func(*Runner)

// WithResolver registers every scenario channel through fn before linking.
func WithResolver(fn Resolver) Option {
	return func(r *Runner) { r.resolve = fn }
}

// New prepares a runner over rlm. The realm must not be used by anyone else
// once Run is called.
func New(cfg config.ScenarioConfig, rlm *realm.Realm, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		realm:    rlm,
		logger:   logger,
		cron:     robfigcron.New(),
		byName:   make(map[string]*emitter, len(cfg.Channels)),
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, ch := range cfg.Channels {
		if _, dup := r.byName[ch.Name]; dup {
			return nil, errors.New("scenario: duplicate channel " + ch.Name)
		}
		e := &emitter{cfg: ch}
		r.emitters = append(r.emitters, e)
		r.byName[ch.Name] = e
	}
	return r, nil
}

// Run sets up subscribers, links the script layer and serves requests until
// ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	defer r.once.Do(func() { close(r.stopped) })

	if err := r.setup(ctx); err != nil {
		return err
	}
	for _, e := range r.emitters {
		sched, err := config.ParseSchedule(e.cfg.Every)
		if err != nil {
			return err
		}
		name := e.cfg.Name
		r.cron.Schedule(sched, robfigcron.FuncJob(func() {
			if err := r.Emit(ctx, name); err != nil && !errors.Is(err, ErrStopped) && ctx.Err() == nil {
				r.logger.Warn("scheduled emit failed", zap.String("channel", name), zap.Error(err))
			}
		}))
	}

	r.cron.Start()
	defer func() { <-r.cron.Stop().Done() }()

	r.logger.Info("scenario started",
		zap.String("realm", r.realm.ID()),
		zap.Int("channels", len(r.emitters)))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scenario stopped")
			return nil
		case req := <-r.requests:
			req.fn(ctx)
			close(req.done)
		}
	}
}

func (r *Runner) setup(ctx context.Context) error {
	mod := r.realm.Script()
	for _, e := range r.emitters {
		if r.resolve != nil {
			if _, err := r.resolve(ctx, e.cfg.Name); err != nil {
				return err
			}
		}
		for i := 0; i < e.cfg.Subscribers; i++ {
			mod.Subscribe(e.cfg.Name, func(any, string) { e.received++ })
		}
		if e.cfg.Tracing {
			mod.TracingChannel(e.cfg.Name).Subscribe(script.TracingHandlers{
				Start: func(any, string) { e.traced++ },
			})
		}
	}
	return mod.Link()
}

// do runs fn on the loop goroutine and waits for it.
func (r *Runner) do(ctx context.Context, fn func(ctx context.Context)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case r.requests <- req:
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-r.stopped:
		return ErrStopped
	}
}

// Emit publishes the configured payload of the named channel once.
func (r *Runner) Emit(ctx context.Context, name string) error {
	e, ok := r.byName[name]
	if !ok {
		return ErrUnknownChannel
	}
	return r.do(ctx, func(ctx context.Context) { r.emit(ctx, e) })
}

func (r *Runner) emit(ctx context.Context, e *emitter) {
	publish := func(context.Context) (any, error) {
		r.realm.Channel(e.cfg.Name).Publish(e.cfg.Payload)
		return e.cfg.Payload, nil
	}

	e.published++
	if !e.cfg.Tracing {
		publish(ctx)
		return
	}
	tc := r.realm.Script().TracingChannel(e.cfg.Name)
	if _, err := tc.TraceSync(ctx, &script.TraceContext{Data: e.cfg.Payload}, publish); err != nil {
		r.failures++
	}
}

// Stats returns the current counters. After Run has returned it reports the
// final counters.
func (r *Runner) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.do(ctx, func(context.Context) { s = r.stats() })
	if errors.Is(err, ErrStopped) {
		return r.stats(), nil
	}
	return s, err
}

func (r *Runner) stats() Stats {
	reg := r.realm.Registry()
	s := Stats{
		RealmID:  r.realm.ID(),
		Channels: make([]ChannelStats, 0, len(r.emitters)),
		Errors:   r.failures,
	}
	for _, e := range r.emitters {
		cs := ChannelStats{
			Name:      e.cfg.Name,
			Tracing:   e.cfg.Tracing,
			Published: e.published,
			Received:  e.received,
			Traced:    e.traced,
		}
		if idx, ok := reg.Lookup(e.cfg.Name); ok {
			cs.Index = idx
			cs.Subscribers = reg.Subscribers().Count(idx)
			if c, ok := reg.ChannelAt(idx); ok {
				cs.Linked = c.IsLinked()
			}
		}
		s.Channels = append(s.Channels, cs)
	}
	return s
}

// Snapshot serializes the realm and links the script layer again.
func (r *Runner) Snapshot(ctx context.Context) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if doErr := r.do(ctx, func(context.Context) {
		if data, err = r.realm.Snapshot(); err != nil {
			return
		}
		err = r.realm.Script().Link()
	}); doErr != nil {
		return nil, doErr
	}
	return data, err
}

package realm

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/diagchan/channel"
	"github.com/wippyai/diagchan/errors"
	"github.com/wippyai/diagchan/script"
	"github.com/wippyai/diagchan/subscriber"
)

// State is the lifecycle state of a realm.
type State uint8

const (
	StateActive State = iota
	StateSerializing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSerializing:
		return "serializing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Realm is one isolated diagnostics-channel context.
// It is not safe for concurrent use.
type Realm struct {
	id         string
	table      *subscriber.Table
	registry   *channel.Registry
	script     *script.Module
	observer   channel.Observer
	logger     *zap.Logger
	scriptOpts []script.Option
	state      State
	noCallIns  int
}

type options struct {
	id         string
	table      *subscriber.Table
	observer   channel.Observer
	logger     *zap.Logger
	scriptOpts []script.Option
}

// Option configures a Realm.
type Option func(*options)

// WithTable makes the realm use table, e.g. one living in guest memory.
func WithTable(t *subscriber.Table) Option {
	return func(o *options) { o.table = t }
}

// WithObserver sets the channel observer.
func WithObserver(obs channel.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLogger sets the realm's logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithID overrides the generated realm ID.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithScriptOptions passes options to the realm's script module.
func WithScriptOptions(opts ...script.Option) Option {
	return func(o *options) { o.scriptOpts = append(o.scriptOpts, opts...) }
}

// New creates an active realm.
func New(opts ...Option) *Realm {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.table == nil {
		o.table = subscriber.NewTable()
	}
	if o.observer == nil {
		o.observer = channel.NopObserver{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	r := &Realm{
		id:         o.id,
		table:      o.table,
		observer:   o.observer,
		logger:     o.logger.With(zap.String("realm", o.id)),
		scriptOpts: o.scriptOpts,
	}
	r.registry = channel.NewRegistry(r.table,
		channel.WithGate(r),
		channel.WithObserver(r.observer))
	r.script = script.New(r.registry, r.scriptOpts...)

	r.logger.Debug("realm created")
	return r
}

// ID returns the realm's identifier.
func (r *Realm) ID() string { return r.id }

// State returns the lifecycle state.
func (r *Realm) State() State { return r.state }

// Registry returns the native channel registry.
func (r *Realm) Registry() *channel.Registry { return r.registry }

// Script returns the script module.
func (r *Realm) Script() *script.Module { return r.script }

// Table returns the subscriber table.
func (r *Realm) Table() *subscriber.Table { return r.table }

// Channel returns the native channel for name.
func (r *Realm) Channel(name string) *channel.Channel {
	return r.registry.Channel(name)
}

// CanCallIn reports whether native code may call into the script layer.
func (r *Realm) CanCallIn() bool {
	return r.state == StateActive && r.noCallIns == 0
}

// WithoutCallIns runs fn with call-ins forbidden. Calls nest.
func (r *Realm) WithoutCallIns(fn func()) {
	r.noCallIns++
	defer func() { r.noCallIns-- }()
	fn()
}

// Snapshot serializes the realm's registry. All links are dropped; the realm
// stays usable.
func (r *Realm) Snapshot() ([]byte, error) {
	if r.state != StateActive {
		return nil, errors.State(errors.PhaseSnapshot, "realm is "+r.state.String())
	}
	r.state = StateSerializing
	defer func() { r.state = StateActive }()

	snap := r.registry.PrepareForSerialization()
	data, err := snap.MarshalBinary()
	if err != nil {
		return nil, err
	}

	r.logger.Debug("realm snapshot taken",
		zap.Int("channels", len(snap.Names)),
		zap.Int("bytes", len(data)))
	return data, nil
}

// Restore creates a realm from snapshot bytes. The new realm's script module
// starts without subscribers and without a bridge.
func Restore(data []byte, opts ...Option) (*Realm, error) {
	var snap channel.Snapshot
	if err := snap.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	r := New(opts...)
	if err := r.registry.Restore(&snap); err != nil {
		return nil, err
	}

	r.logger.Debug("realm restored", zap.Int("channels", len(snap.Names)))
	return r, nil
}

// Close forbids further call-ins and drops every link.
func (r *Realm) Close() error {
	if r.state == StateClosed {
		return errors.State(errors.PhaseRealm, "realm already closed")
	}
	r.state = StateClosed
	r.registry.ClearBridge()
	r.registry.Each(func(c *channel.Channel) bool {
		c.Unlink()
		return true
	})

	r.logger.Debug("realm closed")
	return nil
}

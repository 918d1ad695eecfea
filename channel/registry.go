package channel

import (
	"go.uber.org/zap"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
	"github.com/wippyai/diagchan/resource"
	"github.com/wippyai/diagchan/subscriber"
)

// Registry owns the channels of one realm.
// It is not safe for concurrent use.
type Registry struct {
	table    *subscriber.Table
	gate     diagchan.Gate
	observer Observer
	bridge   diagchan.LinkFunc
	indices  map[string]uint32
	names    []string
	channels *resource.Slots[*Channel]
}

// Option configures a Registry.
type Option func(*Registry)

// WithGate sets the gate consulted before publishing into the scripted layer.
func WithGate(g diagchan.Gate) Option {
	return func(r *Registry) {
		if g != nil {
			r.gate = g
		}
	}
}

// WithObserver sets the lifecycle and publish observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRegistry creates a registry over table.
func NewRegistry(table *subscriber.Table, opts ...Option) *Registry {
	if table == nil {
		table = subscriber.NewTable()
	}
	r := &Registry{
		table:    table,
		gate:     diagchan.AlwaysOpen,
		observer: NopObserver{},
		indices:  make(map[string]uint32),
		channels: resource.NewSlots[*Channel](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.channels.AddObserver(resource.ObserverFunc(r.onSlotEvent))
	return r
}

func (r *Registry) onSlotEvent(e resource.Event) {
	c, ok := e.Value.(*Channel)
	if !ok {
		return
	}
	switch e.Type {
	case resource.EventCreated:
		r.observer.ChannelCreated(c.name, c.index)
	case resource.EventDropped:
		Logger().Debug("channel discarded", zap.String("channel", c.name))
	}
}

// Subscribers returns the shared subscriber table.
func (r *Registry) Subscribers() *subscriber.Table {
	return r.table
}

// ChannelIndex returns the index registered for name, allocating the next
// free one on first use. It panics with a capacity error once
// diagchan.MaxChannels names are registered.
func (r *Registry) ChannelIndex(name string) uint32 {
	if idx, ok := r.indices[name]; ok {
		return idx
	}
	if len(r.names) >= diagchan.MaxChannels {
		err := errors.Capacity(name, diagchan.MaxChannels)
		Logger().Error("channel capacity exhausted", zap.String("channel", name), zap.Error(err))
		panic(err)
	}

	idx := uint32(len(r.names))
	r.indices[name] = idx
	r.names = append(r.names, name)

	Logger().Debug("channel index allocated", zap.String("channel", name), zap.Uint32("index", idx))
	return idx
}

// Lookup returns the index of name without allocating.
func (r *Registry) Lookup(name string) (uint32, bool) {
	idx, ok := r.indices[name]
	return idx, ok
}

// Len returns the number of allocated indices.
func (r *Registry) Len() int {
	return len(r.names)
}

// Names returns registered names in index order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Channel returns the channel for name, creating it on first use. When a
// bridge is installed and the channel is not linked yet, linking is attempted
// before returning. The returned pointer is owned by the registry and must
// not be kept across a snapshot.
func (r *Registry) Channel(name string) *Channel {
	idx := r.ChannelIndex(name)

	c, ok := r.channels.Get(int(idx))
	if !ok {
		c = &Channel{
			registry: r,
			index:    idx,
			name:     name,
		}
		r.channels.Set(int(idx), c)
	}

	if r.bridge != nil && !c.IsLinked() {
		r.link(c)
	}
	return c
}

// ChannelAt returns the live channel object at index, if one was created.
func (r *Registry) ChannelAt(index uint32) (*Channel, bool) {
	return r.channels.Get(int(index))
}

// Live returns the number of channel objects currently held.
func (r *Registry) Live() int {
	return r.channels.Live()
}

// Each calls fn for every live channel in index order until fn returns false.
func (r *Registry) Each(fn func(*Channel) bool) {
	r.channels.Each(func(_ int, c *Channel) bool {
		return fn(c)
	})
}

// detach drops the channel list. Each dropped channel unlinks itself and is
// cut loose from the registry.
func (r *Registry) detach() {
	r.channels.Clear()
}
